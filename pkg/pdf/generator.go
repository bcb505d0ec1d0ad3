package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Letter is a single formal letter.
type Letter struct {
	Letterhead string
	Reference  string
	Date       time.Time
	Recipient  []string
	Subject    string
	Paragraphs []string
	Closing    string
	Signatory  string
}

type Generator interface {
	RenderLetter(ctx context.Context, letter Letter) ([]byte, error)
}

// Options configures page layout
type Options struct {
	PageSize   string
	FontFamily string
	FontSize   float64
	Margin     float64
	DateFormat string
}

// DefaultOptions returns A4 portrait with Arial 11
func DefaultOptions() Options {
	return Options{
		PageSize:   "A4",
		FontFamily: "Arial",
		FontSize:   11,
		Margin:     20,
		DateFormat: "2 January 2006",
	}
}

type letterGenerator struct {
	options Options
}

func NewGenerator(options Options) Generator {
	return &letterGenerator{options: options}
}

func (g *letterGenerator) RenderLetter(_ context.Context, letter Letter) ([]byte, error) {
	o := g.options
	doc := gofpdf.New("P", "mm", o.PageSize, "")
	doc.SetMargins(o.Margin, o.Margin, o.Margin)
	doc.SetAutoPageBreak(true, o.Margin)
	doc.SetTitle(letter.Subject, true)
	doc.AddPage()

	// Letterhead
	doc.SetFont(o.FontFamily, "B", o.FontSize+5)
	doc.SetTextColor(31, 56, 100)
	doc.CellFormat(0, 10, letter.Letterhead, "", 1, "C", false, 0, "")
	pageWidth, _ := doc.GetPageSize()
	y := doc.GetY() + 2
	doc.SetDrawColor(68, 114, 196)
	doc.Line(o.Margin, y, pageWidth-o.Margin, y)
	doc.Ln(8)

	doc.SetTextColor(0, 0, 0)
	doc.SetFont(o.FontFamily, "", o.FontSize)
	if letter.Reference != "" {
		doc.CellFormat(0, 6, "Ref: "+letter.Reference, "", 1, "L", false, 0, "")
	}
	doc.CellFormat(0, 6, letter.Date.Format(o.DateFormat), "", 1, "L", false, 0, "")
	doc.Ln(4)

	for _, line := range letter.Recipient {
		doc.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	doc.Ln(4)

	if letter.Subject != "" {
		doc.SetFont(o.FontFamily, "B", o.FontSize)
		doc.MultiCell(0, 6, "Subject: "+letter.Subject, "", "L", false)
		doc.SetFont(o.FontFamily, "", o.FontSize)
		doc.Ln(2)
	}

	for _, p := range letter.Paragraphs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		doc.MultiCell(0, 6, p, "", "J", false)
		doc.Ln(3)
	}

	doc.Ln(6)
	closing := letter.Closing
	if closing == "" {
		closing = "Yours faithfully,"
	}
	doc.CellFormat(0, 6, closing, "", 1, "L", false, 0, "")
	doc.Ln(12)
	doc.SetFont(o.FontFamily, "B", o.FontSize)
	doc.CellFormat(0, 6, letter.Signatory, "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render letter: %w", err)
	}
	return buf.Bytes(), nil
}
