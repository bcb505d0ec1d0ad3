package cases

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

const historySheet = "Status History"

var historyColumns = []string{"Changed At", "From Status", "To Status", "Changed By", "Comment"}

// ExportFormat selects the rendering of a status history export.
type ExportFormat string

const (
	FormatXLSX ExportFormat = "xlsx"
	FormatCSV  ExportFormat = "csv"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
)

// Export is a rendered status history file.
type Export struct {
	Data        []byte
	FileName    string
	ContentType string
}

// ExportStatusHistory renders the audit ledger of a case. An empty format
// means xlsx.
func (e *Engine) ExportStatusHistory(ctx context.Context, caseID uint, actor Actor, format ExportFormat) (*Export, error) {
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatXLSX && format != FormatCSV {
		return nil, fmt.Errorf("%w: unsupported export format %q", workflows.ErrInvalidRequest, format)
	}

	c, err := e.GetCase(ctx, caseID, actor)
	if err != nil {
		return nil, err
	}
	history, err := e.repo.ListStatusHistory(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}

	out := &Export{FileName: fmt.Sprintf("%s-status-history.%s", c.CaseNumber, format)}
	switch format {
	case FormatCSV:
		out.ContentType = csvContentType
		out.Data, err = renderStatusHistoryCSV(history, DefaultCSVOptions())
	default:
		out.ContentType = xlsxContentType
		out.Data, err = renderStatusHistory(c, history)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func changedByLabel(h StatusHistory) string {
	if h.ChangedBy == nil {
		return SystemActorName
	}
	return fmt.Sprintf("user #%d", *h.ChangedBy)
}

func renderStatusHistory(c *Case, history []StatusHistory) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	// Rename the default sheet
	if err := file.SetSheetName("Sheet1", historySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	file.SetCellValue(historySheet, "A1", "Case")
	file.SetCellValue(historySheet, "B1", c.CaseNumber)
	file.SetCellValue(historySheet, "C1", "Current Status")
	file.SetCellValue(historySheet, "D1", string(c.Status))

	for i, col := range historyColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		file.SetCellValue(historySheet, cell, col)
		file.SetCellStyle(historySheet, cell, cell, headerStyle)
	}

	for i, h := range history {
		row := i + 4
		values := []interface{}{
			h.CreatedAt.Format("2006-01-02 15:04:05"),
			string(h.FromStatus),
			string(h.ToStatus),
			changedByLabel(h),
			h.Comment,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			file.SetCellValue(historySheet, cell, v)
		}
	}

	file.SetColWidth(historySheet, "A", "D", 22)
	file.SetColWidth(historySheet, "E", "E", 50)

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
