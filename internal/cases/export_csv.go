package cases

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	Delimiter       rune   `json:"delimiter"`
	UseCRLF         bool   `json:"use_crlf"`
	IncludeHeader   bool   `json:"include_header"`
	TimestampFormat string `json:"timestamp_format"`
	NullValue       string `json:"null_value"`
}

// DefaultCSVOptions returns default CSV export options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:       ',',
		IncludeHeader:   true,
		TimestampFormat: time.RFC3339,
	}
}

func renderStatusHistoryCSV(history []StatusHistory, options CSVOptions) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Comma = options.Delimiter
	writer.UseCRLF = options.UseCRLF

	if options.IncludeHeader {
		if err := writer.Write(historyColumns); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for _, h := range history {
		from := string(h.FromStatus)
		if from == "" {
			from = options.NullValue
		}
		record := []string{
			h.CreatedAt.UTC().Format(options.TimestampFormat),
			from,
			string(h.ToStatus),
			changedByLabel(h),
			h.Comment,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
