package report

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	recordsSheet = "Extraction"
	summarySheet = "Summary"
)

// truncatedMarker ends a cell value cut to fit the xlsx cell limit. The json
// and csv exports keep the full value.
const truncatedMarker = " [truncated]"

// fitCell cuts v to excelize.TotalCellChars runes, marking the cut.
func fitCell(v string) (string, bool) {
	if utf8.RuneCountInString(v) <= excelize.TotalCellChars {
		return v, false
	}
	keep := excelize.TotalCellChars - utf8.RuneCountInString(truncatedMarker)
	r := []rune(v)
	return string(r[:keep]) + truncatedMarker, true
}

// xlsx writes the table to one sheet and the summary to a second.
func (a *Aggregator) xlsx() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	t := a.Table()
	for i, h := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(recordsSheet, cell, h); err != nil {
			return nil, fmt.Errorf("xlsx header %s: %w", cell, err)
		}
	}
	for r, row := range t.Rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			v, cut := fitCell(v)
			if cut {
				slog.Warn("report: xlsx cell truncated",
					"term", row[0], "cell", cell, "limit", excelize.TotalCellChars)
			}
			if err := f.SetCellValue(recordsSheet, cell, v); err != nil {
				return nil, fmt.Errorf("xlsx cell %s (%s): %w", cell, row[0], err)
			}
		}
	}
	_ = f.SetColWidth(recordsSheet, "A", "A", 36) // term
	_ = f.SetColWidth(recordsSheet, "B", "B", 60) // value
	_ = f.SetColWidth(recordsSheet, "C", "C", 18) // section / confidence
	_ = f.SetColWidth(recordsSheet, "D", "D", 30) // timestamp

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	s := a.Summary()
	rows := [][2]any{
		{"total_terms", s.TotalTerms},
		{"terms_found", s.TermsFound},
	}
	if s.SectionsFound != nil {
		rows = append(rows, [2]any{"sections_found", *s.SectionsFound})
	}
	if s.ConfidenceLevels != nil {
		rows = append(rows,
			[2]any{"confidence_high", s.ConfidenceLevels["high"]},
			[2]any{"confidence_low", s.ConfidenceLevels["low"]})
	}
	rows = append(rows, [2]any{"completion_rate", s.CompletionRate})
	for i, kv := range rows {
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), kv[0]); err != nil {
			return nil, fmt.Errorf("xlsx summary: %w", err)
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), kv[1]); err != nil {
			return nil, fmt.Errorf("xlsx summary: %w", err)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
