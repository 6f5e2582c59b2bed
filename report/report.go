// Package report turns the records of an extraction run into export formats
// and summary statistics.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brunobiangulo/goextract/extraction"
	"github.com/brunobiangulo/goextract/prompt"
)

// ErrUnsupportedFormat is returned by Export for an unknown format name.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Format names an export format.
type Format string

const (
	JSON      Format = "json"
	CSV       Format = "csv"
	DataFrame Format = "dataframe"
	XLSX      Format = "xlsx"
)

// Formats lists the supported export formats.
var Formats = []Format{JSON, CSV, DataFrame, XLSX}

// ParseFormat normalises a user-supplied format name (case, surrounding
// space). Unknown names wrap ErrUnsupportedFormat.
func ParseFormat(s string) (Format, error) {
	return lookupFormat(strings.ToLower(strings.TrimSpace(s)))
}

// lookupFormat matches s exactly against the supported names.
func lookupFormat(s string) (Format, error) {
	for _, known := range Formats {
		if Format(s) == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
}

// Table is the tabular projection of a record list: one row per record, cells
// rendered as strings.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Export is a rendered export. Table is set only for the dataframe format.
type Export struct {
	Format      Format
	ContentType string
	Body        []byte
	Table       *Table
}

// Aggregator renders a fixed snapshot of records.
type Aggregator struct {
	records []extraction.Record
	variant prompt.Variant
}

// New returns an aggregator over records produced with variant.
func New(records []extraction.Record, variant prompt.Variant) *Aggregator {
	if variant == "" {
		variant = prompt.Sectioned
	}
	out := make([]extraction.Record, len(records))
	copy(out, records)
	return &Aggregator{records: out, variant: variant}
}

// FromRun returns an aggregator over the records of run, partial or not.
func FromRun(run *extraction.Run) *Aggregator {
	return New(run.Records(), run.Variant)
}

// Records returns the records in store order.
func (a *Aggregator) Records() []extraction.Record {
	out := make([]extraction.Record, len(a.records))
	copy(out, a.records)
	return out
}

// Export renders the records in the named format. The name must match one of
// Formats exactly; use ParseFormat first for user input.
func (a *Aggregator) Export(format string) (*Export, error) {
	f, err := lookupFormat(format)
	if err != nil {
		return nil, err
	}
	switch f {
	case JSON:
		body, err := a.json()
		if err != nil {
			return nil, err
		}
		return &Export{Format: f, ContentType: "application/json", Body: body}, nil
	case CSV:
		body, err := a.csv()
		if err != nil {
			return nil, err
		}
		return &Export{Format: f, ContentType: "text/csv; charset=utf-8", Body: body}, nil
	case DataFrame:
		t := a.Table()
		body, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding table: %w", err)
		}
		return &Export{Format: f, ContentType: "application/json", Body: body, Table: t}, nil
	default:
		body, err := a.xlsx()
		if err != nil {
			return nil, err
		}
		return &Export{
			Format:      f,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Body:        body,
		}, nil
	}
}

func (a *Aggregator) json() ([]byte, error) {
	body, err := json.MarshalIndent(a.records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding records: %w", err)
	}
	return body, nil
}

func (a *Aggregator) csv() ([]byte, error) {
	t := a.Table()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("writing csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

// Columns returns the column names for the aggregator's variant.
func (a *Aggregator) Columns() []string {
	if a.variant == prompt.Bare {
		return []string{"term", "extracted_value", "confidence", "timestamp"}
	}
	return []string{"term", "extracted_value", "section", "timestamp"}
}

// Table returns the tabular projection of the records.
func (a *Aggregator) Table() *Table {
	t := &Table{Columns: a.Columns(), Rows: make([][]string, 0, len(a.records))}
	for _, r := range a.records {
		third := r.SectionText()
		if a.variant == prompt.Bare {
			third = string(r.Confidence)
		}
		t.Rows = append(t.Rows, []string{
			r.Term,
			r.ExtractedValue,
			third,
			r.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	return t
}
