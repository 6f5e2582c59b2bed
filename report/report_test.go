package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/goextract/extraction"
	"github.com/brunobiangulo/goextract/prompt"
)

var stamp = time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

func strp(s string) *string { return &s }

// sectionedRecords returns n records of which the first missing are sentinels.
func sectionedRecords(n, missing int) []extraction.Record {
	recs := make([]extraction.Record, n)
	for i := range recs {
		recs[i] = extraction.Record{
			Term:           fmt.Sprintf("Term %d", i),
			ExtractedValue: fmt.Sprintf("value %d", i),
			Section:        strp(fmt.Sprintf("%d.1", i+1)),
			Timestamp:      stamp,
		}
		if i < missing {
			recs[i].ExtractedValue = extraction.NotSpecified
			recs[i].Section = strp(extraction.NotFound)
		}
	}
	return recs
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

func TestSummarySectioned(t *testing.T) {
	s := New(sectionedRecords(10, 3), prompt.Sectioned).Summary()
	if s.TotalTerms != 10 || s.TermsFound != 7 {
		t.Errorf("counts = %d/%d, want 10/7", s.TotalTerms, s.TermsFound)
	}
	if s.SectionsFound == nil || *s.SectionsFound != 7 {
		t.Errorf("SectionsFound = %v, want 7", s.SectionsFound)
	}
	if s.CompletionRate != "70.0%" {
		t.Errorf("CompletionRate = %q, want 70.0%%", s.CompletionRate)
	}
	if s.ConfidenceLevels != nil {
		t.Error("sectioned summary should not carry confidence levels")
	}
}

func TestSummaryBare(t *testing.T) {
	recs := []extraction.Record{
		{Term: "A", ExtractedValue: "x", Confidence: extraction.High, Timestamp: stamp},
		{Term: "B", ExtractedValue: extraction.NotSpecified, Confidence: extraction.Low, Timestamp: stamp},
		{Term: "C", ExtractedValue: "y", Confidence: extraction.High, Timestamp: stamp},
	}
	s := New(recs, prompt.Bare).Summary()
	if s.TermsFound != 2 || s.CompletionRate != "66.7%" {
		t.Errorf("summary = %+v", s)
	}
	if s.ConfidenceLevels["high"] != 2 || s.ConfidenceLevels["low"] != 1 {
		t.Errorf("ConfidenceLevels = %v", s.ConfidenceLevels)
	}
	if s.SectionsFound != nil {
		t.Error("bare summary should not carry sections_found")
	}
}

func TestSummaryEmpty(t *testing.T) {
	s := New(nil, prompt.Sectioned).Summary()
	if s.TotalTerms != 0 || s.TermsFound != 0 || *s.SectionsFound != 0 {
		t.Errorf("summary = %+v", s)
	}
	if s.CompletionRate != "0.0%" {
		t.Errorf("CompletionRate = %q, want 0.0%%", s.CompletionRate)
	}
}

func TestSummaryJSONKeys(t *testing.T) {
	body, err := json.Marshal(New(sectionedRecords(2, 1), prompt.Sectioned).Summary())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"total_terms":2,"terms_found":1,"sections_found":1,"completion_rate":"50.0%"}`
	if string(body) != want {
		t.Errorf("summary json = %s, want %s", body, want)
	}
}

// ---------------------------------------------------------------------------
// Export
// ---------------------------------------------------------------------------

func TestExportJSON(t *testing.T) {
	recs := sectionedRecords(3, 1)
	a := New(recs, prompt.Sectioned)
	out, err := a.Export("json")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.Contains(out.Body, []byte("\n  {\n    \"term\": \"Term 0\"")) {
		t.Errorf("json not indented with two spaces:\n%s", out.Body)
	}
	var decoded []extraction.Record
	if err := json.Unmarshal(out.Body, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(decoded) != 3 || decoded[2].Term != "Term 2" || decoded[0].SectionText() != extraction.NotFound {
		t.Errorf("decoded = %+v", decoded)
	}
	if !decoded[1].Timestamp.Equal(stamp) {
		t.Errorf("timestamp = %v, want %v", decoded[1].Timestamp, stamp)
	}

	again, err := a.Export("json")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Body, again.Body) {
		t.Error("repeated JSON export differs")
	}
}

func TestExportJSONEmpty(t *testing.T) {
	out, err := New(nil, prompt.Sectioned).Export("json")
	if err != nil {
		t.Fatal(err)
	}
	if string(out.Body) != "[]" {
		t.Errorf("empty export = %q, want []", out.Body)
	}
}

func TestExportCSV(t *testing.T) {
	recs := sectionedRecords(2, 0)
	recs[1].ExtractedValue = `Net 30, "upon receipt"`
	out, err := New(recs, prompt.Sectioned).Export("CSV")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(out.Body)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if got := fmt.Sprint(rows[0]); got != "[term extracted_value section timestamp]" {
		t.Errorf("header = %s", got)
	}
	if rows[2][1] != recs[1].ExtractedValue {
		t.Errorf("quoted cell = %q", rows[2][1])
	}
	if rows[1][3] != "2024-05-02T09:30:00Z" {
		t.Errorf("timestamp cell = %q", rows[1][3])
	}
}

func TestExportDataFrameBare(t *testing.T) {
	recs := []extraction.Record{{Term: "Currency", ExtractedValue: "EUR", Confidence: extraction.High, Timestamp: stamp}}
	out, err := New(recs, prompt.Bare).Export("dataframe")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if out.Table == nil {
		t.Fatal("dataframe export has no table")
	}
	if out.Table.Columns[2] != "confidence" || out.Table.Rows[0][2] != "high" {
		t.Errorf("table = %+v", out.Table)
	}
}

func TestExportXLSX(t *testing.T) {
	out, err := New(sectionedRecords(4, 1), prompt.Sectioned).Export("xlsx")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out.Body))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(recordsSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 5 || rows[0][0] != "term" || rows[4][0] != "Term 3" {
		t.Errorf("rows = %v", rows)
	}
	rate, err := f.GetCellValue(summarySheet, "B4")
	if err != nil {
		t.Fatal(err)
	}
	if rate != "75.0%" {
		t.Errorf("completion rate cell = %q, want 75.0%%", rate)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	_, err := New(sectionedRecords(1, 0), prompt.Sectioned).Export("xml")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if got := err.Error(); got != "unsupported format: xml" {
		t.Errorf("message = %q", got)
	}
}

func TestExportRequiresExactFormat(t *testing.T) {
	a := New(sectionedRecords(1, 0), prompt.Sectioned)
	for _, name := range []string{" JSON ", "Json", "CSV", "xlsx "} {
		if _, err := a.Export(name); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Export(%q) err = %v, want ErrUnsupportedFormat", name, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"json", JSON, true},
		{" JSON ", JSON, true},
		{"Xlsx", XLSX, true},
		{"dataframe", DataFrame, true},
		{"xml", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
		if !tt.ok && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ParseFormat(%q) err = %v, want ErrUnsupportedFormat", tt.in, err)
		}
	}
}

func TestExportXLSXLongValue(t *testing.T) {
	long := strings.Repeat("clause text ", 4000) // 48000 chars
	recs := []extraction.Record{
		{Term: "Scope of Services", ExtractedValue: long, Section: strp("2.1"), Timestamp: stamp},
	}
	a := New(recs, prompt.Sectioned)

	out, err := a.Export("xlsx")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out.Body))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	got, err := f.GetCellValue(recordsSheet, "B2")
	if err != nil {
		t.Fatal(err)
	}
	if n := utf8.RuneCountInString(got); n != excelize.TotalCellChars {
		t.Errorf("cell length = %d, want %d", n, excelize.TotalCellChars)
	}
	if !strings.HasSuffix(got, truncatedMarker) {
		t.Errorf("truncated cell does not end with %q", truncatedMarker)
	}

	// The other formats keep the whole value.
	js, err := a.Export("json")
	if err != nil {
		t.Fatal(err)
	}
	var decoded []extraction.Record
	if err := json.Unmarshal(js.Body, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded[0].ExtractedValue != long {
		t.Errorf("json value length = %d, want %d", len(decoded[0].ExtractedValue), len(long))
	}
}

func TestFitCell(t *testing.T) {
	if v, cut := fitCell("short"); cut || v != "short" {
		t.Errorf("fitCell(short) = %q, %v", v, cut)
	}
	exact := strings.Repeat("é", excelize.TotalCellChars)
	if _, cut := fitCell(exact); cut {
		t.Error("value at the limit was cut")
	}
	v, cut := fitCell(exact + "x")
	if !cut || utf8.RuneCountInString(v) != excelize.TotalCellChars || !utf8.ValidString(v) {
		t.Errorf("fitCell over limit: cut=%v runes=%d", cut, utf8.RuneCountInString(v))
	}
}

func TestNewCopiesRecords(t *testing.T) {
	recs := sectionedRecords(1, 0)
	a := New(recs, prompt.Sectioned)
	recs[0].Term = "mutated"
	if a.Records()[0].Term != "Term 0" {
		t.Error("aggregator shares the caller's slice")
	}
}
