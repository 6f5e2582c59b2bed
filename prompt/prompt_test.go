package prompt

import (
	"strings"
	"testing"

	"github.com/brunobiangulo/goextract/schema"
)

func TestRetrievalQuery(t *testing.T) {
	f := schema.Field{Name: "Governing Law", Guidance: []string{"governed by", "laws of"}}
	q, ok := RetrievalQuery(f)
	if !ok {
		t.Fatal("expected ok for guided field")
	}
	want := "Find sections containing information about Governing Law. Key phrases: governed by, laws of. Return relevant sections with context."
	if q != want {
		t.Errorf("query =\n%q\nwant\n%q", q, want)
	}
}

func TestRetrievalQueryNoGuidance(t *testing.T) {
	for _, g := range [][]string{nil, {}, {"  "}} {
		if _, ok := RetrievalQuery(schema.Field{Name: "Waiver", Guidance: g}); ok {
			t.Errorf("guidance %v: expected ok=false", g)
		}
	}
}

func TestQueryWithoutGuidance(t *testing.T) {
	q := Query(schema.Field{Name: "Waiver"})
	if strings.Contains(q, "Key phrases") {
		t.Errorf("unexpected key phrase line: %q", q)
	}
	if !strings.Contains(q, "Waiver") {
		t.Errorf("query missing field name: %q", q)
	}
}

func TestExtractionSectioned(t *testing.T) {
	f := schema.Field{Name: "Governing Law"}
	ctx := "14.1 This Agreement is governed by the laws of England."
	p := Extraction(Sectioned, f, ctx)

	for _, want := range []string{
		"Extract the Governing Law from the contract.",
		ctx,
		`"Not specified"`,
		"11.1",
		"Value: <extracted_value>",
		"Section: <relevant_section>",
		"No explanations",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("sectioned prompt missing %q", want)
		}
	}
}

func TestExtractionSectionedCustomInstruction(t *testing.T) {
	f := schema.Field{Name: "SLA", Instruction: "Identify the service level commitments, including uptime."}
	p := Extraction(Sectioned, f, "ctx")
	if !strings.HasPrefix(p, "Identify the service level commitments") {
		t.Errorf("custom instruction not used:\n%s", p)
	}
	if strings.Contains(p, "Extract the SLA from the contract.") {
		t.Error("generated instruction should be replaced")
	}
}

func TestExtractionBare(t *testing.T) {
	f := schema.Field{Name: "Currency"}
	p := Extraction(Bare, f, "Fees are payable in EUR.")
	if !strings.Contains(p, "Currency: <value>") {
		t.Errorf("bare prompt missing single-line format:\n%s", p)
	}
	if strings.Contains(p, "Section:") {
		t.Error("bare prompt should not ask for a section")
	}
	if !strings.Contains(p, "Fees are payable in EUR.") {
		t.Error("bare prompt missing context")
	}
}

func TestExtractionDeterministic(t *testing.T) {
	f := schema.Field{Name: "Term", Guidance: []string{"term"}}
	for _, v := range []Variant{Sectioned, Bare} {
		if Extraction(v, f, "abc") != Extraction(v, f, "abc") {
			t.Errorf("%s: prompt not deterministic", v)
		}
	}
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in      string
		want    Variant
		wantErr bool
	}{
		{"", Sectioned, false},
		{"sectioned", Sectioned, false},
		{" Bare ", Bare, false},
		{"verbose", "", true},
	}
	for _, tt := range tests {
		got, err := ParseVariant(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVariant(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVariant(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
