package chunker

import (
	"strings"
	"testing"

	"github.com/brunobiangulo/goextract/parser"
)

const sampleContract = `MASTER SERVICES AGREEMENT
This Agreement is made between Acme Ltd and Globex plc.

1. DEFINITIONS
1.1 "Services" means the services described in Schedule 1.
1.2 "Fees" means the charges set out in Schedule 2.

2. Payment
2.1 The Customer shall pay each invoice within 30 days.
2.2 Late amounts accrue interest at 4% per annum.
`

// ---------------------------------------------------------------------------
// Core chunker tests
// ---------------------------------------------------------------------------

func TestChunkPlainTextContract(t *testing.T) {
	c := New(Config{MaxTokens: 512, Overlap: 64})
	chunks := c.Chunk([]parser.Section{{Content: sampleContract, Level: 1, Type: "paragraph"}})

	want := []struct {
		heading, clause, chunkType, prefix string
	}{
		{"MASTER SERVICES AGREEMENT", "", "section", "This Agreement"},
		{"1. DEFINITIONS > 1.1", "1.1", "definition", `1.1 "Services"`},
		{"1. DEFINITIONS > 1.2", "1.2", "definition", `1.2 "Fees"`},
		{"2. Payment > 2.1", "2.1", "clause", "2.1 The Customer"},
		{"2. Payment > 2.2", "2.2", "clause", "2.2 Late amounts"},
	}
	if len(chunks) != len(want) {
		for _, ch := range chunks {
			t.Logf("%+v", ch)
		}
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, w := range want {
		ch := chunks[i]
		if ch.Heading != w.heading || ch.Clause != w.clause || ch.ChunkType != w.chunkType {
			t.Errorf("chunk %d = {%q %q %q}, want {%q %q %q}", i,
				ch.Heading, ch.Clause, ch.ChunkType, w.heading, w.clause, w.chunkType)
		}
		if !strings.HasPrefix(ch.Content, w.prefix) {
			t.Errorf("chunk %d content = %q, want prefix %q", i, ch.Content, w.prefix)
		}
		if ch.PositionInDoc != i {
			t.Errorf("chunk %d PositionInDoc = %d", i, ch.PositionInDoc)
		}
		if ch.TokenCount <= 0 {
			t.Errorf("chunk %d TokenCount = %d", i, ch.TokenCount)
		}
	}
}

func TestChunkPreambleKeepsSectionNumber(t *testing.T) {
	c := New(Config{})
	chunks := c.Chunk([]parser.Section{{
		Heading:    "12. Payment",
		Content:    "The following applies.\n12.1 Invoices are due in 30 days.\n12.2 Interest accrues.",
		PageNumber: 4,
		Type:       "section",
	}})

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[0].ChunkType != "preamble" || chunks[0].Clause != "12" || chunks[0].Heading != "12. Payment" {
		t.Errorf("preamble chunk = %+v", chunks[0])
	}
	if chunks[1].Heading != "12. Payment > 12.1" || chunks[1].Content != "12.1 Invoices are due in 30 days." {
		t.Errorf("clause chunk = %+v", chunks[1])
	}
	for _, ch := range chunks {
		if ch.PageNumber != 4 {
			t.Errorf("PageNumber = %d, want 4", ch.PageNumber)
		}
	}
}

func TestChunkTable(t *testing.T) {
	c := New(Config{})
	chunks := c.Chunk([]parser.Section{{
		Heading: "Rate Card",
		Content: "| Role | Day rate |\n| Engineer | 800 |\n",
		Type:    "table",
	}})
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].ChunkType != "table" || chunks[0].Heading != "Rate Card" || chunks[0].Clause != "" {
		t.Errorf("table chunk = %+v", chunks[0])
	}
}

func TestChunkLongClauseKeepsClauseNumber(t *testing.T) {
	c := New(Config{MaxTokens: 20, Overlap: 4})

	var sb strings.Builder
	sb.WriteString("7.1 ")
	for i := 0; i < 30; i++ {
		sb.WriteString("The Supplier shall deliver the goods. ")
	}

	chunks := c.Chunk([]parser.Section{{Content: sb.String(), Type: "section"}})
	if len(chunks) < 2 {
		t.Fatalf("expected the clause to be split, got %d chunks", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Clause != "7.1" || ch.Heading != "Clause 7.1" || ch.ChunkType != "clause" {
			t.Errorf("chunk %d = {%q %q %q}", i, ch.Clause, ch.Heading, ch.ChunkType)
		}
		if ch.PositionInDoc != i {
			t.Errorf("chunk %d PositionInDoc = %d", i, ch.PositionInDoc)
		}
	}
}

func TestChunkEmptySections(t *testing.T) {
	c := New(Config{})
	if chunks := c.Chunk(nil); len(chunks) != 0 {
		t.Errorf("expected 0 chunks for nil sections, got %d", len(chunks))
	}
	chunks := c.Chunk([]parser.Section{{Heading: "SCHEDULE 1", Content: "  \n"}})
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for heading-only section, got %d", len(chunks))
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{})
	if c.cfg.MaxTokens != 512 {
		t.Errorf("default MaxTokens = %d, want 512", c.cfg.MaxTokens)
	}
	if c.cfg.Overlap != 64 {
		t.Errorf("default Overlap = %d, want 64", c.cfg.Overlap)
	}

	c = New(Config{MaxTokens: 40, Overlap: 40})
	if c.cfg.Overlap != 10 {
		t.Errorf("Overlap = %d, want it clamped to 10", c.cfg.Overlap)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single_word", "hello", 2},              // ceil(1 * 1.3) = 2
		{"two_words", "hello world", 3},          // ceil(2 * 1.3) = 3
		{"ten_words", "a b c d e f g h i j", 13}, // ceil(10 * 1.3) = 13
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := estimateTokens(tt.text)
			if got != tt.want {
				t.Errorf("estimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// splitContent tests
// ---------------------------------------------------------------------------

func TestSplitContentShort(t *testing.T) {
	c := New(Config{MaxTokens: 512, Overlap: 64})
	fragments := c.splitContent("Short text that fits in one chunk.")
	if len(fragments) != 1 {
		t.Errorf("expected 1 fragment for short text, got %d", len(fragments))
	}
}

func TestSplitContentLong(t *testing.T) {
	c := New(Config{MaxTokens: 10, Overlap: 2})

	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("This is paragraph number. ")
	}

	fragments := c.splitContent(sb.String())
	if len(fragments) < 2 {
		t.Errorf("expected multiple fragments, got %d", len(fragments))
	}
	for i, f := range fragments {
		if strings.TrimSpace(f) == "" {
			t.Errorf("fragment[%d] is empty", i)
		}
	}
}

func TestExtractOverlap(t *testing.T) {
	if got := extractOverlap("one two three four five", 3); got != "four five" {
		t.Errorf("extractOverlap = %q, want %q", got, "four five")
	}
	if got := extractOverlap("", 10); got != "" {
		t.Errorf("extractOverlap(empty) = %q", got)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Fees are due. Interest accrues at 4.5% p.a.! Is notice required? Yes")
	want := []string{"Fees are due.", "Interest accrues at 4.5% p.a.!", "Is notice required?", "Yes"}
	if len(got) != len(want) {
		t.Fatalf("splitSentences = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// Clause helper tests
// ---------------------------------------------------------------------------

func TestDetectClauseBoundaries(t *testing.T) {
	text := `Preamble text here.
1.1 First clause of the agreement.
Some continuation text.
1.2 Second clause of the agreement.
1.2.1 Subclause detail.`

	boundaries := DetectClauseBoundaries(text)
	if len(boundaries) != 3 {
		t.Fatalf("expected 3 clause boundaries, got %d", len(boundaries))
	}
	for i, b := range boundaries {
		if !strings.HasPrefix(text[b:], "1.") {
			t.Errorf("boundary[%d] at offset %d does not start with a clause number", i, b)
		}
	}

	if got := DetectClauseBoundaries("This text has no numbered clauses at all."); len(got) != 0 {
		t.Errorf("expected 0 boundaries, got %d", len(got))
	}
}

func TestSplitByClauses(t *testing.T) {
	parts := SplitByClauses("Preamble text.\n1.1 First clause.\ncontinued\n1.2 Second clause.")
	want := []string{"Preamble text.", "1.1 First clause.\ncontinued", "1.2 Second clause."}
	if len(parts) != len(want) {
		t.Fatalf("SplitByClauses = %q", parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d = %q, want %q", i, parts[i], want[i])
		}
	}

	if parts := SplitByClauses(" \n "); parts != nil {
		t.Errorf("SplitByClauses(blank) = %q, want nil", parts)
	}
}

func TestExtractClauseNumber(t *testing.T) {
	tests := []struct {
		text    string
		wantNum string
		wantOK  bool
	}{
		{"1.2.3 The contractor shall...", "1.2.3", true},
		{"1.1 Scope", "1.1", true},
		{"4.2. Notices", "4.2", true},
		{"12.3.4 Deep clause", "12.3.4", true},
		{"12. Payment", "", false},
		{"No clause here", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		num, ok := ExtractClauseNumber(tt.text)
		if ok != tt.wantOK || num != tt.wantNum {
			t.Errorf("ExtractClauseNumber(%q) = %q, %v; want %q, %v", tt.text, num, ok, tt.wantNum, tt.wantOK)
		}
	}
}

func TestDefinedTerm(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{`1.4 "Services" means the work described in Schedule 1.`, "Services", true},
		{`"Fees" shall mean the charges.`, "Fees", true},
		{"“Confidential Information” has the meaning given in clause 9.", "Confidential Information", true},
		{"12.1 The Customer shall pay.", "", false},
	}
	for _, tt := range tests {
		got, ok := DefinedTerm(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DefinedTerm(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestClauseHeading(t *testing.T) {
	tests := []struct {
		heading, clause, want string
	}{
		{"2. Payment", "2.1", "2. Payment > 2.1"},
		{"2. Payment", "2", "2. Payment"},
		{"", "7.1", "Clause 7.1"},
		{"Recitals", "", "Recitals"},
	}
	for _, tt := range tests {
		if got := clauseHeading(tt.heading, tt.clause); got != tt.want {
			t.Errorf("clauseHeading(%q, %q) = %q, want %q", tt.heading, tt.clause, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Heading helper tests
// ---------------------------------------------------------------------------

func TestIsHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"12. Payment Terms", true},
		{"DEFINITIONS AND INTERPRETATION", true},
		{"## Termination", true},
		{"Schedule 2 Pricing", true},
		{"Article IV", true},
		{"12.1 The Customer shall pay.", false},
		{"1. The Supplier shall deliver the goods.", false},
		{"The parties agree", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsHeading(tt.line); got != tt.want {
			t.Errorf("IsHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestHeadingNumber(t *testing.T) {
	tests := []struct {
		heading string
		want    string
		ok      bool
	}{
		{"12. Payment", "12", true},
		{"4.2 Invoicing", "4.2", true},
		{"3", "3", true},
		{"Schedule 1", "", false},
	}
	for _, tt := range tests {
		got, ok := HeadingNumber(tt.heading)
		if got != tt.want || ok != tt.ok {
			t.Errorf("HeadingNumber(%q) = %q, %v; want %q, %v", tt.heading, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSplitAtHeadingsMarkdown(t *testing.T) {
	secs := splitAtHeadings(parser.Section{
		Content: "# Supply Agreement\nIntro text.\n## 3. Term\n3.1 This Agreement lasts two years.\n",
		Type:    "paragraph",
	})
	if len(secs) != 2 {
		t.Fatalf("sections = %+v", secs)
	}
	if secs[0].Heading != "Supply Agreement" || secs[0].Content != "Intro text." || secs[0].Type != "section" {
		t.Errorf("section 0 = %+v", secs[0])
	}
	if secs[1].Heading != "3. Term" || secs[1].Level != 1 || secs[1].Content != "3.1 This Agreement lasts two years." {
		t.Errorf("section 1 = %+v", secs[1])
	}
}

func TestSplitAtHeadingsLeavesTablesAlone(t *testing.T) {
	sec := parser.Section{Heading: "Sheet1", Content: "| SCHEDULE 1 |\n", Type: "table"}
	secs := splitAtHeadings(sec)
	if len(secs) != 1 || secs[0].Content != sec.Content {
		t.Errorf("sections = %+v", secs)
	}
}
