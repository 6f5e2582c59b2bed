package parser

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts text page by page and splits each page at heading-like
// lines.
type PDFParser struct{}

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	var sections []Section
	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		sections = append(sections, splitPageIntoSections(text, i)...)
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("no extractable text in PDF (scanned document?)")
	}
	return &ParseResult{
		Sections: sections,
		Metadata: map[string]string{"pages": strconv.Itoa(totalPages)},
	}, nil
}

// splitPageIntoSections breaks page text into logical sections.
func splitPageIntoSections(text string, pageNum int) []Section {
	var sections []Section
	var content strings.Builder
	heading := ""
	level := 0

	flush := func() {
		if content.Len() == 0 {
			return
		}
		body := strings.TrimSpace(content.String())
		sections = append(sections, Section{
			Heading:    heading,
			Content:    body,
			Level:      level,
			PageNumber: pageNum,
			Type:       classifySectionType(heading, body),
		})
		content.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if content.Len() > 0 {
				content.WriteString("\n")
			}
			continue
		}
		if isLikelyHeading(trimmed) {
			flush()
			heading = trimmed
			level = detectHeadingLevel(trimmed)
			continue
		}
		if content.Len() > 0 {
			content.WriteString("\n")
		}
		content.WriteString(trimmed)
	}
	flush()

	// A page of headings only still carries text.
	if len(sections) == 0 {
		sections = append(sections, Section{
			Content:    text,
			PageNumber: pageNum,
			Type:       "paragraph",
		})
	}
	return sections
}

// headingNumberPattern matches "7.", "11.2", "ARTICLE 4" style heading starts.
var headingNumberPattern = regexp.MustCompile(`^(\d+\.(\d+\.?)*|(?i:article|section|clause|schedule|annex|appendix|exhibit)\s+[\dA-Z]+)(\s|$)`)

// isLikelyHeading treats short all-caps lines and short numbered lines
// without a full sentence as headings. Numbered clause bodies such as
// "12.1 The Supplier shall ..." stay in the content so the chunker can split
// on them.
func isLikelyHeading(line string) bool {
	if len(line) > 100 {
		return false
	}
	letters := strings.IndexFunc(line, func(r rune) bool { return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' }) >= 0
	if letters && len(line) > 2 && line == strings.ToUpper(line) {
		return true
	}
	if headingNumberPattern.MatchString(line) {
		words := len(strings.Fields(line))
		return words <= 8 && !strings.HasSuffix(line, ".") && !strings.HasSuffix(line, ";") && !strings.HasSuffix(line, ",")
	}
	return false
}

func detectHeadingLevel(heading string) int {
	first := strings.Fields(heading)[0]
	if dots := strings.Count(strings.TrimSuffix(first, "."), "."); dots > 0 {
		return dots + 1
	}
	return 1
}

func classifySectionType(heading, content string) string {
	headingLower := strings.ToLower(heading)
	switch {
	case strings.Contains(headingLower, "definition") || strings.Contains(headingLower, "interpretation"):
		return "definition"
	case strings.Contains(headingLower, "schedule") || strings.Contains(headingLower, "annex") ||
		strings.Contains(headingLower, "appendix") || strings.Contains(headingLower, "exhibit"):
		return "annex"
	case strings.Count(content, "\t") > 3 || strings.Count(content, "|") > 3:
		return "table"
	}
	return "section"
}
