package chunker

import (
	"regexp"
	"strings"

	"github.com/brunobiangulo/goextract/parser"
)

// ---------------------------------------------------------------------------
// Heading pattern detection
// ---------------------------------------------------------------------------

// headingPatterns are compiled regular expressions for the heading styles
// found in contracts delivered as plain text or markdown.
var headingPatterns = []*regexp.Regexp{
	// Top-level numbered: "12. Payment Terms"
	regexp.MustCompile(`^\d+\.\s+\S`),
	// Uppercase line (e.g. "DEFINITIONS")
	regexp.MustCompile(`^[A-Z][A-Z0-9\s,&'()-]{4,}$`),
	// Markdown-style: "# Heading", "## Sub-heading"
	regexp.MustCompile(`^#{1,6}\s+\S`),
	// Appendix / Annex: "Appendix A", "Schedule 1"
	regexp.MustCompile(`(?i)^(appendix|annex|schedule|exhibit)\s+[A-Z0-9]+\b`),
	// Article: "Article 1", "Article II"
	regexp.MustCompile(`(?i)^article\s+[IVXLCDM\d]+\b`),
}

// IsHeading reports whether a line of text looks like a heading. Lines that
// read as a sentence (too long, or ending in . ; ,) are clause text even when
// they start with a number.
func IsHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 100 || len(strings.Fields(line)) > 10 {
		return false
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, ";") || strings.HasSuffix(line, ",") {
		return false
	}
	for _, re := range headingPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// headingNumberPattern matches the number that leads a heading: "12" in
// "12. Payment", "4.2" in "4.2 Invoicing".
var headingNumberPattern = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?(?:\s|$)`)

// HeadingNumber extracts the leading number of a heading.
func HeadingNumber(heading string) (string, bool) {
	m := headingNumberPattern.FindStringSubmatch(strings.TrimSpace(heading))
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// ---------------------------------------------------------------------------
// Section splitting
// ---------------------------------------------------------------------------

// splitAtHeadings breaks a section whose content still carries heading lines
// (plain text and markdown files) into one section per heading. Text before
// the first heading keeps the original heading. Tables are returned as-is.
func splitAtHeadings(sec parser.Section) []parser.Section {
	if sec.Type == "table" {
		return []parser.Section{sec}
	}

	var out []parser.Section
	cur := sec
	var body strings.Builder
	flush := func() {
		cur.Content = strings.TrimSpace(body.String())
		if cur.Content != "" || cur.Heading != sec.Heading {
			out = append(out, cur)
		}
		body.Reset()
	}

	for _, line := range strings.Split(sec.Content, "\n") {
		if IsHeading(line) {
			flush()
			heading := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
			cur = parser.Section{
				Heading:    heading,
				Level:      headingLevel(heading),
				PageNumber: sec.PageNumber,
				Type:       headingType(heading, sec.Type),
				Metadata:   sec.Metadata,
			}
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()
	return out
}

func headingLevel(heading string) int {
	if num, ok := HeadingNumber(heading); ok {
		return strings.Count(num, ".") + 1
	}
	return 1
}

// headingType classifies a section by its heading, falling back to the
// enclosing section's type.
func headingType(heading, fallback string) string {
	h := strings.ToLower(heading)
	switch {
	case strings.Contains(h, "definition") || strings.Contains(h, "interpretation"):
		return "definition"
	case strings.HasPrefix(h, "schedule") || strings.HasPrefix(h, "annex") ||
		strings.HasPrefix(h, "appendix") || strings.HasPrefix(h, "exhibit"):
		return "annex"
	}
	if fallback == "paragraph" || fallback == "" {
		return "section"
	}
	return fallback
}
