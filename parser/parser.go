// Package parser turns contract files into ordered text sections.
package parser

import (
	"context"
	"errors"
	"strings"
)

// ErrUnsupportedFormat is returned for file formats no parser handles.
var ErrUnsupportedFormat = errors.New("parser: unsupported format")

// ParseResult is what a parser produces from a document file.
type ParseResult struct {
	Sections []Section // Ordered sections extracted from the document
	Metadata map[string]string
}

// Section represents a logical section of a parsed document.
type Section struct {
	Heading    string
	Content    string
	Level      int // Heading level (1=top, 2=sub, etc.)
	PageNumber int
	Type       string // "section", "table", "definition", "paragraph"
	Metadata   map[string]string
}

// Text renders the sections back into one document string, headings on
// their own line and sections separated by a blank line. This is the text
// extraction runs over.
func (r *ParseResult) Text() string {
	var b strings.Builder
	for _, sec := range r.Sections {
		heading := strings.TrimSpace(sec.Heading)
		content := strings.TrimSpace(sec.Content)
		if heading == "" && content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if heading != "" {
			b.WriteString(heading)
			if content != "" {
				b.WriteString("\n")
			}
		}
		b.WriteString(content)
	}
	return b.String()
}

// Parser can parse a specific document format.
type Parser interface {
	Parse(ctx context.Context, path string) (*ParseResult, error)
	SupportedFormats() []string
}
