// Package prompt builds the retrieval queries and extraction instructions
// sent to the retrieval mechanism and the agent. Every function here is pure.
package prompt

import (
	"fmt"
	"strings"

	"github.com/brunobiangulo/goextract/schema"
)

// Variant selects the instruction shape and the matching response parser.
type Variant string

const (
	// Sectioned asks for a value plus the clause reference it came from,
	// as two labeled lines.
	Sectioned Variant = "sectioned"
	// Bare asks for the value alone on a single "Name: value" line.
	Bare Variant = "bare"
)

// ParseVariant maps a config string to a Variant. Empty means Sectioned.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", Sectioned:
		return Sectioned, nil
	case Bare:
		return Bare, nil
	default:
		return "", fmt.Errorf("unknown prompt variant: %s", s)
	}
}

// NotSpecified is the literal the agent is told to return for absent values.
const NotSpecified = "Not specified"

// GuidanceSeparator joins guidance phrases in retrieval queries.
const GuidanceSeparator = ", "

// RetrievalQuery builds the search query for a field. ok is false when the
// field has no guidance phrases.
func RetrievalQuery(f schema.Field) (query string, ok bool) {
	if !f.HasGuidance() {
		return "", false
	}
	return Query(f), true
}

// Query builds the search query for a field regardless of guidance. With no
// guidance the key-phrase line is omitted.
func Query(f schema.Field) string {
	var phrases []string
	for _, g := range f.Guidance {
		if g = strings.TrimSpace(g); g != "" {
			phrases = append(phrases, g)
		}
	}
	if len(phrases) == 0 {
		return fmt.Sprintf("Find sections containing information about %s. Return relevant sections with context.", f.Name)
	}
	return fmt.Sprintf("Find sections containing information about %s. Key phrases: %s. Return relevant sections with context.",
		f.Name, strings.Join(phrases, GuidanceSeparator))
}

// Extraction builds the agent instruction for one field and its context.
func Extraction(v Variant, f schema.Field, context string) string {
	if v == Bare {
		return bare(f, context)
	}
	return sectioned(f, context)
}

func sectioned(f schema.Field, context string) string {
	instruction := strings.TrimSpace(f.Instruction)
	if instruction == "" {
		instruction = fmt.Sprintf("Extract the %s from the contract.", f.Name)
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\nExtract the section/paragraph where the value was found from the following context.\n")
	b.WriteString("Context:\n")
	b.WriteString(context)
	b.WriteString("\n\nRequirements:\n")
	b.WriteString("- Extract the specific value\n")
	b.WriteString("- Include the exact section/paragraph where the value was found (hint: it will have numbers, e.g. 11.1, 12.1)\n")
	fmt.Fprintf(&b, "- Return %q if not found\n", NotSpecified)
	b.WriteString("- No explanations or analysis\n")
	b.WriteString("\nFormat:\n")
	b.WriteString("Value: <extracted_value>\n")
	b.WriteString("Section: <relevant_section>\n")
	return b.String()
}

func bare(f schema.Field, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract the %s from the following context.\n", f.Name)
	b.WriteString("Context:\n")
	b.WriteString(context)
	b.WriteString("\n\nRequirements:\n")
	b.WriteString("- Extract only the specific value\n")
	fmt.Fprintf(&b, "- Return %q if not found\n", NotSpecified)
	b.WriteString("- No explanations or analysis\n")
	b.WriteString("\nFormat:\n")
	fmt.Fprintf(&b, "%s: <value>\n", f.Name)
	return b.String()
}
