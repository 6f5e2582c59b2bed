package chunker

import (
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// Clause boundary detection
// ---------------------------------------------------------------------------

// clausePattern matches hierarchical numbered clauses such as
// "1.1", "1.1.1", "12.3.4" or "4.2." at the start of a line.
var clausePattern = regexp.MustCompile(`^(\d+(?:\.\d+)+)\.?\s`)

// DetectClauseBoundaries scans text and returns the byte offsets where
// new numbered clauses begin.  Each entry in the returned slice is the
// index of the first byte of a line that starts with a clause number.
func DetectClauseBoundaries(text string) []int {
	lines := strings.Split(text, "\n")
	var boundaries []int
	offset := 0

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if clausePattern.MatchString(trimmed) {
			boundaries = append(boundaries, offset)
		}
		offset += len(line) + 1 // +1 for the newline
	}
	return boundaries
}

// SplitByClauses splits text at clause boundaries so that each
// returned string starts with a clause number.  Text before the
// first clause (preamble) is returned as the first element if
// non-empty.
func SplitByClauses(text string) []string {
	boundaries := DetectClauseBoundaries(text)
	if len(boundaries) == 0 {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}

	var parts []string
	if preamble := strings.TrimSpace(text[:boundaries[0]]); preamble != "" {
		parts = append(parts, preamble)
	}
	for i, b := range boundaries {
		end := len(text)
		if i+1 < len(boundaries) {
			end = boundaries[i+1]
		}
		if part := strings.TrimSpace(text[b:end]); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// ExtractClauseNumber extracts the leading clause number from text.
// For example, given "1.2.3 The contractor shall..." it returns
// "1.2.3" and true.
func ExtractClauseNumber(text string) (string, bool) {
	text = strings.TrimSpace(text)
	m := clausePattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

// definitionMeansPattern matches text where a quoted term is being
// defined using "means" or "shall mean".
var definitionMeansPattern = regexp.MustCompile(
	`(?i)^["\x{201c}]([^"\x{201d}]+)["\x{201d}]\s+(?:means|shall\s+mean|has\s+the\s+meaning)\b`,
)

// DefinedTerm reports the term a definition clause defines, e.g. "Services"
// for `1.4 "Services" means the work described in Schedule 1.`.
func DefinedTerm(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if loc := clausePattern.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[loc[1]:])
	}
	m := definitionMeansPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
