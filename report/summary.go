package report

import (
	"fmt"

	"github.com/brunobiangulo/goextract/extraction"
	"github.com/brunobiangulo/goextract/prompt"
)

// Summary is the completion overview of a record list. SectionsFound is set
// for the sectioned variant, ConfidenceLevels for the bare one.
type Summary struct {
	TotalTerms       int            `json:"total_terms"`
	TermsFound       int            `json:"terms_found"`
	SectionsFound    *int           `json:"sections_found,omitempty"`
	ConfidenceLevels map[string]int `json:"confidence_levels,omitempty"`
	CompletionRate   string         `json:"completion_rate"`
}

// Summary counts found values and sections. An empty record list reports a
// completion rate of "0.0%".
func (a *Aggregator) Summary() Summary {
	s := Summary{TotalTerms: len(a.records)}
	sections := 0
	levels := map[string]int{string(extraction.High): 0, string(extraction.Low): 0}
	for _, r := range a.records {
		if r.Found() {
			s.TermsFound++
		}
		if r.SectionFound() {
			sections++
		}
		if r.Confidence != "" {
			levels[string(r.Confidence)]++
		}
	}

	if a.variant == prompt.Bare {
		s.ConfidenceLevels = levels
	} else {
		s.SectionsFound = &sections
	}

	rate := 0.0
	if s.TotalTerms > 0 {
		rate = float64(s.TermsFound) / float64(s.TotalTerms) * 100
	}
	s.CompletionRate = fmt.Sprintf("%.1f%%", rate)
	return s
}
