// Package analysis runs free-form contract analyses: scoped reviews, defined
// term and obligation breakdowns, party extraction and custom questions.
// Unlike extraction, an analysis is a single agent call whose answer is
// returned as prose.
package analysis

import (
	"fmt"
	"slices"
	"strings"
)

// Scope sets how much of a contract a review must cover.
type Scope string

const (
	Basic         Scope = "basic"
	Detailed      Scope = "detailed"
	Comprehensive Scope = "comprehensive"
)

// Requirement lists what a review of a given scope must look at.
type Requirement struct {
	MinContextLength int      `json:"min_context_length"`
	MinConfidence    float64  `json:"min_confidence"`
	RequiredSections []string `json:"required_sections"`
	OptionalSections []string `json:"optional_sections"`
}

var requirements = map[Scope]Requirement{
	Basic: {
		MinContextLength: 1000,
		MinConfidence:    0.7,
		RequiredSections: []string{"parties", "terms", "signatures"},
		OptionalSections: []string{"definitions", "exhibits"},
	},
	Detailed: {
		MinContextLength: 2000,
		MinConfidence:    0.8,
		RequiredSections: []string{
			"parties", "definitions", "terms", "conditions",
			"obligations", "termination", "signatures",
		},
		OptionalSections: []string{"recitals", "exhibits", "schedules"},
	},
	Comprehensive: {
		MinContextLength: 3000,
		MinConfidence:    0.9,
		RequiredSections: []string{
			"parties", "recitals", "definitions", "terms", "conditions",
			"obligations", "representations", "warranties", "indemnification",
			"termination", "governing_law", "signatures",
		},
		OptionalSections: []string{"exhibits", "schedules", "amendments"},
	},
}

// ParseScope maps a name to a Scope.
func ParseScope(s string) (Scope, error) {
	sc := Scope(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := requirements[sc]; !ok {
		return "", fmt.Errorf("unknown analysis scope: %s", s)
	}
	return sc, nil
}

// Requirements returns the requirement for s. The slices are copies.
func Requirements(s Scope) (Requirement, bool) {
	r, ok := requirements[s]
	if !ok {
		return Requirement{}, false
	}
	r.RequiredSections = slices.Clone(r.RequiredSections)
	r.OptionalSections = slices.Clone(r.OptionalSections)
	return r, true
}
