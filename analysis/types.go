package analysis

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownType is returned for an analysis type that is not in Types.
	ErrUnknownType = errors.New("analysis: unknown type")

	// ErrQueryRequired is returned when a custom analysis has no question.
	ErrQueryRequired = errors.New("analysis: custom analysis needs a query")

	// ErrNoContext is returned when neither contract text nor a retriever
	// produced anything to analyse.
	ErrNoContext = errors.New("analysis: no contract text to analyse")
)

// Type names an analysis.
type Type string

const (
	ContractReview  Type = "contract_review"
	ContractSummary Type = "contract_summary"
	RiskAssessment  Type = "risk_assessment"
	KeyTerms        Type = "key_terms"
	Obligations     Type = "obligations"
	Parties         Type = "parties"
	Custom          Type = "custom_analysis"
)

// Types lists the supported analyses in display order.
var Types = []Type{ContractReview, ContractSummary, RiskAssessment, KeyTerms, Obligations, Parties, Custom}

type kind struct {
	label string
	scope Scope
	// search is the retrieval query used when there is no full text.
	search string
	focus  string
}

var kinds = map[Type]kind{
	ContractReview: {
		label:  "Contract Review",
		scope:  Detailed,
		search: "parties, definitions, terms, conditions, obligations, termination, signatures",
	},
	ContractSummary: {
		label:  "Contract Summary",
		scope:  Basic,
		search: "parties, term, payment, signatures",
		focus:  "Keep each point short. Summarise rather than quote, except for amounts, dates and names.",
	},
	RiskAssessment: {
		label:  "Risk Assessment",
		scope:  Comprehensive,
		search: "liability, indemnification, warranties, termination, insurance, compliance, governing law",
		focus:  "Weight the analysis towards risk, liability and indemnification. Rate every significant issue High, Medium or Low.",
	},
	KeyTerms: {
		label:  "Key Terms",
		search: "definitions, \"means\", defined terms, interpretation",
	},
	Obligations: {
		label:  "Obligations",
		search: "shall, must, obligations, undertakes, responsible for, deliver, pay",
	},
	Parties: {
		label:  "Parties",
		search: "between, parties, incorporated, registered office, company number, agreement date",
	},
	Custom: {
		label: "Custom Analysis",
	},
}

// ParseType maps a name to a Type. Unknown names wrap ErrUnknownType.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kinds[t]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, s)
	}
	return t, nil
}

// Label returns the display name of t.
func (t Type) Label() string { return kinds[t].label }

// Scope returns the review scope of t. ok is false for analyses that are not
// scoped reviews.
func (t Type) Scope() (Scope, bool) {
	k := kinds[t]
	return k.scope, k.scope != ""
}

// RequiresQuery reports whether t needs a caller-supplied question.
func (t Type) RequiresQuery() bool { return t == Custom }
