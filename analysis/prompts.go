package analysis

import (
	"fmt"
	"strings"
)

type point struct {
	title string
	items []string
}

// reviewPoints are the headings of a scoped review. The first point is
// completed with the scope's section lists.
var reviewPoints = []point{
	{"Contract Overview and Structure", []string{
		"Document type and purpose",
		"Governing law and jurisdiction",
		"Contract structure and organisation",
	}},
	{"Parties and Relationships", []string{
		"Every party involved (entities, individuals, companies)",
		"Who the agreement is between and who it is for",
		"Role and responsibilities of each party",
		"Third-party beneficiaries or references",
	}},
	{"Financial Terms", []string{
		"Contract value and payment terms",
		"Pricing structure, currency and payment method",
		"Payment schedule and milestones",
		"Guarantees, caps and tax responsibilities",
	}},
	{"Timeline and Key Dates", []string{
		"Effective date and term",
		"Milestones and deadlines",
		"Renewal or extension provisions",
		"Notice periods",
	}},
	{"Rights, Obligations and Deliverables", []string{
		"Core obligations of each party",
		"Deliverables, performance standards and service levels",
		"Acceptance criteria and reporting duties",
	}},
	{"Risk and Compliance", []string{
		"Legal, regulatory and operational risks",
		"Insurance and audit requirements",
		"Data protection and privacy duties",
	}},
	{"Liability and Indemnification", []string{
		"Limitation of liability",
		"Indemnities and warranties",
		"Force majeure, disclaimers and remedies",
	}},
	{"Intellectual Property and Confidentiality", []string{
		"IP ownership and licence grants",
		"Confidentiality and non-disclosure obligations",
		"Data ownership and usage rights",
	}},
	{"Change and Termination", []string{
		"Amendment and change control procedures",
		"Termination rights, triggers and consequences",
		"Post-termination obligations and survival clauses",
	}},
	{"Dispute Resolution", []string{
		"Resolution and escalation procedures",
		"Arbitration or mediation",
		"Venue, forum and choice of law",
	}},
	{"Negotiation Points and Recommendations", []string{
		"Areas needing clarification",
		"Suggested improvements and alternative language",
		"Risk mitigation and fallback positions",
	}},
}

func writePoints(b *strings.Builder, points []point) {
	for i, p := range points {
		fmt.Fprintf(b, "%d. %s\n", i+1, p.title)
		for _, item := range p.items {
			fmt.Fprintf(b, "- %s\n", item)
		}
		b.WriteString("\n")
	}
}

// reviewPrompt builds a scoped review instruction.
func reviewPrompt(req Requirement, focus, context string) string {
	points := make([]point, len(reviewPoints))
	copy(points, reviewPoints)
	overview := points[0]
	overview.items = append(overview.items[:len(overview.items):len(overview.items)],
		"Required sections: "+strings.Join(req.RequiredSections, ", "),
		"Optional sections: "+strings.Join(req.OptionalSections, ", "),
		"Whether any required section is missing",
	)
	points[0] = overview

	var b strings.Builder
	b.WriteString("Analyze the following contract and extract all critical information.\n\n")
	b.WriteString("Contract:\n")
	b.WriteString(context)
	b.WriteString("\n\nRequired analysis points:\n\n")
	writePoints(&b, points)
	b.WriteString("For each point give specific clause references and quote critical language exactly.\n")
	b.WriteString("Explain implications, rate significant issues High, Medium or Low, and flag missing or inadequate provisions.\n")
	b.WriteString("Use clear headers and bullet points.\n")
	if focus != "" {
		b.WriteString(focus)
		b.WriteString("\n")
	}
	return b.String()
}

func keyTermsPrompt(context string) string {
	var b strings.Builder
	b.WriteString("Review the following contract and extract all key defined terms.\n\n")
	b.WriteString("Contract:\n")
	b.WriteString(context)
	b.WriteString("\n\nFor each defined term:\n")
	b.WriteString("1. Give the exact definition\n")
	b.WriteString("2. Say where it is used in the contract\n")
	b.WriteString("3. Explain its scope and implications\n")
	b.WriteString("4. Flag ambiguities and anything unusual compared with standard definitions\n")
	b.WriteString("5. Suggest improvements where needed\n")
	b.WriteString("\nFocus on terms that drive interpretation, money, rights and obligations, risk allocation, performance or compliance.\n")
	b.WriteString("Use a structured format with clause references.\n")
	return b.String()
}

var obligationGroups = []point{
	{"Core Obligations", []string{
		"Performance, delivery and service requirements",
		"Payment obligations",
		"Quality standards and timeline commitments",
	}},
	{"Conditional Obligations", []string{
		"Prerequisites, conditions and triggers",
		"Dependencies on other parties",
		"Optional or alternative obligations",
	}},
	{"Compliance Obligations", []string{
		"Regulatory and reporting requirements",
		"Record-keeping, audit and certification duties",
	}},
	{"Support Obligations", []string{
		"Cooperation, resources and personnel",
		"Access, availability, training and support",
	}},
}

func obligationsPrompt(context string) string {
	var b strings.Builder
	b.WriteString("Analyze all obligations in the following contract.\n\n")
	b.WriteString("Contract:\n")
	b.WriteString(context)
	b.WriteString("\n\nFor each party, identify:\n\n")
	writePoints(&b, obligationGroups)
	b.WriteString("Flag obligations that are ambiguous, unreasonable, missing key details, hard to measure or enforce, conflicting, or high risk.\n")
	return b.String()
}

func partiesPrompt(context string) string {
	var b strings.Builder
	b.WriteString("Extract the agreement and party information from the following contract text.\n\n")
	b.WriteString("Contract:\n")
	b.WriteString(context)
	b.WriteString("\n\nFormat the output as:\n")
	b.WriteString("Agreement Details\n")
	b.WriteString("- Date: [date]\n")
	b.WriteString("- Type: [type]\n")
	b.WriteString("- Reference: [reference numbers if any]\n")
	b.WriteString("- Governing Law: [jurisdiction if stated]\n")
	b.WriteString("Party 1\n")
	b.WriteString("- Name: [full legal name]\n")
	b.WriteString("- Entity Type: [type]\n")
	b.WriteString("- Registration: [registration or tax numbers]\n")
	b.WriteString("- Location: [address or place of establishment]\n")
	b.WriteString("- Role: [role]\n")
	b.WriteString("- Defined As: [defined term]\n")
	b.WriteString("Party 2\n")
	b.WriteString("[Same structure as Party 1]\n")
	b.WriteString("Collective References\n")
	b.WriteString("- Parties collectively known as: [collective term]\n")
	b.WriteString("- Individual references: [individual terms]\n")
	b.WriteString("\nGive only the output in this format.\n")
	b.WriteString("List information exactly as stated in the document and note anything missing or unclear.\n")
	return b.String()
}

func customPrompt(query, context string) string {
	var b strings.Builder
	b.WriteString("Answer the following question about the contract, using only the contract text below.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", strings.TrimSpace(query))
	b.WriteString("Contract:\n")
	b.WriteString(context)
	b.WriteString("\n\nCite clause or section numbers and quote the relevant language.\n")
	b.WriteString("If the contract does not address the question, say so.\n")
	return b.String()
}

// Prompt builds the agent instruction for t over context. query is used by
// Custom only.
func Prompt(t Type, query, context string) (string, error) {
	k, ok := kinds[t]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	switch t {
	case KeyTerms:
		return keyTermsPrompt(context), nil
	case Obligations:
		return obligationsPrompt(context), nil
	case Parties:
		return partiesPrompt(context), nil
	case Custom:
		if strings.TrimSpace(query) == "" {
			return "", ErrQueryRequired
		}
		return customPrompt(query, context), nil
	}
	req, _ := Requirements(k.scope)
	return reviewPrompt(req, k.focus, context), nil
}
