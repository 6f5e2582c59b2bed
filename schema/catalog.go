package schema

func meta(name string, guidance ...string) Field {
	return Field{Name: name, Guidance: guidance, Category: Metadata}
}

func std(name string, guidance ...string) Field {
	return Field{Name: name, Guidance: guidance, Category: Standard}
}

// contractFields is the full contract catalog. Header-level facts come first
// so a run fills them before the long tail of commercial terms.
var contractFields = []Field{
	// Document header
	meta("Contract Name", "agreement title", "this agreement", "contract name"),
	meta("Agreement Type", "type of agreement", "services agreement", "supply agreement", "license agreement"),
	meta("Agreement Category", "category", "procurement", "sales", "lease"),
	meta("Template used", "standard form", "template", "model contract"),
	meta("Nature of Agreement", "nature of", "purpose of this agreement", "whereas"),
	meta("Document Type", "agreement", "amendment", "addendum", "memorandum of understanding"),
	meta("Document Type Comment", "amended and restated", "supersedes", "supplemental"),
	meta("Contracting Entity", "by and between", "hereinafter referred to as", "the company"),
	meta("Contracting Entity Location", "registered office", "principal place of business", "having its office at"),
	meta("Counterparty Entity Name", "and", "counterparty", "service provider", "vendor", "supplier"),
	meta("Counterparty Entity Location", "registered address", "incorporated under", "office at"),

	// Parties and overview
	std("Country of agreement", "country", "jurisdiction", "executed at"),
	std("Contract Details", "scope of services", "subject matter", "the parties agree"),
	std("Entity Name", "company name", "legal entity", "incorporated"),
	std("Counterparty Name", "counterparty", "other party", "service provider"),
	std("Summary", "purpose", "recitals", "whereas", "scope"),
	std("Department of Contract Owner", "department", "business unit", "contract owner"),
	std("SPOC", "single point of contact", "contact person", "representative", "notices addressed to"),
	std("Agreement Group", "master agreement", "group", "framework agreement"),
	std("Family Agreement", "master services agreement", "statement of work", "related agreements"),
	std("Family Documents Present", "annexure", "schedule", "exhibit", "appendix"),
	std("Family Hierarchy", "order of precedence", "in case of conflict", "shall prevail"),
	std("Scanned", "scanned copy", "signed copy"),
	std("Signature by", "signed by", "authorised signatory", "in witness whereof", "name and designation"),

	// Dates and term
	std("Effective Date", "effective date", "shall come into effect", "with effect from"),
	std("Contract Start Date", "commencement date", "start date", "shall commence on"),
	std("Contract Duration", "term of this agreement", "period of", "duration"),
	std("Contract End Date", "expiry date", "shall expire on", "end date", "until"),
	std("Contingent Contract", "conditions precedent", "subject to", "contingent upon"),
	std("Perpetual Contract", "perpetual", "shall continue in force until terminated", "indefinite"),
	std("SLA", "service level", "uptime", "response time", "service credits"),
	std("Stamping Date", "stamp paper", "stamped on", "e-stamp"),
	std("Franking Date", "franking", "franked on"),
	std("Franking Date_Availablity", "franking", "franked"),
	std("Term (In months)", "term", "months", "period of"),

	// Law and disputes
	std("Governing Law", "governing law", "governed by", "laws of", "construed in accordance with"),
	std("Dispute Resolution", "dispute resolution", "disputes", "amicable settlement", "mediation"),
	std("Place of Courts", "courts at", "courts of", "exclusive jurisdiction"),
	std("Court Jurisdiction", "jurisdiction", "courts", "submit to the jurisdiction"),
	std("Place of Arbitration", "place of arbitration", "arbitration shall be held"),
	std("Arbitration Institution", "arbitration rules", "ICC", "SIAC", "LCIA", "Arbitration and Conciliation Act"),
	std("Number of Arbitrators", "sole arbitrator", "three arbitrators", "arbitral tribunal"),
	std("Seat of Arbitration", "seat of arbitration", "seat"),
	std("Venue of Arbitration", "venue of arbitration", "venue"),
	std("Legal Action Rights with counterparty", "legal proceedings", "right to sue", "remedies"),

	// Liability, indemnity, damages
	std("Counterparty - liability cap", "limitation of liability", "aggregate liability", "shall not exceed", "cap"),
	std("Counterparty - liability limitation summary", "limitation of liability", "consequential damages", "indirect loss"),
	std("Indemnification", "indemnify", "hold harmless", "indemnification"),
	std("Indemnification Summary", "indemnify", "defend", "third party claims"),
	std("Counterparty - liquidated damages", "liquidated damages", "pre-estimate", "per day of delay"),
	std("Counterparty - damages summary", "damages", "compensation", "losses"),
	std("Penalties", "penalty", "penalties", "deduction"),
	std("Penal interest rate and other late payment charges", "late payment", "interest", "per annum", "overdue"),

	// Assignment and termination
	std("Assignment rights", "assign", "assignment", "transfer"),
	std("Counterparty assignment rights", "shall not assign", "prior written consent", "assignment"),
	std("Counterparty - assignment summary", "assignment", "novation", "successors and assigns"),
	std("Can Contracting Entity terminate for Convenience?", "terminate for convenience", "without cause", "at any time by giving notice"),
	std("If yes, number of notice days?", "days notice", "prior written notice", "notice period"),
	std("Can Counterparty terminate for Convenience?", "terminate for convenience", "without cause", "either party may terminate"),
	std("Counterparty - If yes, number of notice days?", "days notice", "written notice", "notice period"),
	std("Counterparty - termination summary", "termination", "material breach", "insolvency", "cure period"),
	std("Provision for lock-in period", "lock-in", "minimum commitment", "shall not terminate during"),
	std("Period of lock in", "lock-in period", "months", "years"),
	std("Lock-in summary", "lock-in", "minimum term"),
	std("Counterparty - Change of Control Provision", "change of control", "change in ownership", "merger", "acquisition"),

	// Renewal and acceleration
	std("Auto-renewal provision", "automatically renew", "auto renewal", "renewed for successive"),
	std("Notice period (in days) to stop auto renewal", "notice of non-renewal", "days prior to expiry", "not to renew"),
	std("Renewal Option Notice Start Date", "renewal notice", "option to renew"),
	std("Renewal Option Notice End Date", "renewal notice", "no later than"),
	std("Auto-renewal provision summary", "renewal", "extension", "renew"),
	std("Acceleration clause applicable to Contracting Entity", "acceleration", "immediately due and payable"),
	std("Acceleration clause applicable to Counterparty", "acceleration", "all amounts become due"),
	std("Acceleration clause - summary", "acceleration", "accelerated payment"),

	// Exclusivity
	std("Exclusivity provision", "exclusive", "exclusivity", "sole supplier"),
	std("Scope", "scope of exclusivity", "products", "services"),
	std("Territory", "territory", "region", "worldwide"),
	std("Carve-outs", "except", "excluding", "carve-out", "notwithstanding"),
	std("Exclusivity Period (Start Date)", "exclusivity period", "from the date"),
	std("Exclusivity Period (End Date)", "exclusivity period", "until", "expiry of exclusivity"),

	// Audit and IP
	std("Available to Contracting Entity", "audit", "right to audit", "inspect records"),
	std("Available to Counterparty", "audit", "inspection", "books and records"),
	std("Audit Rights - Summary", "audit rights", "audit", "access to records"),
	std("Copyright", "copyright", "works of authorship", "intellectual property"),
	std("Patent", "patent", "inventions", "intellectual property"),
	std("Trademark", "trademark", "brand", "logo", "trade name"),
	std("Other", "intellectual property", "know-how", "license"),

	// Compliance
	std("ABAC/FCPA provision", "anti-bribery", "anti-corruption", "FCPA", "bribery act"),
	std("ABAC/FCPA provision - summary", "anti-bribery", "corrupt practices", "facilitation payments"),

	// Commercials
	std("Receive or Pay", "shall pay", "consideration", "fees payable"),
	std("Currency", "currency", "INR", "USD", "EUR", "rupees", "dollars"),
	std("Total Contract Value", "total contract value", "contract price", "aggregate value", "total consideration"),
	std("Fixed Fee", "fixed fee", "lump sum", "monthly fee"),
	std("Security Deposit / Bank Guarantee", "security deposit", "bank guarantee", "performance bond"),
	std("Fuel surcharges", "fuel surcharge", "fuel price", "diesel"),
	std("Advance payment period", "advance payment", "in advance", "prepayment"),
	std("Advance payment Amount", "advance", "mobilisation advance", "upfront payment"),
	std("Term for Refund of Security Deposit", "refund of security deposit", "return of deposit", "refunded within"),
	std("Incentive", "incentive", "bonus", "performance incentive"),
	std("Revenue Share", "revenue share", "share of revenue", "percentage of revenue"),
	std("Commission Percentage", "commission", "percent", "brokerage"),
	std("Minimum Guarantee", "minimum guarantee", "minimum guaranteed", "minimum commitment"),
	std("Variable Fee", "variable fee", "per unit", "usage based"),
	std("Fee-Other", "fees", "charges", "reimbursement", "expenses"),
	std("Payment Type", "payment mode", "wire transfer", "cheque", "electronic transfer"),
	std("Payment Schedule (in days)", "within days of receipt of invoice", "payment terms", "net"),
	std("Payment Terms / Details", "payment terms", "invoice", "payment shall be made"),
	std("Milestones", "milestone", "deliverables", "phase"),
	std("Payment to Affiliates / Agency", "affiliates", "agency", "payment to third party"),
	std("Fee Escalation", "escalation", "price increase", "annual increase", "revision of fees"),
	std("Stamp Duty Share", "stamp duty", "borne by", "registration charges"),

	// Confidentiality and data
	std("Confidentiality", "confidential information", "confidentiality", "non-disclosure"),
	std("Residual Confidentiality", "survive termination", "years after termination", "residual"),
	std("Exceptions to confidentiality", "public domain", "required by law", "already known", "independently developed"),
	std("Data Privacy Provision", "data protection", "personal data", "privacy", "GDPR"),
	std("Data Privacy Summary", "data protection", "processing of personal data", "data breach"),

	// Risk allocation
	std("Insurance coverage for Contracting Entity", "insurance", "insured", "policy"),
	std("Insurance coverage for Counterparty", "insurance", "maintain insurance", "public liability"),
	std("Subcontracting rights for the Counterparty", "subcontract", "sub-contractor", "delegate"),
	std("Defect liability period", "defect liability", "warranty period", "defects"),
	std("Performance Guarantee", "performance guarantee", "performance security", "bank guarantee"),
	std("Conflicts of Interests", "conflict of interest", "conflicts"),
	std("Force Majeure", "force majeure", "act of god", "beyond reasonable control"),
	std("Insurance coverage", "insurance", "coverage", "sum insured"),
	std("Representation and Warranties", "represents and warrants", "warranties", "representations"),
	std("Non-Compete", "non-compete", "shall not compete", "competing business"),
	std("Non-Solicitation", "non-solicitation", "shall not solicit", "employees"),
	std("Waiver", "waiver", "no failure or delay", "shall not operate as a waiver"),
	std("Severability", "severability", "invalid or unenforceable", "severed"),
	std("Survival", "survival", "shall survive", "termination or expiry"),

	// Review
	std("Handwritten Comments", "handwritten", "initialled", "annotated"),
	std("Missing Pages", "page", "of", "intentionally left blank"),
	std("Missing Signatures", "signature", "signed", "witness"),
	std("Review Comments (if any)", "note", "comments", "remarks"),
}

// Guided returns the built-in contract catalog with guidance phrases.
func Guided() *Schema {
	return MustNew("contract", contractFields...)
}

// Unguided returns the built-in contract catalog as bare names.
func Unguided() *Schema {
	return Guided().Unguide()
}
