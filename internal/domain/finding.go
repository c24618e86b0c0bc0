package domain

// Severity grades a classifier finding.
type Severity string

const (
	SeverityInfo Severity = "INFO"
	SeverityLow  Severity = "LOW"
	SeverityHigh Severity = "HIGH"
)

// Finding is one risk signal derived from a LogRecord.
type Finding struct {
	Severity    Severity `json:"severity"`
	Explanation string   `json:"explanation"`
}

// Warning reports a rule that was skipped because a delta field could not be
// read as a number.
type Warning struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// Assessment is the classifier output for one record. Findings are in rule
// order, not severity order.
type Assessment struct {
	Findings []Finding `json:"findings"`
	Warnings []Warning `json:"warnings,omitempty"`
}
