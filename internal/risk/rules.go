// Package risk turns a verification log into an ordered list of risk findings.
package risk

import (
	"fmt"

	"github.com/V4T54L/kyb-watch/internal/domain"
)

// delta is one old/new counter pair consulted by a rule.
type delta struct {
	field    string
	old, new *domain.Number
}

// Classify applies the fixed rule table to rec. It is pure: no I/O, no side
// effects, and the same record always yields the same Assessment.
//
// Rule order:
//  1. business_growth: Yelp review increase (LOW), then Google review increase (LOW).
//     Decreases are not flagged.
//  2. org_growth: company size increase (LOW) or decrease (HIGH).
//  3. Any other log type yields nothing.
func Classify(rec domain.LogRecord) domain.Assessment {
	a := domain.Assessment{Findings: []domain.Finding{}}

	switch rec.LogType {
	case domain.LogTypeBusinessGrowth:
		evaluateIncrease(&a, delta{"yelp_reviews", rec.OldYelpReviews, rec.NewYelpReviews}, "Yelp reviews")
		evaluateIncrease(&a, delta{"google_reviews", rec.OldGoogleReviews, rec.NewGoogleReviews}, "Google reviews")
	case domain.LogTypeOrgGrowth:
		evaluateCompanySize(&a, delta{"company_size", rec.OldCompanySize, rec.NewCompanySize})
	}

	return a
}

func evaluateIncrease(a *domain.Assessment, d delta, subject string) {
	oldV, newV, ok := compare(a, d)
	if !ok {
		return
	}
	if newV > oldV {
		a.Findings = append(a.Findings, domain.Finding{
			Severity:    domain.SeverityLow,
			Explanation: fmt.Sprintf("%s increased from %s to %s", subject, d.old, d.new),
		})
	}
}

func evaluateCompanySize(a *domain.Assessment, d delta) {
	oldV, newV, ok := compare(a, d)
	if !ok {
		return
	}
	switch {
	case newV > oldV:
		a.Findings = append(a.Findings, domain.Finding{
			Severity:    domain.SeverityLow,
			Explanation: fmt.Sprintf("Company size increased from %s to %s", d.old, d.new),
		})
	case newV < oldV:
		a.Findings = append(a.Findings, domain.Finding{
			Severity:    domain.SeverityHigh,
			Explanation: fmt.Sprintf("Company size decreased from %s to %s", d.old, d.new),
		})
	}
}

// compare coerces both sides of d. A missing side skips the rule silently; a
// side that is not numeric skips it with a warning.
func compare(a *domain.Assessment, d delta) (float64, float64, bool) {
	if d.old == nil || d.new == nil {
		return 0, 0, false
	}
	oldV, oldErr := d.old.Float()
	newV, newErr := d.new.Float()
	if oldErr != nil {
		a.Warnings = append(a.Warnings, domain.Warning{Field: "old_" + d.field, Value: d.old.String(), Reason: oldErr.Error()})
	}
	if newErr != nil {
		a.Warnings = append(a.Warnings, domain.Warning{Field: "new_" + d.field, Value: d.new.String(), Reason: newErr.Error()})
	}
	if oldErr != nil || newErr != nil {
		return 0, 0, false
	}
	return oldV, newV, true
}
