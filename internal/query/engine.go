// Package query filters, orders and resolves batches of verification logs.
// Every function here is pure and leaves its input slice untouched.
package query

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/V4T54L/kyb-watch/internal/domain"
)

// Filter narrows a batch. Empty fields place no constraint.
type Filter struct {
	// Timestamp must appear verbatim in created_at (case-sensitive).
	Timestamp string `json:"timestamp"`
	// Name must appear in business_name, ignoring case.
	Name string `json:"name"`
}

// IsZero reports whether f places no constraint at all.
func (f Filter) IsZero() bool {
	return f.Timestamp == "" && f.Name == ""
}

// Matches reports whether rec satisfies both predicates of f. A record
// without a business name never matches a name constraint.
func (f Filter) Matches(rec domain.LogRecord) bool {
	if f.Timestamp != "" && !strings.Contains(rec.CreatedAt, f.Timestamp) {
		return false
	}
	if f.Name != "" {
		if rec.BusinessName == "" {
			return false
		}
		if !strings.Contains(strings.ToLower(rec.BusinessName), strings.ToLower(f.Name)) {
			return false
		}
	}
	return true
}

// Apply returns the records matching f in their original relative order.
func Apply(records []domain.LogRecord, f Filter) []domain.LogRecord {
	out := make([]domain.LogRecord, 0, len(records))
	for _, rec := range records {
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// SortByCreatedAtDescending returns a copy of records ordered newest first.
// The sort is stable. Timestamps that parse as ISO-8601 compare as instants
// and come before unparseable ones, which compare as strings.
func SortByCreatedAtDescending(records []domain.LogRecord) []domain.LogRecord {
	type keyed struct {
		rec    domain.LogRecord
		at     time.Time
		parsed bool
	}
	ks := make([]keyed, len(records))
	for i, rec := range records {
		at, err := ParseCreatedAt(rec.CreatedAt)
		ks[i] = keyed{rec: rec, at: at, parsed: err == nil}
	}

	slices.SortStableFunc(ks, func(a, b keyed) int {
		switch {
		case a.parsed && b.parsed:
			return b.at.Compare(a.at)
		case a.parsed:
			return -1
		case b.parsed:
			return 1
		default:
			return strings.Compare(b.rec.CreatedAt, a.rec.CreatedAt)
		}
	})

	out := make([]domain.LogRecord, len(ks))
	for i, k := range ks {
		out[i] = k.rec
	}
	return out
}

// SelectByID resolves id against records. The boolean is false when the id
// is not present, for instance after the batch it came from was replaced.
func SelectByID(records []domain.LogRecord, id string) (domain.LogRecord, bool) {
	if id == "" {
		return domain.LogRecord{}, false
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, true
		}
	}
	return domain.LogRecord{}, false
}

// Partition splits records into valid ones and a report of those excluded.
// Order is preserved on both sides.
func Partition(records []domain.LogRecord) ([]domain.LogRecord, []domain.SkippedRecord) {
	valid := make([]domain.LogRecord, 0, len(records))
	var skipped []domain.SkippedRecord
	for _, rec := range records {
		err := domain.Validate(rec)
		if err == nil {
			valid = append(valid, rec)
			continue
		}
		reason := err.Error()
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			reason = strings.Join(vErr.Problems, "; ")
		}
		skipped = append(skipped, domain.SkippedRecord{ID: rec.ID, Reason: reason})
	}
	return valid, skipped
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseCreatedAt reads the timestamp formats producers are known to write,
// including Python's isoformat without a zone (interpreted as UTC).
func ParseCreatedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range createdAtLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
