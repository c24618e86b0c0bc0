package domain

import (
	"fmt"
	"strings"
)

// ValidationError lists every problem found on a candidate record.
type ValidationError struct {
	ID       string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("malformed log %q: %s", e.ID, strings.Join(e.Problems, "; "))
}

// SkippedRecord identifies a record excluded from classification and filtering.
type SkippedRecord struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Validate checks the fields every consumer relies on. A log_type outside the
// known set is accepted and interpreted as unknown.
func Validate(rec LogRecord) error {
	if rec.DecodeError != "" {
		return &ValidationError{ID: rec.ID, Problems: []string{"undecodable document: " + rec.DecodeError}}
	}
	var problems []string
	if strings.TrimSpace(rec.ID) == "" {
		problems = append(problems, "missing id")
	}
	if strings.TrimSpace(rec.BusinessName) == "" {
		problems = append(problems, "missing business_name")
	}
	if strings.TrimSpace(rec.CreatedAt) == "" {
		problems = append(problems, "missing created_at")
	}
	if strings.TrimSpace(string(rec.LogType)) == "" {
		problems = append(problems, "missing log_type")
	}
	if len(problems) > 0 {
		return &ValidationError{ID: rec.ID, Problems: problems}
	}
	return nil
}

// IsValidLogRecord reports whether rec passes Validate.
func IsValidLogRecord(rec LogRecord) bool {
	return Validate(rec) == nil
}
