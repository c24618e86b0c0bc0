package pii

import (
	"encoding/json"
	"log/slog"
	"maps"

	"github.com/V4T54L/kyb-watch/internal/domain"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor masks sensitive fields that producers attach to verification logs
// (contact details, owner names) before records are served.
type Redactor struct {
	fieldsToRedact map[string]struct{} // Use a map for O(1) lookups
	logger         *slog.Logger
}

// NewRedactor creates a new Redactor instance with a given set of fields to redact.
func NewRedactor(fields []string, logger *slog.Logger) *Redactor {
	fieldSet := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if field == "" {
			continue
		}
		fieldSet[field] = struct{}{}
	}
	return &Redactor{
		fieldsToRedact: fieldSet,
		logger:         logger.With("component", "pii_redactor"),
	}
}

// Redact returns a copy of rec with configured fields masked. Top-level
// unmodelled fields and phone numbers inside source sub-records are covered.
// The input record is never modified.
func (r *Redactor) Redact(rec domain.LogRecord) domain.LogRecord {
	if len(r.fieldsToRedact) == 0 {
		return rec
	}

	redacted := 0
	if len(rec.Extra) > 0 {
		extra := maps.Clone(rec.Extra)
		for field := range r.fieldsToRedact {
			if _, ok := extra[field]; ok {
				extra[field] = redactedJSON
				redacted++
			}
		}
		for _, key := range rawSourceKeys {
			if raw, ok := extra[key]; ok {
				masked, n := r.redactObject(raw)
				extra[key] = masked
				redacted += n
			}
		}
		rec.Extra = extra
	}

	if _, ok := r.fieldsToRedact["phone"]; ok {
		if rec.GoogleMapsData != nil && rec.GoogleMapsData.Phone != "" {
			g := *rec.GoogleMapsData
			g.Phone = RedactedPlaceholder
			rec.GoogleMapsData = &g
			redacted++
		}
		if rec.YelpData != nil && rec.YelpData.Phone != "" {
			y := *rec.YelpData
			y.Phone = RedactedPlaceholder
			rec.YelpData = &y
			redacted++
		}
	}

	if redacted > 0 {
		r.logger.Debug("redacted PII fields", "log_id", rec.ID, "count", redacted)
	}

	return rec
}

// rawSourceKeys are source sub-records that may sit undecoded in Extra.
var rawSourceKeys = []string{"google_maps_data", "linked_in_data", "yelp_data"}

// redactObject masks configured keys of a raw JSON object. Anything that is
// not an object is returned unchanged.
func (r *Redactor) redactObject(raw json.RawMessage) (json.RawMessage, int) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return raw, 0
	}
	n := 0
	for field := range r.fieldsToRedact {
		if _, ok := obj[field]; ok {
			obj[field] = redactedJSON
			n++
		}
	}
	if n == 0 {
		return raw, 0
	}
	out, err := json.Marshal(obj)
	if err != nil {
		r.logger.Warn("failed to re-encode redacted sub-record", "error", err)
		return raw, 0
	}
	return out, n
}

var redactedJSON = mustMarshal(RedactedPlaceholder)

func mustMarshal(v string) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
