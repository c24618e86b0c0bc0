package risk

import (
	"log/slog"

	"github.com/V4T54L/kyb-watch/internal/adapter/metrics"
	"github.com/V4T54L/kyb-watch/internal/domain"
)

// Classifier serves Classify to readers and reports on committed batches.
type Classifier struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClassifier creates a Classifier. m may be nil.
func NewClassifier(logger *slog.Logger, m *metrics.Metrics) *Classifier {
	return &Classifier{
		logger:  logger.With("component", "risk_classifier"),
		metrics: m,
	}
}

// Classify assesses rec. It has no side effects and runs on every read.
func (c *Classifier) Classify(rec domain.LogRecord) domain.Assessment {
	return Classify(rec)
}

// Observe classifies a newly committed batch once, logs its coercion
// warnings and publishes its finding counts.
func (c *Classifier) Observe(records []domain.LogRecord) {
	findings := map[domain.Severity]int{
		domain.SeverityInfo: 0,
		domain.SeverityLow:  0,
		domain.SeverityHigh: 0,
	}
	warnings := make(map[string]int)

	for _, rec := range records {
		a := Classify(rec)
		for _, w := range a.Warnings {
			c.logger.Warn("skipped risk rule, delta field is not numeric",
				"log_id", rec.ID, "field", w.Field, "value", w.Value)
			warnings[w.Field]++
		}
		for _, f := range a.Findings {
			findings[f.Severity]++
		}
	}

	if c.metrics == nil {
		return
	}
	for sev, n := range findings {
		c.metrics.SnapshotFindings.WithLabelValues(string(sev)).Set(float64(n))
	}
	c.metrics.SnapshotWarnings.Reset()
	for field, n := range warnings {
		c.metrics.SnapshotWarnings.WithLabelValues(field).Set(float64(n))
	}
}
