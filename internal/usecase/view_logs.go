package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/V4T54L/kyb-watch/internal/domain"
	"github.com/V4T54L/kyb-watch/internal/query"
)

// Classifier assesses a single record.
type Classifier interface {
	Classify(rec domain.LogRecord) domain.Assessment
}

// Redactor masks sensitive fields before a record leaves the service.
type Redactor interface {
	Redact(rec domain.LogRecord) domain.LogRecord
}

// LogEntry is a record together with its presentation label and findings.
type LogEntry struct {
	Log      domain.LogRecord `json:"log"`
	Label    string           `json:"label"`
	Findings []domain.Finding `json:"findings"`
	Warnings []domain.Warning `json:"warnings,omitempty"`
}

// LogView is a filtered projection of one snapshot.
type LogView struct {
	Generation uint64                 `json:"generation"`
	FetchedAt  time.Time              `json:"fetched_at"`
	Skipped    []domain.SkippedRecord `json:"skipped"`
	Logs       []LogEntry             `json:"logs"`
}

// ViewLogsUseCase answers read queries from the current snapshot.
type ViewLogsUseCase struct {
	store      *SnapshotStore
	classifier Classifier
	redactor   Redactor
}

// NewViewLogsUseCase creates a ViewLogsUseCase. redactor may be nil.
func NewViewLogsUseCase(store *SnapshotStore, classifier Classifier, redactor Redactor) *ViewLogsUseCase {
	return &ViewLogsUseCase{store: store, classifier: classifier, redactor: redactor}
}

// List returns the current snapshot narrowed by f, newest first.
func (uc *ViewLogsUseCase) List(ctx context.Context, f query.Filter) LogView {
	_, span := otel.Tracer("log-view").Start(ctx, "List")
	defer span.End()

	snap := uc.store.Current()
	matched := query.Apply(snap.Records, f)
	span.SetAttributes(
		attribute.Int64("snapshot.generation", int64(snap.Generation)),
		attribute.Int("logs.matched", len(matched)),
	)

	view := LogView{
		Generation: snap.Generation,
		FetchedAt:  snap.FetchedAt,
		Skipped:    append([]domain.SkippedRecord{}, snap.Skipped...),
		Logs:       make([]LogEntry, 0, len(matched)),
	}
	for _, rec := range matched {
		view.Logs = append(view.Logs, uc.entry(rec))
	}
	return view
}

// Get resolves id against the current snapshot. An id that is no longer
// present yields domain.ErrNotFound.
func (uc *ViewLogsUseCase) Get(ctx context.Context, id string) (LogEntry, error) {
	_, span := otel.Tracer("log-view").Start(ctx, "Get")
	defer span.End()

	rec, ok := query.SelectByID(uc.store.Current().Records, id)
	if !ok {
		return LogEntry{}, domain.ErrNotFound
	}
	return uc.entry(rec), nil
}

func (uc *ViewLogsUseCase) entry(rec domain.LogRecord) LogEntry {
	a := uc.classifier.Classify(rec)
	if uc.redactor != nil {
		rec = uc.redactor.Redact(rec)
	}
	return LogEntry{
		Log:      rec,
		Label:    rec.LogType.Label(),
		Findings: a.Findings,
		Warnings: a.Warnings,
	}
}
