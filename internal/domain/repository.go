package domain

import "context"

// LogRepository is the document store holding verification logs.
// Implementations never update or delete records.
type LogRepository interface {
	// ListLogs returns up to limit records, newest first. A limit <= 0 means
	// no limit. Callers must not rely on the ordering being correct.
	ListLogs(ctx context.Context, limit int) ([]LogRecord, error)

	// LatestByURL returns the most recent record created for a business URL,
	// or ErrNotFound.
	LatestByURL(ctx context.Context, url string) (LogRecord, error)

	// CreateLog appends a record and returns its id. An empty rec.ID asks the
	// store to assign one.
	CreateLog(ctx context.Context, rec LogRecord) (string, error)
}

// Summarizer gathers identity facts and source data for a business URL.
type Summarizer interface {
	Summarize(ctx context.Context, url string) (EntitySummary, error)
}

// LogPublisher announces newly created records to downstream consumers.
type LogPublisher interface {
	PublishLogCreated(ctx context.Context, rec LogRecord) error
}
