package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/V4T54L/kyb-watch/internal/domain"
)

const logsTableName = "kyb_logs"

// Schema creates the document table. Records are stored whole as JSONB; the
// columns beside it exist only for lookups and ordering.
const Schema = `
CREATE TABLE IF NOT EXISTS kyb_logs (
	id           TEXT PRIMARY KEY,
	business_url TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL DEFAULT '',
	log_type     TEXT NOT NULL DEFAULT '',
	document     JSONB NOT NULL,
	inserted_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS kyb_logs_created_at_idx ON kyb_logs (created_at DESC);
CREATE INDEX IF NOT EXISTS kyb_logs_business_url_idx ON kyb_logs (business_url, created_at DESC);
`

const uniqueViolation = pq.ErrorCode("23505")

// LogRepository implements domain.LogRepository on PostgreSQL.
type LogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLogRepository creates a new PostgreSQL log repository.
func NewLogRepository(db *sql.DB, logger *slog.Logger) *LogRepository {
	return &LogRepository{db: db, logger: logger.With("component", "postgres_log_repository")}
}

// EnsureSchema creates the table and indexes if they do not exist.
func (r *LogRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create %s schema: %w", logsTableName, err)
	}
	return nil
}

// ListLogs returns records newest first. A document that cannot be decoded is
// returned as a bare record carrying only its id, so validation reports it
// instead of it disappearing.
func (r *LogRepository) ListLogs(ctx context.Context, limit int) ([]domain.LogRecord, error) {
	q := `SELECT id, document FROM kyb_logs ORDER BY created_at DESC, inserted_at DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var records []domain.LogRecord
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		records = append(records, r.decode(id, doc))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// LatestByURL returns the newest record for url.
func (r *LogRepository) LatestByURL(ctx context.Context, url string) (domain.LogRecord, error) {
	var (
		id  string
		doc []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, document FROM kyb_logs WHERE business_url = $1 ORDER BY created_at DESC, inserted_at DESC LIMIT 1`,
		url,
	).Scan(&id, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LogRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.LogRecord{}, fmt.Errorf("query latest log: %w", err)
	}
	return r.decode(id, doc), nil
}

// CreateLog inserts rec, assigning a UUID when it has no id.
func (r *LogRepository) CreateLog(ctx context.Context, rec domain.LogRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal log: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO kyb_logs (id, business_url, created_at, log_type, document) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.BusinessURL, rec.CreatedAt, string(rec.LogType), doc,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", fmt.Errorf("%w: %s", domain.ErrDuplicate, rec.ID)
		}
		return "", fmt.Errorf("insert log: %w", err)
	}
	return rec.ID, nil
}

func (r *LogRepository) decode(id string, doc []byte) domain.LogRecord {
	var rec domain.LogRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		r.logger.Warn("failed to decode log document", "log_id", id, "error", err)
		return domain.UndecodableLog(id, err)
	}
	rec.ID = id
	return rec
}
