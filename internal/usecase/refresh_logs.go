package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/V4T54L/kyb-watch/internal/adapter/metrics"
	"github.com/V4T54L/kyb-watch/internal/domain"
	"github.com/V4T54L/kyb-watch/internal/query"
)

const (
	defaultRetryCount   = 3
	defaultRetryBackoff = 1 * time.Second
)

// RefreshLogsUseCase reads the full batch from the repository, drops
// malformed records, orders the rest and installs them as the new snapshot.
type RefreshLogsUseCase struct {
	repo         domain.LogRepository
	store        *SnapshotStore
	logger       *slog.Logger
	metrics      *metrics.Metrics
	limit        int
	retryCount   int
	retryBackoff time.Duration
	now          func() time.Time
}

// NewRefreshLogsUseCase creates a refresher. Non-positive retry settings fall
// back to the defaults. m may be nil.
func NewRefreshLogsUseCase(repo domain.LogRepository, store *SnapshotStore, logger *slog.Logger, m *metrics.Metrics, limit, retryCount int, retryBackoff time.Duration) *RefreshLogsUseCase {
	if retryCount <= 0 {
		retryCount = defaultRetryCount
	}
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}
	return &RefreshLogsUseCase{
		repo:         repo,
		store:        store,
		logger:       logger.With("component", "log_refresher"),
		metrics:      m,
		limit:        limit,
		retryCount:   retryCount,
		retryBackoff: retryBackoff,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Refresh fetches and commits one batch. The returned bool is false when a
// newer refresh committed first and this result was discarded.
func (uc *RefreshLogsUseCase) Refresh(ctx context.Context) (*Snapshot, bool, error) {
	ctx, span := otel.Tracer("log-refresher").Start(ctx, "Refresh")
	defer span.End()

	ticket := uc.store.Begin()

	records, err := uc.fetchWithRetry(ctx)
	if err != nil {
		uc.countRefresh("error")
		uc.logger.Error("failed to fetch log batch after retries", "error", err)
		return nil, false, err
	}

	valid, skipped := query.Partition(records)
	for _, s := range skipped {
		uc.logger.Warn("excluding malformed log", "log_id", s.ID, "reason", s.Reason)
	}

	snap := Snapshot{
		FetchedAt: uc.now(),
		Records:   query.SortByCreatedAtDescending(valid),
		Skipped:   skipped,
	}
	span.SetAttributes(
		attribute.Int("logs.valid", len(valid)),
		attribute.Int("logs.skipped", len(skipped)),
	)

	if !uc.store.Commit(ticket, snap) {
		uc.countRefresh("stale")
		uc.logger.Debug("discarding stale log batch", "ticket", ticket)
		return uc.store.Current(), false, nil
	}

	current := uc.store.Current()
	if uc.metrics != nil {
		uc.metrics.RefreshTotal.WithLabelValues("committed").Inc()
		uc.metrics.SkippedRecordsTotal.Add(float64(len(skipped)))
		uc.metrics.SnapshotRecords.Set(float64(len(current.Records)))
		uc.metrics.SnapshotGeneration.Set(float64(current.Generation))
	}
	uc.logger.Info("installed log snapshot",
		"generation", current.Generation, "count", len(current.Records), "skipped", len(skipped))
	return current, true, nil
}

// Run refreshes immediately and then every interval until ctx is done.
func (uc *RefreshLogsUseCase) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	uc.logger.Info("log refresher started", "interval", interval)
	for {
		if _, _, err := uc.Refresh(ctx); err != nil && ctx.Err() == nil {
			uc.logger.Error("error refreshing logs", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			uc.logger.Info("context cancelled, stopping log refresher")
			return
		}
	}
}

func (uc *RefreshLogsUseCase) fetchWithRetry(ctx context.Context) ([]domain.LogRecord, error) {
	var lastErr error
	for i := 0; i < uc.retryCount; i++ {
		records, err := uc.repo.ListLogs(ctx, uc.limit)
		if err == nil {
			return records, nil
		}
		lastErr = err
		uc.logger.Warn("failed to list logs, retrying...", "attempt", i+1, "error", err)
		if i == uc.retryCount-1 {
			break
		}
		select {
		case <-time.After(uc.retryBackoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("list logs: %w", lastErr)
}

func (uc *RefreshLogsUseCase) countRefresh(status string) {
	if uc.metrics != nil {
		uc.metrics.RefreshTotal.WithLabelValues(status).Inc()
	}
}
