package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/kyb-watch/internal/adapter/metrics"
	"github.com/V4T54L/kyb-watch/internal/domain"
)

const (
	batchCacheKey   = "kyb_logs:batches"
	batchVersionKey = "kyb_logs:version"
)

// errBatchOutdated marks a fetched batch that a write has since superseded.
var errBatchOutdated = errors.New("batch outdated by a concurrent write")

// CachedLogRepository is a read-through cache in front of another
// domain.LogRepository. Batches are stored zstd-compressed in a Redis hash
// keyed by list limit; any write bumps a version counter and drops the whole
// hash. A batch is only cached if the version it was read under is still
// current. When Redis is unreachable every call goes straight to the inner
// repository.
type CachedLogRepository struct {
	client      *redis.Client
	inner       domain.LogRepository
	ttl         time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
	isAvailable atomic.Bool
}

// NewCachedLogRepository wraps inner. m may be nil.
func NewCachedLogRepository(client *redis.Client, inner domain.LogRepository, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) (*CachedLogRepository, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	repo := &CachedLogRepository{
		client:  client,
		inner:   inner,
		ttl:     ttl,
		logger:  logger.With("component", "redis_cache"),
		metrics: m,
		encoder: enc,
		decoder: dec,
	}
	repo.isAvailable.Store(true) // Assume available initially
	return repo, nil
}

// StartHealthCheck pings Redis every interval and re-enables the cache once it
// answers again. It blocks until ctx is done.
func (r *CachedLogRepository) StartHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("Starting Redis health check")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping Redis health check")
			return
		case <-ticker.C:
			err := r.client.Ping(ctx).Err()
			if err != nil {
				if r.isAvailable.CompareAndSwap(true, false) {
					r.logger.Error("Redis connection lost", "error", err)
				}
				continue
			}
			if r.isAvailable.CompareAndSwap(false, true) {
				r.logger.Info("Redis connection recovered")
				// Writes may have happened while the cache was unreachable.
				if err := r.client.Del(ctx, batchCacheKey).Err(); err != nil {
					r.logger.Warn("Failed to drop cached batches after recovery", "error", err)
				}
			}
		}
	}
}

// ListLogs serves the batch for limit from Redis, falling back to the inner
// repository on a miss.
func (r *CachedLogRepository) ListLogs(ctx context.Context, limit int) ([]domain.LogRecord, error) {
	field := strconv.Itoa(limit)

	if r.isAvailable.Load() {
		payload, err := r.client.HGet(ctx, batchCacheKey, field).Bytes()
		switch {
		case err == nil:
			records, decErr := r.decode(payload)
			if decErr == nil {
				r.countHit()
				return records, nil
			}
			r.logger.Warn("Dropping undecodable cached batch", "error", decErr)
		case errors.Is(err, redis.Nil):
		default:
			r.handleError("read cached batch", err)
		}
	}
	r.countMiss()

	version, versionErr := r.version(ctx)
	if versionErr != nil && r.isAvailable.Load() {
		r.handleError("read batch version", versionErr)
	}

	records, err := r.inner.ListLogs(ctx, limit)
	if err != nil {
		return nil, err
	}

	if versionErr == nil && r.isAvailable.Load() {
		err := r.store(ctx, field, version, records)
		switch {
		case err == nil:
		case errors.Is(err, errBatchOutdated), errors.Is(err, redis.TxFailedErr):
			r.logger.Debug("Not caching batch read before a concurrent write", "limit", limit)
		default:
			r.handleError("store batch", err)
		}
	}
	return records, nil
}

// LatestByURL is not cached.
func (r *CachedLogRepository) LatestByURL(ctx context.Context, url string) (domain.LogRecord, error) {
	return r.inner.LatestByURL(ctx, url)
}

// CreateLog writes through to the inner repository and invalidates cached
// batches.
func (r *CachedLogRepository) CreateLog(ctx context.Context, rec domain.LogRecord) (string, error) {
	id, err := r.inner.CreateLog(ctx, rec)
	if err != nil {
		return "", err
	}
	if r.isAvailable.Load() {
		pipe := r.client.TxPipeline()
		pipe.Incr(ctx, batchVersionKey)
		pipe.Del(ctx, batchCacheKey)
		if _, err := pipe.Exec(ctx); err != nil {
			r.handleError("invalidate cached batches", err)
		}
	}
	return id, nil
}

func (r *CachedLogRepository) version(ctx context.Context) (string, error) {
	if !r.isAvailable.Load() {
		return "", errors.New("redis unavailable")
	}
	v, err := r.client.Get(ctx, batchVersionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// store caches records under field if no write happened since version was read.
func (r *CachedLogRepository) store(ctx context.Context, field, version string, records []domain.LogRecord) error {
	payload, err := r.encode(records)
	if err != nil {
		return err
	}
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, batchVersionKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errBatchOutdated
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, batchCacheKey, field, payload)
			pipe.Expire(ctx, batchCacheKey, r.ttl)
			return nil
		})
		return err
	}, batchVersionKey)
}

// cachedLog keeps the decode failure of a stored document across the cache.
type cachedLog struct {
	Log         domain.LogRecord `json:"log"`
	DecodeError string           `json:"decode_error,omitempty"`
}

func (r *CachedLogRepository) encode(records []domain.LogRecord) ([]byte, error) {
	entries := make([]cachedLog, len(records))
	for i, rec := range records {
		entries[i] = cachedLog{Log: rec, DecodeError: rec.DecodeError}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}
	return r.encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

func (r *CachedLogRepository) decode(payload []byte) ([]domain.LogRecord, error) {
	data, err := r.decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress batch: %w", err)
	}
	var entries []cachedLog
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch: %w", err)
	}
	records := make([]domain.LogRecord, len(entries))
	for i, e := range entries {
		records[i] = e.Log
		records[i].DecodeError = e.DecodeError
	}
	return records, nil
}

func (r *CachedLogRepository) handleError(op string, err error) {
	if isNetworkError(err) {
		if r.isAvailable.CompareAndSwap(true, false) {
			r.logger.Error("Redis unavailable, bypassing cache", "op", op, "error", err)
		}
		return
	}
	r.logger.Warn("Redis cache operation failed", "op", op, "error", err)
}

func (r *CachedLogRepository) countHit() {
	if r.metrics != nil {
		r.metrics.CacheHits.Inc()
	}
}

func (r *CachedLogRepository) countMiss() {
	if r.metrics != nil {
		r.metrics.CacheMisses.Inc()
	}
}

// Close releases the codec resources. It does not close the Redis client.
func (r *CachedLogRepository) Close() {
	r.encoder.Close()
	r.decoder.Close()
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.DeadlineExceeded)
}
