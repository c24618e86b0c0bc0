// Package repository selects and assembles the configured log store.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/kyb-watch/internal/adapter/metrics"
	"github.com/V4T54L/kyb-watch/internal/adapter/repository/file"
	"github.com/V4T54L/kyb-watch/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/kyb-watch/internal/adapter/repository/redis"
	"github.com/V4T54L/kyb-watch/internal/domain"
	"github.com/V4T54L/kyb-watch/internal/pkg/config"
)

const redisHealthCheckInterval = 5 * time.Second

// Open builds the log repository described by cfg, wrapped in the Redis cache
// when REDIS_URL is set. The returned close function releases every resource
// opened here. Background work (the Redis health check) stops with ctx.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (domain.LogRepository, func(), error) {
	var (
		repo    domain.LogRepository
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres connection: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		if err := db.PingContext(ctx); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		pgRepo := postgres.NewLogRepository(db, logger)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		logger.Info("connected to postgres")
		repo = pgRepo
	case config.StoreBackendFile:
		fileRepo, err := file.NewLogRepository(cfg.FileStoreDir, cfg.FileSegmentSize, cfg.FileMaxDiskSize, logger, m)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize file log repository: %w", err)
		}
		closers = append(closers, func() { fileRepo.Close() })
		logger.Info("using file log store", "dir", cfg.FileStoreDir)
		repo = fileRepo
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.RedisURL == "" {
		return repo, closeAll, nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	closers = append(closers, func() { redisClient.Close() })
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("could not connect to redis, cache is bypassed until it recovers", "error", err)
	}

	cached, err := redisrepo.NewCachedLogRepository(redisClient, repo, cfg.CacheTTL, logger, m)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, cached.Close)
	go cached.StartHealthCheck(ctx, redisHealthCheckInterval)

	return cached, closeAll, nil
}
