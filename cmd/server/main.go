package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/V4T54L/kyb-watch/internal/adapter/api"
	"github.com/V4T54L/kyb-watch/internal/adapter/api/handler"
	"github.com/V4T54L/kyb-watch/internal/adapter/events"
	"github.com/V4T54L/kyb-watch/internal/adapter/metrics"
	"github.com/V4T54L/kyb-watch/internal/adapter/pii"
	"github.com/V4T54L/kyb-watch/internal/adapter/repository"
	"github.com/V4T54L/kyb-watch/internal/adapter/summarizer"
	"github.com/V4T54L/kyb-watch/internal/pkg/config"
	"github.com/V4T54L/kyb-watch/internal/pkg/logger"
	"github.com/V4T54L/kyb-watch/internal/risk"
	"github.com/V4T54L/kyb-watch/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.New(prometheus.DefaultRegisterer)

	// --- Metrics Server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metricsMux,
	}

	go func() {
		logger.Info("starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Log Store ---
	repo, closeRepo, err := repository.Open(ctx, cfg, logger, m)
	if err != nil {
		logger.Error("failed to open log store", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	// --- Use Cases ---
	store := usecase.NewSnapshotStore()
	refresher := usecase.NewRefreshLogsUseCase(repo, store, logger, m, cfg.ListLimit, cfg.RefreshRetries, cfg.RefreshBackoff)

	classifier := risk.NewClassifier(logger, m)
	redactor := pii.NewRedactor(cfg.RedactionFields(), logger)
	viewer := usecase.NewViewLogsUseCase(store, classifier, redactor)

	var limiter *rate.Limiter
	if cfg.OnboardRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.OnboardRatePerSec), cfg.OnboardBurst)
	}
	summarizerClient := summarizer.NewHTTPClient(cfg.SummarizerURL, cfg.SummarizerTimeout, logger)
	onboarder := usecase.NewOnboardEntityUseCase(summarizerClient, repo, limiter, logger, m)

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer publisher.Close()
		onboarder.WithPublisher(publisher)
		logger.Info("publishing log events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// --- SSE Broker ---
	sseBroker := handler.NewSSEBroker(ctx, logger)
	store.OnCommit(sseBroker.ReportSnapshot)
	store.OnCommit(func(snap *usecase.Snapshot) { classifier.Observe(snap.Records) })

	go refresher.Run(ctx, cfg.RefreshInterval)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     api.NewRouter(logger, viewer, onboarder, sseBroker),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: /events streams stay open until shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("starting http server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}
