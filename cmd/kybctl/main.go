// Command kybctl prints the classified verification logs, or onboards a new
// business, against the configured log store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/V4T54L/kyb-watch/internal/adapter/events"
	"github.com/V4T54L/kyb-watch/internal/adapter/pii"
	"github.com/V4T54L/kyb-watch/internal/adapter/repository"
	"github.com/V4T54L/kyb-watch/internal/adapter/summarizer"
	"github.com/V4T54L/kyb-watch/internal/domain"
	"github.com/V4T54L/kyb-watch/internal/pkg/config"
	"github.com/V4T54L/kyb-watch/internal/pkg/logger"
	"github.com/V4T54L/kyb-watch/internal/query"
	"github.com/V4T54L/kyb-watch/internal/risk"
	"github.com/V4T54L/kyb-watch/internal/usecase"
)

type options struct {
	timestamp string
	name      string
	id        string
	onboard   string
}

func main() {
	var opts options
	flag.StringVar(&opts.timestamp, "timestamp", "", "only logs whose created_at contains this text")
	flag.StringVar(&opts.name, "name", "", "only logs whose business name contains this text (case-insensitive)")
	flag.StringVar(&opts.id, "id", "", "print the single log with this id")
	flag.StringVar(&opts.onboard, "onboard", "", "summarize the business at this URL and store a new log")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewTo(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, log, os.Stdout); err != nil {
		log.Error("kybctl failed", "error", err)
		if errors.Is(err, domain.ErrNotFound) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, log *slog.Logger, out io.Writer) error {
	repo, closeRepo, err := repository.Open(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer closeRepo()

	if opts.onboard != "" {
		client := summarizer.NewHTTPClient(cfg.SummarizerURL, cfg.SummarizerTimeout, log)
		onboarder := usecase.NewOnboardEntityUseCase(client, repo, nil, log, nil)
		if len(cfg.KafkaBrokers) > 0 {
			publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
			defer publisher.Close()
			onboarder.WithPublisher(publisher)
		}
		id, err := onboarder.Onboard(ctx, opts.onboard)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]string{"id": id})
	}

	return printLogs(ctx, repo, cfg, opts, log, out)
}

func printLogs(ctx context.Context, repo domain.LogRepository, cfg *config.Config, opts options, log *slog.Logger, out io.Writer) error {
	store := usecase.NewSnapshotStore()
	refresher := usecase.NewRefreshLogsUseCase(repo, store, log, nil, cfg.ListLimit, cfg.RefreshRetries, cfg.RefreshBackoff)
	if _, _, err := refresher.Refresh(ctx); err != nil {
		return err
	}

	viewer := usecase.NewViewLogsUseCase(store, risk.NewClassifier(log, nil), pii.NewRedactor(cfg.RedactionFields(), log))

	if opts.id != "" {
		entry, err := viewer.Get(ctx, opts.id)
		if err != nil {
			return fmt.Errorf("log %q: %w", opts.id, err)
		}
		return writeJSON(out, entry)
	}

	return writeJSON(out, viewer.List(ctx, query.Filter{Timestamp: opts.timestamp, Name: opts.name}))
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
