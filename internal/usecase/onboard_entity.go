package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/V4T54L/kyb-watch/internal/adapter/metrics"
	"github.com/V4T54L/kyb-watch/internal/domain"
)

// ErrRateLimited is returned when onboarding requests arrive faster than the
// summarization service is allowed to be called.
var ErrRateLimited = errors.New("onboarding rate limit exceeded")

// ErrSummarizer wraps failures of the external summarization service.
var ErrSummarizer = errors.New("summarization service failed")

// OnboardEntityUseCase creates a new verification log for a business URL.
type OnboardEntityUseCase struct {
	summarizer domain.Summarizer
	repo       domain.LogRepository
	limiter    *rate.Limiter
	publisher  domain.LogPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewOnboardEntityUseCase creates an OnboardEntityUseCase. A nil limiter
// disables rate limiting; m may be nil.
func NewOnboardEntityUseCase(summarizer domain.Summarizer, repo domain.LogRepository, limiter *rate.Limiter, logger *slog.Logger, m *metrics.Metrics) *OnboardEntityUseCase {
	return &OnboardEntityUseCase{
		summarizer: summarizer,
		repo:       repo,
		limiter:    limiter,
		logger:     logger.With("component", "onboarding"),
		metrics:    m,
		now:        time.Now,
	}
}

// WithPublisher makes Onboard announce every stored record through p.
// Publishing is best-effort and never fails the request.
func (uc *OnboardEntityUseCase) WithPublisher(p domain.LogPublisher) *OnboardEntityUseCase {
	uc.publisher = p
	return uc
}

// Onboard summarizes the business at rawURL, compares it with the previous
// log for that URL and stores the resulting record. It returns the new id.
func (uc *OnboardEntityUseCase) Onboard(ctx context.Context, rawURL string) (string, error) {
	businessURL, err := normalizeURL(rawURL)
	if err != nil {
		uc.count("error_url")
		return "", err
	}

	if uc.limiter != nil && !uc.limiter.Allow() {
		uc.count("error_rate")
		return "", ErrRateLimited
	}

	summary, err := uc.summarizer.Summarize(ctx, businessURL)
	if err != nil {
		uc.count("error_summarizer")
		uc.logger.Error("failed to summarize entity", "error", err, "url", businessURL)
		return "", fmt.Errorf("%w: %v", ErrSummarizer, err)
	}

	var prev *domain.LogRecord
	last, err := uc.repo.LatestByURL(ctx, businessURL)
	switch {
	case err == nil:
		prev = &last
	case errors.Is(err, domain.ErrNotFound):
		uc.logger.Debug("no previous log for entity", "url", businessURL)
	default:
		uc.count("error_store")
		return "", fmt.Errorf("look up previous log: %w", err)
	}

	rec := BuildLogRecord(businessURL, prev, summary, uc.now())

	id, err := uc.repo.CreateLog(ctx, rec)
	if err != nil {
		uc.count("error_store")
		uc.logger.Error("failed to create log", "error", err, "url", businessURL)
		return "", fmt.Errorf("create log: %w", err)
	}

	uc.count("created")
	uc.logger.Info("created verification log", "log_id", id, "log_type", rec.LogType, "url", businessURL)

	if uc.publisher != nil {
		rec.ID = id
		if err := uc.publisher.PublishLogCreated(ctx, rec); err != nil {
			uc.logger.Warn("failed to publish log created event", "error", err, "log_id", id)
		}
	}
	return id, nil
}

func (uc *OnboardEntityUseCase) count(status string) {
	if uc.metrics != nil {
		uc.metrics.OnboardingTotal.WithLabelValues(status).Inc()
	}
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidURL, raw)
	}
	return u.String(), nil
}
