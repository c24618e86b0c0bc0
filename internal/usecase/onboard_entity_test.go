package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/V4T54L/kyb-watch/internal/domain"
	"github.com/V4T54L/kyb-watch/internal/domain/mocks"
)

func TestOnboardEntityUseCase_Onboard(t *testing.T) {
	summary := domain.EntitySummary{
		Name:           "Acme Corp",
		Summary:        "Makes widgets",
		YelpData:       &domain.YelpData{ReviewCount: domain.NewNumber(15)},
		GoogleMapsData: &domain.GoogleMapsData{TotalRatings: domain.NewNumber(20)},
	}

	t.Run("New Business", func(t *testing.T) {
		repo := &mocks.MockLogRepository{NextID: "log-1"}
		summarizer := &mocks.MockSummarizer{Result: summary}
		uc := NewOnboardEntityUseCase(summarizer, repo, nil, testLogger(), nil)

		id, err := uc.Onboard(context.Background(), " https://acme.example/about ")

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "log-1" {
			t.Errorf("expected id log-1, got %q", id)
		}
		if len(summarizer.Calls) != 1 || summarizer.Calls[0] != "https://acme.example/about" {
			t.Errorf("unexpected summarizer calls: %v", summarizer.Calls)
		}
		if len(repo.Created) != 1 {
			t.Fatalf("expected 1 created log, got %d", len(repo.Created))
		}
		created := repo.Created[0]
		if created.LogType != domain.LogTypeNewEntity {
			t.Errorf("expected new_entity, got %s", created.LogType)
		}
		if created.BusinessName != "Acme Corp" || created.BusinessURL != "https://acme.example/about" {
			t.Errorf("unexpected record: %+v", created)
		}
	})

	t.Run("Returning Business With Growth", func(t *testing.T) {
		url := "https://acme.example"
		repo := &mocks.MockLogRepository{
			NextID: "log-2",
			Latest: map[string]domain.LogRecord{url: {
				ID:             "log-1",
				YelpData:       &domain.YelpData{ReviewCount: domain.NewNumber(10)},
				GoogleMapsData: &domain.GoogleMapsData{TotalRatings: domain.NewNumber(20)},
			}},
		}
		uc := NewOnboardEntityUseCase(&mocks.MockSummarizer{Result: summary}, repo, nil, testLogger(), nil)

		if _, err := uc.Onboard(context.Background(), url); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		created := repo.Created[0]
		if created.LogType != domain.LogTypeBusinessGrowth {
			t.Fatalf("expected business_growth, got %s", created.LogType)
		}
		if created.OldYelpReviews.String() != "10" || created.NewYelpReviews.String() != "15" {
			t.Errorf("unexpected yelp deltas: %s -> %s", created.OldYelpReviews, created.NewYelpReviews)
		}
	})

	t.Run("Invalid URL", func(t *testing.T) {
		repo := &mocks.MockLogRepository{}
		summarizer := &mocks.MockSummarizer{Result: summary}
		uc := NewOnboardEntityUseCase(summarizer, repo, nil, testLogger(), nil)

		for _, raw := range []string{"", "acme.example", "ftp://acme.example", "https://"} {
			_, err := uc.Onboard(context.Background(), raw)
			if !errors.Is(err, domain.ErrInvalidURL) {
				t.Errorf("%q: expected ErrInvalidURL, got %v", raw, err)
			}
		}
		if len(summarizer.Calls) != 0 {
			t.Error("summarizer must not be called for invalid URLs")
		}
	})

	t.Run("Summarizer Error", func(t *testing.T) {
		repo := &mocks.MockLogRepository{}
		uc := NewOnboardEntityUseCase(&mocks.MockSummarizer{Err: errors.New("timeout")}, repo, nil, testLogger(), nil)

		_, err := uc.Onboard(context.Background(), "https://acme.example")

		if !errors.Is(err, ErrSummarizer) {
			t.Fatalf("expected ErrSummarizer, got %v", err)
		}
		if len(repo.Created) != 0 {
			t.Error("nothing should be stored when summarizing fails")
		}
	})

	t.Run("Store Error", func(t *testing.T) {
		repo := &mocks.MockLogRepository{CreateErr: errors.New("disk full")}
		uc := NewOnboardEntityUseCase(&mocks.MockSummarizer{Result: summary}, repo, nil, testLogger(), nil)

		if _, err := uc.Onboard(context.Background(), "https://acme.example"); err == nil {
			t.Fatal("expected an error, got nil")
		}
	})

	t.Run("Rate Limited", func(t *testing.T) {
		repo := &mocks.MockLogRepository{NextID: "x"}
		limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
		uc := NewOnboardEntityUseCase(&mocks.MockSummarizer{Result: summary}, repo, limiter, testLogger(), nil)

		if _, err := uc.Onboard(context.Background(), "https://acme.example"); err != nil {
			t.Fatalf("first request should pass, got %v", err)
		}
		if _, err := uc.Onboard(context.Background(), "https://acme.example"); !errors.Is(err, ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("Publishes Created Log", func(t *testing.T) {
		repo := &mocks.MockLogRepository{NextID: "log-9"}
		publisher := &mocks.MockLogPublisher{}
		uc := NewOnboardEntityUseCase(&mocks.MockSummarizer{Result: summary}, repo, nil, testLogger(), nil).
			WithPublisher(publisher)

		if _, err := uc.Onboard(context.Background(), "https://acme.example"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(publisher.Published) != 1 || publisher.Published[0].ID != "log-9" {
			t.Errorf("expected published log-9, got %+v", publisher.Published)
		}
	})

	t.Run("Publish Failure Is Not Fatal", func(t *testing.T) {
		repo := &mocks.MockLogRepository{NextID: "log-10"}
		publisher := &mocks.MockLogPublisher{Err: errors.New("broker down")}
		uc := NewOnboardEntityUseCase(&mocks.MockSummarizer{Result: summary}, repo, nil, testLogger(), nil).
			WithPublisher(publisher)

		id, err := uc.Onboard(context.Background(), "https://acme.example")
		if err != nil || id != "log-10" {
			t.Fatalf("expected log-10 and no error, got %q, %v", id, err)
		}
	})
}
