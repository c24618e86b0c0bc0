package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/V4T54L/kyb-watch/internal/domain"
	"github.com/V4T54L/kyb-watch/internal/usecase"
)

const maxOnboardBodySize = 4 << 10

// EntityOnboarder creates a verification log for a business URL.
type EntityOnboarder interface {
	Onboard(ctx context.Context, rawURL string) (string, error)
}

// OnboardHandler handles POST /entities.
type OnboardHandler struct {
	onboarder EntityOnboarder
	logger    *slog.Logger
}

// NewOnboardHandler creates a new OnboardHandler.
func NewOnboardHandler(onboarder EntityOnboarder, logger *slog.Logger) *OnboardHandler {
	return &OnboardHandler{onboarder: onboarder, logger: logger}
}

func (h *OnboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxOnboardBodySize)

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.onboarder.Onboard(r.Context(), payload.URL)
	switch {
	case err == nil:
		respondWithJSON(w, h.logger, http.StatusAccepted, map[string]string{"id": id})
	case errors.Is(err, domain.ErrInvalidURL):
		http.Error(w, "url must be an absolute http(s) URL", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrRateLimited):
		w.Header().Set("Retry-After", "1")
		http.Error(w, "Too many onboarding requests", http.StatusTooManyRequests)
	case errors.Is(err, usecase.ErrSummarizer):
		http.Error(w, "Summarization service failed", http.StatusBadGateway)
	case errors.Is(err, domain.ErrStoreFull):
		http.Error(w, "Log store is full", http.StatusInsufficientStorage)
	default:
		h.logger.Error("failed to onboard entity", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
