package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/kyb-watch/internal/domain"
	"github.com/V4T54L/kyb-watch/internal/usecase"
)

// MockOnboarder is a mock implementation of EntityOnboarder.
type MockOnboarder struct {
	OnboardFunc func(ctx context.Context, rawURL string) (string, error)
	Calls       []string
}

func (m *MockOnboarder) Onboard(ctx context.Context, rawURL string) (string, error) {
	m.Calls = append(m.Calls, rawURL)
	if m.OnboardFunc != nil {
		return m.OnboardFunc(ctx, rawURL)
	}
	return "new-id", nil
}

func TestOnboardHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		onboardErr     error
		expectedStatus int
		expectedBody   string
		expectCall     bool
	}{
		{
			name:           "Accepted",
			body:           `{"url": "https://levainbakery.com/"}`,
			expectedStatus: http.StatusAccepted,
			expectedBody:   `{"id":"new-id"}`,
			expectCall:     true,
		},
		{
			name:           "Malformed body",
			body:           `{"url":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Body too large",
			body:           `{"url": "` + strings.Repeat("a", maxOnboardBodySize) + `"}`,
			expectedStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:           "Invalid URL",
			body:           `{"url": "not a url"}`,
			onboardErr:     fmt.Errorf("%w: %q", domain.ErrInvalidURL, "not a url"),
			expectedStatus: http.StatusBadRequest,
			expectCall:     true,
		},
		{
			name:           "Rate limited",
			body:           `{"url": "https://acme.test"}`,
			onboardErr:     usecase.ErrRateLimited,
			expectedStatus: http.StatusTooManyRequests,
			expectCall:     true,
		},
		{
			name:           "Summarizer failure",
			body:           `{"url": "https://acme.test"}`,
			onboardErr:     fmt.Errorf("%w: timeout", usecase.ErrSummarizer),
			expectedStatus: http.StatusBadGateway,
			expectCall:     true,
		},
		{
			name:           "Store full",
			body:           `{"url": "https://acme.test"}`,
			onboardErr:     fmt.Errorf("create log: %w", domain.ErrStoreFull),
			expectedStatus: http.StatusInsufficientStorage,
			expectCall:     true,
		},
		{
			name:           "Unexpected error",
			body:           `{"url": "https://acme.test"}`,
			onboardErr:     errors.New("disk on fire"),
			expectedStatus: http.StatusInternalServerError,
			expectCall:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			onboarder := &MockOnboarder{}
			if tt.onboardErr != nil {
				onboarder.OnboardFunc = func(ctx context.Context, rawURL string) (string, error) {
					return "", tt.onboardErr
				}
			}
			h := NewOnboardHandler(onboarder, discardLogger())

			req := httptest.NewRequest(http.MethodPost, "/entities", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			}
			assert.Equal(t, tt.expectCall, len(onboarder.Calls) == 1)
		})
	}
}

func TestOnboardHandler_RetryAfter(t *testing.T) {
	h := NewOnboardHandler(&MockOnboarder{
		OnboardFunc: func(ctx context.Context, rawURL string) (string, error) {
			return "", usecase.ErrRateLimited
		},
	}, discardLogger())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/entities", strings.NewReader(`{"url": "https://acme.test"}`)))

	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}
