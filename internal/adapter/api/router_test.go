package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/kyb-watch/internal/adapter/api/handler"
	"github.com/V4T54L/kyb-watch/internal/domain"
	"github.com/V4T54L/kyb-watch/internal/domain/mocks"
	"github.com/V4T54L/kyb-watch/internal/risk"
	"github.com/V4T54L/kyb-watch/internal/usecase"
)

func TestRouter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := &mocks.MockLogRepository{
		ListResult: []domain.LogRecord{
			{ID: "1", BusinessName: "Acme", CreatedAt: "2024-01-01T00:00:00", LogType: domain.LogTypeNewEntity},
		},
		NextID: "2",
	}
	store := usecase.NewSnapshotStore()
	refresher := usecase.NewRefreshLogsUseCase(repo, store, logger, nil, 0, 1, 0)
	_, _, err := refresher.Refresh(ctx)
	require.NoError(t, err)

	viewer := usecase.NewViewLogsUseCase(store, risk.NewClassifier(logger, nil), nil)
	onboarder := usecase.NewOnboardEntityUseCase(&mocks.MockSummarizer{
		Result: domain.EntitySummary{Name: "Beta", Summary: "Things."},
	}, repo, nil, logger, nil)
	broker := handler.NewSSEBroker(ctx, logger)

	router := NewRouter(logger, viewer, onboarder, broker)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, target: "/health", wantStatus: http.StatusOK},
		{name: "list", method: http.MethodGet, target: "/logs?name=acme", wantStatus: http.StatusOK},
		{name: "get", method: http.MethodGet, target: "/logs/1", wantStatus: http.StatusOK},
		{name: "get unknown", method: http.MethodGet, target: "/logs/9", wantStatus: http.StatusNotFound},
		{name: "onboard", method: http.MethodPost, target: "/entities", body: `{"url":"https://beta.test"}`, wantStatus: http.StatusAccepted},
		{name: "onboard bad url", method: http.MethodPost, target: "/entities", body: `{"url":"ftp://beta.test"}`, wantStatus: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodDelete, target: "/logs", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		})
	}

	t.Run("onboarded log appears after refresh", func(t *testing.T) {
		repo.ListResult = append(repo.Created, repo.ListResult...)
		_, _, err := refresher.Refresh(ctx)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/logs/2", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var entry usecase.LogEntry
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entry))
		assert.Equal(t, "Beta", entry.Log.BusinessName)
		assert.Equal(t, domain.LogTypeNewEntity, entry.Log.LogType)
	})
}
