package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/V4T54L/kyb-watch/internal/domain"
	"github.com/V4T54L/kyb-watch/internal/query"
	"github.com/V4T54L/kyb-watch/internal/usecase"
)

// LogViewer is the read side of the log snapshot.
type LogViewer interface {
	List(ctx context.Context, f query.Filter) usecase.LogView
	Get(ctx context.Context, id string) (usecase.LogEntry, error)
}

// LogHandler serves the classified log listing.
type LogHandler struct {
	viewer LogViewer
	logger *slog.Logger
}

// NewLogHandler creates a new LogHandler.
func NewLogHandler(viewer LogViewer, logger *slog.Logger) *LogHandler {
	return &LogHandler{viewer: viewer, logger: logger}
}

// List handles GET /logs. The optional timestamp and name query parameters
// narrow the result.
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := query.Filter{
		Timestamp: q.Get("timestamp"),
		Name:      q.Get("name"),
	}
	respondWithJSON(w, h.logger, http.StatusOK, h.viewer.List(r.Context(), f))
}

// Get handles GET /logs/{id}.
func (h *LogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	entry, err := h.viewer.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "log not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get log", "error", err, "log_id", id)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, entry)
}
