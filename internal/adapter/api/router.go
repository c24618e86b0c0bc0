package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/V4T54L/kyb-watch/internal/adapter/api/handler"
	"github.com/V4T54L/kyb-watch/internal/adapter/api/middleware"
)

// NewRouter creates and configures the HTTP router for the log service.
func NewRouter(
	logger *slog.Logger,
	viewer handler.LogViewer,
	onboarder handler.EntityOnboarder,
	broker *handler.SSEBroker,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)

	logHandler := handler.NewLogHandler(viewer, logger)
	onboardHandler := handler.NewOnboardHandler(onboarder, logger)

	// Routes
	r.Get("/logs", logHandler.List)
	r.Get("/logs/{id}", logHandler.Get)
	r.Method(http.MethodPost, "/entities", onboardHandler)
	r.Method(http.MethodGet, "/events", broker)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
