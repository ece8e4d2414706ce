package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/maltedev/amazon-book-scraper/internal/models"
)

// StatsProvider exposes a live snapshot of pipeline progress.
type StatsProvider interface {
	Stats() models.RunStats
}

// Handlers serves run progress over HTTP while a scrape is in flight.
type Handlers struct {
	stats  StatsProvider
	logger *slog.Logger
}

func NewHandlers(stats StatsProvider) *Handlers {
	return &Handlers{
		stats:  stats,
		logger: slog.Default().With("component", "api"),
	}
}

func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", h.Health)
	r.Get("/status", h.Status)
	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.stats.Stats())
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
