// Package webapi exposes the search engine over HTTP: JSON for API
// clients, HTML fragments for the result browser, plus audio and export
// endpoints.
package webapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// Server holds the handlers' dependencies.
type Server struct {
	search *engine.SearchService
}

// New creates a web API server over the given search service.
func New(search *engine.SearchService) *Server {
	return &Server{search: search}
}

// Router builds the HTTP route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthzHandler)
	r.Get("/metrics", metricsHandler)

	r.Get("/search", s.searchHandler)
	r.Get("/search/snippet", s.snippetHandler)

	r.Post("/api/segments", s.segmentsHandler)
	r.Post("/api/log-timing", s.logTimingHandler)

	r.Get("/audio/*", s.audioHandler)

	r.Get("/export/results/{query}", s.exportCSVHandler)
	r.Get("/export/segment/{source}/{episode}", s.exportClipHandler)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("webapi: encode JSON response", slog.Any("error", err))
	}
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func metricsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(engine.FormatMetrics()))
}

// parseFlag accepts the truthy forms the original web UI sends.
func parseFlag(v string) bool {
	switch strings.ToLower(v) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

// atoiStrict parses v with no default: absent or malformed is an error.
func atoiStrict(v string) (int, error) {
	return strconv.Atoi(v)
}

// parseIntFloor parses v with a default and a lower bound.
func parseIntFloor(v string, def, floor int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		n = def
	}
	if n < floor {
		n = floor
	}
	return n
}
