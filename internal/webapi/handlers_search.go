package webapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// searchStats mirror what the original UI reads off every response.
type searchStats struct {
	Count          int     `json:"count"`
	TotalCount     int     `json:"total_count"`
	DurationMs     float64 `json:"duration_ms"`
	StillSearching bool    `json:"still_searching"`
	RequestID      string  `json:"request_id"`
}

type searchPayload struct {
	Results    []engine.Result   `json:"results"`
	Pagination engine.Pagination `json:"pagination"`
	Stats      searchStats       `json:"stats"`
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()[:8]
	started := time.Now()

	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		http.Error(w, "missing ?q=", http.StatusBadRequest)
		return
	}

	page := parseIntFloor(q.Get("page"), 1, 1)
	opts := engine.SearchOptions{
		Regex:       parseFlag(q.Get("regex")),
		Substring:   parseFlag(q.Get("substring")),
		MaxResults:  parseIntFloor(q.Get("max_results"), engine.Cfg.PageSize, 1),
		Page:        page,
		Progressive: page == 1 && parseFlag(q.Get("progressive")),
	}

	resp, err := s.search.Search(r.Context(), query, opts)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyQuery) || errors.Is(err, engine.ErrBadQuery) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("webapi: search failed", slog.String("request_id", requestID), slog.Any("error", err))
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	durationMs := float64(time.Since(started).Microseconds()) / 1000
	slog.Info("webapi: search",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("page", opts.Page),
		slog.Int("results", len(resp.Results)),
		slog.Int("total", resp.Pagination.TotalResults),
		slog.Bool("still_searching", resp.Pagination.StillSearching),
		slog.Float64("duration_ms", durationMs),
	)

	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		s.renderFragment(w, query, requestID, resp)
		return
	}

	writeJSON(w, http.StatusOK, searchPayload{
		Results:    resp.Results,
		Pagination: resp.Pagination,
		Stats: searchStats{
			Count:          len(resp.Results),
			TotalCount:     resp.Pagination.TotalResults,
			DurationMs:     durationMs,
			StillSearching: resp.Pagination.StillSearching,
			RequestID:      requestID,
		},
	})
}

func (s *Server) snippetHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	episodeIdx, err1 := atoiStrict(q.Get("episode_idx"))
	offset, err2 := atoiStrict(q.Get("offset"))
	if err1 != nil || err2 != nil {
		http.Error(w, "episode_idx, offset (int) required", http.StatusBadRequest)
		return
	}
	size := parseIntFloor(q.Get("size"), engine.Cfg.SnippetSize, 1)

	text, ok := s.search.Snippet(r.Context(), episodeIdx, offset, size)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}
