package webapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// exportCSVHandler streams the full result set for a query as CSV.
func (s *Server) exportCSVHandler(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")
	if decoded, err := url.PathUnescape(query); err == nil {
		query = decoded
	}

	results, err := s.search.All(r.Context(), query, engine.SearchOptions{})
	if err != nil {
		if errors.Is(err, engine.ErrEmptyQuery) {
			http.Error(w, "missing query", http.StatusBadRequest)
			return
		}
		slog.Error("webapi: csv export failed", slog.Any("error", err))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "search_results_"+query+".csv"))
	if err := engine.WriteResultsCSV(w, results); err != nil {
		slog.Error("webapi: write csv", slog.Any("error", err))
	}
}

// exportClipHandler cuts an mp3 clip out of an episode's audio.
func (s *Server) exportClipHandler(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	episode := chi.URLParam(r, "episode")
	id := source + "/" + episode

	start, err1 := strconv.ParseFloat(r.URL.Query().Get("start"), 64)
	end, err2 := strconv.ParseFloat(r.URL.Query().Get("end"), 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "start and end (seconds) required", http.StatusBadRequest)
		return
	}
	if end <= start {
		http.Error(w, "end must be greater than start", http.StatusBadRequest)
		return
	}

	path, ok := engine.ResolveAudioPath(id)
	if !ok {
		http.Error(w, "source not found", http.StatusNotFound)
		return
	}

	clip, err := engine.ExportClip(r.Context(), path, start, end)
	if err != nil {
		slog.Error("webapi: clip export failed", slog.String("id", id), slog.Any("error", err))
		http.Error(w, "error processing audio", http.StatusInternalServerError)
		return
	}

	name := fmt.Sprintf("%s_%s_%.2f-%.2f.mp3", source, episode, start, end)
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(clip)
}
