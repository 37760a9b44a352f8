package webapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// audioHandler serves episode audio. http.ServeFile handles Range
// requests, so seeking and media fragments work in any player.
func (s *Server) audioHandler(w http.ResponseWriter, r *http.Request) {
	engine.IncrAudioRequests()

	id := chi.URLParam(r, "*")
	path, ok := engine.ResolveAudioPath(id)
	if !ok {
		slog.Debug("webapi: audio not found", slog.String("id", id))
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "audio/ogg")
	http.ServeFile(w, r, path)
}
