package webapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// timingEvent is what browsing clients post about their own latencies.
type timingEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		DurationMs float64 `json:"duration_ms"`
		RequestID  string  `json:"request_id"`
	} `json:"data"`
}

// logTimingHandler ingests client-side timing events. Responses are
// empty 204s to keep the reporting path cheap.
func (s *Server) logTimingHandler(w http.ResponseWriter, r *http.Request) {
	var ev timingEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.EventType == "" {
		http.Error(w, "invalid data format", http.StatusBadRequest)
		return
	}
	if ev.Data.RequestID == "" {
		ev.Data.RequestID = uuid.NewString()[:8]
	}

	engine.IncrClientTimingEvents()
	slog.Info("webapi: client timing",
		slog.String("request_id", ev.Data.RequestID),
		slog.String("event", ev.EventType),
		slog.Float64("duration_ms", ev.Data.DurationMs),
	)
	w.WriteHeader(http.StatusNoContent)
}
