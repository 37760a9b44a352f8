package webapi

import (
	"encoding/json"
	"net/http"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// SegmentsRequest asks for a batch of segments from one episode.
type SegmentsRequest struct {
	Episode string `json:"episode"`
	Indices []int  `json:"indices"`
}

// SegmentsResponse carries the segments that were found; requested
// ordinals with no segment are simply absent.
type SegmentsResponse struct {
	Episode  string           `json:"episode"`
	Segments []engine.Segment `json:"segments"`
}

func (s *Server) segmentsHandler(w http.ResponseWriter, r *http.Request) {
	engine.IncrSegmentBatchRequests()

	var req SegmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Episode == "" || len(req.Indices) == 0 {
		http.Error(w, "episode and indices are required", http.StatusBadRequest)
		return
	}

	idx, err := s.search.Indexes().Get(r.Context())
	if err != nil {
		http.Error(w, "index unavailable", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, SegmentsResponse{
		Episode:  req.Episode,
		Segments: idx.Segments(req.Episode, req.Indices),
	})
}
