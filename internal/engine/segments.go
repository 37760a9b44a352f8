package engine

// Segment is a timed transcript unit within an episode.
// Immutable once loaded; the segment index is the ordinal within its episode.
type Segment struct {
	Index    int     `json:"segment_index"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

// rawSegment matches the transcript JSON on disk.
type rawSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
