package engine

// --- Transcript search types ---

type TranscriptSearchInput struct {
	Query      string `json:"query" jsonschema:"Search query: a word, phrase, or regular expression"`
	Regex      bool   `json:"regex,omitempty" jsonschema:"Treat the query as a regular expression"`
	Substring  bool   `json:"substring,omitempty" jsonschema:"Match inside words instead of on word boundaries"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Results per page (default: 100)"`
	Page       int    `json:"page,omitempty" jsonschema:"Result page, 1-based (default: 1)"`
}

// TranscriptSearchOutput is the structured output for transcript_search.
type TranscriptSearchOutput struct {
	Query      string     `json:"query"`
	Results    []Result   `json:"results"`
	Pagination Pagination `json:"pagination"`
}

type SegmentContextInput struct {
	Episode string `json:"episode" jsonschema:"Episode id as source/episode (e.g. my-podcast/ep-042)"`
	Segment int    `json:"segment" jsonschema:"Segment ordinal within the episode"`
	Radius  int    `json:"radius,omitempty" jsonschema:"Segments of context on each side (default: 2)"`
}

// SegmentContextOutput is the structured output for segment_context.
type SegmentContextOutput struct {
	Episode  string    `json:"episode"`
	Segments []Segment `json:"segments"`
	AudioURL string    `json:"audio_url,omitempty"`
}

type ExportResultsInput struct {
	Query      string `json:"query" jsonschema:"Search query to export matches for"`
	Regex      bool   `json:"regex,omitempty" jsonschema:"Treat the query as a regular expression"`
	Substring  bool   `json:"substring,omitempty" jsonschema:"Match inside words instead of on word boundaries"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Cap on exported matches (default: unlimited)"`
}

// ExportResultsOutput is the structured output for export_results.
type ExportResultsOutput struct {
	Query string `json:"query"`
	Count int    `json:"count"`
	CSV   string `json:"csv"`
}
