package webapi

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// resultsTmpl renders the HTML fragment contract consumed by the result
// browser: one .result-item per hit, each carrying an .audio-placeholder
// with data-source/data-format/data-start, wrapped in a .results block
// that exposes pagination state as data attributes.
var resultsTmpl = template.Must(template.New("results").Parse(`<div class="results" data-request-id="{{.RequestID}}" data-page="{{.Pagination.Page}}" data-total-results="{{.Pagination.TotalResults}}" data-total-pages="{{.Pagination.TotalPages}}" data-still-searching="{{.Pagination.StillSearching}}">
{{- range .Results}}
<div class="result-item" data-episode-idx="{{.EpisodeIdx}}" data-offset="{{.CharOffset}}">
<p class="segment-text" data-episode="{{.Episode}}" data-segment="{{.SegmentIndex}}">{{.Text}}</p>
<div class="audio-placeholder" data-source="{{.Episode}}" data-format="opus" data-start="{{printf "%.2f" .StartSec}}"></div>
</div>
{{- end}}
</div>
`))

type fragmentData struct {
	Query      string
	RequestID  string
	Results    []engine.Result
	Pagination engine.Pagination
}

func (s *Server) renderFragment(w http.ResponseWriter, query, requestID string, resp *engine.SearchResponse) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := resultsTmpl.Execute(w, fragmentData{
		Query:      query,
		RequestID:  requestID,
		Results:    resp.Results,
		Pagination: resp.Pagination,
	})
	if err != nil {
		slog.Error("webapi: render fragment", slog.Any("error", err))
	}
}
