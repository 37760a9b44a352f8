package podserver

import (
	"context"
	"fmt"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_pod/internal/engine"
	"github.com/anatolykoptev/go_pod/internal/toolutil"
)

const (
	defaultContextRadius = 2
	maxContextRadius     = 20
)

func registerSegmentContext(server *mcp.Server, search *engine.SearchService) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "segment_context",
		Description: "Fetch a transcript segment and its neighbors for one episode. Returns the segments in order with start/end times and a playback URL positioned at the first segment.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input engine.SegmentContextInput) (*mcp.CallToolResult, engine.SegmentContextOutput, error) {
		if input.Episode == "" {
			return nil, engine.SegmentContextOutput{}, fmt.Errorf("episode is required")
		}
		if input.Segment < 0 {
			return nil, engine.SegmentContextOutput{}, fmt.Errorf("segment must be >= 0")
		}
		radius := toolutil.ClampRadius(input.Radius, defaultContextRadius, maxContextRadius)

		cacheKey := engine.CacheKey("segment_context", input.Episode,
			strconv.Itoa(input.Segment), strconv.Itoa(radius))
		if out, ok := toolutil.CacheLoadJSON[engine.SegmentContextOutput](ctx, cacheKey); ok {
			return nil, out, nil
		}

		idx, err := search.Indexes().Get(ctx)
		if err != nil {
			return nil, engine.SegmentContextOutput{}, fmt.Errorf("segment context: %w", err)
		}

		indices := make([]int, 0, 2*radius+1)
		for i := input.Segment - radius; i <= input.Segment+radius; i++ {
			if i >= 0 {
				indices = append(indices, i)
			}
		}
		if _, ok := idx.Episode(input.Episode); !ok {
			return nil, engine.SegmentContextOutput{}, fmt.Errorf("unknown episode: %s", input.Episode)
		}
		segs := idx.Segments(input.Episode, indices)
		if len(segs) == 0 {
			return nil, engine.SegmentContextOutput{}, fmt.Errorf("no segments around ordinal %d", input.Segment)
		}

		out := engine.SegmentContextOutput{
			Episode:  input.Episode,
			Segments: segs,
			AudioURL: engine.AudioFragmentURL("", input.Episode, segs[0].StartSec),
		}
		toolutil.CacheStoreJSON(ctx, cacheKey, out)
		return nil, out, nil
	})
}
