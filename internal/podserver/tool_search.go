package podserver

import (
	"context"
	"fmt"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_pod/internal/engine"
	"github.com/anatolykoptev/go_pod/internal/toolutil"
)

func registerTranscriptSearch(server *mcp.Server, search *engine.SearchService) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_search",
		Description: "Search the podcast transcript corpus. A single word matches on word boundaries; multi-word queries match as substrings; regex mode accepts Go regular expressions. Returns matched segments with episode, timing, and text, plus pagination.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input engine.TranscriptSearchInput) (*mcp.CallToolResult, engine.TranscriptSearchOutput, error) {
		if input.Query == "" {
			return nil, engine.TranscriptSearchOutput{}, fmt.Errorf("query is required")
		}

		cacheKey := engine.CacheKey("transcript_search", input.Query,
			strconv.FormatBool(input.Regex), strconv.FormatBool(input.Substring),
			strconv.Itoa(input.MaxResults), strconv.Itoa(input.Page))
		if out, ok := toolutil.CacheLoadJSON[engine.TranscriptSearchOutput](ctx, cacheKey); ok {
			return nil, out, nil
		}

		resp, err := search.Search(ctx, input.Query, engine.SearchOptions{
			Regex:      input.Regex,
			Substring:  input.Substring,
			MaxResults: input.MaxResults,
			Page:       input.Page,
		})
		if err != nil {
			return nil, engine.TranscriptSearchOutput{}, fmt.Errorf("transcript search: %w", err)
		}

		out := engine.TranscriptSearchOutput{
			Query:      input.Query,
			Results:    resp.Results,
			Pagination: resp.Pagination,
		}
		toolutil.CacheStoreJSON(ctx, cacheKey, out)
		return nil, out, nil
	})
}
