package podserver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_pod/internal/engine"
	"github.com/anatolykoptev/go_pod/internal/toolutil"
)

func registerExportResults(server *mcp.Server, search *engine.SearchService) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_results",
		Description: "Run a transcript search and return every match as CSV (episode index, source, episode, text, start and end times). The CSV starts with a UTF-8 BOM so spreadsheet tools detect the encoding.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input engine.ExportResultsInput) (*mcp.CallToolResult, engine.ExportResultsOutput, error) {
		if input.Query == "" {
			return nil, engine.ExportResultsOutput{}, fmt.Errorf("query is required")
		}

		cacheKey := engine.CacheKey("export_results", input.Query,
			strconv.FormatBool(input.Regex), strconv.FormatBool(input.Substring),
			strconv.Itoa(input.MaxResults))
		if out, ok := toolutil.CacheLoadJSON[engine.ExportResultsOutput](ctx, cacheKey); ok {
			return nil, out, nil
		}

		results, err := search.All(ctx, input.Query, engine.SearchOptions{
			Regex:      input.Regex,
			Substring:  input.Substring,
			MaxResults: input.MaxResults,
		})
		if err != nil {
			return nil, engine.ExportResultsOutput{}, fmt.Errorf("export results: %w", err)
		}

		var sb strings.Builder
		if err := engine.WriteResultsCSV(&sb, results); err != nil {
			return nil, engine.ExportResultsOutput{}, fmt.Errorf("export results: %w", err)
		}

		out := engine.ExportResultsOutput{
			Query: input.Query,
			Count: len(results),
			CSV:   sb.String(),
		}
		toolutil.CacheStoreJSON(ctx, cacheKey, out)
		return nil, out, nil
	})
}
