// Package podserver registers the transcript-corpus MCP tools:
// transcript_search, segment_context, export_results.
package podserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// RegisterTools registers all transcript tools on the given MCP server.
func RegisterTools(server *mcp.Server, search *engine.SearchService) {
	registerTranscriptSearch(server, search)
	registerSegmentContext(server, search)
	registerExportResults(server, search)
}
