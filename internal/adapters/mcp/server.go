// Package mcpadapter exposes natural-language document search as an
// MCP tool so agent runtimes can call it over stdio.
package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/avelinsk/finpaper/internal/core/ports"
)

type Server struct {
	mcpServer      *server.MCPServer
	searcher       ports.DocumentSearcher
	organizationID string
	logger         *slog.Logger
}

// New builds an MCP server bound to one organization. The agent runtime
// never supplies the tenant; it is fixed at startup.
func New(searcher ports.DocumentSearcher, organizationID string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcpServer: server.NewMCPServer(
			"finpaper",
			"1.0.0",
			server.WithToolCapabilities(false),
		),
		searcher:       searcher,
		organizationID: organizationID,
		logger:         logger,
	}

	searchTool := mcp.NewTool("search_documents",
		mcp.WithDescription("Search processed financial documents (bank statements, invoices, receipts) using a natural language query over their extracted data."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language description of the documents to find, e.g. 'invoices over 500 dollars from May'."),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearch)

	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// handleSearch never returns a protocol error for search failures; the
// structured result carries success=false so the calling agent can
// relay the message instead of aborting its run.
func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.searcher.Search(ctx, query, s.organizationID)

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("mcp.search_marshal_failed", "error", err)
		return mcp.NewToolResultError("failed to encode search result"), nil
	}

	s.logger.Info("mcp.search_completed",
		"success", result.Success,
		"found", result.Found,
	)
	return mcp.NewToolResultText(string(payload)), nil
}
