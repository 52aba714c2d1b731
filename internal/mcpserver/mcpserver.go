// Package mcpserver exposes the reference analyzer as Model Context Protocol
// tools over stdio.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and registers the refgraph tools.
type Server struct {
	server     *mcp.Server
	logger     *slog.Logger
	configPath string
}

// NewServer creates a new MCP server with all refgraph tools registered.
// Logs go to logger; stdout belongs to the protocol.
func NewServer(version string, logger *slog.Logger) *Server {
	if version == "" {
		version = "dev"
	}
	if logger == nil {
		logger = slog.Default()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "refgraph",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, logger: logger}
	s.registerTools()
	s.registerPrompts()
	return s
}

// SetConfigPath makes every tool call load its configuration from path
// instead of looking for a config file in the analyzed root.
func (s *Server) SetConfigPath(path string) {
	s.configPath = path
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_references",
		Description: describeAnalyzeReferences(),
	}, s.handleAnalyzeReferences)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "explain_reference",
		Description: describeExplainReference(),
	}, s.handleExplainReference)
}
