package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/contrib/internal/engine"
)

// Opener prepares the run context for a configuration file. Stdout carries
// the protocol, so the returned Env must write its status lines elsewhere.
type Opener func(configPath string) (*engine.Env, error)

// Server wraps the MCP server and registers the contrib tools.
type Server struct {
	server *mcp.Server
	open   Opener
}

// NewServer creates a new MCP server with all contrib tools registered.
func NewServer(version string, open Opener) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "contrib",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, open: open}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "contrib_series",
		Description: describeSeries(),
	}, s.handleSeries)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "contrib_index_status",
		Description: describeIndexStatus(),
	}, s.handleIndexStatus)
}
