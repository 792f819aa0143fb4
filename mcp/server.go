package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/campaign-scout/internal/pipeline"
)

const (
	serverName    = "campaign-scout"
	serverVersion = "1.0.0"
)

// Deps is what the tools need to run scans.
type Deps struct {
	Scanner *pipeline.Scanner
	// DefaultSession is used when a tool call omits session_cookie.
	DefaultSession string
	Logger         *slog.Logger
}

func newServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)
	registerTools(s, newTools(deps))
	return s
}

// Serve starts the MCP stdio server with all tools registered.
func Serve(deps Deps) error {
	return server.ServeStdio(newServer(deps))
}
