package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/bookquill/bookquill/internal/docstore"
	"github.com/bookquill/bookquill/internal/engine"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the reader's library over the
// Model Context Protocol, so agent clients can search and ask questions.
type Server struct {
	engine *engine.Engine
	docs   *docstore.Store
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(eng *engine.Engine, docs *docstore.Store) *Server {
	s := &Server{
		engine: eng,
		docs:   docs,
	}

	s.mcp = server.NewMCPServer(
		"bookquill",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchLibraryTool, s.handleSearchLibrary)
	s.mcp.AddTool(askLibraryTool, s.handleAskLibrary)
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
