package mcp

import (
	"context"
	"errors"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/dshills/wsindex/internal/indexer"
	"github.com/dshills/wsindex/internal/searcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "wsindex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Options wires the server to an already constructed indexing stack
type Options struct {
	Indexer  *indexer.Indexer
	Searcher *searcher.Searcher
	// Root is the absolute workspace root used when a tool call omits path
	Root   string
	Logger zerolog.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	root     string
	logger   zerolog.Logger

	// background runs started by index_workspace with wait=false
	runs sync.WaitGroup
}

// NewServer creates a new MCP server instance
func NewServer(opts Options) (*Server, error) {
	if opts.Indexer == nil || opts.Searcher == nil {
		return nil, errors.New("mcp server requires an indexer and a searcher")
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		indexer:  opts.Indexer,
		searcher: opts.Searcher,
		root:     opts.Root,
		logger:   opts.Logger,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
// A run still in flight is cancelled and awaited before Serve returns.
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		s.indexer.RequestCancellation()
		s.runs.Wait()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexWorkspaceTool(), s.handleIndexWorkspace)
	s.mcp.AddTool(cancelIndexingTool(), s.handleCancelIndexing)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(getStatisticsTool(), s.handleGetStatistics)
	s.mcp.AddTool(searchSymbolsTool(), s.handleSearchSymbols)
	s.mcp.AddTool(getIndexedFileTool(), s.handleGetIndexedFile)
	s.mcp.AddTool(clearIndexTool(), s.handleClearIndex)
}
