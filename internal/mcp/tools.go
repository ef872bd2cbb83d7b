package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/wsindex/internal/indexer"
	"github.com/dshills/wsindex/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602
	ErrorCodeInternalError      = -32603
	ErrorCodeProjectNotFound    = -32001
	ErrorCodeIndexingInProgress = -32002
	ErrorCodeFileNotIndexed     = -32003
	ErrorCodeEmptyQuery         = -32004
)

// handleIndexWorkspace handles the index_workspace tool invocation
func (s *Server) handleIndexWorkspace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	root, err := s.resolveRoot(args)
	if err != nil {
		return nil, err
	}
	wait := getBoolDefault(args, "wait", true)

	if s.indexer.IsIndexingInProgress() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{
			"progress": s.indexer.Progress(),
		})
	}

	if !wait {
		s.runs.Add(1)
		go func() {
			defer s.runs.Done()
			// The request context ends with this response
			if _, err := s.indexer.StartRun(context.WithoutCancel(ctx), root); err != nil {
				s.logger.Error().Err(err).Str("root", root).Msg("background indexing run failed")
			}
		}()
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"started": true,
			"root":    root,
			"message": "Indexing started. Use get_status to follow progress.",
		})), nil
	}

	summary, err := s.indexer.StartRun(ctx, root)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "indexing run could not start", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if summary.Outcome == indexer.OutcomeBusy {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"outcome": summary.Outcome,
		"summary": summary,
		"elapsed": summary.Duration.String(),
	})), nil
}

// handleCancelIndexing handles the cancel_indexing tool invocation
func (s *Server) handleCancelIndexing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	running := s.indexer.IsIndexingInProgress()
	s.indexer.RequestCancellation()

	message := "No indexing run in progress."
	if running {
		message = "Cancellation requested. The run stops at the next chunk boundary."
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"requested": running,
		"message":   message,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"root":          s.root,
		"state":         s.indexer.State().String(),
		"last_outcome":  s.indexer.LastOutcome(),
		"indexed_files": s.indexer.Store().Len(),
	}
	if s.indexer.IsIndexingInProgress() {
		response["progress"] = s.indexer.Progress()
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatistics handles the get_statistics tool invocation
func (s *Server) handleGetStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.searcher.GetProjectStatistics()
	return mcp.NewToolResultText(formatJSON(stats)), nil
}

// handleSearchSymbols handles the search_symbols tool invocation
func (s *Server) handleSearchSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or not a string",
		})
	}

	if strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, types.ErrEmptyQuery.Error(), map[string]interface{}{
			"param": "query",
		})
	}

	limit := getIntDefault(args, "limit", s.searcher.MaxResults())
	if limit < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be positive", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	matches := s.searcher.Search(query, limit)
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":   query,
		"count":   len(matches),
		"results": matches,
	})), nil
}

// handleGetIndexedFile handles the get_indexed_file tool invocation
func (s *Server) handleGetIndexedFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path := getStringDefault(args, "path", "")
	if path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if filepath.IsAbs(path) && s.root != "" {
		rel, err := filepath.Rel(s.root, path)
		if err == nil {
			path = rel
		}
	}

	entry, found := s.searcher.GetIndexedFile(path)
	if !found {
		return nil, newMCPError(ErrorCodeFileNotIndexed, "file is not indexed", map[string]interface{}{
			"path": path,
		})
	}
	return mcp.NewToolResultText(formatJSON(entry)), nil
}

// handleClearIndex handles the clear_index tool invocation
func (s *Server) handleClearIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	err := s.indexer.ClearIndex(ctx)
	if errors.Is(err, types.ErrIndexingInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "cannot clear while indexing", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to persist cleared index", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"cleared": true,
	})), nil
}

// resolveRoot returns the served root, rejecting a path that names another workspace
func (s *Server) resolveRoot(args map[string]interface{}) (string, error) {
	path := getStringDefault(args, "path", s.root)
	if err := validatePath(path); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	if s.root != "" && filepath.Clean(path) != filepath.Clean(s.root) {
		return "", newMCPError(ErrorCodeProjectNotFound, "path is not the workspace served by this server", map[string]interface{}{
			"path": path,
			"root": s.root,
		})
	}
	return path, nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path is an existing, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
