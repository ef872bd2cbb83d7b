package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexWorkspaceTool returns the tool definition for index_workspace
func indexWorkspaceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_workspace",
		Description: "Run an incremental indexing pass over the workspace. Only new and changed files are reprocessed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the workspace root (defaults to the served workspace)",
				},
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "If false, start the run in the background and return immediately",
					"default":     true,
				},
			},
		},
	}
}

// cancelIndexingTool returns the tool definition for cancel_indexing
func cancelIndexingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cancel_indexing",
		Description: "Request cancellation of the active indexing run. Work already committed is kept.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report the indexer state, live progress and the outcome of the last run",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatisticsTool returns the tool definition for get_statistics
func getStatisticsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_statistics",
		Description: "Summarize the index: file counts, size, languages, symbols and dependencies",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// searchSymbolsTool returns the tool definition for search_symbols
func searchSymbolsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_symbols",
		Description: "Case-insensitive substring search over indexed symbol names",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Substring to look for in symbol names",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"default":     100,
					"minimum":     1,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getIndexedFileTool returns the tool definition for get_indexed_file
func getIndexedFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_indexed_file",
		Description: "Return the stored index entry for one file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Workspace-relative path, or an absolute path inside the workspace",
				},
			},
			Required: []string{"path"},
		},
	}
}

// clearIndexTool returns the tool definition for clear_index
func clearIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "clear_index",
		Description: "Drop every entry from the index and persist the empty index",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
