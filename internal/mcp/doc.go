// Package mcp exposes a workspace index over the Model Context Protocol (MCP).
//
// The server serves exactly one workspace root and registers these tools:
//   - index_workspace: run an incremental indexing pass (optionally in the background)
//   - cancel_indexing: request cooperative cancellation of the active run
//   - get_status: indexer state, live progress and last outcome
//   - get_statistics: aggregate index statistics
//   - search_symbols: substring search over symbol names
//   - get_indexed_file: the stored entry for one file
//   - clear_index: drop and persist an empty index
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// stdout is reserved for protocol messages, so all logging goes to stderr
// or a log file.
//
// # Basic Usage
//
//	wsindex serve --root /path/to/workspace
//
// # Tool: search_symbols
//
//	Request:
//	{
//	  "name": "search_symbols",
//	  "arguments": {"query": "handler", "limit": 20}
//	}
//
//	Response:
//	{
//	  "query": "handler",
//	  "count": 1,
//	  "results": [
//	    {
//	      "path": "internal/api/routes.go",
//	      "language": "Go",
//	      "symbol": {"name": "NewHandler", "kind": "function", ...}
//	    }
//	  ]
//	}
//
// # Error Handling
//
// Tool errors carry JSON-RPC style codes:
//   - -32602: invalid parameters
//   - -32603: internal error (e.g. persistence failure on clear)
//   - -32001: path names a workspace this server does not serve
//   - -32002: an indexing run is already in progress
//   - -32003: the requested file is not in the index
//   - -32004: the search query is empty or whitespace only
package mcp
