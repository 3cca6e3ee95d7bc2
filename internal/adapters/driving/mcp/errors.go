// Package mcp provides an MCP (Model Context Protocol) server adapter for
// vaultgraph. It exposes the index, graph and search operations as tools so
// AI assistants can query a local markdown vault.
package mcp

import "errors"

// Errors for missing required ports.
var (
	ErrMissingIndexService  = errors.New("mcp: index service is required")
	ErrMissingGraphService  = errors.New("mcp: graph service is required")
	ErrMissingSearchService = errors.New("mcp: search service is required")
)
