package mcp

import (
	"github.com/custodia-labs/vaultgraph/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Index maintains document, tag and link records.
	Index driving.IndexService

	// Graph answers link-graph analytics queries.
	Graph driving.GraphService

	// Search provides ranked hybrid search.
	Search driving.SearchService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Index == nil {
		return ErrMissingIndexService
	}
	if p.Graph == nil {
		return ErrMissingGraphService
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
