package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for vaultgraph resources.
	uriScheme = "vaultgraph://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the tag hierarchy.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "tags",
		Name:        "tags",
		Description: "All indexed tags with document counts",
		MIMEType:    "application/json",
	}, s.handleTagsResource)

	// Static resource for the link graph.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "graph",
		Name:        "graph",
		Description: "The vault link graph in DOT format",
		MIMEType:    "text/vnd.graphviz",
	}, s.handleGraphResource)

	// Template for document content.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Raw markdown content of a vault document",
		MIMEType:    "text/markdown",
	}, s.handleDocumentContentResource)
}

// handleTagsResource returns every tag with its document count.
func (s *Server) handleTagsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	entries, err := s.ports.Index.AllTags(ctx, domain.TagSortName)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	type tagInfo struct {
		Name      string `json:"name"`
		Documents int    `json:"documents"`
	}
	infos := make([]tagInfo, len(entries))
	for i, entry := range entries {
		infos[i] = tagInfo{
			Name:      entry.Name,
			Documents: len(entry.Documents),
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling tags: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleGraphResource returns the link graph in DOT format.
func (s *Server) handleGraphResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	data, err := s.ports.Graph.ExportGraph(ctx, domain.ExportDOT)
	if err != nil {
		return nil, fmt.Errorf("exporting graph: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/vnd.graphviz",
			Text:     data,
		}},
	}, nil
}

// handleDocumentContentResource returns the content of a specific document.
func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract documentId from URI: vaultgraph://documents/{documentId}
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Index.GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     doc.Content,
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like
// vaultgraph://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
