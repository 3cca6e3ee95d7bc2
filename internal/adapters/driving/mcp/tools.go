package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query       string   `json:"query" jsonschema:"the search query"`
	Limit       int      `json:"limit,omitempty" jsonschema:"maximum number of results (default 20)"`
	Tags        []string `json:"tags,omitempty" jsonschema:"restrict to documents carrying these tags"`
	TagMode     string   `json:"tag_mode,omitempty" jsonschema:"tag combination: all or any (default all)"`
	PathPattern string   `json:"path_pattern,omitempty" jsonschema:"case-insensitive substring filter on document paths"`
	Threshold   float64  `json:"threshold,omitempty" jsonschema:"minimum combined score, 0 disables"`
}

// SearchOutput is the output schema for the search tools.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Score         float64  `json:"score"`
	TextScore     float64  `json:"text_score,omitempty"`
	SemanticScore float64  `json:"semantic_score,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Highlights    []string `json:"highlights,omitempty"`
}

// SemanticSearchInput is the input schema for the semantic_search tool.
type SemanticSearchInput struct {
	Query string `json:"query" jsonschema:"the text to embed and match against chunk embeddings"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default 20)"`
}

// TextSearchInput is the input schema for the text_search tool.
type TextSearchInput struct {
	Query string `json:"query" jsonschema:"keywords to match against titles, tags and content"`
}

// DocumentInput identifies one document by vault-relative path.
type DocumentInput struct {
	ID string `json:"id" jsonschema:"vault-relative document path, e.g. notes/go.md"`
}

// DocumentOutput is the full record of one document.
type DocumentOutput struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Tags       []string  `json:"tags,omitempty"`
	Links      []string  `json:"links,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
	Content    string    `json:"content"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentSummary `json:"documents"`
	Count     int               `json:"count"`
}

// DocumentSummary is one entry of a document listing.
type DocumentSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Tags       []string  `json:"tags,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ReindexOutput reports a full reindex batch.
type ReindexOutput struct {
	Indexed  int      `json:"indexed"`
	Failures []string `json:"failures,omitempty"`
}

// FindByTagInput is the input schema for the find_by_tag tool.
type FindByTagInput struct {
	Tags []string `json:"tags" jsonschema:"tags to filter by, hierarchical like project/sub"`
	Mode string   `json:"mode,omitempty" jsonschema:"tag combination: all or any (default all)"`
}

// IDsOutput carries a plain list of document IDs.
type IDsOutput struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

// AllTagsInput is the input schema for the all_tags tool.
type AllTagsInput struct {
	Sort string `json:"sort,omitempty" jsonschema:"sort order: name, count or recent (default name)"`
}

// AllTagsOutput lists every indexed tag.
type AllTagsOutput struct {
	Tags []TagOutput `json:"tags"`
}

// TagOutput is one tag entry.
type TagOutput struct {
	Name      string `json:"name"`
	Documents int    `json:"documents"`
}

// SuggestTagsInput is the input schema for the suggest_tags tool.
type SuggestTagsInput struct {
	ExistingTags []string `json:"existing_tags" jsonschema:"tags the document already carries"`
}

// SuggestTagsOutput ranks candidate tags.
type SuggestTagsOutput struct {
	Suggestions []string `json:"suggestions"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid search across the vault: keywords, embeddings, tags, recency and link authority",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "semantic_search",
		Description: "Rank documents purely by embedding similarity to the query",
	}, s.handleSemanticSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "text_search",
		Description: "Rank documents by keyword occurrence in titles, tags and content",
	}, s.handleTextSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Fetch one document record with content, tags and outgoing links",
	}, s.handleGetDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List every indexed document",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_document",
		Description: "Index or re-index one document from the vault",
	}, s.handleIndexDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_document",
		Description: "Remove one document from the index, retracting its tags and links",
	}, s.handleRemoveDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ensure_embeddings",
		Description: "Compute missing chunk embeddings for one document",
	}, s.handleEnsureEmbeddings)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reindex",
		Description: "Rebuild the whole index from the vault",
	}, s.handleReindex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_by_tag",
		Description: "Find documents carrying tags, combined with AND or OR",
	}, s.handleFindByTag)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "all_tags",
		Description: "List every tag with its document count",
	}, s.handleAllTags)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "suggest_tags",
		Description: "Suggest tags for a document based on co-occurrence and hierarchy",
	}, s.handleSuggestTags)

	s.registerGraphTools()
}

// handleSearch handles the hybrid search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{
		Limit:     input.Limit,
		Threshold: input.Threshold,
		Filters: domain.SearchFilters{
			Tags:        input.Tags,
			TagMode:     domain.TagQueryMode(input.TagMode),
			PathPattern: input.PathPattern,
		},
	}

	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, searchOutput(results), nil
}

// handleSemanticSearch handles the semantic_search tool invocation.
func (s *Server) handleSemanticSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SemanticSearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Search.SemanticSearch(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, searchOutput(results), nil
}

// handleTextSearch handles the text_search tool invocation.
func (s *Server) handleTextSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TextSearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Search.TextSearch(ctx, input.Query)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, searchOutput(results), nil
}

// searchOutput converts domain results to the wire schema.
func searchOutput(results []domain.SearchResult) SearchOutput {
	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		var highlights []string
		for _, m := range results[i].Matches {
			highlights = append(highlights, m.Context)
		}
		output.Results[i] = SearchResultOutput{
			ID:            results[i].ID,
			Title:         results[i].Title,
			Score:         results[i].Score,
			TextScore:     results[i].TextScore,
			SemanticScore: results[i].SemanticScore,
			Tags:          results[i].Tags,
			Highlights:    highlights,
		}
	}
	return output
}

// handleGetDocument handles the get_document tool invocation.
func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	doc, err := s.ports.Index.GetDocument(ctx, input.ID)
	if err != nil {
		return nil, DocumentOutput{}, err
	}

	links := make([]string, len(doc.Links))
	for i, link := range doc.Links {
		links[i] = link.Target
	}
	return nil, DocumentOutput{
		ID:         doc.ID,
		Title:      doc.Title(),
		Tags:       doc.Tags,
		Links:      links,
		ModifiedAt: doc.ModifiedAt,
		Content:    doc.Content,
	}, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Index.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentSummary, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = DocumentSummary{
			ID:         docs[i].ID,
			Title:      docs[i].Title(),
			Tags:       docs[i].Tags,
			ModifiedAt: docs[i].ModifiedAt,
		}
	}
	return nil, output, nil
}

// handleIndexDocument handles the index_document tool invocation.
func (s *Server) handleIndexDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, struct{}, error) {
	if err := s.ports.Index.IndexDocument(ctx, input.ID); err != nil {
		return nil, struct{}{}, err
	}
	return nil, struct{}{}, nil
}

// handleRemoveDocument handles the remove_document tool invocation.
func (s *Server) handleRemoveDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, struct{}, error) {
	if err := s.ports.Index.RemoveDocument(ctx, input.ID); err != nil {
		return nil, struct{}{}, err
	}
	return nil, struct{}{}, nil
}

// handleEnsureEmbeddings handles the ensure_embeddings tool invocation.
func (s *Server) handleEnsureEmbeddings(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, struct{}, error) {
	if err := s.ports.Index.EnsureEmbeddings(ctx, input.ID); err != nil {
		return nil, struct{}{}, err
	}
	return nil, struct{}{}, nil
}

// handleReindex handles the reindex tool invocation.
func (s *Server) handleReindex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ReindexOutput, error) {
	report, err := s.ports.Index.ReindexAll(ctx)
	if err != nil {
		return nil, ReindexOutput{}, err
	}

	output := ReindexOutput{Indexed: report.Indexed}
	for _, failure := range report.Failures {
		output.Failures = append(output.Failures, failure.Error())
	}
	return nil, output, nil
}

// handleFindByTag handles the find_by_tag tool invocation.
func (s *Server) handleFindByTag(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindByTagInput,
) (*mcp.CallToolResult, IDsOutput, error) {
	mode := domain.TagQueryMode(input.Mode)
	if input.Mode == "" {
		mode = domain.TagModeAll
	}

	ids, err := s.ports.Index.FindByTag(ctx, input.Tags, mode)
	if err != nil {
		return nil, IDsOutput{}, err
	}
	return nil, IDsOutput{IDs: ids, Count: len(ids)}, nil
}

// handleAllTags handles the all_tags tool invocation.
func (s *Server) handleAllTags(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AllTagsInput,
) (*mcp.CallToolResult, AllTagsOutput, error) {
	sortBy := domain.TagSort(input.Sort)
	if input.Sort == "" {
		sortBy = domain.TagSortName
	}

	entries, err := s.ports.Index.AllTags(ctx, sortBy)
	if err != nil {
		return nil, AllTagsOutput{}, err
	}

	output := AllTagsOutput{Tags: make([]TagOutput, len(entries))}
	for i, entry := range entries {
		output.Tags[i] = TagOutput{
			Name:      entry.Name,
			Documents: len(entry.Documents),
		}
	}
	return nil, output, nil
}

// handleSuggestTags handles the suggest_tags tool invocation.
func (s *Server) handleSuggestTags(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SuggestTagsInput,
) (*mcp.CallToolResult, SuggestTagsOutput, error) {
	suggestions, err := s.ports.Index.SuggestTags(ctx, input.ExistingTags)
	if err != nil {
		return nil, SuggestTagsOutput{}, err
	}
	return nil, SuggestTagsOutput{Suggestions: suggestions}, nil
}
