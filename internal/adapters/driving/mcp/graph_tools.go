package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

// BacklinksOutput lists the incoming links of a document.
type BacklinksOutput struct {
	Backlinks []LinkOutput `json:"backlinks"`
	Count     int          `json:"count"`
}

// LinkOutput is one link reference.
type LinkOutput struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Display string `json:"display,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// RelatedInput is the input schema for the related tool.
type RelatedInput struct {
	ID      string `json:"id" jsonschema:"vault-relative document path"`
	MaxHops int    `json:"max_hops,omitempty" jsonschema:"traversal radius in hops (default 2)"`
}

// RelatedOutput maps related document IDs to hop distance.
type RelatedOutput struct {
	Related map[string]int `json:"related"`
}

// ShortestPathInput is the input schema for the shortest_path tool.
type ShortestPathInput struct {
	From     string `json:"from" jsonschema:"starting document path"`
	To       string `json:"to" jsonschema:"target document path"`
	MaxDepth int    `json:"max_depth,omitempty" jsonschema:"maximum path length in edges (default 10)"`
}

// PathOutput is an ordered document path.
type PathOutput struct {
	Path []string `json:"path"`
	Hops int      `json:"hops"`
}

// BrokenLinksOutput lists unresolvable links with repair suggestions.
type BrokenLinksOutput struct {
	BrokenLinks []BrokenLinkOutput `json:"broken_links"`
	Count       int                `json:"count"`
}

// BrokenLinkOutput is one unresolvable link.
type BrokenLinkOutput struct {
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	Line        int      `json:"line,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ScoresOutput maps document IDs to a score.
type ScoresOutput struct {
	Scores map[string]float64 `json:"scores"`
}

// CentralityInput is the input schema for the centrality tool.
type CentralityInput struct {
	Metric string `json:"metric" jsonschema:"degree, betweenness, closeness, eigenvector or pagerank"`
}

// InfluentialInput is the input schema for the influential_documents tool.
type InfluentialInput struct {
	Metric string `json:"metric,omitempty" jsonschema:"ranking metric (default pagerank)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of documents (default 10)"`
}

// InfluentialOutput ranks documents by a centrality metric.
type InfluentialOutput struct {
	Documents []RankedOutput `json:"documents"`
}

// RankedOutput is one scored document.
type RankedOutput struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// CommunitiesInput is the input schema for the communities tool.
type CommunitiesInput struct {
	Resolution float64 `json:"resolution,omitempty" jsonschema:"above 1 favours smaller communities, below 1 larger ones (default 1)"`
}

// CommunitiesOutput is the output schema for the communities tool.
type CommunitiesOutput struct {
	Communities []CommunityOutput `json:"communities"`
	Modularity  float64           `json:"modularity"`
}

// CommunityOutput is one detected cluster.
type CommunityOutput struct {
	ID           int      `json:"id"`
	Documents    []string `json:"documents"`
	Cohesion     float64  `json:"cohesion"`
	DominantTags []string `json:"dominant_tags,omitempty"`
}

// PathStatsOutput reports graph distance statistics.
type PathStatsOutput struct {
	Diameter       int     `json:"diameter"`
	MeanPathLength float64 `json:"mean_path_length"`
	ConnectedPairs int     `json:"connected_pairs"`
}

// ComponentsOutput lists connected components, largest first.
type ComponentsOutput struct {
	Components [][]string `json:"components"`
	Count      int        `json:"count"`
}

// ExportGraphInput is the input schema for the export_graph tool.
type ExportGraphInput struct {
	Format string `json:"format,omitempty" jsonschema:"output format: dot or graphml (default dot)"`
}

// ExportGraphOutput carries the serialized graph.
type ExportGraphOutput struct {
	Format string `json:"format"`
	Data   string `json:"data"`
}

// registerGraphTools registers the link-graph analytics tools.
func (s *Server) registerGraphTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "backlinks",
		Description: "List documents linking to the given document",
	}, s.handleBacklinks)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "related",
		Description: "Find documents within N hops of the given document",
	}, s.handleRelated)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "shortest_path",
		Description: "Find the shortest link path between two documents",
	}, s.handleShortestPath)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "broken_links",
		Description: "List links whose target does not exist, with repair suggestions",
	}, s.handleBrokenLinks)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "orphaned",
		Description: "List documents no other document links to",
	}, s.handleOrphaned)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "centrality",
		Description: "Score every document by a centrality metric",
	}, s.handleCentrality)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "influential_documents",
		Description: "Top documents by a centrality metric",
	}, s.handleInfluential)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "communities",
		Description: "Detect clusters of densely linked documents",
	}, s.handleCommunities)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "path_stats",
		Description: "Graph diameter and mean shortest-path length",
	}, s.handlePathStats)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "components",
		Description: "Connected components of the link graph, largest first",
	}, s.handleComponents)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "export_graph",
		Description: "Export the link graph as DOT or GraphML",
	}, s.handleExportGraph)
}

// handleBacklinks handles the backlinks tool invocation.
func (s *Server) handleBacklinks(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, BacklinksOutput, error) {
	links, err := s.ports.Graph.Backlinks(ctx, input.ID)
	if err != nil {
		return nil, BacklinksOutput{}, err
	}

	output := BacklinksOutput{
		Backlinks: make([]LinkOutput, len(links)),
		Count:     len(links),
	}
	for i, link := range links {
		output.Backlinks[i] = LinkOutput{
			Source:  link.Source,
			Target:  link.Target,
			Display: link.Display,
			Line:    link.Line,
		}
	}
	return nil, output, nil
}

// handleRelated handles the related tool invocation.
func (s *Server) handleRelated(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RelatedInput,
) (*mcp.CallToolResult, RelatedOutput, error) {
	maxHops := input.MaxHops
	if maxHops <= 0 {
		maxHops = 2
	}

	related, err := s.ports.Graph.Related(ctx, input.ID, maxHops)
	if err != nil {
		return nil, RelatedOutput{}, err
	}
	return nil, RelatedOutput{Related: related}, nil
}

// handleShortestPath handles the shortest_path tool invocation.
func (s *Server) handleShortestPath(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ShortestPathInput,
) (*mcp.CallToolResult, PathOutput, error) {
	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 10
	}

	path, err := s.ports.Graph.ShortestPath(ctx, input.From, input.To, maxDepth)
	if err != nil {
		return nil, PathOutput{}, err
	}
	return nil, PathOutput{Path: path, Hops: len(path) - 1}, nil
}

// handleBrokenLinks handles the broken_links tool invocation.
func (s *Server) handleBrokenLinks(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, BrokenLinksOutput, error) {
	broken, err := s.ports.Graph.BrokenLinks(ctx)
	if err != nil {
		return nil, BrokenLinksOutput{}, err
	}

	output := BrokenLinksOutput{
		BrokenLinks: make([]BrokenLinkOutput, len(broken)),
		Count:       len(broken),
	}
	for i, b := range broken {
		output.BrokenLinks[i] = BrokenLinkOutput{
			Source:      b.Link.Source,
			Target:      b.Link.Target,
			Line:        b.Link.Line,
			Suggestions: b.Suggestions,
		}
	}
	return nil, output, nil
}

// handleOrphaned handles the orphaned tool invocation.
func (s *Server) handleOrphaned(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, IDsOutput, error) {
	ids, err := s.ports.Graph.Orphaned(ctx)
	if err != nil {
		return nil, IDsOutput{}, err
	}
	return nil, IDsOutput{IDs: ids, Count: len(ids)}, nil
}

// handleCentrality handles the centrality tool invocation.
func (s *Server) handleCentrality(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CentralityInput,
) (*mcp.CallToolResult, ScoresOutput, error) {
	scores, err := s.ports.Graph.Centrality(ctx, domain.CentralityMetric(input.Metric))
	if err != nil {
		return nil, ScoresOutput{}, err
	}
	return nil, ScoresOutput{Scores: scores}, nil
}

// handleInfluential handles the influential_documents tool invocation.
func (s *Server) handleInfluential(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input InfluentialInput,
) (*mcp.CallToolResult, InfluentialOutput, error) {
	metric := domain.CentralityMetric(input.Metric)
	if input.Metric == "" {
		metric = domain.MetricPageRank
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	ranked, err := s.ports.Graph.InfluentialDocuments(ctx, metric, limit)
	if err != nil {
		return nil, InfluentialOutput{}, err
	}

	output := InfluentialOutput{Documents: make([]RankedOutput, len(ranked))}
	for i, r := range ranked {
		output.Documents[i] = RankedOutput{ID: r.ID, Score: r.Score}
	}
	return nil, output, nil
}

// handleCommunities handles the communities tool invocation.
func (s *Server) handleCommunities(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CommunitiesInput,
) (*mcp.CallToolResult, CommunitiesOutput, error) {
	result, err := s.ports.Graph.Communities(ctx, input.Resolution)
	if err != nil {
		return nil, CommunitiesOutput{}, err
	}

	output := CommunitiesOutput{
		Communities: make([]CommunityOutput, len(result.Communities)),
		Modularity:  result.Modularity,
	}
	for i, c := range result.Communities {
		output.Communities[i] = CommunityOutput{
			ID:           c.ID,
			Documents:    c.Documents,
			Cohesion:     c.Cohesion,
			DominantTags: c.DominantTags,
		}
	}
	return nil, output, nil
}

// handlePathStats handles the path_stats tool invocation.
func (s *Server) handlePathStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, PathStatsOutput, error) {
	stats, err := s.ports.Graph.PathStats(ctx)
	if err != nil {
		return nil, PathStatsOutput{}, err
	}
	return nil, PathStatsOutput{
		Diameter:       stats.Diameter,
		MeanPathLength: stats.MeanPathLength,
		ConnectedPairs: stats.ConnectedPairs,
	}, nil
}

// handleComponents handles the components tool invocation.
func (s *Server) handleComponents(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ComponentsOutput, error) {
	components, err := s.ports.Graph.Components(ctx)
	if err != nil {
		return nil, ComponentsOutput{}, err
	}
	return nil, ComponentsOutput{
		Components: components,
		Count:      len(components),
	}, nil
}

// handleExportGraph handles the export_graph tool invocation.
func (s *Server) handleExportGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExportGraphInput,
) (*mcp.CallToolResult, ExportGraphOutput, error) {
	format := domain.GraphExportFormat(input.Format)
	if input.Format == "" {
		format = domain.ExportDOT
	}

	data, err := s.ports.Graph.ExportGraph(ctx, format)
	if err != nil {
		return nil, ExportGraphOutput{}, err
	}
	return nil, ExportGraphOutput{Format: string(format), Data: data}, nil
}
