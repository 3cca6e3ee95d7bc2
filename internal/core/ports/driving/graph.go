package driving

import (
	"context"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

// GraphService answers read-only queries over the document link graph.
// Computations run over a point-in-time snapshot and never mutate the index.
type GraphService interface {
	// Backlinks returns the incoming links of a document.
	Backlinks(ctx context.Context, id string) ([]domain.LinkRef, error)

	// Related returns documents within maxHops over the undirected graph,
	// mapped to their minimum hop distance, excluding the origin.
	Related(ctx context.Context, id string, maxHops int) (map[string]int, error)

	// ShortestPath returns the shortest undirected path between two
	// documents within maxDepth edges, or domain.ErrPathNotFound.
	ShortestPath(ctx context.Context, from, to string, maxDepth int) ([]string, error)

	// BrokenLinks returns every outgoing link with no resolvable target.
	BrokenLinks(ctx context.Context) ([]domain.BrokenLink, error)

	// Orphaned returns documents with zero incoming links.
	Orphaned(ctx context.Context) ([]string, error)

	// PageRank returns authority scores over the directed link graph.
	PageRank(ctx context.Context) (map[string]float64, error)

	// Communities detects clusters by greedy modularity optimization.
	// resolution above 1 favours smaller communities, below 1 larger
	// ones; zero or negative uses the standard resolution of 1.
	Communities(ctx context.Context, resolution float64) (*domain.CommunityResult, error)

	// Centrality computes one per-node importance metric.
	Centrality(ctx context.Context, metric domain.CentralityMetric) (map[string]float64, error)

	// InfluentialDocuments returns the top documents by a metric.
	InfluentialDocuments(ctx context.Context, metric domain.CentralityMetric, limit int) ([]domain.RankedDocument, error)

	// PathStats reports diameter and mean path length.
	PathStats(ctx context.Context) (*domain.PathStats, error)

	// Components returns the connected components of the undirected graph.
	Components(ctx context.Context) ([][]string, error)

	// ExportGraph serializes the graph to a textual interchange format.
	ExportGraph(ctx context.Context, format domain.GraphExportFormat) (string, error)
}
