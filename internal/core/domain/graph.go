package domain

// CentralityMetric identifies one per-node importance measure.
type CentralityMetric string

// Centrality metrics.
const (
	// MetricDegree is neighbour-set size.
	MetricDegree CentralityMetric = "degree"

	// MetricBetweenness is shortest-path betweenness (Brandes).
	MetricBetweenness CentralityMetric = "betweenness"

	// MetricCloseness is reachable count over summed distances.
	MetricCloseness CentralityMetric = "closeness"

	// MetricEigenvector is power-iteration eigenvector centrality.
	MetricEigenvector CentralityMetric = "eigenvector"

	// MetricPageRank is directed-link PageRank.
	MetricPageRank CentralityMetric = "pagerank"
)

// IsValid returns true if the metric is recognised.
func (m CentralityMetric) IsValid() bool {
	switch m {
	case MetricDegree, MetricBetweenness, MetricCloseness, MetricEigenvector, MetricPageRank:
		return true
	default:
		return false
	}
}

// Community is one detected cluster of documents.
type Community struct {
	// ID is the community's ordinal within the detection result.
	ID int

	// Documents lists member document IDs.
	Documents []string

	// Cohesion is the internal edge density: actual internal edges divided
	// by possible member pairs. 1.0 for a clique.
	Cohesion float64

	// DominantTags are the most frequent tags across members (top 5).
	DominantTags []string
}

// CommunityResult is the output of community detection.
type CommunityResult struct {
	// Communities are the detected clusters, largest first.
	Communities []Community

	// Modularity is the final modularity value of the partition.
	Modularity float64
}

// PathStats summarises all-pairs shortest distances.
type PathStats struct {
	// Diameter is the maximum finite shortest distance.
	Diameter int

	// MeanPathLength is the mean over all finite-distance ordered pairs.
	MeanPathLength float64

	// ConnectedPairs counts the finite-distance ordered pairs.
	ConnectedPairs int
}

// RankedDocument pairs a document ID with a metric score.
type RankedDocument struct {
	// ID is the document identifier.
	ID string

	// Score is the metric value.
	Score float64
}

// BrokenLink is an outgoing link whose target resolves to no document.
type BrokenLink struct {
	// Link is the unresolved outgoing reference.
	Link LinkRef

	// Suggestions are up to five existing document IDs chosen by
	// case-insensitive substring containment, in discovery order.
	Suggestions []string
}

// GraphExportFormat selects a textual graph interchange format.
type GraphExportFormat string

// Export formats.
const (
	// ExportDOT is the Graphviz DOT format.
	ExportDOT GraphExportFormat = "dot"

	// ExportGraphML is the GraphML XML format.
	ExportGraphML GraphExportFormat = "graphml"
)

// IsValid returns true if the export format is recognised.
func (f GraphExportFormat) IsValid() bool {
	switch f {
	case ExportDOT, ExportGraphML:
		return true
	default:
		return false
	}
}

// GraphNode is one node in the structural export form.
type GraphNode struct {
	// ID is the document identifier.
	ID string

	// Title is the document display title.
	Title string

	// Tags are the document's tags.
	Tags []string
}

// GraphEdge is one directed edge in the structural export form.
type GraphEdge struct {
	// From is the source document ID.
	From string

	// To is the target document ID.
	To string
}

// GraphExport is the serialized node/edge view of the link graph.
type GraphExport struct {
	// Nodes lists every indexed document.
	Nodes []GraphNode

	// Edges lists every resolved outgoing link.
	Edges []GraphEdge
}
