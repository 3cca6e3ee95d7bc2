package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

// buildGraph indexes documents whose bodies declare outgoing wikilinks.
func buildGraph(t *testing.T, docs map[string]string) *GraphService {
	t.Helper()
	store := newFakeContentStore()
	now := time.Now()
	for id, content := range docs {
		store.put(id, content, now)
	}
	index := NewIndexService(store, &fakeParser{})
	_, err := index.ReindexAll(context.Background())
	require.NoError(t, err)
	return NewGraphService(index)
}

// pathGraph is the line a-b-c-d-e.
func pathGraph(t *testing.T) *GraphService {
	t.Helper()
	return buildGraph(t, map[string]string{
		"a.md": "[[b.md]]",
		"b.md": "[[c.md]]",
		"c.md": "[[d.md]]",
		"d.md": "[[e.md]]",
		"e.md": "end",
	})
}

func TestGraphService_Centrality_Degree(t *testing.T) {
	g := pathGraph(t)

	scores, err := g.Centrality(context.Background(), domain.MetricDegree)
	require.NoError(t, err)
	assert.Equal(t, 1.0, scores["a.md"])
	assert.Equal(t, 2.0, scores["b.md"])
	assert.Equal(t, 2.0, scores["c.md"])
	assert.Equal(t, 1.0, scores["e.md"])
}

func TestGraphService_Centrality_Betweenness(t *testing.T) {
	g := pathGraph(t)

	scores, err := g.Centrality(context.Background(), domain.MetricBetweenness)
	require.NoError(t, err)

	// The middle of a path carries the most shortest paths; endpoints none.
	assert.Zero(t, scores["a.md"])
	assert.Zero(t, scores["e.md"])
	assert.Greater(t, scores["c.md"], scores["b.md"])
	// c sits on 4 of the 6 source-target pairs: normalized 4/6.
	assert.InDelta(t, 4.0/6.0, scores["c.md"], 1e-9)
}

func TestGraphService_Centrality_Closeness(t *testing.T) {
	g := pathGraph(t)

	scores, err := g.Centrality(context.Background(), domain.MetricCloseness)
	require.NoError(t, err)

	// c reaches everyone in distances 1,1,2,2.
	assert.InDelta(t, 4.0/6.0, scores["c.md"], 1e-9)
	assert.Greater(t, scores["c.md"], scores["a.md"])
}

func TestGraphService_Centrality_Eigenvector(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"hub.md":   "[[s1.md]] [[s2.md]] [[s3.md]]",
		"s1.md":    "spoke",
		"s2.md":    "spoke",
		"s3.md":    "spoke",
		"apart.md": "alone",
	})

	scores, err := g.Centrality(context.Background(), domain.MetricEigenvector)
	require.NoError(t, err)
	assert.Greater(t, scores["hub.md"], scores["s1.md"])
	assert.InDelta(t, scores["s1.md"], scores["s2.md"], 1e-9)
}

func TestGraphService_Centrality_UnknownMetric(t *testing.T) {
	g := pathGraph(t)
	_, err := g.Centrality(context.Background(), domain.CentralityMetric("bogus"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGraphService_InfluentialDocuments(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"a.md":   "[[hub.md]]",
		"b.md":   "[[hub.md]]",
		"c.md":   "[[hub.md]]",
		"hub.md": "centre",
	})

	top, err := g.InfluentialDocuments(context.Background(), domain.MetricPageRank, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "hub.md", top[0].ID)
	assert.Greater(t, top[0].Score, top[1].Score)
}

func TestGraphService_Communities_TwoClusters(t *testing.T) {
	// Two triangles joined by a single bridge edge.
	g := buildGraph(t, map[string]string{
		"a1.md": "#alpha [[a2.md]] [[a3.md]]",
		"a2.md": "#alpha [[a3.md]]",
		"a3.md": "#alpha [[b1.md]]",
		"b1.md": "#beta [[b2.md]] [[b3.md]]",
		"b2.md": "#beta [[b3.md]]",
		"b3.md": "#beta end",
	})

	result, err := g.Communities(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, result.Communities, 2)
	assert.Greater(t, result.Modularity, 0.0)

	for _, c := range result.Communities {
		require.Len(t, c.Documents, 3)
		assert.InDelta(t, 1.0, c.Cohesion, 1e-9, "each triangle is a clique")
		require.NotEmpty(t, c.DominantTags)
	}

	// Members of one triangle stay together.
	membership := make(map[string]int)
	for _, c := range result.Communities {
		for _, id := range c.Documents {
			membership[id] = c.ID
		}
	}
	assert.Equal(t, membership["a1.md"], membership["a2.md"])
	assert.Equal(t, membership["b1.md"], membership["b3.md"])
	assert.NotEqual(t, membership["a1.md"], membership["b1.md"])
}

func TestGraphService_Communities_ResolutionFavoursSmaller(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"a1.md": "#alpha [[a2.md]] [[a3.md]]",
		"a2.md": "#alpha [[a3.md]]",
		"a3.md": "#alpha [[b1.md]]",
		"b1.md": "#beta [[b2.md]] [[b3.md]]",
		"b2.md": "#beta [[b3.md]]",
		"b3.md": "#beta end",
	})

	// At a high resolution no merge gains modularity and every document
	// stays alone.
	result, err := g.Communities(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, result.Communities, 6)
	for _, c := range result.Communities {
		assert.Len(t, c.Documents, 1)
		assert.Zero(t, c.Cohesion)
	}
}

func TestGraphService_PathStats(t *testing.T) {
	g := pathGraph(t)

	stats, err := g.PathStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Diameter)
	assert.Equal(t, 20, stats.ConnectedPairs)
	// Ordered-pair distance sum on the 5-path is 40.
	assert.InDelta(t, 2.0, stats.MeanPathLength, 1e-9)
}

func TestGraphService_Components(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"a.md":     "[[b.md]] [[c.md]]",
		"b.md":     "x",
		"c.md":     "x",
		"lone.md":  "x",
		"pair1.md": "[[pair2.md]]",
		"pair2.md": "x",
	})

	components, err := g.Components(context.Background())
	require.NoError(t, err)
	require.Len(t, components, 3)
	assert.Equal(t, []string{"a.md", "b.md", "c.md"}, components[0])
	assert.Equal(t, []string{"pair1.md", "pair2.md"}, components[1])
	assert.Equal(t, []string{"lone.md"}, components[2])
}

func TestGraphService_ExportGraph(t *testing.T) {
	ctx := context.Background()
	g := buildGraph(t, map[string]string{
		"a.md": "[[b.md]]",
		"b.md": "x",
	})

	dot, err := g.ExportGraph(ctx, domain.ExportDOT)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dot, "digraph vault"))
	assert.Contains(t, dot, `"a.md" -> "b.md"`)

	graphml, err := g.ExportGraph(ctx, domain.ExportGraphML)
	require.NoError(t, err)
	assert.Contains(t, graphml, "<graphml")
	assert.Contains(t, graphml, `source="a.md"`)

	_, err = g.ExportGraph(ctx, domain.GraphExportFormat("json"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGraphService_DelegatedQueries(t *testing.T) {
	ctx := context.Background()
	g := buildGraph(t, map[string]string{
		"a.md": "[[b.md]] [[missing.md]]",
		"b.md": "x",
	})

	backlinks, err := g.Backlinks(ctx, "b.md")
	require.NoError(t, err)
	require.Len(t, backlinks, 1)
	assert.Equal(t, "a.md", backlinks[0].Source)

	broken, err := g.BrokenLinks(ctx)
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.Equal(t, "missing.md", broken[0].Link.Target)

	path, err := g.ShortestPath(ctx, "a.md", "b.md", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, path)

	orphans, err := g.Orphaned(ctx)
	require.NoError(t, err)
	assert.Contains(t, orphans, "a.md")
}
