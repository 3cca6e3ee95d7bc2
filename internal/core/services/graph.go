package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
	"github.com/custodia-labs/vaultgraph/internal/core/ports/driving"
	"github.com/custodia-labs/vaultgraph/internal/logger"
)

// Ensure GraphService implements the interface.
var _ driving.GraphService = (*GraphService)(nil)

// eigenvectorIterations is the fixed power-iteration round count.
const eigenvectorIterations = 100

// communityTagLimit bounds the dominant tags reported per community.
const communityTagLimit = 5

// GraphService answers analytics queries over the link graph. Heavy
// computations (betweenness, eigenvector, communities) run over an
// isolated snapshot copied from the index, so a concurrent re-index never
// corrupts an in-progress traversal. It never mutates the index.
type GraphService struct {
	index *IndexService
}

// NewGraphService creates a graph service over the index.
func NewGraphService(index *IndexService) *GraphService {
	return &GraphService{index: index}
}

// Backlinks returns the incoming links of a document.
func (g *GraphService) Backlinks(_ context.Context, id string) ([]domain.LinkRef, error) {
	return g.index.Backlinks(id)
}

// Related returns documents within maxHops, mapped to minimum hop distance.
func (g *GraphService) Related(_ context.Context, id string, maxHops int) (map[string]int, error) {
	return g.index.Related(id, maxHops)
}

// ShortestPath returns the shortest undirected path within maxDepth edges.
func (g *GraphService) ShortestPath(_ context.Context, from, to string, maxDepth int) ([]string, error) {
	return g.index.ShortestPath(from, to, maxDepth)
}

// BrokenLinks returns every outgoing link with no resolvable target.
func (g *GraphService) BrokenLinks(_ context.Context) ([]domain.BrokenLink, error) {
	return g.index.BrokenLinks(), nil
}

// Orphaned returns documents with zero incoming links.
func (g *GraphService) Orphaned(_ context.Context) ([]string, error) {
	return g.index.Orphaned(), nil
}

// PageRank returns directed-link authority scores. The computation lives
// in the link index and is not reimplemented here.
func (g *GraphService) PageRank(_ context.Context) (map[string]float64, error) {
	return g.index.PageRank(), nil
}

// Centrality computes one per-node importance metric over a snapshot.
func (g *GraphService) Centrality(ctx context.Context, metric domain.CentralityMetric) (map[string]float64, error) {
	switch metric {
	case domain.MetricDegree:
		return degreeCentrality(g.index.Snapshot()), nil
	case domain.MetricBetweenness:
		return betweennessCentrality(g.index.Snapshot()), nil
	case domain.MetricCloseness:
		return closenessCentrality(g.index.Snapshot()), nil
	case domain.MetricEigenvector:
		return eigenvectorCentrality(g.index.Snapshot()), nil
	case domain.MetricPageRank:
		return g.PageRank(ctx)
	default:
		return nil, fmt.Errorf("centrality: %w: %q", domain.ErrInvalidInput, metric)
	}
}

// InfluentialDocuments returns the top documents by a metric.
func (g *GraphService) InfluentialDocuments(ctx context.Context, metric domain.CentralityMetric, limit int) ([]domain.RankedDocument, error) {
	scores, err := g.Centrality(ctx, metric)
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.RankedDocument, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, domain.RankedDocument{ID: id, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})

	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Communities detects clusters by greedy modularity optimization.
// resolution scales the expected-edge term of the modularity gain; zero
// or negative falls back to the standard resolution of 1.
func (g *GraphService) Communities(_ context.Context, resolution float64) (*domain.CommunityResult, error) {
	if resolution <= 0 {
		resolution = 1
	}
	snap := g.index.Snapshot()
	logger.Debug("Communities: %d nodes, resolution %.2f", len(snap.Nodes), resolution)
	return detectCommunities(snap, resolution), nil
}

// PathStats reports diameter and mean path length over a snapshot.
func (g *GraphService) PathStats(_ context.Context) (*domain.PathStats, error) {
	snap := g.index.Snapshot()
	adj := denseAdjacency(snap)

	stats := &domain.PathStats{}
	var totalDistance int
	for source := range adj.neighbours {
		for _, dist := range adj.bfsDistances(source) {
			if dist <= 0 {
				continue // self or unreachable
			}
			stats.ConnectedPairs++
			totalDistance += dist
			if dist > stats.Diameter {
				stats.Diameter = dist
			}
		}
	}
	if stats.ConnectedPairs > 0 {
		stats.MeanPathLength = float64(totalDistance) / float64(stats.ConnectedPairs)
	}
	return stats, nil
}

// Components returns connected components via iterative depth-first
// traversal, largest first.
func (g *GraphService) Components(_ context.Context) ([][]string, error) {
	snap := g.index.Snapshot()

	visited := make(map[string]struct{}, len(snap.Nodes))
	var components [][]string
	for _, start := range snap.Nodes {
		if _, done := visited[start]; done {
			continue
		}
		var component []string
		stack := []string{start}
		visited[start] = struct{}{}
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, node)
			for _, n := range snap.Neighbours[node] {
				if _, done := visited[n]; done {
					continue
				}
				visited[n] = struct{}{}
				stack = append(stack, n)
			}
		}
		sort.Strings(component)
		components = append(components, component)
	}

	sort.Slice(components, func(i, j int) bool {
		if len(components[i]) != len(components[j]) {
			return len(components[i]) > len(components[j])
		}
		return components[i][0] < components[j][0]
	})
	return components, nil
}

// Export serializes the snapshot to the structural node/edge form.
func (g *GraphService) Export() *domain.GraphExport {
	snap := g.index.Snapshot()
	export := &domain.GraphExport{
		Nodes: make([]domain.GraphNode, 0, len(snap.Nodes)),
		Edges: snap.Edges,
	}
	for _, id := range snap.Nodes {
		export.Nodes = append(export.Nodes, domain.GraphNode{
			ID:    id,
			Title: snap.Titles[id],
			Tags:  snap.Tags[id],
		})
	}
	return export
}

// ExportGraph serializes the graph to a textual interchange format.
func (g *GraphService) ExportGraph(_ context.Context, format domain.GraphExportFormat) (string, error) {
	export := g.Export()
	switch format {
	case domain.ExportDOT:
		return renderDOT(export), nil
	case domain.ExportGraphML:
		return renderGraphML(export), nil
	default:
		return "", fmt.Errorf("export graph: %w: %q", domain.ErrInvalidInput, format)
	}
}

// --- snapshot-based computations ---

// dense is an index-based adjacency view for traversal-heavy algorithms.
type dense struct {
	ids        []string
	index      map[string]int
	neighbours [][]int
}

// denseAdjacency converts a snapshot to index-based adjacency.
func denseAdjacency(snap *GraphSnapshot) *dense {
	d := &dense{
		ids:        snap.Nodes,
		index:      make(map[string]int, len(snap.Nodes)),
		neighbours: make([][]int, len(snap.Nodes)),
	}
	for i, id := range snap.Nodes {
		d.index[id] = i
	}
	for i, id := range snap.Nodes {
		for _, n := range snap.Neighbours[id] {
			d.neighbours[i] = append(d.neighbours[i], d.index[n])
		}
	}
	return d
}

// bfsDistances returns hop distances from a source; -1 marks unreachable.
func (d *dense) bfsDistances(source int) []int {
	dist := make([]int, len(d.ids))
	for i := range dist {
		dist[i] = -1
	}
	dist[source] = 0
	queue := []int{source}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, n := range d.neighbours[node] {
			if dist[n] < 0 {
				dist[n] = dist[node] + 1
				queue = append(queue, n)
			}
		}
	}
	return dist
}

// degreeCentrality is neighbour-set size per node.
func degreeCentrality(snap *GraphSnapshot) map[string]float64 {
	scores := make(map[string]float64, len(snap.Nodes))
	for _, id := range snap.Nodes {
		scores[id] = float64(len(snap.Neighbours[id]))
	}
	return scores
}

// betweennessCentrality implements Brandes' algorithm: BFS shortest-path
// counting and dependency accumulation from every source, normalized by
// 2/((n-1)(n-2)) for n > 2.
func betweennessCentrality(snap *GraphSnapshot) map[string]float64 {
	d := denseAdjacency(snap)
	n := len(d.ids)
	centrality := make([]float64, n)

	for source := 0; source < n; source++ {
		var stack []int
		predecessors := make([][]int, n)
		sigma := make([]float64, n)
		dist := make([]int, n)
		for i := range dist {
			dist[i] = -1
		}
		sigma[source] = 1
		dist[source] = 0
		queue := []int{source}

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range d.neighbours[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					predecessors[w] = append(predecessors[w], v)
				}
			}
		}

		delta := make([]float64, n)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range predecessors[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != source {
				centrality[w] += delta[w]
			}
		}
	}

	// Each undirected pair was counted from both endpoints.
	scale := 0.5
	if n > 2 {
		scale *= 2.0 / (float64(n-1) * float64(n-2))
	}
	scores := make(map[string]float64, n)
	for i, id := range d.ids {
		scores[id] = centrality[i] * scale
	}
	return scores
}

// closenessCentrality is reachable count over summed distances per node.
func closenessCentrality(snap *GraphSnapshot) map[string]float64 {
	d := denseAdjacency(snap)
	scores := make(map[string]float64, len(d.ids))
	for i, id := range d.ids {
		reachable, total := 0, 0
		for _, dist := range d.bfsDistances(i) {
			if dist > 0 {
				reachable++
				total += dist
			}
		}
		if total > 0 {
			scores[id] = float64(reachable) / float64(total)
		} else {
			scores[id] = 0
		}
	}
	return scores
}

// eigenvectorCentrality runs fixed-round power iteration on the adjacency
// matrix with L2 re-normalization each round, starting from uniform
// 1/sqrt(n).
func eigenvectorCentrality(snap *GraphSnapshot) map[string]float64 {
	d := denseAdjacency(snap)
	n := len(d.ids)
	if n == 0 {
		return map[string]float64{}
	}

	vec := make([]float64, n)
	initial := 1.0 / math.Sqrt(float64(n))
	for i := range vec {
		vec[i] = initial
	}

	next := make([]float64, n)
	for round := 0; round < eigenvectorIterations; round++ {
		for i := range next {
			next[i] = 0
		}
		for i := 0; i < n; i++ {
			for _, j := range d.neighbours[i] {
				next[i] += vec[j]
			}
		}
		var norm float64
		for _, v := range next {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			break // no edges, keep the uniform vector
		}
		for i := range next {
			vec[i] = next[i] / norm
		}
	}

	scores := make(map[string]float64, n)
	for i, id := range d.ids {
		scores[id] = vec[i]
	}
	return scores
}

// detectCommunities runs greedy modularity optimization: every node starts
// in its own community; repeatedly the single best positive-gain move of a
// node into a neighbouring community is kept, until no move improves
// modularity.
func detectCommunities(snap *GraphSnapshot, resolution float64) *domain.CommunityResult {
	d := denseAdjacency(snap)
	n := len(d.ids)
	if n == 0 {
		return &domain.CommunityResult{}
	}

	// 2m = sum of degrees. Every undirected edge appears twice.
	var twoM float64
	degree := make([]float64, n)
	for i := range d.neighbours {
		degree[i] = float64(len(d.neighbours[i]))
		twoM += degree[i]
	}
	if twoM == 0 {
		return singletonCommunities(snap)
	}

	community := make([]int, n)
	for i := range community {
		community[i] = i
	}

	// communityDegree is the summed degree per community; linksTo counts a
	// node's edges into a given community.
	communityDegree := make([]float64, n)
	copy(communityDegree, degree)

	improved := true
	for improved {
		improved = false
		for node := 0; node < n; node++ {
			current := community[node]

			linksTo := make(map[int]float64)
			for _, neighbour := range d.neighbours[node] {
				linksTo[community[neighbour]]++
			}

			// Gain of removing the node from its current community.
			removalGain := linksTo[current]/twoM*2 - resolution*degree[node]*(communityDegree[current]-degree[node])/(twoM*twoM)*2

			bestGain := 0.0
			bestCommunity := current
			for target, links := range linksTo {
				if target == current {
					continue
				}
				gain := links/twoM*2 - resolution*degree[node]*communityDegree[target]/(twoM*twoM)*2 - removalGain
				if gain > bestGain {
					bestGain = gain
					bestCommunity = target
				}
			}

			if bestCommunity != current {
				communityDegree[current] -= degree[node]
				communityDegree[bestCommunity] += degree[node]
				community[node] = bestCommunity
				improved = true
			}
		}
	}

	return buildCommunityResult(snap, d, community, resolution)
}

// singletonCommunities handles the edgeless graph.
func singletonCommunities(snap *GraphSnapshot) *domain.CommunityResult {
	result := &domain.CommunityResult{}
	for i, id := range snap.Nodes {
		result.Communities = append(result.Communities, domain.Community{
			ID:           i,
			Documents:    []string{id},
			DominantTags: topTags(snap, []string{id}),
		})
	}
	return result
}

// buildCommunityResult groups members, computes cohesion, dominant tags
// and the final modularity of the partition.
func buildCommunityResult(snap *GraphSnapshot, d *dense, community []int, resolution float64) *domain.CommunityResult {
	members := make(map[int][]int)
	for node, c := range community {
		members[c] = append(members[c], node)
	}

	result := &domain.CommunityResult{
		Modularity: modularity(d, community, resolution),
	}
	for _, nodes := range members {
		ids := make([]string, len(nodes))
		inCommunity := make(map[int]struct{}, len(nodes))
		for i, node := range nodes {
			ids[i] = d.ids[node]
			inCommunity[node] = struct{}{}
		}
		sort.Strings(ids)

		// Internal edge density over possible member pairs.
		internal := 0
		for _, node := range nodes {
			for _, neighbour := range d.neighbours[node] {
				if _, in := inCommunity[neighbour]; in {
					internal++
				}
			}
		}
		internal /= 2
		cohesion := 0.0
		if pairs := len(nodes) * (len(nodes) - 1) / 2; pairs > 0 {
			cohesion = float64(internal) / float64(pairs)
		}

		result.Communities = append(result.Communities, domain.Community{
			Documents:    ids,
			Cohesion:     cohesion,
			DominantTags: topTags(snap, ids),
		})
	}

	sort.Slice(result.Communities, func(i, j int) bool {
		a, b := result.Communities[i], result.Communities[j]
		if len(a.Documents) != len(b.Documents) {
			return len(a.Documents) > len(b.Documents)
		}
		return a.Documents[0] < b.Documents[0]
	})
	for i := range result.Communities {
		result.Communities[i].ID = i
	}
	return result
}

// modularity evaluates sum(A_ij - r*k_i*k_j/2m)/2m over same-community
// pairs, with r the resolution.
func modularity(d *dense, community []int, resolution float64) float64 {
	var twoM float64
	degree := make([]float64, len(d.ids))
	for i := range d.neighbours {
		degree[i] = float64(len(d.neighbours[i]))
		twoM += degree[i]
	}
	if twoM == 0 {
		return 0
	}

	adjacent := make([]map[int]struct{}, len(d.ids))
	for i, ns := range d.neighbours {
		adjacent[i] = make(map[int]struct{}, len(ns))
		for _, n := range ns {
			adjacent[i][n] = struct{}{}
		}
	}

	var q float64
	for i := range d.ids {
		for j := range d.ids {
			if community[i] != community[j] {
				continue
			}
			a := 0.0
			if _, ok := adjacent[i][j]; ok {
				a = 1.0
			}
			q += a - resolution*degree[i]*degree[j]/twoM
		}
	}
	return q / twoM
}

// topTags returns the most frequent tags across members, ties by name.
func topTags(snap *GraphSnapshot, ids []string) []string {
	counts := make(map[string]int)
	for _, id := range ids {
		for _, tag := range snap.Tags[id] {
			counts[tag]++
		}
	}
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > communityTagLimit {
		tags = tags[:communityTagLimit]
	}
	return tags
}

// --- export rendering ---

// renderDOT writes the Graphviz DOT form.
func renderDOT(export *domain.GraphExport) string {
	var b strings.Builder
	b.WriteString("digraph vault {\n")
	for _, node := range export.Nodes {
		fmt.Fprintf(&b, "  %q [label=%q];\n", node.ID, node.Title)
	}
	for _, edge := range export.Edges {
		fmt.Fprintf(&b, "  %q -> %q;\n", edge.From, edge.To)
	}
	b.WriteString("}\n")
	return b.String()
}

// renderGraphML writes the GraphML XML form.
func renderGraphML(export *domain.GraphExport) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<graphml xmlns="http://graphml.graphdrawing.org/xmlns">` + "\n")
	b.WriteString(`  <key id="title" for="node" attr.name="title" attr.type="string"/>` + "\n")
	b.WriteString(`  <graph id="vault" edgedefault="directed">` + "\n")
	for _, node := range export.Nodes {
		fmt.Fprintf(&b, "    <node id=%q>\n", node.ID)
		fmt.Fprintf(&b, "      <data key=\"title\">%s</data>\n", xmlEscape(node.Title))
		b.WriteString("    </node>\n")
	}
	for _, edge := range export.Edges {
		fmt.Fprintf(&b, "    <edge source=%q target=%q/>\n", edge.From, edge.To)
	}
	b.WriteString("  </graph>\n</graphml>\n")
	return b.String()
}

// xmlEscape escapes the five XML special characters.
func xmlEscape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(s)
}
