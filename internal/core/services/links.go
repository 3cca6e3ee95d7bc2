package services

import (
	"sort"
	"strings"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

// maxBrokenLinkSuggestions bounds replacement suggestions per broken link.
const maxBrokenLinkSuggestions = 5

// LinkIndex is the bidirectional link graph between documents. It tracks
// the set of known documents in discovery order so broken-link suggestions
// and PageRank operate without reaching back into the document index.
//
// Not safe for concurrent use; the owning IndexService serializes access.
type LinkIndex struct {
	outgoing map[string][]domain.LinkRef

	// incoming is keyed by target ID whether or not that document exists,
	// so backlinks survive a target being created after its referrers.
	incoming map[string][]domain.LinkRef

	docs  map[string]struct{}
	order []string // document discovery order
}

// NewLinkIndex creates an empty link index.
func NewLinkIndex() *LinkIndex {
	return &LinkIndex{
		outgoing: make(map[string][]domain.LinkRef),
		incoming: make(map[string][]domain.LinkRef),
		docs:     make(map[string]struct{}),
	}
}

// AddDocument registers a document as existing. Idempotent.
func (l *LinkIndex) AddDocument(id string) {
	if _, ok := l.docs[id]; ok {
		return
	}
	l.docs[id] = struct{}{}
	l.order = append(l.order, id)
}

// RemoveDocument unregisters a document, retracting its outgoing links and
// their reciprocal incoming entries. Incoming entries pointing at the
// removed document are kept: they reflect live links in other documents,
// which are now broken.
func (l *LinkIndex) RemoveDocument(id string) {
	l.retractOutgoing(id)
	delete(l.outgoing, id)
	if _, ok := l.docs[id]; ok {
		delete(l.docs, id)
		for i, d := range l.order {
			if d == id {
				l.order = append(l.order[:i], l.order[i+1:]...)
				break
			}
		}
	}
}

// SetOutgoingLinks replaces a document's outgoing links. Prior links and
// their reciprocal incoming entries are retracted before the new set and
// its reciprocals are inserted, so both directions always agree.
func (l *LinkIndex) SetOutgoingLinks(id string, links []domain.LinkRef) {
	l.AddDocument(id)
	l.retractOutgoing(id)

	stored := make([]domain.LinkRef, len(links))
	copy(stored, links)
	for i := range stored {
		stored[i].Source = id
	}

	if len(stored) == 0 {
		delete(l.outgoing, id)
		return
	}
	l.outgoing[id] = stored
	for _, link := range stored {
		l.incoming[link.Target] = append(l.incoming[link.Target], link)
	}
}

// retractOutgoing removes the reciprocal incoming entries of a document's
// current outgoing links.
func (l *LinkIndex) retractOutgoing(id string) {
	for _, link := range l.outgoing[id] {
		in := l.incoming[link.Target]
		kept := in[:0]
		for _, ref := range in {
			if ref.Source != id {
				kept = append(kept, ref)
			}
		}
		if len(kept) == 0 {
			delete(l.incoming, link.Target)
		} else {
			l.incoming[link.Target] = kept
		}
	}
}

// Outgoing returns a copy of a document's outgoing links.
func (l *LinkIndex) Outgoing(id string) []domain.LinkRef {
	links := l.outgoing[id]
	out := make([]domain.LinkRef, len(links))
	copy(out, links)
	return out
}

// Incoming returns a copy of a document's incoming links (backlinks).
func (l *LinkIndex) Incoming(id string) []domain.LinkRef {
	links := l.incoming[id]
	out := make([]domain.LinkRef, len(links))
	copy(out, links)
	return out
}

// BrokenLinks returns every outgoing link whose target is not a known
// document, with up to five replacement suggestions chosen by
// case-insensitive substring containment against known IDs, ties broken by
// discovery order. Broken links are reported in document discovery order.
func (l *LinkIndex) BrokenLinks() []domain.BrokenLink {
	var broken []domain.BrokenLink
	for _, id := range l.order {
		for _, link := range l.outgoing[id] {
			if _, ok := l.docs[link.Target]; ok {
				continue
			}
			broken = append(broken, domain.BrokenLink{
				Link:        link,
				Suggestions: l.suggestTargets(link.Target),
			})
		}
	}
	return broken
}

// suggestTargets finds known IDs containing the broken target's base name.
func (l *LinkIndex) suggestTargets(target string) []string {
	needle := strings.ToLower(target)
	// Match against the name without directory or extension too, since
	// broken links usually carry a stale path rather than a stale name.
	if idx := strings.LastIndex(needle, "/"); idx >= 0 {
		needle = needle[idx+1:]
	}
	needle = strings.TrimSuffix(needle, ".md")
	if needle == "" {
		return nil
	}

	var suggestions []string
	for _, id := range l.order {
		if strings.Contains(strings.ToLower(id), needle) {
			suggestions = append(suggestions, id)
			if len(suggestions) == maxBrokenLinkSuggestions {
				break
			}
		}
	}
	return suggestions
}

// Orphaned returns known documents with zero incoming links, in discovery
// order.
func (l *LinkIndex) Orphaned() []string {
	var orphans []string
	for _, id := range l.order {
		if len(l.incoming[id]) == 0 {
			orphans = append(orphans, id)
		}
	}
	return orphans
}

// neighbours returns the undirected neighbour set of a document: targets of
// its outgoing links plus sources of its incoming links, existing documents
// only, deduplicated and sorted for deterministic traversal.
func (l *LinkIndex) neighbours(id string) []string {
	seen := make(map[string]struct{})
	for _, link := range l.outgoing[id] {
		if _, ok := l.docs[link.Target]; ok && link.Target != id {
			seen[link.Target] = struct{}{}
		}
	}
	for _, link := range l.incoming[id] {
		if _, ok := l.docs[link.Source]; ok && link.Source != id {
			seen[link.Source] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Related walks the undirected graph breadth-first from a document,
// returning each reached document's minimum hop distance. The origin is
// excluded and expansion stops at maxHops.
func (l *LinkIndex) Related(id string, maxHops int) map[string]int {
	distances := make(map[string]int)
	if maxHops <= 0 {
		return distances
	}
	visited := map[string]struct{}{id: {}}
	frontier := []string{id}

	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, current := range frontier {
			for _, n := range l.neighbours(current) {
				if _, ok := visited[n]; ok {
					continue
				}
				visited[n] = struct{}{}
				distances[n] = hop
				next = append(next, n)
			}
		}
		frontier = next
	}
	return distances
}

// ShortestPath finds the shortest undirected path between two documents
// within maxDepth edges using breadth-first search with predecessor
// pointers. Returns domain.ErrPathNotFound when no such path exists.
func (l *LinkIndex) ShortestPath(from, to string, maxDepth int) ([]string, error) {
	if _, ok := l.docs[from]; !ok {
		return nil, domain.ErrNotFound
	}
	if _, ok := l.docs[to]; !ok {
		return nil, domain.ErrNotFound
	}
	if from == to {
		return []string{from}, nil
	}

	predecessor := map[string]string{from: ""}
	frontier := []string{from}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, current := range frontier {
			for _, n := range l.neighbours(current) {
				if _, seen := predecessor[n]; seen {
					continue
				}
				predecessor[n] = current
				if n == to {
					return reconstructPath(predecessor, from, to), nil
				}
				next = append(next, n)
			}
		}
		frontier = next
	}
	return nil, domain.ErrPathNotFound
}

// reconstructPath walks predecessor pointers back from the target.
func reconstructPath(predecessor map[string]string, from, to string) []string {
	var reversed []string
	for current := to; current != ""; current = predecessor[current] {
		reversed = append(reversed, current)
		if current == from {
			break
		}
	}
	path := make([]string, len(reversed))
	for i, node := range reversed {
		path[len(reversed)-1-i] = node
	}
	return path
}

// PageRank computes authority scores over the directed link graph with the
// classic iterative formulation: every document starts at 1/N; each
// iteration distributes (1-damping)/N uniformly plus each document's rank
// times damping split evenly among its distinct existing targets.
// Documents with no outgoing links contribute nothing - their mass is
// dropped, not redistributed. The iteration count is fixed; there is no
// convergence check.
func (l *LinkIndex) PageRank(iterations int, damping float64) map[string]float64 {
	n := len(l.docs)
	if n == 0 {
		return map[string]float64{}
	}

	// Distinct existing targets per document, self-links excluded.
	targets := make(map[string][]string, n)
	for id := range l.docs {
		seen := make(map[string]struct{})
		for _, link := range l.outgoing[id] {
			if _, ok := l.docs[link.Target]; !ok || link.Target == id {
				continue
			}
			seen[link.Target] = struct{}{}
		}
		out := make([]string, 0, len(seen))
		for t := range seen {
			out = append(out, t)
		}
		targets[id] = out
	}

	rank := make(map[string]float64, n)
	for id := range l.docs {
		rank[id] = 1.0 / float64(n)
	}

	base := (1.0 - damping) / float64(n)
	for i := 0; i < iterations; i++ {
		next := make(map[string]float64, n)
		for id := range l.docs {
			next[id] = base
		}
		for id, outs := range targets {
			if len(outs) == 0 {
				continue
			}
			share := rank[id] * damping / float64(len(outs))
			for _, t := range outs {
				next[t] += share
			}
		}
		rank = next
	}
	return rank
}

// Documents returns the known document IDs in discovery order.
func (l *LinkIndex) Documents() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Clear drops all link state.
func (l *LinkIndex) Clear() {
	l.outgoing = make(map[string][]domain.LinkRef)
	l.incoming = make(map[string][]domain.LinkRef)
	l.docs = make(map[string]struct{})
	l.order = nil
}
