package services

import (
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

// tagRecord is the internal per-tag bookkeeping state.
type tagRecord struct {
	docs      map[string]struct{}
	co        map[string]int
	createdAt time.Time
	lastSeen  time.Time
	segments  []string
}

// TagIndex maps tags to document sets with hierarchy and co-occurrence
// tracking. It is not safe for concurrent use; the owning IndexService
// serializes access behind its lock.
type TagIndex struct {
	tags map[string]*tagRecord

	// docTags is the reverse map, document -> current tag set.
	docTags map[string][]string
}

// NewTagIndex creates an empty tag index.
func NewTagIndex() *TagIndex {
	return &TagIndex{
		tags:    make(map[string]*tagRecord),
		docTags: make(map[string][]string),
	}
}

// SetDocumentTags replaces a document's tag set. The document is removed
// from every tag not in the new set and added to every tag in it, and the
// co-occurrence counter is incremented for each unordered pair of tags now
// present. Co-occurrence is cumulative corpus history: it is never
// decremented when documents change.
func (t *TagIndex) SetDocumentTags(docID string, tags []string) {
	tags = domain.NormalizeTags(tags)
	now := time.Now()

	next := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		next[tag] = struct{}{}
	}

	// Retract membership for tags no longer present.
	for _, old := range t.docTags[docID] {
		if _, keep := next[old]; keep {
			continue
		}
		if rec, ok := t.tags[old]; ok {
			delete(rec.docs, docID)
			if len(rec.docs) == 0 {
				delete(t.tags, old)
			}
		}
	}

	// Add membership for the new set.
	for _, tag := range tags {
		rec, ok := t.tags[tag]
		if !ok {
			rec = &tagRecord{
				docs:      make(map[string]struct{}),
				co:        make(map[string]int),
				createdAt: now,
				segments:  domain.TagSegments(tag),
			}
			t.tags[tag] = rec
		}
		rec.docs[docID] = struct{}{}
		rec.lastSeen = now
	}

	// Count every unordered pair now present on the document.
	for i := 0; i < len(tags); i++ {
		for j := i + 1; j < len(tags); j++ {
			t.tags[tags[i]].co[tags[j]]++
			t.tags[tags[j]].co[tags[i]]++
		}
	}

	if len(tags) == 0 {
		delete(t.docTags, docID)
	} else {
		t.docTags[docID] = tags
	}
}

// RemoveDocument retracts a document from every tag it carries, pruning
// tags left with zero members.
func (t *TagIndex) RemoveDocument(docID string) {
	for _, tag := range t.docTags[docID] {
		if rec, ok := t.tags[tag]; ok {
			delete(rec.docs, docID)
			if len(rec.docs) == 0 {
				delete(t.tags, tag)
			}
		}
	}
	delete(t.docTags, docID)
}

// DocumentTags returns the current tag set of a document.
func (t *TagIndex) DocumentTags(docID string) []string {
	tags := t.docTags[docID]
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// FilesByTags returns document IDs carrying the given tags. TagModeAll
// intersects the per-tag document sets, TagModeAny unites them. An empty
// tag list returns no documents, not all of them.
func (t *TagIndex) FilesByTags(tags []string, mode domain.TagQueryMode) []string {
	tags = domain.NormalizeTags(tags)
	if len(tags) == 0 {
		return nil
	}

	var result map[string]struct{}
	switch mode {
	case domain.TagModeAny:
		result = make(map[string]struct{})
		for _, tag := range tags {
			if rec, ok := t.tags[tag]; ok {
				for doc := range rec.docs {
					result[doc] = struct{}{}
				}
			}
		}
	default: // TagModeAll
		for i, tag := range tags {
			rec, ok := t.tags[tag]
			if !ok {
				return nil
			}
			if i == 0 {
				result = make(map[string]struct{}, len(rec.docs))
				for doc := range rec.docs {
					result[doc] = struct{}{}
				}
				continue
			}
			for doc := range result {
				if _, member := rec.docs[doc]; !member {
					delete(result, doc)
				}
			}
		}
	}

	docs := make([]string, 0, len(result))
	for doc := range result {
		docs = append(docs, doc)
	}
	sort.Strings(docs)
	return docs
}

// Hierarchy returns the hierarchy segments of a tag.
func (t *TagIndex) Hierarchy(tag string) []string {
	return domain.TagSegments(domain.NormalizeTag(tag))
}

// Children returns indexed tags exactly one hierarchy level deeper that
// share the full parent prefix.
func (t *TagIndex) Children(tag string) []string {
	tag = domain.NormalizeTag(tag)
	prefix := tag + domain.TagSeparator
	depth := len(domain.TagSegments(tag)) + 1

	var children []string
	for name, rec := range t.tags {
		if strings.HasPrefix(name, prefix) && len(rec.segments) == depth {
			children = append(children, name)
		}
	}
	sort.Strings(children)
	return children
}

// Parents returns the chain of hierarchy ancestors of a tag, nearest first.
// Ancestors are reported whether or not they are currently indexed.
func (t *TagIndex) Parents(tag string) []string {
	tag = domain.NormalizeTag(tag)
	var parents []string
	for p := domain.ParentTag(tag); p != ""; p = domain.ParentTag(p) {
		parents = append(parents, p)
	}
	return parents
}

// Suggest ranks candidate tags for a document already carrying
// existingTags. Candidates are ordered by cumulative co-occurrence with the
// given tags; hierarchy neighbours (parents and children of the given tags)
// follow at a fixed lower priority. Tags already present are excluded.
func (t *TagIndex) Suggest(existingTags []string) []string {
	existingTags = domain.NormalizeTags(existingTags)
	existing := make(map[string]struct{}, len(existingTags))
	for _, tag := range existingTags {
		existing[tag] = struct{}{}
	}

	// Co-occurrence candidates.
	counts := make(map[string]int)
	for _, tag := range existingTags {
		rec, ok := t.tags[tag]
		if !ok {
			continue
		}
		for other, n := range rec.co {
			if _, present := existing[other]; present {
				continue
			}
			if _, indexed := t.tags[other]; !indexed {
				continue // pruned tag, stale counter
			}
			counts[other] += n
		}
	}

	ranked := make([]string, 0, len(counts))
	for tag := range counts {
		ranked = append(ranked, tag)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	suggested := make(map[string]struct{}, len(ranked))
	for _, tag := range ranked {
		suggested[tag] = struct{}{}
	}

	// Hierarchy neighbours at lower priority.
	var neighbours []string
	for _, tag := range existingTags {
		for _, p := range t.Parents(tag) {
			if _, indexed := t.tags[p]; indexed {
				neighbours = append(neighbours, p)
			}
		}
		neighbours = append(neighbours, t.Children(tag)...)
	}
	sort.Strings(neighbours)
	for _, tag := range neighbours {
		if _, present := existing[tag]; present {
			continue
		}
		if _, present := suggested[tag]; present {
			continue
		}
		suggested[tag] = struct{}{}
		ranked = append(ranked, tag)
	}

	return ranked
}

// All returns every tag entry in the requested order.
func (t *TagIndex) All(sortBy domain.TagSort) []domain.TagEntry {
	entries := make([]domain.TagEntry, 0, len(t.tags))
	for name, rec := range t.tags {
		docs := make([]string, 0, len(rec.docs))
		for doc := range rec.docs {
			docs = append(docs, doc)
		}
		sort.Strings(docs)

		co := make(map[string]int, len(rec.co))
		for other, n := range rec.co {
			co[other] = n
		}

		segments := make([]string, len(rec.segments))
		copy(segments, rec.segments)

		entries = append(entries, domain.TagEntry{
			Name:         name,
			Documents:    docs,
			CoOccurrence: co,
			CreatedAt:    rec.createdAt,
			LastSeen:     rec.lastSeen,
			Segments:     segments,
		})
	}

	switch sortBy {
	case domain.TagSortCount:
		sort.Slice(entries, func(i, j int) bool {
			if len(entries[i].Documents) != len(entries[j].Documents) {
				return len(entries[i].Documents) > len(entries[j].Documents)
			}
			return entries[i].Name < entries[j].Name
		})
	case domain.TagSortRecent:
		sort.Slice(entries, func(i, j int) bool {
			if !entries[i].LastSeen.Equal(entries[j].LastSeen) {
				return entries[i].LastSeen.After(entries[j].LastSeen)
			}
			return entries[i].Name < entries[j].Name
		})
	default:
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Name < entries[j].Name
		})
	}

	return entries
}

// Prune removes tags left with zero members. Membership updates prune
// eagerly, so this is a safety net for callers mutating in bulk.
func (t *TagIndex) Prune() {
	for name, rec := range t.tags {
		if len(rec.docs) == 0 {
			delete(t.tags, name)
		}
	}
}

// Clear drops all tag state.
func (t *TagIndex) Clear() {
	t.tags = make(map[string]*tagRecord)
	t.docTags = make(map[string][]string)
}
