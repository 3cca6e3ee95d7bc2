package domain

import (
	"strings"
	"time"
)

// TagSeparator splits hierarchical tags ("project/go/testing").
const TagSeparator = "/"

// TagQueryMode selects how multiple tags combine in a query.
type TagQueryMode string

// Tag query modes.
const (
	// TagModeAll requires documents to carry every tag (set intersection).
	TagModeAll TagQueryMode = "all"

	// TagModeAny accepts documents carrying at least one tag (set union).
	TagModeAny TagQueryMode = "any"
)

// IsValid returns true if the tag query mode is recognised.
func (m TagQueryMode) IsValid() bool {
	switch m {
	case TagModeAll, TagModeAny:
		return true
	default:
		return false
	}
}

// TagSort selects the ordering for tag listings.
type TagSort string

// Tag sort orders.
const (
	// TagSortName orders tags lexicographically.
	TagSortName TagSort = "name"

	// TagSortCount orders tags by descending document count.
	TagSortCount TagSort = "count"

	// TagSortRecent orders tags by most recent use.
	TagSortRecent TagSort = "recent"
)

// TagEntry is the per-tag bookkeeping record exposed by listings.
type TagEntry struct {
	// Name is the normalized tag.
	Name string

	// Documents is the set of document IDs currently carrying the tag.
	Documents []string

	// CoOccurrence maps co-occurring tag to a cumulative count. The count is
	// incremented whenever both tags appear together on a document and never
	// decremented, so it reflects corpus history rather than current state.
	CoOccurrence map[string]int

	// CreatedAt is when the tag was first seen.
	CreatedAt time.Time

	// LastSeen is when the tag was last applied to a document.
	LastSeen time.Time

	// Segments is the hierarchy split ("a/b/c" -> [a b c]).
	Segments []string
}

// NormalizeTag case-folds and whitespace-normalizes a tag. Leading "#" is
// stripped so inline and frontmatter forms collapse to one entry. Returns ""
// for tags that are empty after normalization.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "#")
	tag = strings.ToLower(tag)
	tag = strings.Join(strings.Fields(tag), "-")
	return strings.Trim(tag, TagSeparator)
}

// NormalizeTags normalizes a tag list, dropping empties and duplicates while
// preserving first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// TagSegments splits a normalized tag on the hierarchy separator.
func TagSegments(tag string) []string {
	if tag == "" {
		return nil
	}
	return strings.Split(tag, TagSeparator)
}

// ParentTag returns the immediate hierarchy parent of a tag, or "" for
// top-level tags.
func ParentTag(tag string) string {
	idx := strings.LastIndex(tag, TagSeparator)
	if idx < 0 {
		return ""
	}
	return tag[:idx]
}
