package domain

import "time"

// MatchContext is the number of characters of surrounding context kept
// around a text match span.
const MatchContext = 50

// RankingWeights configures the hybrid score combination. Weights are
// externally configured and need not sum to 1.
type RankingWeights struct {
	// Semantic weights the cosine-similarity signal.
	Semantic float64 `toml:"semantic"`

	// Tags weights query-term overlap with document tags.
	Tags float64 `toml:"tags"`

	// Recency weights freshness of the last modification.
	Recency float64 `toml:"recency"`

	// Backlinks weights the document's PageRank authority.
	Backlinks float64 `toml:"backlinks"`
}

// DefaultRankingWeights returns the weight set used when none is configured.
func DefaultRankingWeights() RankingWeights {
	return RankingWeights{
		Semantic:  0.4,
		Tags:      0.2,
		Recency:   0.2,
		Backlinks: 0.2,
	}
}

// SearchFilters narrows the candidate document set before scoring.
// Zero-valued fields leave the set unchanged.
type SearchFilters struct {
	// Tags restricts candidates by tag membership.
	Tags []string

	// TagMode selects AND/OR combination of Tags (default TagModeAll).
	TagMode TagQueryMode

	// PathPattern is a case-insensitive substring match against document IDs.
	PathPattern string

	// ModifiedAfter keeps documents modified at or after this time.
	ModifiedAfter time.Time

	// ModifiedBefore keeps documents modified at or before this time.
	ModifiedBefore time.Time
}

// Empty reports whether no filter is set.
func (f SearchFilters) Empty() bool {
	return len(f.Tags) == 0 && f.PathPattern == "" &&
		f.ModifiedAfter.IsZero() && f.ModifiedBefore.IsZero()
}

// SearchOptions configures a hybrid search query.
type SearchOptions struct {
	// Filters narrows the candidate set structurally.
	Filters SearchFilters

	// Limit is the maximum number of results (default 20).
	Limit int

	// Threshold drops results scoring below it (0 disables).
	Threshold float64
}

// Match is one text match span with surrounding context.
type Match struct {
	// Term is the matched query term.
	Term string

	// Field is where the match occurred: "content", "title" or "tag".
	Field string

	// Line is the 1-based line of the match for content matches, 0 otherwise.
	Line int

	// Context is the span with up to MatchContext characters either side.
	Context string
}

// SearchResult is a single ranked hit.
type SearchResult struct {
	// ID is the matched document identifier.
	ID string

	// Title is the document display title.
	Title string

	// Score is the final combined relevance score.
	Score float64

	// TextScore is the keyword-signal component before weighting.
	TextScore float64

	// SemanticScore is the best chunk cosine similarity, 0 without embeddings.
	SemanticScore float64

	// Matches are the contributing text match spans.
	Matches []Match

	// Tags are the document's tags.
	Tags []string

	// ModifiedAt is the document's last modification time.
	ModifiedAt time.Time
}
