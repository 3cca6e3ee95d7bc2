package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
	"github.com/custodia-labs/vaultgraph/internal/core/ports/driven"
	"github.com/custodia-labs/vaultgraph/internal/core/ports/driving"
	"github.com/custodia-labs/vaultgraph/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

const (
	// defaultSearchLimit applies when options carry no limit.
	defaultSearchLimit = 20

	// pageRankTTL bounds how long cached authority scores are reused.
	pageRankTTL = 5 * time.Minute

	// Field weights for the keyword signal.
	contentMatchWeight = 1.0
	tagMatchWeight     = 2.0
	titleMatchWeight   = 3.0

	// recencyHorizonDays is the age at which the recency signal reaches zero.
	recencyHorizonDays = 365
)

// SearchService ranks documents by keyword, semantic and structural
// signals. The embedder is optional; without one, hybrid search degrades
// to the non-semantic signals and SemanticSearch fails loudly.
type SearchService struct {
	index     *IndexService
	embedder  driven.EmbeddingService
	threshold float64

	mu      sync.Mutex
	weights domain.RankingWeights

	// PageRank is recomputed at most once per TTL window. SetWeights
	// drops the cache so weight changes take effect immediately.
	ranks     map[string]float64
	ranksFrom time.Time
}

// SearchOption configures the search service.
type SearchOption func(*SearchService)

// WithSimilarityThreshold sets the cosine cut-off below which semantic
// matches are discarded.
func WithSimilarityThreshold(threshold float64) SearchOption {
	return func(s *SearchService) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// NewSearchService creates a search service. embedder may be nil.
func NewSearchService(index *IndexService, embedder driven.EmbeddingService, opts ...SearchOption) *SearchService {
	s := &SearchService{
		index:     index,
		embedder:  embedder,
		threshold: domain.DefaultSimilarityThreshold,
		weights:   domain.DefaultRankingWeights(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetWeights replaces the ranking weights and invalidates derived caches.
func (s *SearchService) SetWeights(weights domain.RankingWeights) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights = weights
	s.ranks = nil
	s.ranksFrom = time.Time{}
}

// currentWeights returns the active weight set.
func (s *SearchService) currentWeights() domain.RankingWeights {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weights
}

// pageRank returns authority scores, reusing a cached computation within
// the TTL window.
func (s *SearchService) pageRank() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ranks != nil && time.Since(s.ranksFrom) < pageRankTTL {
		return s.ranks
	}
	s.ranks = s.index.PageRank()
	s.ranksFrom = time.Now()
	return s.ranks
}

// TextSearch ranks documents by keyword occurrence only. Results are
// ordered by score descending, ties broken by ID.
func (s *SearchService) TextSearch(ctx context.Context, query string) ([]domain.SearchResult, error) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("text search: %w: empty query", domain.ErrInvalidInput)
	}

	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}

	var results []domain.SearchResult
	for i := range docs {
		doc := &docs[i]
		score, matches := scoreText(doc, terms)
		if score == 0 {
			continue
		}
		results = append(results, domain.SearchResult{
			ID:         doc.ID,
			Title:      doc.Title(),
			Score:      score,
			TextScore:  score,
			Matches:    matches,
			Tags:       doc.Tags,
			ModifiedAt: doc.ModifiedAt,
		})
	}
	sortResults(results)
	return results, nil
}

// SemanticSearch ranks documents purely by chunk cosine similarity.
// Matches below the similarity threshold are discarded.
func (s *SearchService) SemanticSearch(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("semantic search: %w", domain.ErrEmbeddingUnavailable)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("semantic search: %w: empty query", domain.ErrInvalidInput)
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("semantic search: embed query: %w", err)
	}

	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	var results []domain.SearchResult
	for i := range docs {
		doc := &docs[i]
		best, err := bestChunkSimilarity(doc, queryVec)
		if err != nil {
			return nil, fmt.Errorf("semantic search: document %s: %w", doc.ID, err)
		}
		if best <= 0 || best < s.threshold {
			continue
		}
		results = append(results, domain.SearchResult{
			ID:            doc.ID,
			Title:         doc.Title(),
			Score:         best,
			SemanticScore: best,
			Tags:          doc.Tags,
			ModifiedAt:    doc.ModifiedAt,
		})
	}
	sortResults(results)
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// Search performs hybrid search: structural filters first, then keyword
// and (when an embedder is configured) semantic matching gate the
// candidates; the final score combines the weighted semantic, tag
// overlap, recency and link authority signals.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	terms := queryTerms(query)
	if len(terms) == 0 && opts.Filters.Empty() {
		return nil, fmt.Errorf("search: %w: empty query and no filters", domain.ErrInvalidInput)
	}

	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	docs, err = s.applyFilters(ctx, docs, opts.Filters)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var queryVec []float32
	if s.embedder != nil && len(terms) > 0 {
		queryVec, err = s.embedder.Embed(ctx, query)
		if err != nil {
			// Semantic signal is best-effort in hybrid mode.
			logger.Warn("search: embed query failed, continuing without semantic signal: %v", err)
			queryVec = nil
		}
	}

	weights := s.currentWeights()
	ranks := map[string]float64{}
	if weights.Backlinks > 0 {
		ranks = s.pageRank()
	}
	now := time.Now()

	var results []domain.SearchResult
	for i := range docs {
		doc := &docs[i]
		textScore, matches := scoreText(doc, terms)
		if len(terms) > 0 && textScore == 0 && queryVec == nil {
			continue
		}

		var semantic float64
		if queryVec != nil {
			semantic, err = bestChunkSimilarity(doc, queryVec)
			if err != nil {
				return nil, fmt.Errorf("search: document %s: %w", doc.ID, err)
			}
			if textScore == 0 && semantic <= 0 {
				continue
			}
		}

		score := weights.Semantic*semantic +
			weights.Tags*tagOverlap(doc.Tags, terms) +
			weights.Recency*recencyScore(now, doc.ModifiedAt) +
			weights.Backlinks*ranks[doc.ID]

		if opts.Threshold > 0 && score < opts.Threshold {
			continue
		}
		results = append(results, domain.SearchResult{
			ID:            doc.ID,
			Title:         doc.Title(),
			Score:         score,
			TextScore:     textScore,
			SemanticScore: semantic,
			Matches:       matches,
			Tags:          doc.Tags,
			ModifiedAt:    doc.ModifiedAt,
		})
	}
	sortResults(results)

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// applyFilters narrows candidates by tags, path pattern and modification
// window.
func (s *SearchService) applyFilters(ctx context.Context, docs []domain.Document, filters domain.SearchFilters) ([]domain.Document, error) {
	if filters.Empty() {
		return docs, nil
	}

	var allowed map[string]struct{}
	if len(filters.Tags) > 0 {
		mode := filters.TagMode
		if mode == "" {
			mode = domain.TagModeAll
		}
		ids, err := s.index.FindByTag(ctx, filters.Tags, mode)
		if err != nil {
			return nil, err
		}
		allowed = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			allowed[id] = struct{}{}
		}
	}

	pattern := strings.ToLower(filters.PathPattern)
	filtered := docs[:0]
	for _, doc := range docs {
		if allowed != nil {
			if _, ok := allowed[doc.ID]; !ok {
				continue
			}
		}
		if pattern != "" && !strings.Contains(strings.ToLower(doc.ID), pattern) {
			continue
		}
		if !filters.ModifiedAfter.IsZero() && doc.ModifiedAt.Before(filters.ModifiedAfter) {
			continue
		}
		if !filters.ModifiedBefore.IsZero() && doc.ModifiedAt.After(filters.ModifiedBefore) {
			continue
		}
		filtered = append(filtered, doc)
	}
	return filtered, nil
}

// queryTerms lowercases and splits the query into whitespace-separated terms.
func queryTerms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// scoreText computes the keyword score for one document: per term, title
// matches weigh 3, tag matches 2, content matches 1; the per-term sum is
// averaged over the term count and capped at 1.
func scoreText(doc *domain.Document, terms []string) (float64, []domain.Match) {
	if len(terms) == 0 {
		return 0, nil
	}

	title := strings.ToLower(doc.Title())
	content := strings.ToLower(doc.PlainContent)

	var total float64
	var matches []domain.Match
	for _, term := range terms {
		var termScore float64
		if strings.Contains(title, term) {
			termScore += titleMatchWeight
			matches = append(matches, domain.Match{
				Term:    term,
				Field:   "title",
				Context: doc.Title(),
			})
		}
		for _, tag := range doc.Tags {
			if strings.Contains(tag, term) {
				termScore += tagMatchWeight
				matches = append(matches, domain.Match{
					Term:    term,
					Field:   "tag",
					Context: tag,
				})
				break
			}
		}
		if idx := strings.Index(content, term); idx >= 0 {
			termScore += contentMatchWeight
			matches = append(matches, domain.Match{
				Term:    term,
				Field:   "content",
				Line:    lineOfOffset(content, idx),
				Context: matchContext(content, idx, len(term)),
			})
		}
		total += termScore
	}

	score := total / float64(len(terms))
	if score > 1 {
		score = 1
	}
	return score, matches
}

// lineOfOffset returns the 1-based line number containing a byte offset.
func lineOfOffset(text string, offset int) int {
	return 1 + strings.Count(text[:offset], "\n")
}

// matchContext extracts the matched span with up to MatchContext bytes on
// either side. The window edges are snapped to rune boundaries so the
// slice is always valid UTF-8. offset must be an offset into text itself.
func matchContext(text string, offset, length int) string {
	start := offset - domain.MatchContext
	if start < 0 {
		start = 0
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	end := offset + length + domain.MatchContext
	if end > len(text) {
		end = len(text)
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return strings.TrimSpace(text[start:end])
}

// tagOverlap is the fraction of query terms appearing in the document's
// tags.
func tagOverlap(tags, terms []string) float64 {
	if len(terms) == 0 || len(tags) == 0 {
		return 0
	}
	matched := 0
	for _, term := range terms {
		for _, tag := range tags {
			if strings.Contains(tag, term) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(terms))
}

// recencyScore decays linearly from 1 to 0 over the horizon.
func recencyScore(now, modified time.Time) float64 {
	if modified.IsZero() {
		return 0
	}
	days := now.Sub(modified).Hours() / 24
	score := 1 - days/recencyHorizonDays
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// bestChunkSimilarity returns the maximum cosine similarity between the
// query vector and any embedded chunk of the document, 0 when the
// document carries no embeddings.
func bestChunkSimilarity(doc *domain.Document, queryVec []float32) (float64, error) {
	var best float64
	for _, chunk := range doc.Chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		sim, err := CosineSimilarity(queryVec, chunk.Embedding)
		if err != nil {
			return 0, err
		}
		if sim > best {
			best = sim
		}
	}
	return best, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched dimensions fail with domain.ErrDimensionMismatch rather than
// silently scoring zero.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrDimensionMismatch, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// sortResults orders by score descending, ties broken by ID ascending.
func sortResults(results []domain.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}
