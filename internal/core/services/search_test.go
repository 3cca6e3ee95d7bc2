package services

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

// newSearchFixture indexes a small vault and returns the search service
// layered over it.
func newSearchFixture(t *testing.T, embedder *fakeEmbedder) (*SearchService, *fakeContentStore) {
	t.Helper()
	store := newFakeContentStore()
	now := time.Now()
	store.put("go-guide.md", "#go a guide to writing servers", now)
	store.put("recipes.md", "#cooking pasta with garlic", now.Add(-48*time.Hour))
	store.put("old-go-notes.md", "#go scattered thoughts", now.Add(-400*24*time.Hour))

	var opts []IndexOption
	if embedder != nil {
		opts = append(opts, WithEmbedder(embedder))
	}
	index := NewIndexService(store, &fakeParser{}, opts...)
	_, err := index.ReindexAll(context.Background())
	require.NoError(t, err)

	if embedder != nil {
		return NewSearchService(index, embedder), store
	}
	return NewSearchService(index, nil), store
}

func TestSearchService_TextSearch_FieldWeights(t *testing.T) {
	svc, _ := newSearchFixture(t, nil)

	// "go" hits go-guide.md in title, tag and content; old-go-notes.md the
	// same; recipes.md not at all.
	results, err := svc.TextSearch(context.Background(), "go")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "go-guide.md", results[0].ID)
	assert.Equal(t, "old-go-notes.md", results[1].ID)

	// Full weight across all three fields scores 1.
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)

	fields := make(map[string]bool)
	for _, m := range results[0].Matches {
		fields[m.Field] = true
	}
	assert.True(t, fields["title"])
	assert.True(t, fields["tag"])
	assert.True(t, fields["content"])
}

func TestSearchService_TextSearch_EmptyQuery(t *testing.T) {
	svc, _ := newSearchFixture(t, nil)
	_, err := svc.TextSearch(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchService_Search_Filters(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSearchFixture(t, nil)

	results, err := svc.Search(ctx, "go", domain.SearchOptions{
		Filters: domain.SearchFilters{PathPattern: "guide"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "go-guide.md", results[0].ID)

	results, err = svc.Search(ctx, "", domain.SearchOptions{
		Filters: domain.SearchFilters{Tags: []string{"cooking"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "recipes.md", results[0].ID)

	recent := time.Now().Add(-7 * 24 * time.Hour)
	results, err = svc.Search(ctx, "go", domain.SearchOptions{
		Filters: domain.SearchFilters{ModifiedAfter: recent},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "go-guide.md", results[0].ID)
}

func TestSearchService_Search_EmptyQueryNoFilters(t *testing.T) {
	svc, _ := newSearchFixture(t, nil)
	_, err := svc.Search(context.Background(), "", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchService_Search_ThresholdAndLimit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSearchFixture(t, nil)

	all, err := svc.Search(ctx, "go", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Greater(t, all[0].Score, all[1].Score)

	// A threshold between the two scores keeps only the stronger hit.
	cutoff := (all[0].Score + all[1].Score) / 2
	filtered, err := svc.Search(ctx, "go", domain.SearchOptions{Threshold: cutoff})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, all[0].ID, filtered[0].ID)

	limited, err := svc.Search(ctx, "go", domain.SearchOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSearchService_Search_RecencyOrdersEqualText(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSearchFixture(t, nil)

	// Both go documents match the term identically in title, tag and
	// content; the fresh one must outrank the year-old one on recency.
	results, err := svc.Search(ctx, "go", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "go-guide.md", results[0].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchService_Search_DegradesWithoutEmbeddingBackend(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{fail: true}
	svc, _ := newSearchFixture(t, embedder)

	// Hybrid search carries on when the query embed fails.
	results, err := svc.Search(ctx, "go", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Zero(t, results[0].SemanticScore)

	// Pure semantic search does not.
	_, err = svc.SemanticSearch(ctx, "go", 10)
	assert.Error(t, err)
}

func TestSearchService_SemanticSearch_NoEmbedder(t *testing.T) {
	svc, _ := newSearchFixture(t, nil)
	_, err := svc.SemanticSearch(context.Background(), "go", 10)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

// newSemanticFixture indexes one near-perfect and one weak match for the
// query "alpha topic" and embeds both.
func newSemanticFixture(t *testing.T) (*IndexService, *fakeEmbedder) {
	t.Helper()
	ctx := context.Background()
	store := newFakeContentStore()
	now := time.Now()
	store.put("strong.md", "alpha", now)
	store.put("weak.md", "beta", now)

	// cosine(strong, query) = 1; cosine(weak, query) = 1/sqrt(82) ~ 0.11.
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"alpha":       {1, 0, 0},
		"beta":        {1, 9, 0},
		"alpha topic": {1, 0, 0},
	}}
	index := NewIndexService(store, &fakeParser{}, WithEmbedder(embedder))
	_, err := index.ReindexAll(ctx)
	require.NoError(t, err)
	require.NoError(t, index.EnsureEmbeddings(ctx, "strong.md"))
	require.NoError(t, index.EnsureEmbeddings(ctx, "weak.md"))
	return index, embedder
}

func TestSearchService_SemanticSearch_FiltersBelowThreshold(t *testing.T) {
	index, embedder := newSemanticFixture(t)
	svc := NewSearchService(index, embedder)

	// weak.md sits under the default cut-off and must not surface.
	results, err := svc.SemanticSearch(context.Background(), "alpha topic", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "strong.md", results[0].ID)
}

func TestSearchService_SemanticSearch_ThresholdMonotonic(t *testing.T) {
	ctx := context.Background()
	index, embedder := newSemanticFixture(t)

	loose := NewSearchService(index, embedder, WithSimilarityThreshold(0.05))
	looseResults, err := loose.SemanticSearch(ctx, "alpha topic", 10)
	require.NoError(t, err)
	require.Len(t, looseResults, 2)

	strict := NewSearchService(index, embedder, WithSimilarityThreshold(0.5))
	strictResults, err := strict.SemanticSearch(ctx, "alpha topic", 10)
	require.NoError(t, err)
	require.Len(t, strictResults, 1)

	// Raising the threshold only ever narrows the result set.
	looseIDs := make(map[string]struct{})
	for _, r := range looseResults {
		looseIDs[r.ID] = struct{}{}
	}
	for _, r := range strictResults {
		assert.Contains(t, looseIDs, r.ID)
	}
}

func TestSearchService_Search_ScoreIsWeightedSignalsOnly(t *testing.T) {
	ctx := context.Background()
	store := newFakeContentStore()
	store.put("alpha.md", "alpha body", time.Now())

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"alpha body":  {1, 0, 0},
		"alpha query": {1, 0, 0},
	}}
	index := NewIndexService(store, &fakeParser{}, WithEmbedder(embedder))
	_, err := index.ReindexAll(ctx)
	require.NoError(t, err)
	require.NoError(t, index.EnsureEmbeddings(ctx, "alpha.md"))

	svc := NewSearchService(index, embedder)
	svc.SetWeights(domain.RankingWeights{Semantic: 1})

	// A perfect semantic match under weight 1 scores exactly 1: the
	// keyword score gates the candidate but does not pile on top.
	results, err := svc.Search(ctx, "alpha query", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].SemanticScore, 1e-9)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Positive(t, results[0].TextScore)
}

func TestSearchService_SetWeights(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSearchFixture(t, nil)

	// With only the tag weight active, the score is the tag overlap.
	svc.SetWeights(domain.RankingWeights{Tags: 1})
	results, err := svc.Search(ctx, "go", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.InDelta(t, 1.0, r.Score, 1e-9)
	}
}

func TestCosineSimilarity(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	sim, err = CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.Zero(t, sim)

	_, err = CosineSimilarity([]float32{1}, []float32{1, 2})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestScoreText_CapsAtOne(t *testing.T) {
	doc := &domain.Document{
		ID:           "go.md",
		Metadata:     map[string]any{"title": "go go go"},
		PlainContent: "go everywhere",
		Tags:         []string{"go"},
	}
	score, _ := scoreText(doc, []string{"go"})
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestScoreText_SingleTermContentMatchScoresFull(t *testing.T) {
	doc := &domain.Document{
		ID:           "notes.md",
		Metadata:     map[string]any{"title": "weekly sync"},
		PlainContent: "the garden needs water",
	}

	// One term, one content hit: 1/1, capped at 1.
	score, matches := scoreText(doc, []string{"garden"})
	assert.InDelta(t, 1.0, score, 1e-9)
	require.Len(t, matches, 1)
	assert.Equal(t, "content", matches[0].Field)

	// A second unmatched term halves the average.
	score, _ = scoreText(doc, []string{"garden", "rocket"})
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestScoreText_MatchContextValidUTF8(t *testing.T) {
	doc := &domain.Document{
		ID:           "cjk.md",
		PlainContent: strings.Repeat("語", 40) + " needle " + strings.Repeat("語", 40),
	}

	// The context window lands mid-rune on both sides; the slice must
	// still be valid UTF-8.
	score, matches := scoreText(doc, []string{"needle"})
	require.NotZero(t, score)
	require.NotEmpty(t, matches)
	for _, m := range matches {
		if m.Field != "content" {
			continue
		}
		assert.True(t, utf8.ValidString(m.Context))
		assert.Contains(t, m.Context, "needle")
	}
}
