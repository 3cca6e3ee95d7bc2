package driving

import (
	"context"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

// SearchService answers ranked queries over the indexed documents.
type SearchService interface {
	// Search performs hybrid search: structural filters, then text and
	// (when available) semantic signals merged under the ranking weights.
	// Degrades to the non-semantic signals when no embedder is configured.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// SemanticSearch ranks documents purely by chunk cosine similarity.
	// Fails with domain.ErrEmbeddingUnavailable when no embedder is
	// configured - never an empty list indistinguishable from no matches.
	SemanticSearch(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)

	// TextSearch ranks documents by keyword occurrence only.
	TextSearch(ctx context.Context, query string) ([]domain.SearchResult, error)

	// SetWeights replaces the ranking weights and invalidates caches
	// derived from them.
	SetWeights(weights domain.RankingWeights)
}
