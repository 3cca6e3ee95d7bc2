package driving

import (
	"context"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

// ReindexReport summarises a full reindex batch.
type ReindexReport struct {
	// Indexed counts successfully indexed documents.
	Indexed int

	// Failures lists per-document errors. The batch completes regardless.
	Failures []*domain.IndexError
}

// IndexService maintains the authoritative document records and keeps the
// tag and link indexes synchronized with them.
type IndexService interface {
	// IndexDocument reads, parses and (re)indexes one document.
	// Skipped when the stored record is at least as new as the file.
	IndexDocument(ctx context.Context, id string) error

	// RemoveDocument deletes a document and retracts its tags and links.
	// No-op if the document was never indexed.
	RemoveDocument(ctx context.Context, id string) error

	// ReindexAll clears every structure and rebuilds from the vault listing.
	// Per-document failures are collected, not fatal.
	ReindexAll(ctx context.Context) (*ReindexReport, error)

	// EnsureEmbeddings lazily computes missing chunk embeddings.
	EnsureEmbeddings(ctx context.Context, id string) error

	// GetDocument returns a snapshot of one document record.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns snapshots of every document record.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// FindByTag returns documents carrying the tags under the given mode.
	FindByTag(ctx context.Context, tags []string, mode domain.TagQueryMode) ([]string, error)

	// AllTags lists every tag entry in the requested order.
	AllTags(ctx context.Context, sortBy domain.TagSort) ([]domain.TagEntry, error)

	// SuggestTags ranks candidate tags for a document already carrying
	// existingTags, co-occurrence first, hierarchy neighbours after.
	SuggestTags(ctx context.Context, existingTags []string) ([]string, error)

	// Watch consumes change events until the channel closes or the context
	// is cancelled, applying each to the index.
	Watch(ctx context.Context, events <-chan domain.ChangeEvent) error
}
