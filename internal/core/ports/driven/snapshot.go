package driven

import (
	"context"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

// SnapshotStore persists document records so the index can restore across
// restarts without re-reading the whole vault. It is strictly a cache: the
// ContentStore remains the source of truth, and restored records whose
// modification time disagrees with the live file are re-indexed.
type SnapshotStore interface {
	// SaveDocument stores or replaces one document record with its chunks
	// and embeddings.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// DeleteDocument removes one document record.
	DeleteDocument(ctx context.Context, id string) error

	// LoadAll returns every persisted document record.
	LoadAll(ctx context.Context) ([]domain.Document, error)

	// Clear removes all persisted records.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}
