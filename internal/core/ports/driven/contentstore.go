package driven

import (
	"context"
	"time"
)

// FileInfo carries the stat fields the index cares about.
type FileInfo struct {
	// ModifiedAt is the file's last modification time.
	ModifiedAt time.Time

	// Size is the file size in bytes.
	Size int64
}

// ContentStore provides raw document bytes and modification timestamps.
// It is the source of truth: in-memory structures are always rebuildable
// from it, and it wins on any discrepancy with persisted snapshots.
type ContentStore interface {
	// Exists reports whether a document currently exists.
	Exists(ctx context.Context, id string) (bool, error)

	// Read returns the raw bytes of a document.
	// Returns domain.ErrNotFound if the document does not exist.
	Read(ctx context.Context, id string) ([]byte, error)

	// Stat returns modification time and size for a document.
	// Returns domain.ErrNotFound if the document does not exist.
	Stat(ctx context.Context, id string) (*FileInfo, error)

	// List returns every indexable document ID in the vault.
	List(ctx context.Context) ([]string, error)
}
