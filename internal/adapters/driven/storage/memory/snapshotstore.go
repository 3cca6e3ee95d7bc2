// Package memory provides in-memory implementations of driven port
// interfaces, for tests and ephemeral runs where persistence across
// restarts is not wanted.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
	"github.com/custodia-labs/vaultgraph/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore keeps document records in a map. Safe for concurrent use.
type SnapshotStore struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

// NewSnapshotStore creates an empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		docs: make(map[string]domain.Document),
	}
}

// SaveDocument stores or replaces one document record.
func (s *SnapshotStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = *doc
	return nil
}

// DeleteDocument removes one document record.
func (s *SnapshotStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

// LoadAll returns every stored document record.
func (s *SnapshotStore) LoadAll(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

// Clear removes all stored records.
func (s *SnapshotStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]domain.Document)
	return nil
}

// Close releases resources.
func (s *SnapshotStore) Close() error {
	return nil
}

// Len reports the stored document count.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
