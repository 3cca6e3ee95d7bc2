package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleDocument() *domain.Document {
	return &domain.Document{
		ID:           "notes/a.md",
		ModifiedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ContentHash:  0xdeadbeefcafef00d,
		Metadata:     map[string]any{"title": "A Note"},
		Content:      "---\ntitle: A Note\n---\n# A\nbody #go\n",
		PlainContent: "A\nbody go",
		Tags:         []string{"go"},
		Links: []domain.LinkRef{
			{Source: "notes/a.md", Target: "notes/b.md", Display: "b", Line: 5, Kind: domain.LinkKindReference},
		},
		Chunks: []domain.Chunk{
			{ID: "c1", DocumentID: "notes/a.md", Content: "body", Position: 0, Heading: "A",
				Embedding: []float32{0.25, -1.5, 3}},
		},
		IndexedAt: time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
	}
}

func TestStore_SaveAndLoadAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	doc := sampleDocument()
	require.NoError(t, store.SaveDocument(ctx, doc))

	docs, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	got := docs[0]
	assert.Equal(t, doc.ID, got.ID)
	assert.True(t, got.ModifiedAt.Equal(doc.ModifiedAt))
	assert.Equal(t, doc.ContentHash, got.ContentHash)
	assert.Equal(t, "A Note", got.Metadata["title"])
	assert.Equal(t, doc.Tags, got.Tags)
	assert.Equal(t, doc.Links, got.Links)
	require.Len(t, got.Chunks, 1)
	assert.Equal(t, doc.Chunks[0].Embedding, got.Chunks[0].Embedding)
	assert.Equal(t, "A", got.Chunks[0].Heading)
}

func TestStore_SaveReplacesChunks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	doc := sampleDocument()
	require.NoError(t, store.SaveDocument(ctx, doc))

	doc.Chunks = []domain.Chunk{
		{ID: "c2", DocumentID: doc.ID, Content: "rewritten", Position: 0},
	}
	require.NoError(t, store.SaveDocument(ctx, doc))

	docs, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Len(t, docs[0].Chunks, 1)
	assert.Equal(t, "c2", docs[0].Chunks[0].ID)
	assert.Nil(t, docs[0].Chunks[0].Embedding)
}

func TestStore_DeleteDocumentCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.SaveDocument(ctx, sampleDocument()))
	require.NoError(t, store.DeleteDocument(ctx, "notes/a.md"))

	docs, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	// Deleting an absent document is a no-op.
	require.NoError(t, store.DeleteDocument(ctx, "notes/a.md"))
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	doc := sampleDocument()
	require.NoError(t, store.SaveDocument(ctx, doc))
	doc.ID = "notes/b.md"
	require.NoError(t, store.SaveDocument(ctx, doc))

	require.NoError(t, store.Clear(ctx))
	docs, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveDocument(ctx, sampleDocument()))
	require.NoError(t, store.Close())

	// Reopening runs migrations idempotently and sees the saved record.
	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	docs, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestFloat32BlobRoundTrip(t *testing.T) {
	in := []float32{0, -0.5, 1.25, 3.4e38}
	out := bytesToFloat32Slice(float32SliceToBytes(in))
	assert.Equal(t, in, out)

	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
