package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

func TestIndexService_IndexDocument(t *testing.T) {
	ctx := context.Background()
	store := newFakeContentStore()
	store.put("a.md", "#go notes linking to [[b.md]]", time.Now())

	svc := NewIndexService(store, &fakeParser{})
	require.NoError(t, svc.IndexDocument(ctx, "a.md"))

	doc, err := svc.GetDocument(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, doc.Tags)
	require.Len(t, doc.Links, 1)
	assert.Equal(t, "b.md", doc.Links[0].Target)

	ids, err := svc.FindByTag(ctx, []string{"go"}, domain.TagModeAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, ids)

	// b.md does not exist, so the link is broken.
	broken := svc.BrokenLinks()
	require.Len(t, broken, 1)
	assert.Equal(t, "b.md", broken[0].Link.Target)
}

func TestIndexService_IndexDocument_SkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newFakeContentStore()
	modified := time.Now()
	store.put("a.md", "stable content", modified)

	parser := &fakeParser{}
	svc := NewIndexService(store, parser)

	require.NoError(t, svc.IndexDocument(ctx, "a.md"))
	require.NoError(t, svc.IndexDocument(ctx, "a.md"))
	assert.Equal(t, 1, parser.countCalls())

	// A newer modification time forces a re-parse.
	store.put("a.md", "changed content", modified.Add(time.Second))
	require.NoError(t, svc.IndexDocument(ctx, "a.md"))
	assert.Equal(t, 2, parser.countCalls())
}

func TestIndexService_IndexDocument_RemovesVanishedFile(t *testing.T) {
	ctx := context.Background()
	store := newFakeContentStore()
	store.put("a.md", "#go", time.Now())

	svc := NewIndexService(store, &fakeParser{})
	require.NoError(t, svc.IndexDocument(ctx, "a.md"))

	store.remove("a.md")
	require.NoError(t, svc.IndexDocument(ctx, "a.md"))

	_, err := svc.GetDocument(ctx, "a.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ids, err := svc.FindByTag(ctx, []string{"go"}, domain.TagModeAny)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIndexService_ReindexAll_CollectsFailures(t *testing.T) {
	ctx := context.Background()
	store := newFakeContentStore()
	now := time.Now()
	store.put("a.md", "#go", now)
	store.put("b.md", "!bad frontmatter", now)
	store.put("c.md", "[[a.md]]", now)

	svc := NewIndexService(store, &fakeParser{})
	report, err := svc.ReindexAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Indexed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "b.md", report.Failures[0].DocID)

	docs, err := svc.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.md", docs[0].ID)
	assert.Equal(t, "c.md", docs[1].ID)
}

func TestIndexService_ReindexAll_ReadersNeverSeePartialState(t *testing.T) {
	ctx := context.Background()
	store := newFakeContentStore()
	now := time.Now()
	store.put("a.md", "#go", now)
	store.put("b.md", "#go", now)
	store.put("c.md", "#go", now)

	svc := NewIndexService(store, &fakeParser{delay: time.Millisecond})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.ReindexAll(ctx)
		assert.NoError(t, err)
	}()

	// Concurrent readers observe the prior snapshot (empty) or the
	// finished one, never a partially rebuilt index.
	for {
		docs, err := svc.ListDocuments(ctx)
		require.NoError(t, err)
		if n := len(docs); n != 0 && n != 3 {
			t.Fatalf("observed partially rebuilt index with %d documents", n)
		}
		select {
		case <-done:
			docs, err := svc.ListDocuments(ctx)
			require.NoError(t, err)
			assert.Len(t, docs, 3)
			return
		default:
		}
	}
}

func TestIndexService_ReindexAll_ExcludesConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	store := newFakeContentStore()
	now := time.Now()
	store.put("a.md", "#go", now)
	store.put("b.md", "#go", now)
	store.put("c.md", "#go", now)

	svc := NewIndexService(store, &fakeParser{delay: time.Millisecond})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.ReindexAll(ctx)
		assert.NoError(t, err)
	}()

	// An incremental update issued against a running rebuild lands either
	// before it starts or on the swapped-in structures; it is never lost
	// to a discarded intermediate state.
	store.put("d.md", "#go", now)
	require.NoError(t, svc.IndexDocument(ctx, "d.md"))
	<-done

	_, err := svc.GetDocument(ctx, "d.md")
	assert.NoError(t, err)
}

func TestIndexService_EnsureEmbeddings(t *testing.T) {
	ctx := context.Background()
	store := newFakeContentStore()
	store.put("a.md", "some chunkable text", time.Now())

	embedder := &fakeEmbedder{}
	svc := NewIndexService(store, &fakeParser{}, WithEmbedder(embedder))
	require.NoError(t, svc.IndexDocument(ctx, "a.md"))

	require.NoError(t, svc.EnsureEmbeddings(ctx, "a.md"))
	assert.Equal(t, 1, embedder.countCalls())

	doc, err := svc.GetDocument(ctx, "a.md")
	require.NoError(t, err)
	require.Len(t, doc.Chunks, 1)
	assert.NotEmpty(t, doc.Chunks[0].Embedding)

	// Embeddings already present, no further calls.
	require.NoError(t, svc.EnsureEmbeddings(ctx, "a.md"))
	assert.Equal(t, 1, embedder.countCalls())

	// Identical chunk text in another document hits the cache.
	store.put("copy.md", "some chunkable text", time.Now())
	require.NoError(t, svc.IndexDocument(ctx, "copy.md"))
	require.NoError(t, svc.EnsureEmbeddings(ctx, "copy.md"))
	assert.Equal(t, 1, embedder.countCalls())
}

func TestIndexService_EnsureEmbeddings_NoEmbedder(t *testing.T) {
	svc := NewIndexService(newFakeContentStore(), &fakeParser{})
	err := svc.EnsureEmbeddings(context.Background(), "a.md")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestIndexService_EnsureEmbeddings_PartialFailureKeepsDocument(t *testing.T) {
	ctx := context.Background()
	store := newFakeContentStore()
	store.put("a.md", "text needing a vector", time.Now())

	embedder := &fakeEmbedder{fail: true}
	svc := NewIndexService(store, &fakeParser{}, WithEmbedder(embedder))
	require.NoError(t, svc.IndexDocument(ctx, "a.md"))

	err := svc.EnsureEmbeddings(ctx, "a.md")
	assert.Error(t, err)

	doc, derr := svc.GetDocument(ctx, "a.md")
	require.NoError(t, derr)
	require.Len(t, doc.Chunks, 1)
	assert.Empty(t, doc.Chunks[0].Embedding)
}

func TestIndexService_SnapshotPersistence(t *testing.T) {
	ctx := context.Background()
	store := newFakeContentStore()
	store.put("a.md", "#go", time.Now())

	snapshot := newFakeSnapshotStore()
	svc := NewIndexService(store, &fakeParser{}, WithSnapshotStore(snapshot))

	require.NoError(t, svc.IndexDocument(ctx, "a.md"))
	assert.Equal(t, 1, snapshot.saves)

	store.remove("a.md")
	require.NoError(t, svc.RemoveDocument(ctx, "a.md"))
	assert.Equal(t, 1, snapshot.deletes)
}

func TestIndexService_Restore(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	store := newFakeContentStore()
	store.put("fresh.md", "#go", now.Add(-time.Hour))
	store.put("stale.md", "#updated", now)

	snapshot := newFakeSnapshotStore()
	require.NoError(t, snapshot.SaveDocument(ctx, &domain.Document{
		ID:         "fresh.md",
		ModifiedAt: now.Add(-time.Hour),
		Tags:       []string{"go"},
	}))
	require.NoError(t, snapshot.SaveDocument(ctx, &domain.Document{
		ID:         "stale.md",
		ModifiedAt: now.Add(-2 * time.Hour),
		Tags:       []string{"old"},
	}))
	require.NoError(t, snapshot.SaveDocument(ctx, &domain.Document{
		ID:         "gone.md",
		ModifiedAt: now,
	}))

	parser := &fakeParser{}
	svc := NewIndexService(store, parser, WithSnapshotStore(snapshot))
	require.NoError(t, svc.Restore(ctx))

	// fresh.md installed straight from the snapshot without parsing.
	doc, err := svc.GetDocument(ctx, "fresh.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, doc.Tags)

	// stale.md re-read from the vault because the file is newer.
	doc, err = svc.GetDocument(ctx, "stale.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"updated"}, doc.Tags)
	assert.Equal(t, 1, parser.countCalls())

	// gone.md has no backing file and is dropped from the snapshot.
	_, err = svc.GetDocument(ctx, "gone.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	docs, err := snapshot.LoadAll(ctx)
	require.NoError(t, err)
	for _, d := range docs {
		assert.NotEqual(t, "gone.md", d.ID)
	}
}

func TestIndexService_Watch(t *testing.T) {
	ctx := context.Background()
	store := newFakeContentStore()
	store.put("a.md", "#go", time.Now())

	svc := NewIndexService(store, &fakeParser{})
	events := make(chan domain.ChangeEvent, 2)
	events <- domain.ChangeEvent{Kind: domain.ChangeModified, ID: "a.md"}
	events <- domain.ChangeEvent{Kind: domain.ChangeRemoved, ID: "a.md"}
	close(events)

	require.NoError(t, svc.Watch(ctx, events))

	_, err := svc.GetDocument(ctx, "a.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexService_Snapshot_IsolatedCopy(t *testing.T) {
	ctx := context.Background()
	store := newFakeContentStore()
	now := time.Now()
	store.put("a.md", "[[b.md]]", now)
	store.put("b.md", "plain", now)

	svc := NewIndexService(store, &fakeParser{})
	_, err := svc.ReindexAll(ctx)
	require.NoError(t, err)

	snap := svc.Snapshot()
	assert.Equal(t, []string{"a.md", "b.md"}, snap.Nodes)
	assert.Equal(t, []string{"b.md"}, snap.Neighbours["a.md"])
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, domain.GraphEdge{From: "a.md", To: "b.md"}, snap.Edges[0])

	// Mutating the snapshot leaves the live index untouched.
	snap.Neighbours["a.md"][0] = "poisoned"
	fresh := svc.Snapshot()
	assert.Equal(t, []string{"b.md"}, fresh.Neighbours["a.md"])
}
