package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
	"github.com/custodia-labs/vaultgraph/internal/core/ports/driven"
	"github.com/custodia-labs/vaultgraph/internal/core/ports/driving"
	"github.com/custodia-labs/vaultgraph/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService maintains the authoritative document records and keeps the
// tag and link indexes synchronized with them. One read-write lock guards
// all three structures: a reader always observes a document's tags and
// links moving together. External calls (content reads, embedding
// generation) never run under the lock; only the structural mutation that
// follows a successful call does.
type IndexService struct {
	content  driven.ContentStore
	parser   driven.Parser
	embedder driven.EmbeddingService // optional
	snapshot driven.SnapshotStore    // optional
	cache    *EmbeddingCache

	chunkSize   int
	concurrency int
	limiter     *rate.Limiter // optional

	// updateMu serializes structural updates: a full reindex holds it
	// for its whole batch, so incremental updates land either before the
	// rebuild starts or on the swapped-in structures.
	updateMu sync.Mutex

	mu         sync.RWMutex
	docs       map[string]*domain.Document
	tags       *TagIndex
	links      *LinkIndex
	reindexing bool
}

// IndexOption configures the index service.
type IndexOption func(*IndexService)

// WithEmbedder sets the optional embedding service.
func WithEmbedder(e driven.EmbeddingService) IndexOption {
	return func(s *IndexService) { s.embedder = e }
}

// WithSnapshotStore sets the optional persistence store.
func WithSnapshotStore(store driven.SnapshotStore) IndexOption {
	return func(s *IndexService) { s.snapshot = store }
}

// WithChunkSize sets the maximum characters per chunk.
func WithChunkSize(size int) IndexOption {
	return func(s *IndexService) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithEmbedConcurrency bounds concurrent embedding calls.
func WithEmbedConcurrency(n int) IndexOption {
	return func(s *IndexService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithEmbedRateLimit throttles embedding calls to n per second.
func WithEmbedRateLimit(perSecond float64) IndexOption {
	return func(s *IndexService) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithCacheCapacity bounds the shared embedding cache.
func WithCacheCapacity(capacity int) IndexOption {
	return func(s *IndexService) { s.cache = NewEmbeddingCache(capacity) }
}

// NewIndexService creates an index service over a content store and parser.
func NewIndexService(content driven.ContentStore, parser driven.Parser, opts ...IndexOption) *IndexService {
	s := &IndexService{
		content:     content,
		parser:      parser,
		cache:       NewEmbeddingCache(domain.DefaultCacheCapacity),
		chunkSize:   domain.DefaultChunkSize,
		concurrency: domain.DefaultEmbedConcurrency,
		docs:        make(map[string]*domain.Document),
		tags:        NewTagIndex(),
		links:       NewLinkIndex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache exposes the shared embedding cache to the search engine.
func (s *IndexService) Cache() *EmbeddingCache {
	return s.cache
}

// IndexDocument reads, parses and (re)indexes one document. Re-indexing is
// skipped when the stored record's modification time is at least the
// file's current one. A file that no longer exists is removed from the
// index instead.
func (s *IndexService) IndexDocument(ctx context.Context, id string) error {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()
	return s.indexDocument(ctx, id)
}

func (s *IndexService) indexDocument(ctx context.Context, id string) error {
	id = domain.NormalizeID(id)

	info, err := s.content.Stat(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Debug("Index: %s gone from vault, removing", id)
		return s.removeDocument(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", id, err)
	}

	s.mu.RLock()
	existing, ok := s.docs[id]
	upToDate := ok && !existing.ModifiedAt.Before(info.ModifiedAt)
	s.mu.RUnlock()
	if upToDate {
		logger.Debug("Index: %s unchanged, skipping", id)
		return nil
	}

	doc, err := s.buildDocument(ctx, id, info.ModifiedAt)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.docs[id] = doc
	s.links.AddDocument(id)
	s.tags.SetDocumentTags(id, doc.Tags)
	s.links.SetOutgoingLinks(id, doc.Links)
	s.mu.Unlock()

	logger.Debug("Index: %s indexed (%d tags, %d links, %d chunks)",
		id, len(doc.Tags), len(doc.Links), len(doc.Chunks))

	if s.snapshot != nil {
		if err := s.snapshot.SaveDocument(ctx, doc); err != nil {
			logger.Warn("Index: snapshot save failed for %s: %v", id, err)
		}
	}
	return nil
}

// buildDocument reads and parses one document outside any lock.
func (s *IndexService) buildDocument(ctx context.Context, id string, modifiedAt time.Time) (*domain.Document, error) {
	raw, err := s.content.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}

	parsed, err := s.parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", id, err)
	}

	frontmatterTags := metadataTags(parsed.Metadata)
	tags := s.parser.ExtractTags(parsed.Body, frontmatterTags)

	links := s.parser.ExtractLinks(parsed.Body)
	for i := range links {
		links[i].Source = id
		links[i].Target = resolveTarget(id, links[i].Target)
	}

	chunks := s.parser.Chunk(parsed.Body, s.chunkSize)
	for i := range chunks {
		chunks[i].ID = uuid.New().String()
		chunks[i].DocumentID = id
	}

	doc := &domain.Document{
		ID:           id,
		ModifiedAt:   modifiedAt,
		ContentHash:  domain.HashContent(raw),
		Metadata:     parsed.Metadata,
		Content:      string(raw),
		PlainContent: parsed.PlainContent,
		Chunks:       chunks,
		Tags:         domain.NormalizeTags(tags),
		Links:        links,
		IndexedAt:    time.Now(),
	}

	// Cached vectors from a previous index of identical chunk text are
	// reattached without any embedding call.
	if s.embedder != nil {
		model := s.embedder.ModelName()
		for i := range doc.Chunks {
			key := CacheKey(model, domain.HashContent([]byte(doc.Chunks[i].Content)))
			if vec, hit := s.cache.Get(key); hit {
				doc.Chunks[i].Embedding = vec
			}
		}
	}
	return doc, nil
}

// resolveTarget resolves a raw link target against the linking document.
// Targets without an extension default to ".md", matching wikilink usage.
func resolveTarget(sourceID, target string) string {
	if target != "" && path.Ext(target) == "" {
		target += ".md"
	}
	return domain.ResolveLinkTarget(sourceID, target)
}

// metadataTags pulls the frontmatter tag list out of parsed metadata.
func metadataTags(metadata map[string]any) []string {
	var tags []string
	switch v := metadata["tags"].(type) {
	case []any:
		for _, t := range v {
			if str, ok := t.(string); ok {
				tags = append(tags, str)
			}
		}
	case []string:
		tags = append(tags, v...)
	case string:
		for _, t := range strings.Split(v, ",") {
			tags = append(tags, strings.TrimSpace(t))
		}
	}
	return tags
}

// RemoveDocument deletes a document record and retracts its tags and
// links. No-op if the document was never indexed.
func (s *IndexService) RemoveDocument(ctx context.Context, id string) error {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()
	return s.removeDocument(ctx, id)
}

func (s *IndexService) removeDocument(ctx context.Context, id string) error {
	id = domain.NormalizeID(id)

	s.mu.Lock()
	_, ok := s.docs[id]
	if ok {
		delete(s.docs, id)
		s.tags.RemoveDocument(id)
		s.links.RemoveDocument(id)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}
	logger.Debug("Index: %s removed", id)

	if s.snapshot != nil {
		if err := s.snapshot.DeleteDocument(ctx, id); err != nil {
			logger.Warn("Index: snapshot delete failed for %s: %v", id, err)
		}
	}
	return nil
}

// ReindexAll rebuilds the whole index from the vault listing. The rebuild
// happens in fresh structures that replace the live ones in one swap, so
// readers observe either the prior snapshot or the finished one, never a
// partially rebuilt index. A single document's parse failure is logged
// and collected; the batch completes regardless.
func (s *IndexService) ReindexAll(ctx context.Context) (*driving.ReindexReport, error) {
	s.mu.Lock()
	if s.reindexing {
		s.mu.Unlock()
		return nil, domain.ErrReindexInProgress
	}
	s.reindexing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.reindexing = false
		s.mu.Unlock()
	}()

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	logger.Section("Full Reindex")

	ids, err := s.content.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vault: %w", err)
	}

	s.cache.Clear()
	if s.snapshot != nil {
		if err := s.snapshot.Clear(ctx); err != nil {
			logger.Warn("Reindex: snapshot clear failed: %v", err)
		}
	}

	docs := make(map[string]*domain.Document, len(ids))
	tags := NewTagIndex()
	links := NewLinkIndex()

	report := &driving.ReindexReport{}
	for _, raw := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		id := domain.NormalizeID(raw)

		info, err := s.content.Stat(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue // vanished between listing and stat
		}
		var doc *domain.Document
		if err == nil {
			doc, err = s.buildDocument(ctx, id, info.ModifiedAt)
		}
		if err != nil {
			logger.Warn("Reindex: %s failed: %v", id, err)
			report.Failures = append(report.Failures, &domain.IndexError{
				Op:    "index",
				DocID: id,
				Err:   err,
			})
			continue
		}

		docs[id] = doc
		links.AddDocument(id)
		tags.SetDocumentTags(id, doc.Tags)
		links.SetOutgoingLinks(id, doc.Links)
		report.Indexed++

		if s.snapshot != nil {
			if serr := s.snapshot.SaveDocument(ctx, doc); serr != nil {
				logger.Warn("Reindex: snapshot save failed for %s: %v", id, serr)
			}
		}
	}

	s.mu.Lock()
	s.docs = docs
	s.tags = tags
	s.links = links
	s.mu.Unlock()

	logger.Info("Reindex complete: %d indexed, %d failed", report.Indexed, len(report.Failures))
	return report, nil
}

// Restore loads persisted records from the snapshot store, reconciling
// against the live vault: records whose file is gone are dropped, stale
// records are re-indexed, fresh ones are installed directly.
func (s *IndexService) Restore(ctx context.Context) error {
	if s.snapshot == nil {
		return nil
	}

	docs, err := s.snapshot.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	restored, stale := 0, 0
	for i := range docs {
		doc := docs[i]
		info, err := s.content.Stat(ctx, doc.ID)
		if errors.Is(err, domain.ErrNotFound) {
			if derr := s.snapshot.DeleteDocument(ctx, doc.ID); derr != nil {
				logger.Warn("Restore: dropping %s from snapshot failed: %v", doc.ID, derr)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", doc.ID, err)
		}

		if info.ModifiedAt.After(doc.ModifiedAt) {
			stale++
			if ierr := s.IndexDocument(ctx, doc.ID); ierr != nil {
				logger.Warn("Restore: reindex of stale %s failed: %v", doc.ID, ierr)
			}
			continue
		}

		s.mu.Lock()
		s.docs[doc.ID] = &doc
		s.links.AddDocument(doc.ID)
		s.tags.SetDocumentTags(doc.ID, doc.Tags)
		s.links.SetOutgoingLinks(doc.ID, doc.Links)
		s.mu.Unlock()
		restored++

		// Warm the cache so re-indexing unchanged text stays free.
		if s.embedder != nil {
			model := s.embedder.ModelName()
			for _, chunk := range doc.Chunks {
				if len(chunk.Embedding) > 0 {
					s.cache.Put(CacheKey(model, domain.HashContent([]byte(chunk.Content))), chunk.Embedding)
				}
			}
		}
	}

	logger.Info("Restore: %d records restored, %d stale re-indexed", restored, stale)
	return nil
}

// EnsureEmbeddings lazily computes missing chunk embeddings for a
// document, reusing cached vectors for identical chunk text. Per-chunk
// failures are joined into the returned error; successful chunks are still
// applied. No lock is held while embedding calls are in flight.
func (s *IndexService) EnsureEmbeddings(ctx context.Context, id string) error {
	if s.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}
	id = domain.NormalizeID(id)

	s.mu.RLock()
	doc, ok := s.docs[id]
	if !ok {
		s.mu.RUnlock()
		return fmt.Errorf("ensure embeddings %s: %w", id, domain.ErrNotFound)
	}
	contentHash := doc.ContentHash
	type pending struct {
		chunkID string
		text    string
	}
	var missing []pending
	for i := range doc.Chunks {
		if len(doc.Chunks[i].Embedding) == 0 {
			missing = append(missing, pending{doc.Chunks[i].ID, doc.Chunks[i].Content})
		}
	}
	s.mu.RUnlock()

	if len(missing) == 0 {
		return nil
	}

	model := s.embedder.ModelName()
	vectors := make(map[string][]float32, len(missing))
	var (
		resultMu sync.Mutex
		errs     []error
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, s.concurrency)

	for _, p := range missing {
		key := CacheKey(model, domain.HashContent([]byte(p.text)))
		if vec, hit := s.cache.Get(key); hit {
			vectors[p.chunkID] = vec
			continue
		}

		wg.Add(1)
		go func(p pending, key string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if s.limiter != nil {
				if err := s.limiter.Wait(ctx); err != nil {
					resultMu.Lock()
					errs = append(errs, err)
					resultMu.Unlock()
					return
				}
			}
			vec, err := s.embedder.Embed(ctx, p.text)
			resultMu.Lock()
			defer resultMu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("embed chunk of %s: %w", id, err))
				return
			}
			vectors[p.chunkID] = vec
			s.cache.Put(key, vec)
		}(p, key)
	}
	wg.Wait()

	// Apply results only if the document was not replaced in the meantime.
	s.mu.Lock()
	if current, ok := s.docs[id]; ok && current.ContentHash == contentHash {
		for i := range current.Chunks {
			if vec, ok := vectors[current.Chunks[i].ID]; ok {
				current.Chunks[i].Embedding = vec
			}
		}
	}
	updated, stillOK := s.docs[id]
	s.mu.Unlock()

	if s.snapshot != nil && stillOK {
		copied := copyDocument(updated)
		if err := s.snapshot.SaveDocument(ctx, &copied); err != nil {
			logger.Warn("Embeddings: snapshot save failed for %s: %v", id, err)
		}
	}
	return errors.Join(errs...)
}

// GetDocument returns a snapshot copy of one document record.
func (s *IndexService) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	id = domain.NormalizeID(id)
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := copyDocument(doc)
	return &copied, nil
}

// ListDocuments returns snapshot copies of every record, sorted by ID.
func (s *IndexService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, copyDocument(doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindByTag returns document IDs carrying the tags under the given mode.
func (s *IndexService) FindByTag(_ context.Context, tags []string, mode domain.TagQueryMode) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tags.FilesByTags(tags, mode), nil
}

// AllTags lists every tag entry in the requested order.
func (s *IndexService) AllTags(_ context.Context, sortBy domain.TagSort) ([]domain.TagEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tags.All(sortBy), nil
}

// SuggestTags ranks candidate tags for a document already carrying
// existingTags.
func (s *IndexService) SuggestTags(_ context.Context, existingTags []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tags.Suggest(existingTags), nil
}

// Watch consumes change events until the channel closes or the context is
// cancelled. Individual failures are logged, never fatal to the loop.
func (s *IndexService) Watch(ctx context.Context, events <-chan domain.ChangeEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case domain.ChangeModified:
				if err := s.IndexDocument(ctx, ev.ID); err != nil {
					logger.Warn("Watch: index %s failed: %v", ev.ID, err)
				}
			case domain.ChangeRemoved:
				if err := s.RemoveDocument(ctx, ev.ID); err != nil {
					logger.Warn("Watch: remove %s failed: %v", ev.ID, err)
				}
			}
		}
	}
}

// --- Link graph accessors used by the graph and search services ---

// Backlinks returns the incoming links of a document.
func (s *IndexService) Backlinks(id string) ([]domain.LinkRef, error) {
	id = domain.NormalizeID(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.docs[id]; !ok {
		return nil, domain.ErrNotFound
	}
	return s.links.Incoming(id), nil
}

// Related returns documents within maxHops of one document.
func (s *IndexService) Related(id string, maxHops int) (map[string]int, error) {
	id = domain.NormalizeID(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.docs[id]; !ok {
		return nil, domain.ErrNotFound
	}
	return s.links.Related(id, maxHops), nil
}

// ShortestPath finds the shortest undirected path between two documents.
func (s *IndexService) ShortestPath(from, to string, maxDepth int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.links.ShortestPath(domain.NormalizeID(from), domain.NormalizeID(to), maxDepth)
}

// BrokenLinks returns every outgoing link with no resolvable target.
func (s *IndexService) BrokenLinks() []domain.BrokenLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.links.BrokenLinks()
}

// Orphaned returns documents with zero incoming links.
func (s *IndexService) Orphaned() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.links.Orphaned()
}

// PageRank computes directed-link authority scores with the fixed
// iteration count.
func (s *IndexService) PageRank() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.links.PageRank(domain.DefaultPageRankIterations, domain.DefaultPageRankDamping)
}

// GraphSnapshot is an isolated copy of the link structure for long-running
// analytics: node IDs in stable order, undirected neighbour lists, directed
// edges, and per-document tags and titles.
type GraphSnapshot struct {
	Nodes      []string
	Neighbours map[string][]string
	Edges      []domain.GraphEdge
	Tags       map[string][]string
	Titles     map[string]string
}

// Snapshot copies the current graph structure so analytics can run without
// holding the index lock.
func (s *IndexService) Snapshot() *GraphSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &GraphSnapshot{
		Nodes:      make([]string, 0, len(s.docs)),
		Neighbours: make(map[string][]string, len(s.docs)),
		Tags:       make(map[string][]string, len(s.docs)),
		Titles:     make(map[string]string, len(s.docs)),
	}
	for id := range s.docs {
		snap.Nodes = append(snap.Nodes, id)
	}
	sort.Strings(snap.Nodes)

	for _, id := range snap.Nodes {
		doc := s.docs[id]
		snap.Neighbours[id] = s.links.neighbours(id)
		tags := make([]string, len(doc.Tags))
		copy(tags, doc.Tags)
		snap.Tags[id] = tags
		snap.Titles[id] = doc.Title()

		seen := make(map[string]struct{})
		for _, link := range s.links.outgoing[id] {
			if _, ok := s.docs[link.Target]; !ok {
				continue
			}
			if _, dup := seen[link.Target]; dup {
				continue
			}
			seen[link.Target] = struct{}{}
			snap.Edges = append(snap.Edges, domain.GraphEdge{From: id, To: link.Target})
		}
	}
	return snap
}

// copyDocument deep-copies a record so callers cannot mutate owned state.
func copyDocument(doc *domain.Document) domain.Document {
	copied := *doc

	copied.Metadata = make(map[string]any, len(doc.Metadata))
	for k, v := range doc.Metadata {
		copied.Metadata[k] = v
	}

	copied.Tags = make([]string, len(doc.Tags))
	copy(copied.Tags, doc.Tags)

	copied.Links = make([]domain.LinkRef, len(doc.Links))
	copy(copied.Links, doc.Links)

	copied.Chunks = make([]domain.Chunk, len(doc.Chunks))
	copy(copied.Chunks, doc.Chunks)

	return copied
}
