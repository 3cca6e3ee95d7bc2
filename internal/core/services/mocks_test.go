package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
	"github.com/custodia-labs/vaultgraph/internal/core/ports/driven"
)

// fakeFile is one vault entry held by the fake content store.
type fakeFile struct {
	content  string
	modified time.Time
}

// fakeContentStore is an in-memory ContentStore for service tests.
type fakeContentStore struct {
	mu      sync.Mutex
	files   map[string]fakeFile
	readErr map[string]error
}

var _ driven.ContentStore = (*fakeContentStore)(nil)

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{
		files:   make(map[string]fakeFile),
		readErr: make(map[string]error),
	}
}

func (s *fakeContentStore) put(id, content string, modified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[domain.NormalizeID(id)] = fakeFile{content: content, modified: modified}
}

func (s *fakeContentStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, domain.NormalizeID(id))
}

func (s *fakeContentStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[domain.NormalizeID(id)]
	return ok, nil
}

func (s *fakeContentStore) Read(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = domain.NormalizeID(id)
	if err, ok := s.readErr[id]; ok {
		return nil, err
	}
	f, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", id, domain.ErrNotFound)
	}
	return []byte(f.content), nil
}

func (s *fakeContentStore) Stat(_ context.Context, id string) (*driven.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[domain.NormalizeID(id)]
	if !ok {
		return nil, fmt.Errorf("stat %s: %w", id, domain.ErrNotFound)
	}
	return &driven.FileInfo{ModifiedAt: f.modified, Size: int64(len(f.content))}, nil
}

func (s *fakeContentStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.files))
	for id := range s.files {
		ids = append(ids, id)
	}
	return ids, nil
}

// fakeParser extracts "#word" tokens as tags and "[[target]]" tokens as
// links, and emits the whole body as a single chunk. Enough structure for
// the index without dragging the real markdown parser into these tests.
type fakeParser struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
}

var _ driven.Parser = (*fakeParser)(nil)

func (p *fakeParser) countCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeParser) Parse(content []byte) (*driven.ParseResult, error) {
	p.mu.Lock()
	p.calls++
	delay := p.delay
	p.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	body := string(content)
	if strings.HasPrefix(body, "!bad") {
		return nil, fmt.Errorf("malformed document")
	}
	return &driven.ParseResult{
		Metadata:     map[string]any{},
		Body:         body,
		PlainContent: body,
	}, nil
}

func (p *fakeParser) ExtractTags(content string, frontmatterTags []string) []string {
	tags := append([]string(nil), frontmatterTags...)
	for _, field := range strings.Fields(content) {
		if strings.HasPrefix(field, "#") {
			tags = append(tags, strings.TrimPrefix(field, "#"))
		}
	}
	return domain.NormalizeTags(tags)
}

func (p *fakeParser) ExtractLinks(content string) []domain.LinkRef {
	var links []domain.LinkRef
	for lineNo, line := range strings.Split(content, "\n") {
		for _, field := range strings.Fields(line) {
			if strings.HasPrefix(field, "[[") && strings.HasSuffix(field, "]]") {
				target := strings.TrimSuffix(strings.TrimPrefix(field, "[["), "]]")
				links = append(links, domain.LinkRef{
					Target:  target,
					Display: target,
					Line:    lineNo + 1,
				})
			}
		}
	}
	return links
}

func (p *fakeParser) Chunk(body string, _ int) []domain.Chunk {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	return []domain.Chunk{{Content: body, Position: 0}}
}

// fakeEmbedder returns a fixed-dimension vector derived from text length
// and counts every Embed call. Texts present in vectors embed to the
// given vector instead, for tests needing exact similarities.
type fakeEmbedder struct {
	mu      sync.Mutex
	calls   int
	fail    bool
	vectors map[string][]float32
}

var _ driven.EmbeddingService = (*fakeEmbedder)(nil)

func (e *fakeEmbedder) countCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	fail := e.fail
	vec := e.vectors[text]
	e.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("embedding backend down")
	}
	if vec != nil {
		return vec, nil
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *fakeEmbedder) Dimensions() int            { return 3 }
func (e *fakeEmbedder) ModelName() string          { return "fake-embed" }
func (e *fakeEmbedder) Ping(context.Context) error { return nil }
func (e *fakeEmbedder) Close() error               { return nil }

// fakeSnapshotStore records save and delete calls in memory.
type fakeSnapshotStore struct {
	mu      sync.Mutex
	docs    map[string]domain.Document
	saves   int
	deletes int
}

var _ driven.SnapshotStore = (*fakeSnapshotStore)(nil)

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{docs: make(map[string]domain.Document)}
}

func (s *fakeSnapshotStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = *doc
	s.saves++
	return nil
}

func (s *fakeSnapshotStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	s.deletes++
	return nil
}

func (s *fakeSnapshotStore) LoadAll(context.Context) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (s *fakeSnapshotStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]domain.Document)
	return nil
}

func (s *fakeSnapshotStore) Close() error { return nil }
