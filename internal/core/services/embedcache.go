package services

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

// EmbeddingCache is a bounded least-recently-used cache of embedding
// vectors keyed by (model, content hash). It is shared by the document
// index and the search engine so identical chunk text is never embedded
// twice. Safe for concurrent use; each get/put, including the eviction
// decision, is atomic under one mutex.
type EmbeddingCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

// cacheEntry is one cached vector with its access bookkeeping.
type cacheEntry struct {
	key        string
	vector     []float32
	lastAccess time.Time
}

// NewEmbeddingCache creates a cache bounded to capacity entries.
// A capacity below one falls back to the default.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity < 1 {
		capacity = domain.DefaultCacheCapacity
	}
	return &EmbeddingCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// CacheKey builds the cache key for a model and content hash.
func CacheKey(model string, contentHash uint64) string {
	return fmt.Sprintf("%s:%016x", model, contentHash)
}

// Get returns the cached vector for a key, refreshing its recency.
func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	entry.lastAccess = time.Now()
	c.order.MoveToFront(elem)
	return entry.vector, true
}

// Put stores a vector, evicting the least-recently-used entry when the
// capacity would be exceeded.
func (c *EmbeddingCache) Put(key string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.vector = vector
		entry.lastAccess = time.Now()
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheEntry{
		key:        key,
		vector:     vector,
		lastAccess: time.Now(),
	})
	c.entries[key] = elem

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Len returns the current entry count.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every entry. Called on full reindex.
func (c *EmbeddingCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}
