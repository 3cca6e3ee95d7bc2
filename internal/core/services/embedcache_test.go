package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewEmbeddingCache(2)

	cache.Put("a", []float32{1})
	cache.Put("b", []float32{2})
	cache.Put("c", []float32{3})

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = cache.Get("c")
	assert.True(t, ok)
}

func TestEmbeddingCache_GetRefreshesRecency(t *testing.T) {
	cache := NewEmbeddingCache(2)

	cache.Put("a", []float32{1})
	cache.Put("b", []float32{2})

	_, ok := cache.Get("a")
	require.True(t, ok)

	// a was touched most recently, so b goes first.
	cache.Put("c", []float32{3})
	_, ok = cache.Get("a")
	assert.True(t, ok)
	_, ok = cache.Get("b")
	assert.False(t, ok)
}

func TestEmbeddingCache_PutReplacesExisting(t *testing.T) {
	cache := NewEmbeddingCache(2)

	cache.Put("a", []float32{1})
	cache.Put("a", []float32{9})

	vec, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, []float32{9}, vec)
	assert.Equal(t, 1, cache.Len())
}

func TestEmbeddingCache_Clear(t *testing.T) {
	cache := NewEmbeddingCache(4)
	cache.Put("a", []float32{1})
	cache.Put("b", []float32{2})

	cache.Clear()

	assert.Equal(t, 0, cache.Len())
	_, ok := cache.Get("a")
	assert.False(t, ok)
}

func TestCacheKey_DistinguishesModels(t *testing.T) {
	assert.NotEqual(t, CacheKey("nomic-embed-text", 42), CacheKey("text-embedding-3-small", 42))
	assert.Equal(t, CacheKey("m", 42), CacheKey("m", 42))
}
