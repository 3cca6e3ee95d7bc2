package domain

import "time"

// Default configuration values.
const (
	// DefaultChunkSize is the maximum characters per content chunk.
	DefaultChunkSize = 1000

	// DefaultCacheCapacity bounds the embedding cache entry count.
	DefaultCacheCapacity = 1000

	// DefaultSimilarityThreshold filters weak semantic matches.
	DefaultSimilarityThreshold = 0.3

	// DefaultEmbedConcurrency bounds concurrent embedding calls.
	DefaultEmbedConcurrency = 4

	// DefaultPageRankIterations is the fixed PageRank iteration count.
	DefaultPageRankIterations = 20

	// DefaultPageRankDamping is the standard damping factor.
	DefaultPageRankDamping = 0.85

	// DefaultWatchDebounce batches rapid file events before re-indexing.
	DefaultWatchDebounce = 500 * time.Millisecond
)

// EmbeddingProvider identifies an embedding backend.
type EmbeddingProvider string

// Available embedding providers.
const (
	// ProviderNone disables semantic search.
	ProviderNone EmbeddingProvider = ""

	// ProviderOllama is a local Ollama instance.
	ProviderOllama EmbeddingProvider = "ollama"

	// ProviderOpenAI is the OpenAI embeddings API.
	ProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case ProviderNone, ProviderOllama, ProviderOpenAI:
		return true
	default:
		return false
	}
}

// EmbeddingSettings configures the embedding collaborator.
type EmbeddingSettings struct {
	// Provider selects the backend ("" disables embeddings).
	Provider EmbeddingProvider `toml:"provider"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// BaseURL overrides the provider API base URL.
	BaseURL string `toml:"base_url"`

	// APIKey authenticates cloud providers.
	APIKey string `toml:"api_key"`

	// Concurrency bounds in-flight embedding calls during batch work.
	Concurrency int `toml:"concurrency"`

	// RatePerSecond throttles embedding calls (0 = unthrottled).
	RatePerSecond float64 `toml:"rate_per_second"`
}

// Settings is the full application configuration.
type Settings struct {
	// VaultPath is the root directory of the markdown vault.
	VaultPath string `toml:"vault_path"`

	// ChunkSize is the maximum characters per chunk.
	ChunkSize int `toml:"chunk_size"`

	// CacheCapacity bounds the embedding cache.
	CacheCapacity int `toml:"cache_capacity"`

	// SimilarityThreshold is the default semantic cut-off.
	SimilarityThreshold float64 `toml:"similarity_threshold"`

	// Weights configures hybrid ranking.
	Weights RankingWeights `toml:"weights"`

	// Embedding configures the embedding collaborator.
	Embedding EmbeddingSettings `toml:"embedding"`

	// WatchDebounce batches rapid file events.
	WatchDebounce time.Duration `toml:"watch_debounce"`

	// SnapshotPath enables the SQLite snapshot store when non-empty.
	SnapshotPath string `toml:"snapshot_path"`
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	return Settings{
		ChunkSize:           DefaultChunkSize,
		CacheCapacity:       DefaultCacheCapacity,
		SimilarityThreshold: DefaultSimilarityThreshold,
		Weights:             DefaultRankingWeights(),
		Embedding: EmbeddingSettings{
			Concurrency: DefaultEmbedConcurrency,
		},
		WatchDebounce: DefaultWatchDebounce,
	}
}

// ApplyDefaults fills zero-valued fields with defaults.
func (s *Settings) ApplyDefaults() {
	if s.ChunkSize <= 0 {
		s.ChunkSize = DefaultChunkSize
	}
	if s.CacheCapacity <= 0 {
		s.CacheCapacity = DefaultCacheCapacity
	}
	if s.SimilarityThreshold <= 0 {
		s.SimilarityThreshold = DefaultSimilarityThreshold
	}
	zero := RankingWeights{}
	if s.Weights == zero {
		s.Weights = DefaultRankingWeights()
	}
	if s.Embedding.Concurrency <= 0 {
		s.Embedding.Concurrency = DefaultEmbedConcurrency
	}
	if s.WatchDebounce <= 0 {
		s.WatchDebounce = DefaultWatchDebounce
	}
}
