// Package cli provides the vaultgraph command line interface.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vaultgraph/internal/adapters/driven/config/file"
	"github.com/custodia-labs/vaultgraph/internal/adapters/driven/content/filesystem"
	"github.com/custodia-labs/vaultgraph/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/vaultgraph/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/vaultgraph/internal/adapters/driven/parser/markdown"
	"github.com/custodia-labs/vaultgraph/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/vaultgraph/internal/core/domain"
	"github.com/custodia-labs/vaultgraph/internal/core/ports/driven"
	"github.com/custodia-labs/vaultgraph/internal/core/services"
	"github.com/custodia-labs/vaultgraph/internal/logger"
)

// version is set from main at startup.
var version = "dev"

// Flags shared across commands.
var (
	flagVault   string
	flagConfig  string
	flagVerbose bool
)

// Wired services, available to every command after PersistentPreRunE.
var (
	settings      domain.Settings
	settingsStore *file.SettingsStore
	contentStore  *filesystem.Store
	indexService  *services.IndexService
	graphService  *services.GraphService
	searchService *services.SearchService
	snapshotStore driven.SnapshotStore
	embedder      driven.EmbeddingService
)

var rootCmd = &cobra.Command{
	Use:   "vaultgraph",
	Short: "Index, search and analyze a markdown vault as a knowledge graph",
	Long: `vaultgraph indexes a directory of markdown documents, tracks their
tags and wiki-style links, and answers search and graph queries over them:
backlinks, shortest paths, PageRank, communities and hybrid semantic search.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute(v string) error {
	version = v
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagVault, "vault", "", "vault root directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config directory (default ~/.vaultgraph)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
}

// setup loads settings and wires the service graph before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)

	// version and help need no services
	if cmd.Name() == "version" {
		return nil
	}

	var err error
	settingsStore, err = file.NewSettingsStore(flagConfig)
	if err != nil {
		return fmt.Errorf("opening settings: %w", err)
	}
	settings, err = settingsStore.Load()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	// config commands operate on settings alone, before any vault exists
	if cmd.Parent() != nil && cmd.Parent().Name() == "config" {
		return nil
	}

	vault := flagVault
	if vault == "" {
		vault = settings.VaultPath
	}
	if vault == "" {
		return errors.New("no vault configured: pass --vault or set vault_path in config")
	}

	contentStore, err = filesystem.NewStore(vault)
	if err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}

	embedder, err = buildEmbedder(settings.Embedding)
	if err != nil {
		return fmt.Errorf("configuring embeddings: %w", err)
	}

	opts := []services.IndexOption{
		services.WithChunkSize(settings.ChunkSize),
		services.WithCacheCapacity(settings.CacheCapacity),
		services.WithEmbedConcurrency(settings.Embedding.Concurrency),
		services.WithEmbedRateLimit(settings.Embedding.RatePerSecond),
	}
	if embedder != nil {
		opts = append(opts, services.WithEmbedder(embedder))
	}
	if settings.SnapshotPath != "" {
		snapshotStore, err = sqlite.NewStore(settings.SnapshotPath)
		if err != nil {
			return fmt.Errorf("opening snapshot store: %w", err)
		}
		opts = append(opts, services.WithSnapshotStore(snapshotStore))
	}

	indexService = services.NewIndexService(contentStore, markdown.NewParser(), opts...)
	graphService = services.NewGraphService(indexService)
	searchService = services.NewSearchService(indexService, embedder,
		services.WithSimilarityThreshold(settings.SimilarityThreshold))
	searchService.SetWeights(settings.Weights)

	if snapshotStore != nil {
		if err := indexService.Restore(cmd.Context()); err != nil {
			logger.Warn("restore snapshot: %v", err)
		}
	}
	return nil
}

// buildEmbedder constructs the configured embedding service, or nil when
// embeddings are disabled.
func buildEmbedder(cfg domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case domain.ProviderNone:
		return nil, nil
	case domain.ProviderOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}), nil
	case domain.ProviderOpenAI:
		return openai.NewEmbeddingService(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// ensureIndexed populates the in-memory index when it is empty. Commands
// that query the index call this so a fresh process works without an
// explicit index step.
func ensureIndexed(cmd *cobra.Command) error {
	docs, err := indexService.ListDocuments(cmd.Context())
	if err != nil {
		return err
	}
	if len(docs) > 0 {
		return nil
	}

	report, err := indexService.ReindexAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("indexing vault: %w", err)
	}
	logger.Debug("indexed %d documents, %d failures", report.Indexed, len(report.Failures))
	for _, failure := range report.Failures {
		logger.Warn("index: %v", failure)
	}
	return nil
}
