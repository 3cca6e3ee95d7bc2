package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.Printf("config file:       %s\n", settingsStore.Path())
		cmd.Printf("vault_path:        %s\n", settings.VaultPath)
		cmd.Printf("chunk_size:        %d\n", settings.ChunkSize)
		cmd.Printf("cache_capacity:    %d\n", settings.CacheCapacity)
		cmd.Printf("embedding:         %s %s\n", settings.Embedding.Provider, settings.Embedding.Model)
		cmd.Printf("weights:           semantic=%.2f tags=%.2f recency=%.2f backlinks=%.2f\n",
			settings.Weights.Semantic, settings.Weights.Tags,
			settings.Weights.Recency, settings.Weights.Backlinks)
		return nil
	},
}

var configSetVaultCmd = &cobra.Command{
	Use:   "set-vault [path]",
	Short: "Persist the vault root directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings.VaultPath = args[0]
		if err := settingsStore.Save(settings); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		cmd.Printf("vault_path set to %s\n", args[0])
		return nil
	},
}

var configSetWeightsCmd = &cobra.Command{
	Use:   "set-weights [semantic] [tags] [recency] [backlinks]",
	Short: "Persist the hybrid ranking weights",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		values := make([]float64, 4)
		for i, arg := range args {
			v, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return fmt.Errorf("weight %q: %w", arg, err)
			}
			values[i] = v
		}
		settings.Weights.Semantic = values[0]
		settings.Weights.Tags = values[1]
		settings.Weights.Recency = values[2]
		settings.Weights.Backlinks = values[3]
		if err := settingsStore.Save(settings); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		if searchService != nil {
			searchService.SetWeights(settings.Weights)
		}
		cmd.Println("weights updated")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetVaultCmd)
	configCmd.AddCommand(configSetWeightsCmd)
	rootCmd.AddCommand(configCmd)
}
