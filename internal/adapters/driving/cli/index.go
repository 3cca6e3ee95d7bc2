package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index the vault, or one document",
	Long: `Rebuilds the index from the vault. With a path argument, indexes
only that document; unchanged documents are skipped by modification time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

var embedCmd = &cobra.Command{
	Use:   "embed [path]",
	Short: "Compute missing chunk embeddings",
	Long: `Computes embeddings for chunks that do not have one yet. With a
path argument, only that document is embedded. Requires an embedding
provider in the configuration.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(embedCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		if err := indexService.IndexDocument(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("indexing %s: %w", args[0], err)
		}
		cmd.Printf("Indexed %s\n", args[0])
		return nil
	}

	report, err := indexService.ReindexAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("indexing vault: %w", err)
	}

	cmd.Printf("Indexed %d documents\n", report.Indexed)
	for _, failure := range report.Failures {
		cmd.Printf("  failed: %v\n", failure)
	}
	return nil
}

func runEmbed(cmd *cobra.Command, args []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	if len(args) == 1 {
		if err := indexService.EnsureEmbeddings(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("embedding %s: %w", args[0], err)
		}
		cmd.Printf("Embedded %s\n", args[0])
		return nil
	}

	docs, err := indexService.ListDocuments(cmd.Context())
	if err != nil {
		return err
	}
	embedded := 0
	for i := range docs {
		if err := indexService.EnsureEmbeddings(cmd.Context(), docs[i].ID); err != nil {
			return fmt.Errorf("embedding %s: %w", docs[i].ID, err)
		}
		embedded++
	}
	cmd.Printf("Embedded %d documents\n", embedded)
	return nil
}
