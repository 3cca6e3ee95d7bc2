package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

var (
	tagsSort    string
	tagsJSON    bool
	tagsFindAny bool
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Tag listing and queries",
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tag with its document count",
	RunE:  runTagsList,
}

var tagsFindCmd = &cobra.Command{
	Use:   "find [tag...]",
	Short: "Find documents carrying tags",
	Long: `Finds documents carrying every given tag. With --any, documents
carrying at least one of the tags match instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTagsFind,
}

var tagsSuggestCmd = &cobra.Command{
	Use:   "suggest [tag...]",
	Short: "Suggest tags that co-occur with the given ones",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTagsSuggest,
}

func init() {
	tagsListCmd.Flags().StringVar(&tagsSort, "sort", "name", "sort order: name, count or recent")
	tagsListCmd.Flags().BoolVar(&tagsJSON, "json", false, "output as JSON")
	tagsFindCmd.Flags().BoolVar(&tagsFindAny, "any", false, "match any tag instead of all")
	tagsCmd.AddCommand(tagsListCmd)
	tagsCmd.AddCommand(tagsFindCmd)
	tagsCmd.AddCommand(tagsSuggestCmd)
	rootCmd.AddCommand(tagsCmd)
}

func runTagsList(cmd *cobra.Command, _ []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	entries, err := indexService.AllTags(cmd.Context(), domain.TagSort(tagsSort))
	if err != nil {
		return fmt.Errorf("listing tags: %w", err)
	}

	if tagsJSON {
		return outputJSON(cmd, entries)
	}
	if len(entries) == 0 {
		cmd.Println("No tags indexed.")
		return nil
	}
	for _, entry := range entries {
		cmd.Printf("%-30s %d\n", entry.Name, len(entry.Documents))
	}
	return nil
}

func runTagsFind(cmd *cobra.Command, args []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	mode := domain.TagModeAll
	if tagsFindAny {
		mode = domain.TagModeAny
	}
	ids, err := indexService.FindByTag(cmd.Context(), args, mode)
	if err != nil {
		return fmt.Errorf("finding by tag: %w", err)
	}

	if len(ids) == 0 {
		cmd.Println("No documents found.")
		return nil
	}
	for _, id := range ids {
		cmd.Println(id)
	}
	return nil
}

func runTagsSuggest(cmd *cobra.Command, args []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	suggestions, err := indexService.SuggestTags(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("suggesting tags: %w", err)
	}

	if len(suggestions) == 0 {
		cmd.Println("No suggestions.")
		return nil
	}
	cmd.Println(strings.Join(suggestions, "\n"))
	return nil
}
