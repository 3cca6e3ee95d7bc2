package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

var (
	searchLimit     int
	searchJSON      bool
	searchTags      []string
	searchTagMode   string
	searchPath      string
	searchThreshold float64
	searchSemantic  bool
	searchText      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the vault",
	Long: `Performs hybrid search across the vault: keyword matching combined
with semantic similarity, tag overlap, recency and link authority.
Use --semantic or --text to restrict to a single signal.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringSliceVar(&searchTags, "tag", nil, "restrict to documents carrying these tags")
	searchCmd.Flags().StringVar(&searchTagMode, "tag-mode", "all", "tag combination: all or any")
	searchCmd.Flags().StringVar(&searchPath, "path", "", "substring filter on document paths")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum combined score")
	searchCmd.Flags().BoolVar(&searchSemantic, "semantic", false, "semantic similarity only")
	searchCmd.Flags().BoolVar(&searchText, "text", false, "keyword matching only")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}
	query := args[0]

	var results []domain.SearchResult
	var err error
	switch {
	case searchSemantic:
		results, err = searchService.SemanticSearch(cmd.Context(), query, searchLimit)
	case searchText:
		results, err = searchService.TextSearch(cmd.Context(), query)
	default:
		results, err = searchService.Search(cmd.Context(), query, domain.SearchOptions{
			Limit:     searchLimit,
			Threshold: searchThreshold,
			Filters: domain.SearchFilters{
				Tags:        searchTags,
				TagMode:     domain.TagQueryMode(searchTagMode),
				PathPattern: searchPath,
			},
		})
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

// outputJSON prints any value as indented JSON.
func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i := range results {
		r := &results[i]
		cmd.Printf("[%d] %s (%.3f)\n", i+1, r.Title, r.Score)
		cmd.Printf("    %s\n", r.ID)
		if len(r.Tags) > 0 {
			cmd.Printf("    tags: %s\n", strings.Join(r.Tags, ", "))
		}
		for _, m := range r.Matches {
			if m.Field == "content" {
				cmd.Printf("    … %s …\n", m.Context)
				break
			}
		}
	}
	return nil
}
