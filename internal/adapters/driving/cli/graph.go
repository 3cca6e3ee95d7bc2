package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vaultgraph/internal/core/domain"
)

var (
	graphJSON        bool
	relatedHops      int
	pathMaxDepth     int
	influentialCount int
	exportFormat     string
	centralityLimit  int
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Link graph queries and analytics",
}

var backlinksCmd = &cobra.Command{
	Use:   "backlinks [path]",
	Short: "List documents linking to the given document",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacklinks,
}

var relatedCmd = &cobra.Command{
	Use:   "related [path]",
	Short: "Find documents within N hops",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelated,
}

var pathCmd = &cobra.Command{
	Use:   "path [from] [to]",
	Short: "Shortest link path between two documents",
	Args:  cobra.ExactArgs(2),
	RunE:  runPath,
}

var brokenCmd = &cobra.Command{
	Use:   "broken",
	Short: "List links whose target does not exist",
	RunE:  runBroken,
}

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List documents nothing links to",
	RunE:  runOrphans,
}

var centralityCmd = &cobra.Command{
	Use:   "centrality [metric]",
	Short: "Score documents by degree, betweenness, closeness, eigenvector or pagerank",
	Args:  cobra.ExactArgs(1),
	RunE:  runCentrality,
}

var influentialCmd = &cobra.Command{
	Use:   "influential [metric]",
	Short: "Top documents by a centrality metric (default pagerank)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInfluential,
}

var communitiesResolution float64

var communitiesCmd = &cobra.Command{
	Use:   "communities",
	Short: "Detect clusters of densely linked documents",
	RunE:  runCommunities,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Graph diameter, mean path length and components",
	RunE:  runStats,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the link graph",
	RunE:  runExport,
}

func init() {
	relatedCmd.Flags().IntVar(&relatedHops, "hops", 2, "traversal radius in hops")
	pathCmd.Flags().IntVar(&pathMaxDepth, "max-depth", 10, "maximum path length in edges")
	influentialCmd.Flags().IntVarP(&influentialCount, "limit", "n", 10, "number of documents")
	centralityCmd.Flags().IntVarP(&centralityLimit, "limit", "n", 0, "show only the top N scores (0 = all)")
	communitiesCmd.Flags().Float64Var(&communitiesResolution, "resolution", 1, "above 1 favours smaller communities, below 1 larger ones")
	exportCmd.Flags().StringVar(&exportFormat, "format", "dot", "output format: dot or graphml")
	graphCmd.PersistentFlags().BoolVar(&graphJSON, "json", false, "output as JSON")

	graphCmd.AddCommand(backlinksCmd)
	graphCmd.AddCommand(relatedCmd)
	graphCmd.AddCommand(pathCmd)
	graphCmd.AddCommand(brokenCmd)
	graphCmd.AddCommand(orphansCmd)
	graphCmd.AddCommand(centralityCmd)
	graphCmd.AddCommand(influentialCmd)
	graphCmd.AddCommand(communitiesCmd)
	graphCmd.AddCommand(statsCmd)
	graphCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(graphCmd)
}

func runBacklinks(cmd *cobra.Command, args []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	links, err := graphService.Backlinks(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("backlinks: %w", err)
	}
	if graphJSON {
		return outputJSON(cmd, links)
	}
	if len(links) == 0 {
		cmd.Println("No backlinks.")
		return nil
	}
	for _, link := range links {
		cmd.Printf("%s (line %d)\n", link.Source, link.Line)
	}
	return nil
}

func runRelated(cmd *cobra.Command, args []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	related, err := graphService.Related(cmd.Context(), args[0], relatedHops)
	if err != nil {
		return fmt.Errorf("related: %w", err)
	}
	if graphJSON {
		return outputJSON(cmd, related)
	}
	if len(related) == 0 {
		cmd.Println("No related documents.")
		return nil
	}

	ids := make([]string, 0, len(related))
	for id := range related {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if related[ids[i]] != related[ids[j]] {
			return related[ids[i]] < related[ids[j]]
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		cmd.Printf("%s (%d hops)\n", id, related[id])
	}
	return nil
}

func runPath(cmd *cobra.Command, args []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	path, err := graphService.ShortestPath(cmd.Context(), args[0], args[1], pathMaxDepth)
	if err != nil {
		return fmt.Errorf("shortest path: %w", err)
	}
	if graphJSON {
		return outputJSON(cmd, path)
	}
	cmd.Println(strings.Join(path, " -> "))
	return nil
}

func runBroken(cmd *cobra.Command, _ []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	broken, err := graphService.BrokenLinks(cmd.Context())
	if err != nil {
		return fmt.Errorf("broken links: %w", err)
	}
	if graphJSON {
		return outputJSON(cmd, broken)
	}
	if len(broken) == 0 {
		cmd.Println("No broken links.")
		return nil
	}
	for _, b := range broken {
		cmd.Printf("%s:%d -> %s\n", b.Link.Source, b.Link.Line, b.Link.Target)
		if len(b.Suggestions) > 0 {
			cmd.Printf("    did you mean: %s\n", strings.Join(b.Suggestions, ", "))
		}
	}
	return nil
}

func runOrphans(cmd *cobra.Command, _ []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	orphans, err := graphService.Orphaned(cmd.Context())
	if err != nil {
		return fmt.Errorf("orphans: %w", err)
	}
	if graphJSON {
		return outputJSON(cmd, orphans)
	}
	if len(orphans) == 0 {
		cmd.Println("No orphaned documents.")
		return nil
	}
	for _, id := range orphans {
		cmd.Println(id)
	}
	return nil
}

func runCentrality(cmd *cobra.Command, args []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	metric := domain.CentralityMetric(args[0])
	if !metric.IsValid() {
		return fmt.Errorf("unknown metric %q", args[0])
	}

	scores, err := graphService.Centrality(cmd.Context(), metric)
	if err != nil {
		return fmt.Errorf("centrality: %w", err)
	}
	if graphJSON {
		return outputJSON(cmd, scores)
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if centralityLimit > 0 && centralityLimit < len(ids) {
		ids = ids[:centralityLimit]
	}
	for _, id := range ids {
		cmd.Printf("%.4f  %s\n", scores[id], id)
	}
	return nil
}

func runInfluential(cmd *cobra.Command, args []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	metric := domain.MetricPageRank
	if len(args) == 1 {
		metric = domain.CentralityMetric(args[0])
		if !metric.IsValid() {
			return fmt.Errorf("unknown metric %q", args[0])
		}
	}

	ranked, err := graphService.InfluentialDocuments(cmd.Context(), metric, influentialCount)
	if err != nil {
		return fmt.Errorf("influential documents: %w", err)
	}
	if graphJSON {
		return outputJSON(cmd, ranked)
	}
	for i, r := range ranked {
		cmd.Printf("[%d] %.4f  %s\n", i+1, r.Score, r.ID)
	}
	return nil
}

func runCommunities(cmd *cobra.Command, _ []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	result, err := graphService.Communities(cmd.Context(), communitiesResolution)
	if err != nil {
		return fmt.Errorf("communities: %w", err)
	}
	if graphJSON {
		return outputJSON(cmd, result)
	}

	cmd.Printf("Modularity: %.4f\n", result.Modularity)
	for _, c := range result.Communities {
		cmd.Printf("\nCommunity %d (%d documents, cohesion %.2f)\n", c.ID, len(c.Documents), c.Cohesion)
		if len(c.DominantTags) > 0 {
			cmd.Printf("  tags: %s\n", strings.Join(c.DominantTags, ", "))
		}
		for _, id := range c.Documents {
			cmd.Printf("  %s\n", id)
		}
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	stats, err := graphService.PathStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("path stats: %w", err)
	}
	components, err := graphService.Components(cmd.Context())
	if err != nil {
		return fmt.Errorf("components: %w", err)
	}

	if graphJSON {
		return outputJSON(cmd, map[string]any{
			"stats":      stats,
			"components": len(components),
		})
	}
	cmd.Printf("Diameter:         %d\n", stats.Diameter)
	cmd.Printf("Mean path length: %.2f\n", stats.MeanPathLength)
	cmd.Printf("Connected pairs:  %d\n", stats.ConnectedPairs)
	cmd.Printf("Components:       %d\n", len(components))
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	format := domain.GraphExportFormat(exportFormat)
	data, err := graphService.ExportGraph(cmd.Context(), format)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	cmd.Print(data)
	return nil
}
