package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vaultgraph/internal/adapters/driven/content/filesystem"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the vault and keep the index current",
	Long: `Indexes the vault, then watches it for changes. File modifications
are debounced and applied incrementally; removals retract the document's
tags and links. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if err := ensureIndexed(cmd); err != nil {
		return err
	}

	watcher, err := filesystem.NewWatcher(contentStore, settings.WatchDebounce)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	cmd.Printf("Watching %s\n", contentStore.Root())

	errCh := make(chan error, 1)
	go func() {
		errCh <- watcher.Run(cmd.Context())
	}()

	if err := indexService.Watch(cmd.Context(), watcher.Events()); err != nil {
		return fmt.Errorf("watch loop: %w", err)
	}
	return <-errCh
}
