package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/repowhisper/repowhisper/internal/discover"
	"github.com/repowhisper/repowhisper/internal/index"
	"github.com/repowhisper/repowhisper/internal/ui"
	"github.com/repowhisper/repowhisper/internal/watcher"
)

// newWatchCmd creates the watch command.
func newWatchCmd() *cobra.Command {
	var (
		mode   string
		repoID string
	)

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch a repository and re-index on change",
		Long: `Watch performs an initial index of the repository and then keeps the
index current: file changes are debounced and each quiet period
triggers a fresh re-index. Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}

			m, err := discover.ParseMode(mode)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer a.Close()

			r := ui.NewRenderer(cmd.OutOrStdout())
			opts := index.Options{
				UserID: flagUser,
				RepoID: repoID,
				Root:   root,
				Mode:   m,
				Fresh:  true,
			}

			res, err := a.indexer.IndexRepo(ctx, opts)
			if err != nil {
				return err
			}
			opts.RepoID = res.RepoID
			r.IndexSummary(res.RepoID, res.FilesIndexed, res.ChunksIndexed, res.Duration)

			debounce, err := time.ParseDuration(a.cfg.Performance.WatchDebounce)
			if err != nil {
				debounce = watcher.DefaultDebounce
			}

			w, err := watcher.New(root, debounce)
			if err != nil {
				return err
			}
			defer w.Close()

			go w.Run(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl-C to stop)\n", root)

			for {
				select {
				case <-ctx.Done():
					return nil
				case batch, ok := <-w.Batches():
					if !ok {
						return nil
					}
					slog.Info("changes detected, re-indexing", "files", len(batch))

					res, err := a.indexer.IndexRepo(ctx, opts)
					if err != nil {
						r.Errorf("re-index failed: %v", err)
						continue
					}
					r.IndexSummary(res.RepoID, res.FilesIndexed, res.ChunksIndexed, res.Duration)
				}
			}
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "full", "Discovery mode: guided or full")
	cmd.Flags().StringVar(&repoID, "repo", "", "Repository ID (derived from the path if empty)")

	return cmd
}
