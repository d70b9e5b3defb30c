package cmd

import (
	"github.com/spf13/cobra"

	"github.com/repowhisper/repowhisper/internal/discover"
	"github.com/repowhisper/repowhisper/internal/index"
	"github.com/repowhisper/repowhisper/internal/ui"
)

// newIndexCmd creates the index command.
func newIndexCmd() *cobra.Command {
	var (
		mode     string
		repoID   string
		patterns []string
		paths    []string
		fresh    bool
	)

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a repository for semantic search",
		Long: `Index discovers source files under the given path (default: current
directory), splits them into chunks at declaration boundaries, embeds
the chunks, and stores them in the user's isolated index.

Discovery modes:
  full    walk the tree taking every file with a known extension (default)
  guided  walk the tree matching glob patterns (--pattern)
  manual  index only the files listed with --path`,
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

			ctx := cmd.Context()
			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.indexer.IndexRepo(ctx, index.Options{
				UserID:   flagUser,
				RepoID:   repoID,
				Root:     root,
				Mode:     m,
				Paths:    paths,
				Patterns: patterns,
				Fresh:    fresh,
			})
			if err != nil {
				return err
			}

			r := ui.NewRenderer(cmd.OutOrStdout())
			r.IndexSummary(res.RepoID, res.FilesIndexed, res.ChunksIndexed, res.Duration)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "full", "Discovery mode: manual, guided, or full")
	cmd.Flags().StringVar(&repoID, "repo", "", "Repository ID (derived from the path if empty)")
	cmd.Flags().StringSliceVar(&patterns, "pattern", nil, "Glob patterns for guided mode (repeatable)")
	cmd.Flags().StringSliceVar(&paths, "path", nil, "Explicit file paths for manual mode (repeatable)")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Clear existing chunks for this repository first")

	return cmd
}
