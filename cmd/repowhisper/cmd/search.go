package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repowhisper/repowhisper/internal/search"
	"github.com/repowhisper/repowhisper/internal/store"
	"github.com/repowhisper/repowhisper/internal/ui"
)

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	var (
		repoID     string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed code by meaning",
		Long: `Search embeds the query and returns the closest indexed chunks,
ranked by relevance. Multi-word queries do not need quoting; all
arguments are joined into one query.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			ctx := cmd.Context()
			a, err := newApp(ctx, ".")
			if err != nil {
				return err
			}
			defer a.Close()

			results, latency, err := a.searcher.Search(ctx, query, search.Options{
				UserID: flagUser,
				RepoID: repoID,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Results   []store.SearchResult `json:"results"`
					LatencyMS float64              `json:"latency_ms"`
				}{results, float64(latency.Nanoseconds()) / 1e6})
			}

			ui.NewRenderer(cmd.OutOrStdout()).SearchResults(query, results, latency)
			return nil
		},
	}

	cmd.Flags().StringVar(&repoID, "repo", "", "Restrict results to one repository")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}
