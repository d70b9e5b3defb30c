package cmd

import (
	"github.com/spf13/cobra"

	"github.com/repowhisper/repowhisper/internal/ui"
)

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	var allUsers bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show indexed repositories and chunk counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, ".")
			if err != nil {
				return err
			}
			defer a.Close()

			users := []string{flagUser}
			if allUsers {
				found, err := a.registry.Users()
				if err != nil {
					return err
				}
				if len(found) > 0 {
					users = found
				}
			}

			r := ui.NewRenderer(cmd.OutOrStdout())
			for _, user := range users {
				userStore, err := a.registry.Get(user)
				if err != nil {
					return err
				}

				repos, err := userStore.Repos(ctx)
				if err != nil {
					return err
				}

				counts := make(map[string]int, len(repos))
				for _, repoID := range repos {
					n, err := userStore.Count(ctx, repoID)
					if err != nil {
						return err
					}
					counts[repoID] = n
				}
				r.Status(user, counts)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allUsers, "all", false, "Show every user with indexed data")
	return cmd
}
