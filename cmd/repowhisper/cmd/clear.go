package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newClearCmd creates the clear command.
func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear <repo-id>",
		Short: "Remove all indexed chunks for a repository",
		Long: `Clear deletes every chunk belonging to the named repository from the
user's index. Other repositories and other users are unaffected.

Repository IDs are printed by 'repowhisper index' and 'repowhisper status'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoID := args[0]

			ctx := cmd.Context()
			a, err := newApp(ctx, ".")
			if err != nil {
				return err
			}
			defer a.Close()

			userStore, err := a.registry.Get(flagUser)
			if err != nil {
				return err
			}

			removed, err := userStore.ClearRepo(ctx, repoID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d chunks from %s\n", removed, repoID)
			return nil
		},
	}
	return cmd
}
