package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/repowhisper/repowhisper/internal/mcp"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Serve exposes indexing and semantic search as MCP tools over stdio,
for AI clients like Claude Code and Cursor.

Stdout carries JSON-RPC exclusively; diagnostics go to the log file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, ".")
			if err != nil {
				return err
			}
			defer a.Close()

			if transport == "" {
				transport = a.cfg.Server.Transport
			}

			srv, err := mcp.NewServer(mcp.Deps{
				Config:      a.cfg,
				Searcher:    a.searcher,
				Indexer:     a.indexer,
				Registry:    a.registry,
				Embedder:    a.embedder,
				Advisor:     a.advisor(),
				DefaultUser: flagUser,
			})
			if err != nil {
				return err
			}

			return srv.Serve(ctx, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport to serve on (default from config)")

	return cmd
}
