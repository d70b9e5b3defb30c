// Package cmd provides the CLI commands for RepoWhisper.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/repowhisper/repowhisper/internal/logging"
	"github.com/repowhisper/repowhisper/internal/profiling"
	"github.com/repowhisper/repowhisper/pkg/version"
)

// Persistent flags shared by all commands.
var (
	flagUser       string
	flagDebug      bool
	flagProfileCPU string
	flagProfileMem string

	profiler       = profiling.NewProfiler()
	cpuCleanup     func()
	loggingCleanup func()
)

// NewRootCmd creates the root command for the repowhisper CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repowhisper",
		Short: "Local-first semantic code search",
		Long: `RepoWhisper indexes source repositories into per-user vector stores
and answers natural language queries with ranked code chunks.

It runs entirely locally: embeddings come from a local Ollama instance
(or a deterministic offline fallback), and all data stays on disk.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("repowhisper version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flagUser, "user", "local", "User ID owning the index")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging to ~/.repowhisper/logs/")
	cmd.PersistentFlags().StringVar(&flagProfileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&flagProfileMem, "profile-mem", "", "Write memory profile to file")

	cmd.PersistentPreRunE = setupRun
	cmd.PersistentPostRunE = teardownRun

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupRun installs file logging and starts profiling when requested.
func setupRun(_ *cobra.Command, _ []string) error {
	lcfg := logging.DefaultConfig()
	if flagDebug {
		lcfg = logging.DebugConfig()
	}

	cleanup, err := logging.SetupDefault(lcfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	loggingCleanup = cleanup

	if flagDebug {
		slog.Info("debug logging enabled", "log_file", logging.DefaultLogPath())
	}

	if flagProfileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(flagProfileCPU)
		if err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
	}
	return nil
}

// teardownRun stops profiling and closes the log file.
func teardownRun(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}

	if flagProfileMem != "" {
		if err := profiler.WriteHeap(flagProfileMem); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
