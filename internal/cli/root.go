// Package cli provides the command-line interface for DataScout.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/datascout-labs/datascout/internal/cli/commands"
)

// Version information (set at build time).
var (
	Version   = "0.3.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var (
		connectionsDir string
		verbose        bool
	)

	rootCmd := &cobra.Command{
		Use:   "datascout",
		Short: "DataScout - database explorer MCP server",
		Long: `DataScout exposes relational databases to AI agents over the Model
Context Protocol. It manages named connections, introspects schemas and
executes bounded read-only queries against MySQL, PostgreSQL and SQLite.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Database explorer MCP server
`)

	rootCmd.PersistentFlags().StringVar(&connectionsDir, "connections-dir", "", "directory holding connection records (default: ./connections, or DATASCOUT_CONNECTIONS_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	deps := &commands.Deps{
		ConnectionsDir: func() string { return connectionsDir },
		Logger:         func() *slog.Logger { return newLogger(verbose) },
	}

	rootCmd.AddCommand(commands.NewServeCommand(deps))
	rootCmd.AddCommand(commands.NewConnectionsCommand(deps))
	rootCmd.AddCommand(commands.NewQueryCommand(deps))
	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// newLogger builds the process logger. Output goes to stderr: stdout
// carries the MCP stdio framing and must stay clean.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: level,
	}))
}
