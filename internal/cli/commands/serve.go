package commands

import (
	"github.com/spf13/cobra"

	"github.com/datascout-labs/datascout/internal/server"
)

// NewServeCommand creates the serve command, the primary entry point:
// it speaks MCP over stdin/stdout until the client disconnects.
func NewServeCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio",
		Long: `Starts the MCP server on stdin/stdout. Tool calls manage named
connections, introspect schemas and execute bounded read-only queries.
Logs go to stderr so the protocol stream stays clean.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolver, reg, logger := deps.buildRegistry()

			srv := server.New(resolver, reg, logger)
			defer srv.Close()

			return srv.ServeStdio()
		},
	}
}
