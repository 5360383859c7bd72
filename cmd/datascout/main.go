// Command datascout runs the database explorer MCP server and its
// companion utilities.
package main

import (
	"os"

	"github.com/datascout-labs/datascout/internal/cli"

	// Register the supported database backends.
	_ "github.com/datascout-labs/datascout/internal/backend/mysql"
	_ "github.com/datascout-labs/datascout/internal/backend/postgres"
	_ "github.com/datascout-labs/datascout/internal/backend/sqlite"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
