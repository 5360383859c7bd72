// Package commands implements the datascout subcommands.
package commands

import (
	"log/slog"

	"github.com/datascout-labs/datascout/internal/config"
	"github.com/datascout-labs/datascout/internal/registry"
)

// Deps carries what every subcommand needs from the root command. Values
// are functions so flag parsing has happened by the time they are read.
type Deps struct {
	ConnectionsDir func() string
	Logger         func() *slog.Logger
}

// buildRegistry wires a resolver and registry from the shared flags.
func (d *Deps) buildRegistry() (*config.Resolver, *registry.Registry, *slog.Logger) {
	logger := d.Logger()
	resolver := config.NewResolver(d.ConnectionsDir(), logger)
	return resolver, registry.New(resolver, logger), logger
}
