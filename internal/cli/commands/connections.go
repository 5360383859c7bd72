package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewConnectionsCommand creates the connections command group.
func NewConnectionsCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Inspect configured database connections",
	}

	cmd.AddCommand(newConnectionsListCommand(deps))
	cmd.AddCommand(newConnectionsTestCommand(deps))

	return cmd
}

func newConnectionsListCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured connections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, reg, _ := deps.buildRegistry()

			states := reg.List()
			if len(states) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No connections configured")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Type", "Database", "Status"})
			for _, st := range states {
				t.AppendRow(table.Row{st.Name, st.Type, st.Database, st.Status})
			}
			t.Render()
			return nil
		},
	}
}

func newConnectionsTestCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "test <name>",
		Short: "Check whether a connection is reachable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, _ := deps.buildRegistry()
			defer reg.CloseAll()

			name := args[0]
			if err := reg.Test(cmd.Context(), name); err != nil {
				return fmt.Errorf("connection %q unreachable: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connection %q is reachable\n", name)
			return nil
		},
	}
}
