package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/datascout-labs/datascout/internal/query"
)

// NewQueryCommand creates the query command for running one-off
// statements from a shell, useful for checking a connection record
// before pointing an agent at it.
func NewQueryCommand(deps *Deps) *cobra.Command {
	var (
		maxRows int
		timeout int
		format  string
	)

	cmd := &cobra.Command{
		Use:   "query <connection> <sql>",
		Short: "Run a read-only query against a configured connection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, logger := deps.buildRegistry()
			defer reg.CloseAll()

			name, sqlText := args[0], args[1]

			params, err := queryParams(cmd.Flags())
			if err != nil {
				return err
			}

			handle, err := reg.Connect(cmd.Context(), name)
			if err != nil {
				return err
			}

			exec := query.NewExecutor(logger)
			result, err := exec.Execute(cmd.Context(), handle, sqlText, params, query.Options{
				MaxRows:  maxRows,
				Timeout:  time.Duration(timeout) * time.Second,
				ReadOnly: true,
			})
			if err != nil {
				return err
			}

			if err := renderResult(cmd.OutOrStdout(), result, format); err != nil {
				return err
			}
			if result.Truncated {
				fmt.Fprintf(cmd.OutOrStdout(), "(truncated at %d rows)\n", maxRows)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxRows, "max-rows", 100, "maximum rows to return")
	cmd.Flags().IntVar(&timeout, "timeout", 30, "query timeout in seconds")
	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format (table|json|csv)")
	cmd.Flags().StringArrayP("param", "p", nil, "positional query parameter (repeatable)")

	return cmd
}

// queryParams reads repeated --param flags as positional parameters.
// Values stay strings; the driver coerces them server-side.
func queryParams(fs *pflag.FlagSet) ([]any, error) {
	raw, err := fs.GetStringArray("param")
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	params := make([]any, len(raw))
	for i, v := range raw {
		params[i] = v
	}
	return params, nil
}
