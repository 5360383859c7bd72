// Package introspect normalizes backend schema descriptions into a
// deterministic shape. Two calls against an unchanged database yield
// byte-identical serializations.
package introspect

import (
	"context"
	"log/slog"
	"sort"

	"github.com/datascout-labs/datascout/internal/backend"
	"github.com/datascout-labs/datascout/internal/core"
)

// Introspector reads schema structure from live sessions.
type Introspector struct {
	logger *slog.Logger
}

// New creates an introspector. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Introspector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Introspector{logger: logger}
}

// Describe returns the full schema, normalized. Tables sort by name,
// columns by ordinal position, foreign keys by column, indexes by name.
func (in *Introspector) Describe(ctx context.Context, handle backend.Backend) (*core.SchemaDescription, error) {
	desc, err := handle.DescribeSchema(ctx, "")
	if err != nil {
		return nil, err
	}
	Normalize(desc)
	in.logger.Debug("described schema", slog.String("database", desc.Database), slog.Int("tables", len(desc.Tables)))
	return desc, nil
}

// DescribeTable returns a single table's structure, normalized. A
// missing table surfaces as a table-not-found error from the backend.
func (in *Introspector) DescribeTable(ctx context.Context, handle backend.Backend, table string) (*core.TableDescription, error) {
	desc, err := handle.DescribeSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	Normalize(desc)
	return &desc.Tables[0], nil
}

// DescribeOne returns the schema description restricted to one table,
// keeping the database and engine header fields the backend reports.
func (in *Introspector) DescribeOne(ctx context.Context, handle backend.Backend, table string) (*core.SchemaDescription, error) {
	desc, err := handle.DescribeSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	Normalize(desc)
	return desc, nil
}

// TableNames returns the sorted table names without column detail.
func (in *Introspector) TableNames(ctx context.Context, handle backend.Backend) ([]string, error) {
	desc, err := in.Describe(ctx, handle)
	if err != nil {
		return nil, err
	}
	return desc.TableNames(), nil
}

// Normalize sorts every collection in the description into its canonical
// order.
func Normalize(desc *core.SchemaDescription) {
	sort.Slice(desc.Tables, func(i, j int) bool {
		return desc.Tables[i].Name < desc.Tables[j].Name
	})
	for t := range desc.Tables {
		tbl := &desc.Tables[t]
		sort.Slice(tbl.Columns, func(i, j int) bool {
			return tbl.Columns[i].Position < tbl.Columns[j].Position
		})
		sort.Slice(tbl.ForeignKeys, func(i, j int) bool {
			if tbl.ForeignKeys[i].Column != tbl.ForeignKeys[j].Column {
				return tbl.ForeignKeys[i].Column < tbl.ForeignKeys[j].Column
			}
			return tbl.ForeignKeys[i].ReferencedTable < tbl.ForeignKeys[j].ReferencedTable
		})
		sort.Slice(tbl.Indexes, func(i, j int) bool {
			return tbl.Indexes[i].Name < tbl.Indexes[j].Name
		})
	}
}
