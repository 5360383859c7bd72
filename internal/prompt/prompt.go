// Package prompt renders schema context into a text prompt a client LLM
// can use to translate a natural language question into SQL. Rendering
// is pure: no I/O, and identical inputs produce identical output.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/datascout-labs/datascout/internal/core"
)

// tableContext is the condensed per-table shape embedded in the prompt.
// Only fields that help SQL generation are included.
type tableContext struct {
	Name        string           `json:"name"`
	Columns     []columnContext  `json:"columns"`
	PrimaryKeys []string         `json:"primary_keys"`
	ForeignKeys []foreignContext `json:"foreign_keys"`
}

type columnContext struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Primary  bool   `json:"is_primary"`
}

type foreignContext struct {
	Column     string `json:"column"`
	References string `json:"references"`
}

// Build renders the generation prompt for the given schema and question.
// maxRows is advisory text for the LLM; enforcement happens at execution.
func Build(schema *core.SchemaDescription, engineVersion, question string, maxRows int) (string, error) {
	tables := make([]tableContext, 0, len(schema.Tables))
	for _, t := range schema.Tables {
		tc := tableContext{
			Name:        t.Name,
			Columns:     make([]columnContext, 0, len(t.Columns)),
			PrimaryKeys: t.PrimaryKeys,
			ForeignKeys: make([]foreignContext, 0, len(t.ForeignKeys)),
		}
		if tc.PrimaryKeys == nil {
			tc.PrimaryKeys = []string{}
		}
		for _, c := range t.Columns {
			tc.Columns = append(tc.Columns, columnContext{
				Name:     c.Name,
				Type:     c.Type,
				Nullable: c.Nullable,
				Primary:  c.IsPrimaryKey,
			})
		}
		for _, fk := range t.ForeignKeys {
			tc.ForeignKeys = append(tc.ForeignKeys, foreignContext{
				Column:     fk.Column,
				References: fmt.Sprintf("%s.%s", fk.ReferencedTable, fk.ReferencedColumn),
			})
		}
		tables = append(tables, tc)
	}

	schemaJSON, err := json.MarshalIndent(tables, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render schema context: %w", err)
	}

	version := engineVersion
	if version == "" {
		version = "Unknown"
	}

	var b strings.Builder
	b.WriteString("You are a SQL query generator. Convert the following natural language question into a valid SQL query.\n\n")
	fmt.Fprintf(&b, "Database Information:\n- Database: %s\n- Type: %s\n- Version: %s\n\n", schema.Database, schema.Engine, version)
	fmt.Fprintf(&b, "Schema:\n%s\n\n", schemaJSON)
	fmt.Fprintf(&b, "Natural Language Question: %s\n\n", question)
	b.WriteString("Instructions:\n")
	b.WriteString("1. Generate a valid SQL query that answers the question\n")
	b.WriteString("2. Use proper table and column names from the schema above\n")
	b.WriteString("3. Only use SELECT queries (no INSERT, UPDATE, DELETE, DROP, etc.)\n")
	b.WriteString("4. Include appropriate WHERE, JOIN, GROUP BY, ORDER BY clauses as needed\n")
	fmt.Fprintf(&b, "5. Limit results to %d rows if using LIMIT\n", maxRows)
	b.WriteString("6. Return ONLY the SQL query, no explanations\n\n")
	b.WriteString("SQL Query:")
	return b.String(), nil
}
