package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/datascout-labs/datascout/internal/core"
)

func renderResult(w io.Writer, result *core.QueryResult, format string) error {
	switch format {
	case "json":
		return renderJSON(w, result)
	case "csv":
		return renderCSV(w, result)
	default:
		return renderTable(w, result)
	}
}

func renderTable(w io.Writer, result *core.QueryResult) error {
	if result.RowCount == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(result.Columns))
	for i, col := range result.Columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, r := range result.Rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", result.RowCount)
	return nil
}

func renderJSON(w io.Writer, result *core.QueryResult) error {
	rows := make([]map[string]any, 0, result.RowCount)
	for _, r := range result.Rows {
		row := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			row[col] = r[i]
		}
		rows = append(rows, row)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func renderCSV(w io.Writer, result *core.QueryResult) error {
	_, _ = fmt.Fprintln(w, strings.Join(result.Columns, ","))
	for _, r := range result.Rows {
		values := make([]string, len(r))
		for i, v := range r {
			values[i] = escapeCSV(formatValue(v))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
