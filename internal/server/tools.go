package server

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/datascout-labs/datascout/internal/backend"
	"github.com/datascout-labs/datascout/internal/core"
	"github.com/datascout-labs/datascout/internal/prompt"
	"github.com/datascout-labs/datascout/internal/query"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("list_connections",
		mcp.WithDescription("List all configured and live database connections with their status."),
	), s.handleListConnections)

	s.mcp.AddTool(mcp.NewTool("connect",
		mcp.WithDescription("Open a database session for a named connection. Reconnecting an open connection is a no-op."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Connection name, matching a configuration record.")),
	), s.handleConnect)

	s.mcp.AddTool(mcp.NewTool("disconnect",
		mcp.WithDescription("Close the session for a named connection. Succeeds even when nothing is connected."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Connection name.")),
	), s.handleDisconnect)

	s.mcp.AddTool(mcp.NewTool("test_connection",
		mcp.WithDescription("Check whether a connection is reachable without keeping a session open."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Connection name.")),
	), s.handleTestConnection)

	s.mcp.AddTool(mcp.NewTool("get_database_info",
		mcp.WithDescription("Return engine version, character set, collation and size statistics for a connected database."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Connection name.")),
	), s.handleDatabaseInfo)

	s.mcp.AddTool(mcp.NewTool("list_tables",
		mcp.WithDescription("List table names in a connected database."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Connection name.")),
	), s.handleListTables)

	s.mcp.AddTool(mcp.NewTool("get_schema",
		mcp.WithDescription("Return the full schema of a connected database, or a single table's when table_name is given."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Connection name.")),
		mcp.WithString("table_name", mcp.Description("Restrict the description to one table.")),
	), s.handleGetSchema)

	s.mcp.AddTool(mcp.NewTool("get_table_info",
		mcp.WithDescription("Return the structure of one table: columns, keys, indexes and row count."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Connection name.")),
		mcp.WithString("table_name", mcp.Required(), mcp.Description("Table to describe.")),
	), s.handleTableInfo)

	s.mcp.AddTool(mcp.NewTool("natural_language_query",
		mcp.WithDescription("Build a schema-aware prompt the calling AI uses to translate a question into SQL. No SQL is executed."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Connection name.")),
		mcp.WithString("question", mcp.Required(), mcp.Description("Natural language question about the data.")),
		mcp.WithNumber("max_rows", mcp.Description("Advisory row limit for the generated query (default 100).")),
	), s.handleNaturalLanguageQuery)

	s.mcp.AddTool(mcp.NewTool("execute_sql_query",
		mcp.WithDescription("Run a read-only SQL statement with bounded rows and wall time. Values bind through parameters, never string interpolation."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Connection name.")),
		mcp.WithString("sql_query", mcp.Required(), mcp.Description("SELECT, WITH, SHOW, DESCRIBE or EXPLAIN statement.")),
		mcp.WithArray("params", mcp.Description("Positional parameter values bound to driver placeholders.")),
		mcp.WithNumber("max_rows", mcp.Description("Maximum rows returned (default 1000).")),
		mcp.WithNumber("timeout", mcp.Description("Query timeout in seconds (default 30).")),
		mcp.WithBoolean("read_only", mcp.Description("Reject non-read statements before execution (default true).")),
	), s.handleExecuteSQL)
}

func (s *Server) handleListConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(struct {
		Connections []core.ConnectionState `json:"connections"`
	}{Connections: s.registry.List()})
}

func (s *Server) handleConnect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := stringArg(req, "name")
	if name == "" {
		return errorResult(missingArg("name")), nil
	}

	handle, err := s.registry.Connect(ctx, name)
	if err != nil {
		return errorResult(err), nil
	}

	result := struct {
		Success       bool     `json:"success"`
		Name          string   `json:"name"`
		Type          string   `json:"type"`
		EngineVersion string   `json:"engine_version,omitempty"`
		Active        []string `json:"active_connections"`
	}{Success: true, Name: name, Type: handle.Type(), Active: s.registry.Names()}

	if info, err := handle.Info(ctx); err == nil {
		result.EngineVersion = info.EngineVersion
	}
	return jsonResult(result)
}

func (s *Server) handleDisconnect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := stringArg(req, "name")
	if name == "" {
		return errorResult(missingArg("name")), nil
	}

	if err := s.registry.Disconnect(name); err != nil {
		return errorResult(err), nil
	}
	return jsonResult(struct {
		Success bool   `json:"success"`
		Name    string `json:"name"`
	}{Success: true, Name: name})
}

func (s *Server) handleTestConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := stringArg(req, "name")
	if name == "" {
		return errorResult(missingArg("name")), nil
	}

	result := struct {
		Name  string `json:"name"`
		Alive bool   `json:"alive"`
		Error string `json:"error,omitempty"`
	}{Name: name}

	if err := s.registry.Test(ctx, name); err != nil {
		result.Error = err.Error()
	} else {
		result.Alive = true
	}
	return jsonResult(result)
}

func (s *Server) handleDatabaseInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := stringArg(req, "name")
	if name == "" {
		return errorResult(missingArg("name")), nil
	}

	var info *core.DatabaseInfo
	err := s.registry.Do(name, func(h backend.Backend) error {
		var err error
		info, err = h.Info(ctx)
		return err
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(info)
}

func (s *Server) handleListTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := stringArg(req, "name")
	if name == "" {
		return errorResult(missingArg("name")), nil
	}

	var tables []string
	err := s.registry.Do(name, func(h backend.Backend) error {
		var err error
		tables, err = s.inspect.TableNames(ctx, h)
		return err
	})
	if err != nil {
		return errorResult(err), nil
	}
	if tables == nil {
		tables = []string{}
	}
	return jsonResult(struct {
		Database string   `json:"database"`
		Tables   []string `json:"tables"`
	}{Database: name, Tables: tables})
}

func (s *Server) handleGetSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := stringArg(req, "name")
	if name == "" {
		return errorResult(missingArg("name")), nil
	}
	table := stringArg(req, "table_name")

	var desc *core.SchemaDescription
	err := s.registry.Do(name, func(h backend.Backend) error {
		var err error
		if table == "" {
			desc, err = s.inspect.Describe(ctx, h)
			return err
		}
		desc, err = s.inspect.DescribeOne(ctx, h, table)
		return err
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(desc)
}

func (s *Server) handleTableInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := stringArg(req, "name")
	table := stringArg(req, "table_name")
	if name == "" {
		return errorResult(missingArg("name")), nil
	}
	if table == "" {
		return errorResult(missingArg("table_name")), nil
	}

	var td *core.TableDescription
	err := s.registry.Do(name, func(h backend.Backend) error {
		var err error
		td, err = s.inspect.DescribeTable(ctx, h, table)
		return err
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(td)
}

func (s *Server) handleNaturalLanguageQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := stringArg(req, "name")
	question := stringArg(req, "question")
	if name == "" {
		return errorResult(missingArg("name")), nil
	}
	if question == "" {
		return errorResult(missingArg("question")), nil
	}
	maxRows := intArg(req, "max_rows", query.DefaultMaxRows)

	var (
		desc    *core.SchemaDescription
		version string
	)
	err := s.registry.Do(name, func(h backend.Backend) error {
		var err error
		desc, err = s.inspect.Describe(ctx, h)
		if err != nil {
			return err
		}
		if info, err := h.Info(ctx); err == nil {
			version = info.EngineVersion
		}
		return nil
	})
	if err != nil {
		return errorResult(err), nil
	}

	text, err := prompt.Build(desc, version, question, maxRows)
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(struct {
		Success       bool                    `json:"success"`
		Question      string                  `json:"question"`
		SchemaContext *core.SchemaDescription `json:"schema_context"`
		Prompt        string                  `json:"prompt"`
		MaxRows       int                     `json:"max_rows"`
		Instructions  map[string]string       `json:"instructions"`
	}{
		Success:       true,
		Question:      question,
		SchemaContext: desc,
		Prompt:        text,
		MaxRows:       maxRows,
		Instructions: map[string]string{
			"step_1": "Use the provided prompt with your AI to generate SQL",
			"step_2": "The AI should return only the SQL query",
			"step_3": "Call execute_sql_query with the generated SQL",
		},
	})
}

func (s *Server) handleExecuteSQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := stringArg(req, "name")
	sqlText := stringArg(req, "sql_query")
	if name == "" {
		return errorResult(missingArg("name")), nil
	}
	if sqlText == "" {
		return errorResult(missingArg("sql_query")), nil
	}

	opts := query.Options{
		MaxRows:  intArg(req, "max_rows", 1000),
		Timeout:  time.Duration(intArg(req, "timeout", 30)) * time.Second,
		ReadOnly: boolArg(req, "read_only", true),
	}
	params := arrayArg(req, "params")

	var result *core.QueryResult
	err := s.registry.Do(name, func(h backend.Backend) error {
		var err error
		result, err = s.executor.Execute(ctx, h, sqlText, params, opts)
		return err
	})
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(struct {
		Success   bool    `json:"success"`
		Columns   []string `json:"columns"`
		Rows      [][]any `json:"rows"`
		RowCount  int     `json:"row_count"`
		Truncated bool    `json:"truncated"`
		ElapsedMS int64   `json:"elapsed_ms"`
	}{
		Success:   true,
		Columns:   result.Columns,
		Rows:      result.Rows,
		RowCount:  result.RowCount,
		Truncated: result.Truncated,
		ElapsedMS: result.Elapsed.Milliseconds(),
	})
}
