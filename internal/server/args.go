package server

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/datascout-labs/datascout/internal/dberr"
)

// Tool arguments arrive as decoded JSON, so numbers are float64 and
// arrays are []any. These helpers flatten the type assertions.

func argsMap(req mcp.CallToolRequest) map[string]any {
	m, _ := req.Params.Arguments.(map[string]any)
	return m
}

func stringArg(req mcp.CallToolRequest, key string) string {
	v, _ := argsMap(req)[key].(string)
	return v
}

func intArg(req mcp.CallToolRequest, key string, fallback int) int {
	switch v := argsMap(req)[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func boolArg(req mcp.CallToolRequest, key string, fallback bool) bool {
	if v, ok := argsMap(req)[key].(bool); ok {
		return v
	}
	return fallback
}

func arrayArg(req mcp.CallToolRequest, key string) []any {
	v, _ := argsMap(req)[key].([]any)
	return v
}

func missingArg(key string) error {
	return dberr.New(dberr.ConfigInvalid, "%s parameter is required", key)
}
