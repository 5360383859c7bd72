package core

import "time"

// QueryResult is the standardized container for query output. Rows are
// ordered value tuples matching Columns; len(Rows) never exceeds the row
// cap the executor was given, and Truncated reports whether the underlying
// result set held more rows than were returned.
type QueryResult struct {
	Columns   []string      `json:"columns"`
	Rows      [][]any       `json:"rows"`
	RowCount  int           `json:"row_count"`
	Truncated bool          `json:"truncated"`
	Elapsed   time.Duration `json:"elapsed"`
}

// DatabaseInfo holds engine-level metadata for a connected database.
type DatabaseInfo struct {
	EngineVersion string  `json:"engine_version"`
	CharacterSet  string  `json:"character_set"`
	Collation     string  `json:"collation,omitempty"`
	DatabaseName  string  `json:"database_name"`
	TableCount    int     `json:"table_count"`
	ApproxSizeMB  float64 `json:"approx_size_mb"`
}
