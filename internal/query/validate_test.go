package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascout-labs/datascout/internal/dberr"
)

func TestValidateReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr bool
	}{
		{name: "plain select", sql: "SELECT * FROM users"},
		{name: "lowercase select", sql: "select id from users"},
		{name: "cte", sql: "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent"},
		{name: "show", sql: "SHOW TABLES"},
		{name: "describe", sql: "DESCRIBE users"},
		{name: "desc", sql: "DESC users"},
		{name: "explain", sql: "EXPLAIN SELECT 1"},
		{name: "trailing semicolon", sql: "SELECT 1;"},
		{name: "literal containing keyword", sql: "SELECT * FROM logs WHERE message = 'DROP TABLE users'"},
		{name: "comment containing keyword", sql: "SELECT 1 -- DELETE everything\n"},
		{name: "identifier containing keyword", sql: "SELECT updated_at, created_at FROM users"},

		{name: "empty", sql: "  ", wantErr: true},
		{name: "insert", sql: "INSERT INTO users VALUES (1)", wantErr: true},
		{name: "update", sql: "UPDATE users SET name = 'x'", wantErr: true},
		{name: "delete", sql: "DELETE FROM users", wantErr: true},
		{name: "drop", sql: "DROP TABLE users", wantErr: true},
		{name: "multiple statements", sql: "SELECT 1; DELETE FROM users", wantErr: true},
		{name: "select hiding delete", sql: "SELECT * FROM users; DELETE FROM users", wantErr: true},
		{name: "set statement", sql: "SET GLOBAL max_connections = 1", wantErr: true},
		{name: "grant", sql: "GRANT ALL ON *.* TO 'x'", wantErr: true},
		{name: "call procedure", sql: "CALL cleanup()", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReadOnly(tt.sql)
			if tt.wantErr {
				require.Error(t, err, "query should be rejected: %s", tt.sql)
				assert.Equal(t, dberr.UnsafeQuery, dberr.KindOf(err), "rejections should classify as unsafe_query")
			} else {
				assert.NoError(t, err, "query should be allowed: %s", tt.sql)
			}
		})
	}
}

func TestStripLiteralsAndComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "single quotes", in: "SELECT 'DROP TABLE x'", want: "SELECT ''"},
		{name: "escaped quote", in: "SELECT 'it''s'", want: "SELECT ''"},
		{name: "backslash escape", in: `SELECT 'a\'b'`, want: "SELECT ''"},
		{name: "line comment", in: "SELECT 1 -- DELETE\nFROM t", want: "SELECT 1  \nFROM t"},
		{name: "hash comment", in: "SELECT 1 # DELETE", want: "SELECT 1  "},
		{name: "block comment", in: "SELECT /* DELETE */ 1", want: "SELECT   1"},
		{name: "backtick identifier", in: "SELECT `weird;name` FROM t", want: "SELECT `` FROM t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripLiteralsAndComments(tt.in))
		})
	}
}

func TestHasLimitClause(t *testing.T) {
	assert.True(t, HasLimitClause("SELECT * FROM t LIMIT 10"))
	assert.True(t, HasLimitClause("select * from t limit 5 offset 2"))
	assert.True(t, HasLimitClause("SELECT * FROM t FETCH FIRST 10 ROWS ONLY"))
	assert.True(t, HasLimitClause("SELECT * FROM t LIMIT ?"), "a placeholder bound is still a bound")
	assert.True(t, HasLimitClause("SELECT * FROM t LIMIT :n"))
	assert.True(t, HasLimitClause("SELECT * FROM t LIMIT $1"))
	assert.False(t, HasLimitClause("SELECT * FROM t"))
	assert.False(t, HasLimitClause("SELECT * FROM t WHERE note = 'limit 10'"), "a LIMIT inside a literal does not bound the query")
}
