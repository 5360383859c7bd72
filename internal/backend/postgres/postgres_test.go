package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/datascout-labs/datascout/internal/config"
	"github.com/datascout-labs/datascout/internal/dberr"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.ConnectionConfig
		expected string
	}{
		{
			name: "full config",
			cfg: &config.ConnectionConfig{
				Host: "db.internal", Port: 5432, Database: "warehouse",
				User: "svc", Password: "hunter2", ConnectTimeout: 10,
			},
			expected: "host=db.internal port=5432 dbname=warehouse sslmode=disable connect_timeout=10 user=svc password=hunter2",
		},
		{
			name: "ssl required",
			cfg: &config.ConnectionConfig{
				Host: "db.internal", Port: 5432, Database: "warehouse",
				User: "svc", SSL: true, ConnectTimeout: 5,
			},
			expected: "host=db.internal port=5432 dbname=warehouse sslmode=require connect_timeout=5 user=svc",
		},
		{
			name: "no credentials",
			cfg: &config.ConnectionConfig{
				Host: "localhost", Port: 5432, Database: "dev", ConnectTimeout: 10,
			},
			expected: "host=localhost port=5432 dbname=dev sslmode=disable connect_timeout=10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.cfg))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		code string
		want dberr.Kind
	}{
		{name: "bad password", code: "28P01", want: dberr.Authentication},
		{name: "invalid authorization", code: "28000", want: dberr.Authentication},
		{name: "syntax error", code: "42601", want: dberr.QuerySyntax},
		{name: "undefined table", code: "42P01", want: dberr.TableNotFound},
		{name: "undefined column", code: "42703", want: dberr.QuerySyntax},
		{name: "query canceled", code: "57014", want: dberr.QueryTimeout},
		{name: "database missing", code: "3D000", want: dberr.Connection},
		{name: "connection failure class", code: "08000", want: dberr.Connection},
		{name: "check violation", code: "23514", want: dberr.QueryExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &pgconn.PgError{Code: tt.code, Message: tt.name}
			assert.Equal(t, tt.want, classify(err))
		})
	}
}

func TestClassifyNonDriverError(t *testing.T) {
	assert.Equal(t, dberr.QueryExecution, classify(assert.AnError))
}

func TestRegistered(t *testing.T) {
	b := New(nil)
	assert.Equal(t, config.TypePostgres, b.Type())
}
