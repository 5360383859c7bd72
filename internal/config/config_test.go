package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datascout-labs/datascout/internal/dberr"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ConnectionConfig
		wantErr bool
	}{
		{
			name: "valid mysql",
			cfg:  ConnectionConfig{Name: "shop", Type: TypeMySQL, Host: "localhost", User: "root", Database: "shop"},
		},
		{
			name: "valid postgres",
			cfg:  ConnectionConfig{Name: "wh", Type: TypePostgres, Host: "db.internal", User: "svc", Database: "warehouse"},
		},
		{
			name: "valid sqlite",
			cfg:  ConnectionConfig{Name: "local", Type: TypeSQLite, Database: "/tmp/local.db"},
		},
		{
			name:    "missing type",
			cfg:     ConnectionConfig{Name: "shop", Host: "localhost", Database: "shop"},
			wantErr: true,
		},
		{
			name:    "mysql without host",
			cfg:     ConnectionConfig{Name: "shop", Type: TypeMySQL, User: "root", Database: "shop"},
			wantErr: true,
		},
		{
			name:    "mysql without user",
			cfg:     ConnectionConfig{Name: "shop", Type: TypeMySQL, Host: "localhost", Database: "shop"},
			wantErr: true,
		},
		{
			name:    "sqlite without path",
			cfg:     ConnectionConfig{Name: "local", Type: TypeSQLite},
			wantErr: true,
		},
		{
			name:    "port out of range",
			cfg:     ConnectionConfig{Name: "shop", Type: TypeMySQL, Host: "localhost", User: "root", Database: "shop", Port: 70000},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err, "expected validation to fail")
				assert.Equal(t, dberr.ConfigInvalid, dberr.KindOf(err), "validation failures should classify as config_invalid")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	mysql := ConnectionConfig{Type: TypeMySQL}
	applyDefaults(&mysql)
	assert.Equal(t, 3306, mysql.Port, "mysql should default to port 3306")
	assert.Equal(t, "utf8mb4", mysql.Charset, "mysql should default to utf8mb4")
	assert.Equal(t, 10, mysql.ConnectTimeout, "connect timeout should default to 10s")

	pg := ConnectionConfig{Type: TypePostgres, Port: 5433}
	applyDefaults(&pg)
	assert.Equal(t, 5433, pg.Port, "explicit port should not be overridden")
}

func TestEnvRef(t *testing.T) {
	assert.True(t, IsEnvRef("env:DB_PASSWORD"), "env: prefix should be recognized")
	assert.False(t, IsEnvRef("env:"), "marker without a name is not a reference")
	assert.False(t, IsEnvRef("hunter2"), "literal passwords are not references")
	assert.Equal(t, "DB_PASSWORD", EnvRefName("env:DB_PASSWORD"))
}

func TestRedacted(t *testing.T) {
	cfg := ConnectionConfig{Name: "shop", Type: TypeMySQL, Password: "hunter2"}
	red := cfg.Redacted()
	assert.Empty(t, red.Password, "redacted copy must drop the password")
	assert.Equal(t, "hunter2", cfg.Password, "original must be untouched")
}
