package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascout-labs/datascout/internal/config"
	"github.com/datascout-labs/datascout/internal/dberr"
	"github.com/datascout-labs/datascout/internal/testutil"
)

func openShop(t *testing.T) *Backend {
	t.Helper()
	dbPath, _ := testutil.ShopDatabase(t)

	b := New(testutil.NewTestLogger(t))
	cfg := &config.ConnectionConfig{Name: "shop", Type: config.TypeSQLite, Database: dbPath}
	require.NoError(t, b.Open(context.Background(), cfg))
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestOpenMissingFile(t *testing.T) {
	b := New(testutil.NewTestLogger(t))
	cfg := &config.ConnectionConfig{Name: "shop", Type: config.TypeSQLite,
		Database: filepath.Join(t.TempDir(), "absent.db")}

	err := b.Open(context.Background(), cfg)
	require.Error(t, err, "a missing database file should fail open")
	assert.Equal(t, dberr.Connection, dberr.KindOf(err))
}

func TestRunQuery(t *testing.T) {
	b := openShop(t)

	result, err := b.Run(context.Background(), "SELECT name FROM customers ORDER BY id", nil, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"name"}, result.Columns)
	assert.Equal(t, 3, result.RowCount)
	assert.Equal(t, "Ada", result.Rows[0][0])
}

func TestRunSyntaxError(t *testing.T) {
	b := openShop(t)

	_, err := b.Run(context.Background(), "SELEC nonsense", nil, 10)
	require.Error(t, err)
	assert.Equal(t, dberr.QuerySyntax, dberr.KindOf(err))
}

func TestRunMissingTable(t *testing.T) {
	b := openShop(t)

	_, err := b.Run(context.Background(), "SELECT * FROM invoices", nil, 10)
	require.Error(t, err)
	assert.Equal(t, dberr.TableNotFound, dberr.KindOf(err))
}

func TestDescribeSchema(t *testing.T) {
	b := openShop(t)

	desc, err := b.DescribeSchema(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, config.TypeSQLite, desc.Engine)
	require.Len(t, desc.Tables, 2)
}

func TestDescribeSchemaUnknownTable(t *testing.T) {
	b := openShop(t)

	_, err := b.DescribeSchema(context.Background(), "invoices")
	require.Error(t, err)
	assert.Equal(t, dberr.TableNotFound, dberr.KindOf(err))
}

func TestInfo(t *testing.T) {
	b := openShop(t)

	info, err := b.Info(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, info.EngineVersion)
	assert.Equal(t, 2, info.TableCount)
	assert.Greater(t, info.ApproxSizeMB, 0.0, "a seeded database file occupies pages")
}

func TestCloseIdempotent(t *testing.T) {
	b := openShop(t)

	require.NoError(t, b.Close())
	assert.NoError(t, b.Close(), "second close should be a no-op")
	assert.False(t, b.Ping(context.Background()))
}
