package backend

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascout-labs/datascout/internal/config"
	"github.com/datascout-labs/datascout/internal/core"
)

type fakeBackend struct {
	SQLBase
	typ string
}

func (f *fakeBackend) Type() string { return f.typ }

func (f *fakeBackend) Open(ctx context.Context, cfg *config.ConnectionConfig) error { return nil }

func (f *fakeBackend) DescribeSchema(ctx context.Context, table string) (*core.SchemaDescription, error) {
	return &core.SchemaDescription{Engine: f.typ}, nil
}

func (f *fakeBackend) Info(ctx context.Context) (*core.DatabaseInfo, error) {
	return &core.DatabaseInfo{}, nil
}

func TestRegisterAndNew(t *testing.T) {
	Register("faketest", func(logger *slog.Logger) Backend {
		return &fakeBackend{typ: "faketest"}
	})

	b, err := New(&config.ConnectionConfig{Type: "faketest"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "faketest", b.Type())
	assert.True(t, IsRegistered("faketest"))
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(&config.ConnectionConfig{Type: "oracle"}, nil)
	require.Error(t, err)

	var unknownErr *UnknownBackendError
	require.ErrorAs(t, err, &unknownErr, "unknown types should return UnknownBackendError")
	assert.Equal(t, "oracle", unknownErr.Type)
	assert.Contains(t, err.Error(), "available")
}

func TestListSorted(t *testing.T) {
	Register("zz-test", func(logger *slog.Logger) Backend { return &fakeBackend{typ: "zz-test"} })
	Register("aa-test", func(logger *slog.Logger) Backend { return &fakeBackend{typ: "aa-test"} })

	names := List()
	assert.IsIncreasing(t, names, "registered backends should list in sorted order")
	assert.Contains(t, names, "aa-test")
	assert.Contains(t, names, "zz-test")
}
