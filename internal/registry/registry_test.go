package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascout-labs/datascout/internal/backend"
	_ "github.com/datascout-labs/datascout/internal/backend/sqlite"
	"github.com/datascout-labs/datascout/internal/config"
	"github.com/datascout-labs/datascout/internal/core"
	"github.com/datascout-labs/datascout/internal/dberr"
	"github.com/datascout-labs/datascout/internal/testutil"
)

func newShopRegistry(t *testing.T) *Registry {
	t.Helper()
	_, configDir := testutil.ShopDatabase(t)
	resolver := config.NewResolver(configDir, testutil.NewTestLogger(t))
	reg := New(resolver, testutil.NewTestLogger(t))
	t.Cleanup(reg.CloseAll)
	return reg
}

func TestConnectAndGet(t *testing.T) {
	reg := newShopRegistry(t)
	ctx := context.Background()

	handle, err := reg.Connect(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", handle.Type())

	got, err := reg.Get("shop")
	require.NoError(t, err)
	assert.Same(t, handle, got, "get should return the connected handle")
}

func TestConnectIdempotent(t *testing.T) {
	reg := newShopRegistry(t)
	ctx := context.Background()

	first, err := reg.Connect(ctx, "shop")
	require.NoError(t, err)

	gen := reg.Generation()
	second, err := reg.Connect(ctx, "shop")
	require.NoError(t, err)

	assert.Same(t, first, second, "reconnecting must not create a second session")
	assert.Equal(t, gen, reg.Generation(), "a no-op connect does not bump the generation")
}

func TestGetWithoutConnect(t *testing.T) {
	reg := newShopRegistry(t)

	_, err := reg.Get("shop")
	require.Error(t, err)
	assert.Equal(t, dberr.NotConnected, dberr.KindOf(err), "queries never implicitly connect")
}

func TestDisconnectIdempotent(t *testing.T) {
	reg := newShopRegistry(t)
	ctx := context.Background()

	assert.NoError(t, reg.Disconnect("shop"), "disconnecting a never-connected name is a no-op")

	_, err := reg.Connect(ctx, "shop")
	require.NoError(t, err)
	require.NoError(t, reg.Disconnect("shop"))
	assert.NoError(t, reg.Disconnect("shop"), "second disconnect is a no-op")

	_, err = reg.Get("shop")
	assert.Equal(t, dberr.NotConnected, dberr.KindOf(err))
}

func TestConnectFailureLeavesNoHandle(t *testing.T) {
	reg := newShopRegistry(t)
	ctx := context.Background()

	_, err := reg.Connect(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, dberr.ConfigNotFound, dberr.KindOf(err))

	_, err = reg.Get("missing")
	assert.Equal(t, dberr.NotConnected, dberr.KindOf(err), "failed connect must not register a handle")
}

func TestListStates(t *testing.T) {
	reg := newShopRegistry(t)
	ctx := context.Background()

	states := reg.List()
	require.Len(t, states, 1)
	assert.Equal(t, "shop", states[0].Name)
	assert.Equal(t, core.StatusDisconnected, states[0].Status, "configured but never connected reports disconnected")

	_, err := reg.Connect(ctx, "shop")
	require.NoError(t, err)

	states = reg.List()
	require.Len(t, states, 1)
	assert.Equal(t, core.StatusConnected, states[0].Status)
	assert.Equal(t, "sqlite", states[0].Type)

	_, _ = reg.Connect(ctx, "missing")
	states = reg.List()
	require.Len(t, states, 2, "a failed name still appears in the listing")
	assert.Equal(t, core.StatusError, states[0].Status)
	assert.NotEmpty(t, states[0].LastError)
}

func TestGenerationChangesOnTopology(t *testing.T) {
	reg := newShopRegistry(t)
	ctx := context.Background()

	gen := reg.Generation()
	_, err := reg.Connect(ctx, "shop")
	require.NoError(t, err)
	afterConnect := reg.Generation()
	assert.NotEqual(t, gen, afterConnect, "connect should invalidate caches")

	require.NoError(t, reg.Disconnect("shop"))
	assert.NotEqual(t, afterConnect, reg.Generation(), "disconnect should invalidate caches")
}

func TestTestConnection(t *testing.T) {
	reg := newShopRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Test(ctx, "shop"), "transient test against a valid record should pass")
	assert.Empty(t, reg.Names(), "a transient test must not leave a session open")

	_, err := reg.Connect(ctx, "shop")
	require.NoError(t, err)
	assert.NoError(t, reg.Test(ctx, "shop"), "test against a live session pings it")

	assert.Error(t, reg.Test(ctx, "missing"))
}

func TestDoSerializesOnHandle(t *testing.T) {
	reg := newShopRegistry(t)
	ctx := context.Background()

	_, err := reg.Connect(ctx, "shop")
	require.NoError(t, err)

	var seen string
	err = reg.Do("shop", func(h backend.Backend) error {
		seen = h.Type()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", seen)

	err = reg.Do("other", func(backend.Backend) error { return nil })
	assert.Equal(t, dberr.NotConnected, dberr.KindOf(err))
}

func TestDoMutualExclusion(t *testing.T) {
	reg := newShopRegistry(t)
	ctx := context.Background()

	_, err := reg.Connect(ctx, "shop")
	require.NoError(t, err)

	const workers = 8
	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		overlap atomic.Bool
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				err := reg.Do("shop", func(backend.Backend) error {
					if inside.Add(1) > 1 {
						overlap.Store(true)
					}
					time.Sleep(time.Millisecond)
					inside.Add(-1)
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load(), "overlapping operations on one name must not share the session concurrently")
}

func TestConcurrentConnectSingleHandle(t *testing.T) {
	reg := newShopRegistry(t)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	handles := make([]backend.Backend, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := reg.Connect(ctx, "shop")
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, handles[0], handles[i], "racing connects must converge on one session")
	}
	assert.Equal(t, []string{"shop"}, reg.Names())
}

func TestCloseAll(t *testing.T) {
	reg := newShopRegistry(t)
	ctx := context.Background()

	_, err := reg.Connect(ctx, "shop")
	require.NoError(t, err)

	reg.CloseAll()
	assert.Empty(t, reg.Names(), "close all should tear down every session")
}
