package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datascout-labs/datascout/internal/core"
)

func readReq(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func resourceText(t *testing.T, contents []mcp.ResourceContents) string {
	t.Helper()
	require.Len(t, contents, 1)
	tc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok, "resources serve text contents")
	return tc.Text
}

func TestParseSchemaURI(t *testing.T) {
	tests := []struct {
		uri       string
		name      string
		table     string
		expectErr bool
	}{
		{uri: "schema://shop", name: "shop"},
		{uri: "schema://shop/orders", name: "shop", table: "orders"},
		{uri: "schema://", expectErr: true},
		{uri: "connections://list", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			name, table, err := parseSchemaURI(tt.uri)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.table, table)
		})
	}
}

func TestConnectionListResource(t *testing.T) {
	s := newShopServer(t)

	contents, err := s.readConnectionList(context.Background(), readReq("connections://list"))
	require.NoError(t, err)

	var listing struct {
		Connections []core.ConnectionState `json:"connections"`
	}
	require.NoError(t, json.Unmarshal([]byte(resourceText(t, contents)), &listing))
	require.Len(t, listing.Connections, 1)
	assert.Equal(t, "shop", listing.Connections[0].Name)
}

func TestSchemaResource(t *testing.T) {
	s := newShopServer(t)
	connectShop(t, s)

	contents, err := s.readSchema(context.Background(), readReq("schema://shop"))
	require.NoError(t, err)

	var desc core.SchemaDescription
	require.NoError(t, json.Unmarshal([]byte(resourceText(t, contents)), &desc))
	assert.Equal(t, []string{"customers", "orders"}, desc.TableNames())
}

func TestSchemaResourceSingleTable(t *testing.T) {
	s := newShopServer(t)
	connectShop(t, s)

	contents, err := s.readSchema(context.Background(), readReq("schema://shop/customers"))
	require.NoError(t, err)

	var td core.TableDescription
	require.NoError(t, json.Unmarshal([]byte(resourceText(t, contents)), &td))
	assert.Equal(t, "customers", td.Name)
}

func TestSchemaResourceRequiresConnection(t *testing.T) {
	s := newShopServer(t)

	_, err := s.readSchema(context.Background(), readReq("schema://shop"))
	assert.Error(t, err, "resources do not implicitly connect")
}

func TestSchemaResourceCacheInvalidation(t *testing.T) {
	s := newShopServer(t)
	connectShop(t, s)
	ctx := context.Background()

	_, err := s.readSchema(ctx, readReq("schema://shop"))
	require.NoError(t, err)

	s.cacheMu.Lock()
	cached, ok := s.cache["schema://shop"]
	s.cacheMu.Unlock()
	require.True(t, ok, "first read should populate the cache")
	assert.Equal(t, s.registry.Generation(), cached.generation)

	// Disconnect bumps the generation; the cached body is now stale.
	require.NoError(t, s.registry.Disconnect("shop"))
	connectShop(t, s)

	_, err = s.readSchema(ctx, readReq("schema://shop"))
	require.NoError(t, err)

	s.cacheMu.Lock()
	refreshed := s.cache["schema://shop"]
	s.cacheMu.Unlock()
	assert.NotEqual(t, cached.generation, refreshed.generation, "reconnect must invalidate the cached schema")
}
