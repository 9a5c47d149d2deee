package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/flakeindex"
	"github.com/graphledger/graphledger/internal/resolve"
	"github.com/graphledger/graphledger/internal/storage/memstore"
)

// TestCachedStoreWrapsBlobStoreInResolver is the regression test for the
// gap review flagged: Index.scanPersisted must read through a
// resolve.Resolver, not the raw BlobStore, so repeated scans of the same
// node hit the cache instead of re-decoding it from storage every time.
func TestCachedStoreWrapsBlobStoreInResolver(t *testing.T) {
	store, err := cachedStore(memstore.New(), 64)
	require.NoError(t, err)

	r, ok := store.(*resolve.Resolver)
	require.True(t, ok, "cachedStore must return a *resolve.Resolver, not a raw BlobStore")

	ctx := context.Background()
	node := &flakeindex.Node{Index: flake.SPOT, Leaf: true}
	id, err := r.WriteNode(ctx, node)
	require.NoError(t, err)

	first, err := r.ReadNode(ctx, flake.SPOT, id)
	require.NoError(t, err)
	second, err := r.ReadNode(ctx, flake.SPOT, id)
	require.NoError(t, err)
	require.Same(t, first, second, "a second read of the same node must be served from cache")
}

// TestCachedStoreDefaultsCacheSizeWhenUnset confirms a zero/negative
// CacheMaxMB doesn't break construction -- it falls back to resolve.New's
// own default bound instead of an unbounded or zero-capacity cache.
func TestCachedStoreDefaultsCacheSizeWhenUnset(t *testing.T) {
	store, err := cachedStore(memstore.New(), 0)
	require.NoError(t, err)
	require.NotNil(t, store)
}
