package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/flakeindex"
)

func TestResolveCachesAfterFirstLoad(t *testing.T) {
	ctx := context.Background()
	store := flakeindex.NewMemStore()
	node := &flakeindex.Node{Index: flake.SPOT, Leaf: true, Size: 0}
	id, err := store.WriteNode(ctx, node)
	require.NoError(t, err)

	r, err := New(store, 0)
	require.NoError(t, err)

	key := Key{Index: flake.SPOT, ID: id}
	got, err := r.Resolve(ctx, key)
	require.NoError(t, err)
	require.Same(t, node, got)

	got2, err := r.Resolve(ctx, key)
	require.NoError(t, err)
	require.Same(t, node, got2, "second resolve must be served from cache")
}

func TestResolvePropagatesStoreError(t *testing.T) {
	ctx := context.Background()
	store := flakeindex.NewMemStore()
	r, err := New(store, 0)
	require.NoError(t, err)

	_, err = r.Resolve(ctx, Key{Index: flake.SPOT, ID: "missing"})
	require.Error(t, err)
}

func TestInvalidateDropsCachedEntry(t *testing.T) {
	ctx := context.Background()
	store := flakeindex.NewMemStore()
	node := &flakeindex.Node{Index: flake.SPOT, Leaf: true}
	id, err := store.WriteNode(ctx, node)
	require.NoError(t, err)

	r, err := New(store, 0)
	require.NoError(t, err)

	key := Key{Index: flake.SPOT, ID: id}
	_, err = r.Resolve(ctx, key)
	require.NoError(t, err)

	r.Invalidate(key)
	_, ok := r.cache.Get(key)
	require.False(t, ok)
}

func TestTempIDGeneratorProducesDistinctIDs(t *testing.T) {
	var gen TempIDGenerator
	a := gen.NewTempID()
	b := gen.NewTempID()
	require.NotEqual(t, a, b)
	require.Contains(t, a, "_:b")

	tagA := gen.NewTxTag()
	tagB := gen.NewTxTag()
	require.NotEqual(t, tagA, tagB)
	require.Contains(t, tagA, "tt:")
}
