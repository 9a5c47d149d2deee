package commitstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/sid"
	"github.com/graphledger/graphledger/internal/storage/memstore"
)

func TestWriteDataReadDataRoundTrips(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New()

	flakes := []flake.Flake{
		{S: sid.SID(1), P: sid.SID(2), O: flake.LitObject("hello", sid.XSDString, ""), T: -1, Op: true},
		{S: sid.SID(1), P: sid.SID(3), O: flake.RefObject(sid.SID(4)), T: -1, Op: true, M: flake.Meta{"note": "ref"}},
	}

	key, err := WriteData(ctx, adapter, flakes)
	require.NoError(t, err)
	require.NotEmpty(t, key)

	got, err := ReadData(ctx, adapter, key)
	require.NoError(t, err)
	require.Equal(t, flakes, got)
}

func TestReadDataEmptyKeyReturnsNil(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New()

	got, err := ReadData(ctx, adapter, "")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestWriteDataIsContentAddressed(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New()

	flakes := []flake.Flake{
		{S: sid.SID(1), P: sid.SID(2), O: flake.LitObject("x", sid.XSDString, ""), T: -1, Op: true},
	}

	key1, err := WriteData(ctx, adapter, flakes)
	require.NoError(t, err)
	key2, err := WriteData(ctx, adapter, flakes)
	require.NoError(t, err)
	require.Equal(t, key1, key2, "identical flake sets must content-address to the same key")
}
