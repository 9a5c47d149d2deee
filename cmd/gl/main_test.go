package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/storage/localstore"
	"github.com/graphledger/graphledger/internal/storage/memstore"
)

func TestExitCodeForMapsErrorTaxonomy(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.ErrInvalidLedger, 2},
		{errs.ErrInvalidTransaction, 3},
		{errs.ErrInvalidFlake, 3},
		{errs.ErrFuelExceeded, 3},
		{errs.ErrCannotFastForward, 4},
		{errs.ErrStorageFailure, 1},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, exitCodeFor(tc.err))
	}
}

func TestOpenAdapterFallsBackToMemstoreWhenUnconfigured(t *testing.T) {
	saved := opts
	defer func() { opts = saved }()
	opts.StoragePath = ""
	opts.S3Bucket = ""

	adapter, err := openAdapter(context.Background())
	require.NoError(t, err)
	_, ok := adapter.(*memstore.Store)
	require.True(t, ok)
}

func TestOpenAdapterUsesLocalstoreWhenStoragePathSet(t *testing.T) {
	saved := opts
	defer func() { opts = saved }()
	opts.S3Bucket = ""
	opts.StoragePath = t.TempDir() + "/gl.bolt"

	adapter, err := openAdapter(context.Background())
	require.NoError(t, err)
	defer adapter.Close()
	_, ok := adapter.(*localstore.Store)
	require.True(t, ok)
}
