package flakeindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/sid"
)

func TestFlushThenScanRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	ix := Open(store, flake.SPOT, "")

	for i := int64(1); i <= 5; i++ {
		ix.Add(flake.Flake{S: sid.SID(i), P: sid.SID(1), O: flake.LitObject("v", sid.XSDString, ""), T: -1, Op: true})
	}
	require.NoError(t, ix.Flush(ctx, 2))
	require.NotEmpty(t, ix.Root)
	require.Equal(t, 0, ix.Novelty.Size())

	got, err := ix.Scan(ctx, nil, nil, -1)
	require.NoError(t, err)
	require.Len(t, got, 5)
}

func TestScanMergesNoveltyWithPersisted(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	ix := Open(store, flake.SPOT, "")

	ix.Add(flake.Flake{S: sid.SID(1), P: sid.SID(1), O: flake.LitObject("v", sid.XSDString, ""), T: -1, Op: true})
	require.NoError(t, ix.Flush(ctx, 256))

	ix.Add(flake.Flake{S: sid.SID(2), P: sid.SID(1), O: flake.LitObject("v", sid.XSDString, ""), T: -2, Op: true})

	got, err := ix.Scan(ctx, nil, nil, -2)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestResolveDropsRetractedFacts(t *testing.T) {
	o := flake.LitObject("v", sid.XSDString, "")
	assertF := flake.Flake{S: sid.SID(1), P: sid.SID(1), O: o, T: -1, Op: true}
	retractF := flake.Flake{S: sid.SID(1), P: sid.SID(1), O: o, T: -2, Op: false}

	// t-descending within the group, as spot/psot/post/opst order them.
	got := Resolve([]flake.Flake{retractF, assertF}, -2)
	require.Empty(t, got, "as of t=-2 the retraction is the most recent flake, so the fact shows nothing")

	got = Resolve([]flake.Flake{assertF}, -1)
	require.Len(t, got, 1)
}

func TestResolveAsOfTIgnoresFutureFlakes(t *testing.T) {
	o := flake.LitObject("v", sid.XSDString, "")
	// t is strictly decreasing over time, so more negative is more recent:
	// earlier asserts at the first commit (t=-1), a later commit (t=-5)
	// retracts it. Sorted most-recent-first (ascending t): [later, earlier].
	earlier := flake.Flake{S: sid.SID(1), P: sid.SID(1), O: o, T: -1, Op: true}
	later := flake.Flake{S: sid.SID(1), P: sid.SID(1), O: o, T: -5, Op: false}

	got := Resolve([]flake.Flake{later, earlier}, -1)
	require.Len(t, got, 1, "retraction at t=-5 is in the future relative to asOfT=-1")
	require.True(t, got[0].Op)
}
