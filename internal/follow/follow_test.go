package follow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/commitstore"
	"github.com/graphledger/graphledger/internal/ledger"
	"github.com/graphledger/graphledger/internal/nameservice"
	"github.com/graphledger/graphledger/internal/storage/memstore"
)

func newBranch(t *testing.T) *ledger.BranchState {
	t.Helper()
	adapter := memstore.New()
	id, err := ledger.Parse("acme")
	require.NoError(t, err)
	bs, err := ledger.Open(context.Background(), id, adapter, ledger.DefaultIndexingOptions(), nil)
	require.NoError(t, err)
	return bs
}

// advance writes commit through the adapter and adopts it as bs's current
// state (via Adopt, so db.T is rebuilt from the commit like a real writer's
// publish would leave it), standing in for a local writer's CAS without
// pulling in internal/transact.
func advance(t *testing.T, bs *ledger.BranchState, prev string, tVal int64) commitstore.Commit {
	t.Helper()
	ctx := context.Background()
	written, err := commitstore.Write(ctx, bs.Adapter, commitstore.Commit{Branch: bs.ID.Branch, Prev: prev, T: tVal})
	require.NoError(t, err)
	require.NoError(t, bs.Adopt(ctx, written))
	return written
}

func TestApplyIgnoresCurrentNotify(t *testing.T) {
	bs := newBranch(t)
	c1 := advance(t, bs, "", -1)

	err := apply(context.Background(), bs, nameservice.Record{CommitID: c1.ID, T: c1.T})
	require.NoError(t, err)
	require.Equal(t, c1.ID, bs.LatestCommit())
}

func TestApplyIgnoresBehindNotify(t *testing.T) {
	bs := newBranch(t)
	c1 := advance(t, bs, "", -1)
	c2 := advance(t, bs, c1.ID, -2)

	err := apply(context.Background(), bs, nameservice.Record{CommitID: c1.ID, T: c1.T})
	require.NoError(t, err)
	require.Equal(t, c2.ID, bs.LatestCommit(), "a stale notify for an older commit must not move the branch back")
}

func TestApplyAdoptsAheadNotify(t *testing.T) {
	bs := newBranch(t)
	c1 := advance(t, bs, "", -1)

	ctx := context.Background()
	c2, err := commitstore.Write(ctx, bs.Adapter, commitstore.Commit{Branch: bs.ID.Branch, Prev: c1.ID, T: -2})
	require.NoError(t, err)

	require.NoError(t, apply(ctx, bs, nameservice.Record{CommitID: c2.ID, T: c2.T}))
	require.Equal(t, c2.ID, bs.LatestCommit(), "a notify chaining directly from local state must be adopted")
}

func TestApplyReloadsOnDivergedNotify(t *testing.T) {
	bs := newBranch(t)
	c1 := advance(t, bs, "", -1)

	// A sibling commit also rooted at genesis (Prev "") but with a
	// different T, so it hashes to a different ID than c1 -- simulating
	// another writer that published from the same starting point.
	ctx := context.Background()
	diverged, err := commitstore.Write(ctx, bs.Adapter, commitstore.Commit{Branch: bs.ID.Branch, Prev: "", T: -3})
	require.NoError(t, err)
	require.NotEqual(t, c1.ID, diverged.ID)

	require.NoError(t, apply(ctx, bs, nameservice.Record{CommitID: diverged.ID, T: diverged.T}))
	require.Equal(t, diverged.ID, bs.LatestCommit(), "a diverged notify must still be adopted by reload")
}
