package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/commitstore"
	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/sid"
	"github.com/graphledger/graphledger/internal/storage/memstore"
)

func writeCommit(t *testing.T, ctx context.Context, adapter *memstore.Store, prev string, tVal int64, flakes []flake.Flake) commitstore.Commit {
	t.Helper()
	dataKey, err := commitstore.WriteData(ctx, adapter, flakes)
	require.NoError(t, err)
	c, err := commitstore.Write(ctx, adapter, commitstore.Commit{Prev: prev, Branch: "main", T: tVal, Data: dataKey})
	require.NoError(t, err)
	return c
}

func TestLCAFindsCommonAncestor(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New()

	genesis := writeCommit(t, ctx, adapter, "", -1, nil)
	common := writeCommit(t, ctx, adapter, genesis.ID, -2, nil)
	leftTip := writeCommit(t, ctx, adapter, common.ID, -3, nil)
	rightTip := writeCommit(t, ctx, adapter, common.ID, -3, []flake.Flake{
		{S: sid.SID(2), P: sid.SID(1), O: flake.LitObject("right", sid.XSDString, ""), T: -3, Op: true},
	})

	got, err := LCA(ctx, adapter, leftTip.ID, rightTip.ID)
	require.NoError(t, err)
	require.Equal(t, common.ID, got)
}

func TestCanFastForward(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New()

	genesis := writeCommit(t, ctx, adapter, "", -1, nil)
	child := writeCommit(t, ctx, adapter, genesis.ID, -2, nil)

	ok, err := CanFastForward(ctx, adapter, genesis.ID, child.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = CanFastForward(ctx, adapter, child.ID, genesis.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSquashEffectKeepsLatestPerFact(t *testing.T) {
	o := flake.LitObject("v1", sid.XSDString, "")
	o2 := flake.LitObject("v2", sid.XSDString, "")
	flakes := []flake.Flake{
		{S: sid.SID(1), P: sid.SID(1), O: o, T: -1, Op: true},
		{S: sid.SID(1), P: sid.SID(1), O: o2, T: -2, Op: true},
	}
	net := SquashEffect(flakes)
	require.Len(t, net, 2, "different objects are different facts, not superseding")
}

func TestReportCountsCommitsSinceAncestor(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New()

	genesis := writeCommit(t, ctx, adapter, "", -1, nil)
	left1 := writeCommit(t, ctx, adapter, genesis.ID, -2, nil)
	left2 := writeCommit(t, ctx, adapter, left1.ID, -3, nil)
	right1 := writeCommit(t, ctx, adapter, genesis.ID, -2, []flake.Flake{
		{S: sid.SID(2), P: sid.SID(1), O: flake.LitObject("right", sid.XSDString, ""), T: -2, Op: true},
	})

	report, err := Report(ctx, adapter, left2.ID, right1.ID)
	require.NoError(t, err)
	require.Equal(t, genesis.ID, report.Ancestor)
	require.Equal(t, 2, report.AheadLocal)
	require.Equal(t, 1, report.AheadRemote)
}

func TestSquashWritesOneCommitWithNetEffect(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New()

	lit := flake.LitObject("v", sid.XSDString, "")

	genesis := writeCommit(t, ctx, adapter, "", -1, nil)
	target := writeCommit(t, ctx, adapter, genesis.ID, -2, nil)
	source1 := writeCommit(t, ctx, adapter, genesis.ID, -2, []flake.Flake{
		{S: sid.SID(1), P: sid.SID(1), O: lit, T: -2, Op: true},
	})
	source2 := writeCommit(t, ctx, adapter, source1.ID, -3, []flake.Flake{
		{S: sid.SID(1), P: sid.SID(1), O: lit, T: -3, Op: false}, // retraction of the same fact
	})

	squashed, err := Squash(ctx, adapter, target.ID, source2.ID, "tester", "squash merge")
	require.NoError(t, err)
	require.Equal(t, target.ID, squashed.Prev, "squash produces exactly one new commit on target")

	flakes, err := commitstore.ReadData(ctx, adapter, squashed.Data)
	require.NoError(t, err)
	require.Len(t, flakes, 1, "same-fact assert then retract collapses to one net entry")
	require.False(t, flakes[0].Op, "the later write (the retraction) wins")
}

func TestRebaseReplaysCommitsOntoNewBase(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New()

	genesis := writeCommit(t, ctx, adapter, "", -1, nil)
	newBase := writeCommit(t, ctx, adapter, genesis.ID, -2, nil)
	source1 := writeCommit(t, ctx, adapter, genesis.ID, -2, []flake.Flake{
		{S: sid.SID(1), P: sid.SID(1), O: flake.LitObject("v", sid.XSDString, ""), T: -2, Op: true},
	})

	newTip, err := Rebase(ctx, adapter, genesis.ID, source1.ID, newBase.ID)
	require.NoError(t, err)

	rebased, err := commitstore.Read(ctx, adapter, newTip)
	require.NoError(t, err)
	require.Equal(t, newBase.ID, rebased.Prev)
	require.NoError(t, commitstore.Verify(rebased))
}

func TestCheckResetAllowsAncestorOrSelf(t *testing.T) {
	ctx := context.Background()
	adapter := memstore.New()

	genesis := writeCommit(t, ctx, adapter, "", -1, nil)
	child := writeCommit(t, ctx, adapter, genesis.ID, -2, nil)
	other := writeCommit(t, ctx, adapter, genesis.ID, -2, []flake.Flake{
		{S: sid.SID(2), P: sid.SID(1), O: flake.LitObject("other", sid.XSDString, ""), T: -2, Op: true},
	})

	require.NoError(t, CheckReset(ctx, adapter, child.ID, child.ID))
	require.NoError(t, CheckReset(ctx, adapter, child.ID, genesis.ID))
	require.Error(t, CheckReset(ctx, adapter, child.ID, other.ID), "a sibling commit is not reachable from child")
}
