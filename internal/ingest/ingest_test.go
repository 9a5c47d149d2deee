package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/commitstore"
)

func TestClassifyCommitNotifyCurrent(t *testing.T) {
	got := ClassifyCommitNotify("c1", -1, commitstore.Commit{ID: "c1", T: -1})
	require.Equal(t, CommitCurrent, got)
}

func TestClassifyCommitNotifyAhead(t *testing.T) {
	got := ClassifyCommitNotify("c1", -1, commitstore.Commit{ID: "c2", Prev: "c1", T: -2})
	require.Equal(t, CommitAhead, got)
}

func TestClassifyCommitNotifyBehind(t *testing.T) {
	got := ClassifyCommitNotify("c2", -2, commitstore.Commit{ID: "c1", T: -1})
	require.Equal(t, CommitBehind, got)
}

func TestClassifyCommitNotifyDiverged(t *testing.T) {
	got := ClassifyCommitNotify("c1", -1, commitstore.Commit{ID: "c3", Prev: "c-other", T: -2})
	require.Equal(t, CommitDiverged, got)
}

func TestClassifyIndexNotify(t *testing.T) {
	require.Equal(t, IndexUpToDate, ClassifyIndexNotify("root-a", "", false))
	require.Equal(t, IndexUpToDate, ClassifyIndexNotify("root-a", "root-a", false))
	require.Equal(t, IndexStaleApply, ClassifyIndexNotify("root-a", "root-b", false))
	require.Equal(t, IndexConflict, ClassifyIndexNotify("root-a", "root-b", true))
}

func TestResolveIndexTieIsDeterministic(t *testing.T) {
	require.Equal(t, "a", ResolveIndexTie("a", "b"))
	require.Equal(t, "a", ResolveIndexTie("b", "a"))
	require.Equal(t, "x", ResolveIndexTie("x", "x"))
}
