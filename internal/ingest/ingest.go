// Package ingest implements the commit-notify and index-notify state
// machines: given a newly observed nameservice record and the subscriber's
// local view of a branch, decide what action (if any) the subscriber
// should take.
package ingest

import (
	"github.com/graphledger/graphledger/internal/commitstore"
)

// CommitNotifyState tags the outcome of comparing an incoming commit
// notification's t against the subscriber's current local t.
type CommitNotifyState int

const (
	// CommitCurrent: the notification matches what the subscriber already
	// has; no action needed.
	CommitCurrent CommitNotifyState = iota
	// CommitAhead: the notification is for a commit newer than the
	// subscriber's local t and chains directly from it; apply it.
	CommitAhead
	// CommitBehind: the notification is for a commit older than the
	// subscriber's local t (a stale or reordered delivery); ignore it.
	CommitBehind
	// CommitDiverged: the notification's prev does not match the
	// subscriber's local latest commit, meaning history diverged (a
	// concurrent writer committed first); the subscriber must reload from
	// the published pointer rather than apply incrementally.
	CommitDiverged
)

func (s CommitNotifyState) String() string {
	switch s {
	case CommitCurrent:
		return "current"
	case CommitAhead:
		return "ahead"
	case CommitBehind:
		return "behind"
	case CommitDiverged:
		return "diverged"
	default:
		return "unknown"
	}
}

// ClassifyCommitNotify compares an incoming commit against the
// subscriber's local state and returns which action it implies.
func ClassifyCommitNotify(localLatestCommitID string, localT int64, incoming commitstore.Commit) CommitNotifyState {
	if incoming.ID == localLatestCommitID {
		return CommitCurrent
	}
	if incoming.T >= localT {
		// A strictly-decreasing t that isn't older than ours can only be
		// "ahead" if it actually chains from what we have.
		return CommitBehind
	}
	if incoming.Prev == localLatestCommitID {
		return CommitAhead
	}
	return CommitDiverged
}

// IndexNotifyState tags the outcome of comparing an incoming index-flush
// notification (a commit that also carries new index roots) against the
// subscriber's locally cached roots.
type IndexNotifyState int

const (
	// IndexUpToDate: the subscriber's cached roots already match.
	IndexUpToDate IndexNotifyState = iota
	// IndexStaleApply: the subscriber should adopt the notification's
	// roots, discarding its own novelty-derived view for that index.
	IndexStaleApply
	// IndexConflict: the subscriber has pending local novelty past the
	// notification's t for an index the notification also flushed;
	// deterministic tie-break resolves which wins (see ResolveIndexTie).
	IndexConflict
)

// ClassifyIndexNotify compares one index's locally-known root against an
// incoming commit's recorded root for that index (empty means the commit
// didn't reindex it).
func ClassifyIndexNotify(localRoot, incomingRoot string, localHasPendingNovelty bool) IndexNotifyState {
	if incomingRoot == "" || incomingRoot == localRoot {
		return IndexUpToDate
	}
	if localHasPendingNovelty {
		return IndexConflict
	}
	return IndexStaleApply
}

// ResolveIndexTie deterministically picks a winner between two root ids
// observed for the same index at the same t, using lexicographic order on
// the content hash so every subscriber converges on the same choice
// without coordination.
func ResolveIndexTie(a, b string) string {
	if a <= b {
		return a
	}
	return b
}
