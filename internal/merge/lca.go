// Package merge implements branch history operations: lowest-common-
// ancestor discovery, fast-forward, squash merge, rebase, safe reset, and
// divergence reporting, all over the commit DAG commitstore walks.
package merge

import (
	"context"
	"fmt"

	"github.com/graphledger/graphledger/internal/commitstore"
	"github.com/graphledger/graphledger/internal/storage"
)

// LCA performs a lazy bidirectional walk from a and b toward genesis,
// returning the first commit id reachable from both -- the lowest common
// ancestor two branch tips share.
func LCA(ctx context.Context, adapter storage.Adapter, a, b string) (string, error) {
	seenA := map[string]bool{}
	seenB := map[string]bool{}
	curA, curB := a, b

	if a == b {
		return a, nil
	}

	for curA != "" || curB != "" {
		if curA != "" {
			if seenB[curA] {
				return curA, nil
			}
			seenA[curA] = true
			c, err := commitstore.Read(ctx, adapter, curA)
			if err != nil {
				return "", fmt.Errorf("merge: lca walk a: %w", err)
			}
			curA = c.Prev
		}
		if curB != "" {
			if seenA[curB] {
				return curB, nil
			}
			seenB[curB] = true
			c, err := commitstore.Read(ctx, adapter, curB)
			if err != nil {
				return "", fmt.Errorf("merge: lca walk b: %w", err)
			}
			curB = c.Prev
		}
	}
	return "", fmt.Errorf("merge: no common ancestor between %s and %s", a, b)
}

// IsAncestor reports whether ancestor appears somewhere in descendant's
// Prev chain (or equals it).
func IsAncestor(ctx context.Context, adapter storage.Adapter, ancestor, descendant string) (bool, error) {
	found := false
	err := commitstore.Walk(ctx, adapter, descendant, func(c commitstore.Commit) bool {
		if c.ID == ancestor {
			found = true
			return false
		}
		return true
	})
	return found, err
}

// CanFastForward reports whether a branch whose head is current can be
// fast-forwarded to target, i.e. current is an ancestor of target (so
// moving the pointer forward loses no history).
func CanFastForward(ctx context.Context, adapter storage.Adapter, current, target string) (bool, error) {
	if current == "" {
		return true, nil // branch has no history yet, anything fast-forwards
	}
	return IsAncestor(ctx, adapter, current, target)
}
