package flakeindex

import "github.com/graphledger/graphledger/internal/flake"

// Resolve applies the per-leaf resolve contract: given flakes for the same
// index sorted by that index's comparator (t descending within an (s,p,o)
// group), drop every flake not visible as of asOfT, and collapse each
// (s,p,o) group down to its single net effect.
//
// A group is visible iff its most recent flake with t >= asOfT (that is,
// not more recent than asOfT) is an assertion; if that flake is a
// retraction, or no flake in the group has t >= asOfT, the group
// contributes nothing to the result.
func Resolve(sorted []flake.Flake, asOfT int64) []flake.Flake {
	out := make([]flake.Flake, 0, len(sorted))
	var groupStart int
	for i := 0; i <= len(sorted); i++ {
		if i < len(sorted) && i > groupStart && flake.SameFact(sorted[i], sorted[groupStart]) {
			continue
		}
		if i > groupStart {
			if f, ok := resolveGroup(sorted[groupStart:i], asOfT); ok {
				out = append(out, f)
			}
		}
		groupStart = i
	}
	return out
}

// resolveGroup picks the net-visible flake, if any, for one (s,p,o) group.
// group must be sorted most-recent-first (ascending t, since more negative
// t is more recent -- the index order already guarantees this for
// spot/psot/post/opst; tspo groups by t first so same-fact flakes aren't
// contiguous there and callers must re-sort before calling Resolve).
func resolveGroup(group []flake.Flake, asOfT int64) (flake.Flake, bool) {
	for _, f := range group {
		if f.T < asOfT {
			continue // happened after asOfT, not yet visible
		}
		if f.Op {
			return f, true
		}
		return flake.Flake{}, false
	}
	return flake.Flake{}, false
}

// Merge combines persisted leaf flakes with overlapping novelty flakes into
// one sorted run under idx's comparator, without resolving: resolution
// happens once, after persisted and novel flakes for the full requested
// range have been merged, since a novel retraction can supersede a
// persisted assertion from an earlier leaf.
func Merge(idx flake.Index, persisted, novel []flake.Flake) []flake.Flake {
	cmp := flake.Comparators[idx]
	out := make([]flake.Flake, 0, len(persisted)+len(novel))
	i, j := 0, 0
	for i < len(persisted) && j < len(novel) {
		switch {
		case cmp(persisted[i], novel[j]) <= 0:
			out = append(out, persisted[i])
			i++
		default:
			out = append(out, novel[j])
			j++
		}
	}
	out = append(out, persisted[i:]...)
	out = append(out, novel[j:]...)
	return out
}
