package flakeindex

import (
	"sync"

	"github.com/google/btree"

	"github.com/graphledger/graphledger/internal/flake"
)

// Novelty is the in-memory overlay new writes land in between flushes. It is
// an ordered, in-RAM B-tree per index so range scans over uncommitted writes
// are as cheap as scans over persisted leaves, and the indexer can flatten
// it into sorted runs to merge down into the tree on flush.
type Novelty struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[flake.Flake]
	less btree.LessFunc[flake.Flake]
	idx  flake.Index
	size int
}

// NewNovelty returns an empty overlay ordered by idx's comparator.
func NewNovelty(idx flake.Index) *Novelty {
	cmp := flake.Comparators[idx]
	less := func(a, b flake.Flake) bool { return cmp(a, b) < 0 }
	return &Novelty{
		tree: btree.NewG(32, less),
		less: less,
		idx:  idx,
	}
}

// Add inserts f into the overlay. Re-adding an identical (s,p,o,t,op)
// flake is a no-op; btree's ReplaceOrInsert already gives us that since the
// comparator treats such flakes as equal.
func (n *Novelty) Add(f flake.Flake) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, existed := n.tree.ReplaceOrInsert(f); !existed {
		n.size++
	}
}

// Size reports the number of flakes currently held in the overlay.
func (n *Novelty) Size() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.size
}

// Range invokes fn for every flake in [from, to) under the overlay's
// comparator, in sorted order, stopping early if fn returns false. A zero
// from/to bound means unbounded on that side.
func (n *Novelty) Range(from, to *flake.Flake, fn func(flake.Flake) bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	visit := func(f flake.Flake) bool { return fn(f) }
	switch {
	case from == nil && to == nil:
		n.tree.Ascend(visit)
	case from == nil:
		n.tree.AscendLessThan(*to, visit)
	case to == nil:
		n.tree.AscendGreaterOrEqual(*from, visit)
	default:
		n.tree.AscendRange(*from, *to, visit)
	}
}

// Flatten returns every flake in the overlay, sorted, for the indexer to
// merge into persisted leaves during a flush.
func (n *Novelty) Flatten() []flake.Flake {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]flake.Flake, 0, n.tree.Len())
	n.tree.Ascend(func(f flake.Flake) bool {
		out = append(out, f)
		return true
	})
	return out
}

// Clear empties the overlay. Called by the indexer once a flush's flakes
// have been durably merged into the persisted tree.
func (n *Novelty) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tree = btree.NewG(32, n.less)
	n.size = 0
}
