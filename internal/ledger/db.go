package ledger

import (
	"context"
)

// WithSchema returns a shallow copy of db whose Schema is a fresh
// copy-on-write clone, so a transaction can mint new SIDs without mutating
// the schema concurrent readers are still using.
func (db *CurrentDB) WithSchema() *CurrentDB {
	clone := &CurrentDB{T: db.T, Schema: db.Schema.Clone(), Indexes: db.Indexes}
	return clone
}

// NoveltySize is the total flake count across every index's novelty
// overlay, the quantity the indexer compares against NoveltyMax.
func (db *CurrentDB) NoveltySize() int {
	total := 0
	for _, ix := range db.Indexes {
		total += ix.Novelty.Size()
	}
	return total
}

// Flush rebuilds every index's persisted tree from its novelty overlay and
// returns the new per-index root ids, for the caller to record on the
// commit that reindexed them.
func (db *CurrentDB) Flush(ctx context.Context, leafSize int) (map[string]string, error) {
	roots := make(map[string]string, len(db.Indexes))
	for kind, ix := range db.Indexes {
		if err := ix.Flush(ctx, leafSize); err != nil {
			return nil, err
		}
		roots[kind.String()] = string(ix.Root)
	}
	return roots, nil
}
