// Package resolve provides the cached loader the query executor and
// indexer use to turn a B+tree node id into its decoded Node, and the
// tempid/tt-id minting used during a transaction before flakes have real
// SIDs assigned.
package resolve

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/flakeindex"
)

// Key identifies one cached load: the node's storage id scoped to its
// owning index, since the same content hash could theoretically recur
// across different index kinds with different comparators applied.
type Key struct {
	Index flake.Index
	ID    flakeindex.NodeID
}

func (k Key) String() string { return fmt.Sprintf("%s:%s", k.Index, k.ID) }

// Resolver wraps a flakeindex.Store with an LRU cache and request
// de-duplication: concurrent loads of the same node id collapse into a
// single underlying read.
type Resolver struct {
	store flakeindex.Store
	cache *lru.Cache[Key, *flakeindex.Node]
	group singleflight.Group
}

// New returns a Resolver caching up to maxNodes decoded nodes.
func New(store flakeindex.Store, maxNodes int) (*Resolver, error) {
	if maxNodes <= 0 {
		maxNodes = 4096
	}
	cache, err := lru.New[Key, *flakeindex.Node](maxNodes)
	if err != nil {
		return nil, fmt.Errorf("resolve: new lru: %w", err)
	}
	return &Resolver{store: store, cache: cache}, nil
}

// Resolve returns the decoded node for key, serving from cache when
// present and collapsing concurrent misses for the same key into one
// underlying Store.ReadNode call.
func (r *Resolver) Resolve(ctx context.Context, key Key) (*flakeindex.Node, error) {
	if n, ok := r.cache.Get(key); ok {
		return n, nil
	}
	v, err, _ := r.group.Do(key.String(), func() (any, error) {
		n, err := r.store.ReadNode(ctx, key.Index, key.ID)
		if err != nil {
			return nil, err
		}
		r.cache.Add(key, n)
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*flakeindex.Node), nil
}

// Invalidate drops key from the cache, e.g. after a flush rewrites a
// subtree under a new content address (the old id becomes unreachable, but
// an explicit drop avoids holding stale entries until eviction).
func (r *Resolver) Invalidate(key Key) {
	r.cache.Remove(key)
}

// ReadNode implements flakeindex.Store by routing every read through
// Resolve, so a flakeindex.Index built over a Resolver serves repeated
// range scans at the same t from RAM instead of re-reading every node from
// the underlying store.
func (r *Resolver) ReadNode(ctx context.Context, index flake.Index, id flakeindex.NodeID) (*flakeindex.Node, error) {
	return r.Resolve(ctx, Key{Index: index, ID: id})
}

// WriteNode implements flakeindex.Store by passing straight through to the
// underlying store: a freshly written node is addressed by its own new id,
// so there is nothing in the cache to invalidate.
func (r *Resolver) WriteNode(ctx context.Context, node *flakeindex.Node) (flakeindex.NodeID, error) {
	return r.store.WriteNode(ctx, node)
}

var _ flakeindex.Store = (*Resolver)(nil)

// TempIDGenerator mints placeholder identifiers a transaction uses for
// subjects that do not yet have a SID, replaced with real SIDs once the
// transaction commits and the schema has minted one for each.
type TempIDGenerator struct{}

// NewTempID returns a fresh process-unique temp-id string for use as a
// transaction-scoped subject placeholder.
func (TempIDGenerator) NewTempID() string {
	return "_:b" + uuid.NewString()
}

// NewTxTag returns a fresh tt-id (transaction tag), used to correlate
// flakes minted within the same logical transaction before it is assigned
// a t value.
func (TempIDGenerator) NewTxTag() string {
	return "tt:" + uuid.NewString()
}
