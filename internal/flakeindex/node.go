// Package flakeindex implements the persistent B+tree each of the five
// sorted flake collections (spot, psot, post, opst, tspo) is built from, the
// in-memory novelty overlay new writes land in before a flush, and the
// per-leaf resolve contract that reconciles the two at read time.
package flakeindex

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"sort"

	"github.com/graphledger/graphledger/internal/flake"
)

// NodeID is the content hash of a serialized Node, used as its storage key.
type NodeID string

// ChildPointer is a branch node's reference to a subtree: the subtree's
// storage id and the first flake in that subtree under the owning index's
// comparator, used as the subtree's lower boundary key during descent.
type ChildPointer struct {
	Ref   NodeID
	First flake.Flake
}

// Node is one persisted B+tree node. Leaf nodes hold flakes directly;
// branch nodes hold pointers to children. Both carry Size: a leaf's flake
// count, or a branch's child count.
type Node struct {
	Index    flake.Index
	Leaf     bool
	Flakes   []flake.Flake  // populated iff Leaf
	Children []ChildPointer // populated iff !Leaf
	Size     int
}

func init() {
	gob.Register(flake.Object{})
}

// Hash computes n's content address. Two nodes with identical contents
// always hash to the same NodeID, which is what lets unchanged subtrees be
// shared across commits instead of rewritten.
func Hash(n *Node) (NodeID, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(n); err != nil {
		return "", fmt.Errorf("flakeindex: encode node: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return NodeID(fmt.Sprintf("%x", sum)), nil
}

// Store is the content-addressed backing for nodes, adapted over the
// engine's generic storage adapter (internal/storage).
type Store interface {
	ReadNode(ctx context.Context, index flake.Index, id NodeID) (*Node, error)
	WriteNode(ctx context.Context, node *Node) (NodeID, error)
}

// encode/decode are exported for Store implementations built over a raw
// byte-oriented content store (e.g. internal/storage's blob adapters).
func Encode(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(n); err != nil {
		return nil, fmt.Errorf("flakeindex: encode node: %w", err)
	}
	return buf.Bytes(), nil
}

func Decode(data []byte) (*Node, error) {
	var n Node
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&n); err != nil {
		return nil, fmt.Errorf("flakeindex: decode node: %w", err)
	}
	return &n, nil
}

// sortFlakes sorts flakes in place by idx's comparator.
func sortFlakes(flakes []flake.Flake, idx flake.Index) {
	cmp := flake.Comparators[idx]
	sort.Slice(flakes, func(i, j int) bool { return cmp(flakes[i], flakes[j]) < 0 })
}
