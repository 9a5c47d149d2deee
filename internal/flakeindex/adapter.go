package flakeindex

import (
	"context"
	"fmt"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/storage"
)

// BlobStore adapts a generic content-addressed storage.Adapter into a
// flakeindex.Store by gob-encoding/decoding nodes under a "node/" key
// namespace.
type BlobStore struct {
	adapter storage.Adapter
}

func NewBlobStore(adapter storage.Adapter) *BlobStore {
	return &BlobStore{adapter: adapter}
}

func nodeKey(id NodeID) string { return "node/" + string(id) }

func (b *BlobStore) ReadNode(ctx context.Context, _ flake.Index, id NodeID) (*Node, error) {
	data, err := b.adapter.Read(ctx, nodeKey(id))
	if err != nil {
		return nil, fmt.Errorf("flakeindex: read node %s: %w", id, err)
	}
	return Decode(data)
}

func (b *BlobStore) WriteNode(ctx context.Context, node *Node) (NodeID, error) {
	id, err := Hash(node)
	if err != nil {
		return "", err
	}
	if ok, err := b.adapter.Exists(ctx, nodeKey(id)); err == nil && ok {
		return id, nil
	}
	data, err := Encode(node)
	if err != nil {
		return "", err
	}
	if err := b.adapter.Write(ctx, nodeKey(id), data); err != nil {
		return "", fmt.Errorf("flakeindex: write node %s: %w", id, err)
	}
	return id, nil
}

var _ Store = (*BlobStore)(nil)
