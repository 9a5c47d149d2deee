package flakeindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/graphledger/graphledger/internal/flake"
)

// MemStore is an in-process Store backed by a plain map, used by tests and
// by ephemeral/throwaway ledgers that never persist past process exit.
type MemStore struct {
	mu    sync.RWMutex
	nodes map[NodeID]*Node
}

func NewMemStore() *MemStore {
	return &MemStore{nodes: make(map[NodeID]*Node)}
}

func (m *MemStore) ReadNode(_ context.Context, _ flake.Index, id NodeID) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, fmt.Errorf("flakeindex: node %s not found", id)
	}
	return n, nil
}

func (m *MemStore) WriteNode(_ context.Context, node *Node) (NodeID, error) {
	id, err := Hash(node)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.nodes[id]; !exists {
		m.nodes[id] = node
	}
	return id, nil
}
