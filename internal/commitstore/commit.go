// Package commitstore defines the commit document and its content-addressed
// read/write path: every commit is a small JSON document whose id is the
// hash of its own (id-less) content, chained to its parent by hash, forming
// an append-only DAG per branch.
package commitstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/graphledger/graphledger/internal/storage"
)

// Commit is the engine's unit of durable history: a content-hashed,
// JSON-LD-shaped document pointing at the commit it followed and the data
// (flake novelty blob) and index (per-index root set) it introduced.
type Commit struct {
	ID      string            `json:"id"` // sha256 of the canonical encoding of every other field
	Prev    string            `json:"prev,omitempty"`
	Branch  string            `json:"branch"`
	T       int64             `json:"t"`
	Time    string            `json:"time"` // RFC3339
	Data    string            `json:"data"` // content address of the novelty blob this commit introduced
	Indexes map[string]string `json:"indexes,omitempty"` // index kind -> root NodeID, only set when this commit also reindexed

	Author     string `json:"author,omitempty"`
	Message    string `json:"message,omitempty"`
	Annotation any    `json:"annotation,omitempty"`
	Signature  string `json:"signature,omitempty"`

	ECount map[uint32]uint64 `json:"ecount,omitempty"` // per-namespace SID counter high-water marks, for schema restore
}

// canonical returns a deterministic JSON encoding of c with ID cleared, the
// input to the content hash.
func (c Commit) canonical() ([]byte, error) {
	c.ID = ""
	// encoding/json sorts map keys, giving a stable byte sequence across runs.
	return json.Marshal(c)
}

// Hash computes c's content address.
func Hash(c Commit) (string, error) {
	data, err := c.canonical()
	if err != nil {
		return "", fmt.Errorf("commitstore: canonicalize: %w", err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("sha256:%x", sum), nil
}

func commitKey(id string) string { return "commit/" + id }

// Write assigns c.ID (overwriting any existing value) and persists it,
// returning the finalized commit.
func Write(ctx context.Context, adapter storage.Adapter, c Commit) (Commit, error) {
	id, err := Hash(c)
	if err != nil {
		return Commit{}, err
	}
	c.ID = id
	data, err := json.Marshal(c)
	if err != nil {
		return Commit{}, fmt.Errorf("commitstore: marshal: %w", err)
	}
	if err := adapter.Write(ctx, commitKey(id), data); err != nil {
		return Commit{}, fmt.Errorf("commitstore: write %s: %w", id, err)
	}
	return c, nil
}

// Read loads the commit with content address id.
func Read(ctx context.Context, adapter storage.Adapter, id string) (Commit, error) {
	data, err := adapter.Read(ctx, commitKey(id))
	if err != nil {
		return Commit{}, fmt.Errorf("commitstore: read %s: %w", id, err)
	}
	var c Commit
	if err := json.Unmarshal(data, &c); err != nil {
		return Commit{}, fmt.Errorf("commitstore: unmarshal %s: %w", id, err)
	}
	return c, nil
}

// Verify reports whether c.ID actually matches the hash of c's other
// fields, catching tampered or corrupted commit documents.
func Verify(c Commit) error {
	want, err := Hash(c)
	if err != nil {
		return err
	}
	if !bytes.Equal([]byte(want), []byte(c.ID)) {
		return fmt.Errorf("commitstore: commit %s fails content hash check (recomputed %s)", c.ID, want)
	}
	return nil
}

// Walk calls fn for c and every ancestor reachable through Prev, most
// recent first, stopping if fn returns false or the genesis commit
// (Prev == "") is reached.
func Walk(ctx context.Context, adapter storage.Adapter, start string, fn func(Commit) bool) error {
	id := start
	for id != "" {
		c, err := Read(ctx, adapter, id)
		if err != nil {
			return err
		}
		if !fn(c) {
			return nil
		}
		id = c.Prev
	}
	return nil
}
