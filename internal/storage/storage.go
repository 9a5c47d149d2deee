// Package storage defines the content-addressed backing store every commit,
// index node, and blob in the engine is written through. It plays the same
// role the sqlite/dolt backends played for the teacher's issue store --
// one narrow interface multiple concrete backends implement -- except the
// unit of storage here is an opaque content-addressed blob, not a row.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Read/Exists operations when a key is absent.
var ErrNotFound = errors.New("storage: not found")

// Adapter is the minimal content-addressed store every backend (local
// file/bbolt, S3, in-memory) implements. Keys are opaque content hashes or
// well-known pointer names (e.g. a nameservice record key); the adapter
// never interprets them.
type Adapter interface {
	// Write stores data under key, idempotently: writing the same key
	// twice with identical content is a no-op success.
	Write(ctx context.Context, key string, data []byte) error

	// Read returns the bytes stored under key, or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether key has been written.
	Exists(ctx context.Context, key string) (bool, error)

	// ListPrefix returns every key beginning with prefix.
	ListPrefix(ctx context.Context, prefix string) ([]string, error)

	// Delete removes key. Deleting an absent key is not an error: ledgers
	// never delete content blobs (immutability), but nameservice pointer
	// records and ephemeral novelty flushes do.
	Delete(ctx context.Context, key string) error

	io.Closer
}

// Stats reports adapter-level counters used by telemetry (bytes
// written/read, operation counts), exposed separately from Adapter so
// implementations that can't cheaply track them (e.g. S3) can opt out by
// returning a zero Stats.
type Stats struct {
	BytesWritten uint64
	BytesRead    uint64
	Writes       uint64
	Reads        uint64
}

// InstrumentedAdapter is implemented by adapters that track their own
// Stats; telemetry polls this optionally.
type InstrumentedAdapter interface {
	Adapter
	Stats() Stats
}
