// Package localstore is a storage.Adapter backed by a single bbolt file, the
// default local backend: a single "content" bucket holding every key the
// caller writes, whatever ledger or alias it belongs to.
package localstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	bolt "go.etcd.io/bbolt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/graphledger/graphledger/internal/storage"
)

var tracer = otel.Tracer("github.com/graphledger/graphledger/storage/localstore")

var metrics struct {
	retryCount metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/graphledger/graphledger/storage/localstore")
	metrics.retryCount, _ = m.Int64Counter("gl.storage.retry_count",
		metric.WithDescription("localstore operations retried due to transient bbolt errors"),
		metric.WithUnit("{retry}"),
	)
}

var defaultBucket = []byte("content")

// Store is a bbolt-backed storage.Adapter.
type Store struct {
	db           *bolt.DB
	bytesWritten uint64
	bytesRead    uint64
	writes       uint64
	reads        uint64
}

// Open opens (creating if absent) a bbolt file at path with the default
// content bucket pre-created.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("localstore: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(defaultBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore: init bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") || strings.Contains(s, "resource temporarily unavailable")
}

func (s *Store) withRetry(ctx context.Context, op func() error) error {
	attempts := 0
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 5 * time.Second
	err := backoff.Retry(func() error {
		attempts++
		err := op()
		if err != nil && isRetryable(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if attempts > 1 {
		metrics.retryCount.Add(ctx, int64(attempts-1))
	}
	return err
}

func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	ctx, span := tracer.Start(ctx, "localstore.write")
	defer span.End()
	err := s.withRetry(ctx, func() error {
		return s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(defaultBucket)
			existing := b.Get([]byte(key))
			if existing != nil && bytes.Equal(existing, data) {
				return nil
			}
			return b.Put([]byte(key), data)
		})
	})
	if err == nil {
		atomic.AddUint64(&s.bytesWritten, uint64(len(data)))
		atomic.AddUint64(&s.writes, 1)
	}
	return err
}

func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	_, span := tracer.Start(ctx, "localstore.read")
	defer span.End()
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(defaultBucket).Get([]byte(key))
		if v == nil {
			return storage.ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	atomic.AddUint64(&s.bytesRead, uint64(len(out)))
	atomic.AddUint64(&s.reads, 1)
	return out, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(defaultBucket).Get([]byte(key)) != nil
		return nil
	})
	return ok, err
}

func (s *Store) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(defaultBucket).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			out = append(out, string(k))
		}
		return nil
	})
	return out, err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(defaultBucket).Delete([]byte(key))
	})
}

func (s *Store) Stats() storage.Stats {
	return storage.Stats{
		BytesWritten: atomic.LoadUint64(&s.bytesWritten),
		BytesRead:    atomic.LoadUint64(&s.bytesRead),
		Writes:       atomic.LoadUint64(&s.writes),
		Reads:        atomic.LoadUint64(&s.reads),
	}
}

func (s *Store) Close() error { return s.db.Close() }

var _ storage.InstrumentedAdapter = (*Store)(nil)
