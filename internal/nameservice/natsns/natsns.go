// Package natsns implements nameservice.Service over a NATS JetStream
// key-value bucket, one entry per branch pointer, so multiple gl processes
// across a cluster can publish and observe commit advances without sharing
// a filesystem the way internal/nameservice/localns does.
package natsns

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/ledger"
	"github.com/graphledger/graphledger/internal/nameservice"
)

type Service struct {
	kv nats.KeyValue

	mu   sync.Mutex
	subs map[ledger.ID][]chan nameservice.Record
}

// Open binds (creating if absent) a JetStream key-value bucket named
// bucket on the connection behind js, and returns a Service backed by it.
func Open(js nats.JetStreamContext, bucket string) (*Service, error) {
	kv, err := js.KeyValue(bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: bucket})
		if err != nil {
			return nil, fmt.Errorf("natsns: create bucket %s: %w", bucket, err)
		}
	}
	return &Service{kv: kv, subs: make(map[ledger.ID][]chan nameservice.Record)}, nil
}

// key maps a ledger.ID to a KV key; JetStream keys may not contain '/', so
// alias and branch are joined with '.' the same way eventbus once joined
// subject segments.
func key(id ledger.ID) string {
	return strings.ReplaceAll(id.Alias, "/", "_") + "." + strings.ReplaceAll(id.Branch, "/", "_")
}

func (s *Service) Publish(ctx context.Context, id ledger.ID, expectPrev, commitID string, t int64) error {
	rec := nameservice.Record{ID: id, CommitID: commitID, T: t}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("natsns: marshal record: %w", err)
	}
	k := key(id)

	entry, err := s.kv.Get(k)
	switch {
	case err == nats.ErrKeyNotFound:
		if expectPrev != "" {
			return fmt.Errorf("%w: ledger %s has no pointer yet, expected %s", errs.ErrStaleNotify, id, expectPrev)
		}
		if _, err := s.kv.Create(k, data); err != nil {
			return fmt.Errorf("%w: natsns create %s: %v", errs.ErrStorageFailure, k, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("%w: natsns get %s: %v", errs.ErrStorageFailure, k, err)
	}

	var existing nameservice.Record
	if err := json.Unmarshal(entry.Value(), &existing); err != nil {
		return fmt.Errorf("natsns: unmarshal existing record: %w", err)
	}
	if existing.CommitID != expectPrev {
		return fmt.Errorf("%w: ledger %s advanced to %s, expected %s", errs.ErrStaleNotify, id, existing.CommitID, expectPrev)
	}
	if _, err := s.kv.Update(k, data, entry.Revision()); err != nil {
		return fmt.Errorf("%w: ledger %s: concurrent publisher won the race: %v", errs.ErrStaleNotify, id, err)
	}
	return nil
}

func (s *Service) Lookup(ctx context.Context, id ledger.ID) (nameservice.Record, error) {
	entry, err := s.kv.Get(key(id))
	if err == nats.ErrKeyNotFound {
		return nameservice.Record{}, fmt.Errorf("natsns: no pointer published for %s", id)
	}
	if err != nil {
		return nameservice.Record{}, fmt.Errorf("%w: natsns get %s: %v", errs.ErrStorageFailure, key(id), err)
	}
	var rec nameservice.Record
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return nameservice.Record{}, fmt.Errorf("natsns: unmarshal record: %w", err)
	}
	return rec, nil
}

func (s *Service) ListBranches(ctx context.Context, alias string) ([]string, error) {
	keys, err := s.kv.Keys()
	if err == nats.ErrNoKeysFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: natsns keys: %v", errs.ErrStorageFailure, err)
	}
	prefix := strings.ReplaceAll(alias, "/", "_") + "."
	var out []string
	for _, k := range keys {
		if branch, ok := strings.CutPrefix(k, prefix); ok {
			out = append(out, branch)
		}
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id ledger.ID) error {
	if err := s.kv.Delete(key(id)); err != nil && err != nats.ErrKeyNotFound {
		return fmt.Errorf("%w: natsns delete %s: %v", errs.ErrStorageFailure, key(id), err)
	}
	return nil
}

// Subscribe watches id's key and decodes each update into a Record. The
// watch runs until ctx is canceled, at which point the channel is closed.
func (s *Service) Subscribe(ctx context.Context, id ledger.ID) (<-chan nameservice.Record, error) {
	watcher, err := s.kv.Watch(key(id))
	if err != nil {
		return nil, fmt.Errorf("natsns: watch %s: %w", key(id), err)
	}

	ch := make(chan nameservice.Record, 8)
	s.mu.Lock()
	s.subs[id] = append(s.subs[id], ch)
	s.mu.Unlock()

	go func() {
		defer watcher.Stop()
		defer s.removeSub(id, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					return
				}
				if entry == nil {
					continue // nats signals "caught up" with a nil entry
				}
				var rec nameservice.Record
				if json.Unmarshal(entry.Value(), &rec) != nil {
					continue
				}
				select {
				case ch <- rec:
				default:
				}
			}
		}
	}()
	return ch, nil
}

func (s *Service) removeSub(id ledger.ID, ch chan nameservice.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.subs[id]
	for i, c := range subs {
		if c == ch {
			s.subs[id] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
}

// Release is a no-op: each Subscribe call owns and tears down its own
// watcher via the context-done goroutine started there.
func (s *Service) Release(id ledger.ID) error { return nil }

var _ nameservice.Service = (*Service)(nil)
