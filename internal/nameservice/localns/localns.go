// Package localns implements nameservice.Service over a local directory:
// one small JSON file per branch pointer, watched with fsnotify so
// Subscribe can push updates without polling.
package localns

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/ledger"
	"github.com/graphledger/graphledger/internal/nameservice"
)

type Service struct {
	root string

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watchRef int
	subs     map[ledger.ID][]chan nameservice.Record
}

// Open roots the pointer store at dir, creating it if absent.
func Open(dir string) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("localns: mkdir %s: %w", dir, err)
	}
	return &Service{root: dir, subs: make(map[ledger.ID][]chan nameservice.Record)}, nil
}

func (s *Service) path(id ledger.ID) string {
	return filepath.Join(s.root, id.Alias, id.Branch+".json")
}

func (s *Service) Publish(ctx context.Context, id ledger.ID, expectPrev, commitID string, t int64) error {
	existing, err := s.Lookup(ctx, id)
	if err != nil && err != errPointerAbsent {
		return err
	}
	if err == nil && existing.CommitID != expectPrev {
		return fmt.Errorf("%w: ledger %s advanced to %s, expected %s", errs.ErrStaleNotify, id, existing.CommitID, expectPrev)
	}

	rec := nameservice.Record{ID: id, CommitID: commitID, T: t, At: time.Now().UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("localns: marshal record: %w", err)
	}
	p := s.path(id)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("localns: mkdir: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("localns: write: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("localns: rename: %w", err)
	}
	return nil
}

var errPointerAbsent = fmt.Errorf("localns: pointer absent")

func (s *Service) Lookup(ctx context.Context, id ledger.ID) (nameservice.Record, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nameservice.Record{}, errPointerAbsent
	}
	if err != nil {
		return nameservice.Record{}, fmt.Errorf("%w: %v", errs.ErrStorageFailure, err)
	}
	var rec nameservice.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nameservice.Record{}, fmt.Errorf("localns: unmarshal record: %w", err)
	}
	return rec, nil
}

func (s *Service) ListBranches(ctx context.Context, alias string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, alias))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStorageFailure, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, trimJSON(e.Name()))
		}
	}
	return out, nil
}

func trimJSON(name string) string {
	const suffix = ".json"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}

func (s *Service) Delete(ctx context.Context, id ledger.ID) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", errs.ErrStorageFailure, err)
	}
	return nil
}

// Subscribe lazily starts a shared fsnotify watcher over the pointer
// directory tree and fans out matching write events to per-id channels.
func (s *Service) Subscribe(ctx context.Context, id ledger.ID) (<-chan nameservice.Record, error) {
	s.mu.Lock()
	if s.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("localns: new watcher: %w", err)
		}
		s.watcher = w
		go s.pump()
	}
	dir := filepath.Join(s.root, id.Alias)
	_ = os.MkdirAll(dir, 0o755)
	if err := s.watcher.Add(dir); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("localns: watch %s: %w", dir, err)
	}
	s.watchRef++
	ch := make(chan nameservice.Record, 8)
	s.subs[id] = append(s.subs[id], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.removeSub(id, ch)
	}()
	return ch, nil
}

func (s *Service) pump() {
	for event := range s.watcher.Events {
		if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			continue
		}
		dir, base := filepath.Split(event.Name)
		branch := trimJSON(base)
		alias := filepath.Base(filepath.Clean(dir))
		id := ledger.ID{Alias: alias, Branch: branch}

		rec, err := s.Lookup(context.Background(), id)
		if err != nil {
			continue
		}
		s.mu.Lock()
		subs := s.subs[id]
		s.mu.Unlock()
		for _, ch := range subs {
			select {
			case ch <- rec:
			default:
			}
		}
	}
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

// Release is a no-op for localns: the shared watcher tears down when the
// Service itself is discarded, and per-subscriber cleanup already happens
// in Subscribe's context-done goroutine.
func (s *Service) Release(id ledger.ID) error { return nil }

var _ nameservice.Service = (*Service)(nil)
