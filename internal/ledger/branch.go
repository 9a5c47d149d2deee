package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/graphledger/graphledger/internal/commitstore"
	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/flakeindex"
	"github.com/graphledger/graphledger/internal/lockfile"
	"github.com/graphledger/graphledger/internal/resolve"
	"github.com/graphledger/graphledger/internal/sid"
	"github.com/graphledger/graphledger/internal/storage"
)

var tracer = otel.Tracer("github.com/graphledger/graphledger/ledger")

// IndexingOptions tunes when the indexer decides a branch's novelty has
// grown large enough to warrant a flush, per the engine's reindex-min/max
// thresholds.
type IndexingOptions struct {
	ReindexMinBytes int64
	ReindexMaxBytes int64
	NoveltyMax      int
	LeafSize        int

	// CacheMaxMB bounds the decoded-node cache every index's Store is
	// wrapped in (§4.2.3): repeated range scans at the same t hit RAM
	// instead of re-reading the persisted B+tree. 0 falls back to
	// resolve.New's own default.
	CacheMaxMB int
}

// DefaultIndexingOptions mirrors the engine's documented defaults.
func DefaultIndexingOptions() IndexingOptions {
	return IndexingOptions{
		ReindexMinBytes: 1 << 20,  // 1 MiB
		ReindexMaxBytes: 1 << 27,  // 128 MiB
		NoveltyMax:      100_000,
		LeafSize:        256,
		CacheMaxMB:      256,
	}
}

// avgNodeBytes estimates a decoded flakeindex.Node's footprint for sizing
// the resolve.Resolver's LRU from a MB budget rather than a raw node count.
const avgNodeBytes = 4096

// cachedStore wraps a freshly opened flakeindex.BlobStore in a
// resolve.Resolver sized from cacheMaxMB, so every Index built over it
// shares one cache instead of re-reading the same nodes on every scan.
func cachedStore(adapter storage.Adapter, cacheMaxMB int) (flakeindex.Store, error) {
	blobStore := flakeindex.NewBlobStore(adapter)
	maxNodes := 0
	if cacheMaxMB > 0 {
		maxNodes = cacheMaxMB * (1 << 20) / avgNodeBytes
	}
	r, err := resolve.New(blobStore, maxNodes)
	if err != nil {
		return nil, fmt.Errorf("%w: build node cache: %v", errs.ErrStorageFailure, err)
	}
	return r, nil
}

// BranchState is one branch's full runtime state: its latest commit, the
// live db built from it, and the single-writer lock protecting mutation.
type BranchState struct {
	ID           ID
	Adapter      storage.Adapter
	IndexingOpts IndexingOptions
	Logger       *slog.Logger

	mu           sync.Mutex
	latestCommit string
	db           *CurrentDB
}

// Exists reports whether id's branch pointer has ever been published,
// letting callers (the CLI's create/load commands) distinguish a brand new
// branch from one already in use without paying for a full Open.
func Exists(ctx context.Context, id ID, adapter storage.Adapter) (bool, error) {
	exists, err := adapter.Exists(ctx, branchPointerKey(id))
	if err != nil {
		return false, errs.Wrap("ledger.exists", fmt.Errorf("%w: %v", errs.ErrStorageFailure, err))
	}
	return exists, nil
}

// Open loads (or initializes, if the branch has never been committed to)
// the branch state for id over adapter.
func Open(ctx context.Context, id ID, adapter storage.Adapter, opts IndexingOptions, logger *slog.Logger) (*BranchState, error) {
	ctx, span := tracer.Start(ctx, "ledger.open")
	defer span.End()
	if logger == nil {
		logger = slog.Default()
	}

	bs := &BranchState{ID: id, Adapter: adapter, IndexingOpts: opts, Logger: logger}

	pointerKey := branchPointerKey(id)
	exists, err := adapter.Exists(ctx, pointerKey)
	if err != nil {
		return nil, errs.Wrap("ledger.open: check pointer", fmt.Errorf("%w: %v", errs.ErrStorageFailure, err))
	}
	if !exists {
		logger.Info("ledger: initializing new branch", "ledger", id.String())
		return bs, bs.loadFromCommit(ctx, "")
	}

	data, err := adapter.Read(ctx, pointerKey)
	if err != nil {
		return nil, errs.Wrap("ledger.open: read pointer", fmt.Errorf("%w: %v", errs.ErrStorageFailure, err))
	}
	commitID := string(data)
	logger.Debug("ledger: loading branch", "ledger", id.String(), "commit", commitID)
	return bs, bs.loadFromCommit(ctx, commitID)
}

func branchPointerKey(id ID) string {
	return fmt.Sprintf("branch/%s/%s/HEAD", id.Alias, id.Branch)
}

// loadFromCommit rebuilds the branch's CurrentDB as of commitID via
// DBAtCommit (or starts empty, if commitID == "").
func (bs *BranchState) loadFromCommit(ctx context.Context, commitID string) error {
	if commitID == "" {
		schema := sid.NewSchema()
		store, err := cachedStore(bs.Adapter, bs.IndexingOpts.CacheMaxMB)
		if err != nil {
			return err
		}
		indexes := make(map[flake.Index]*flakeindex.Index)
		for _, kind := range []flake.Index{flake.SPOT, flake.PSOT, flake.POST, flake.OPST, flake.TSPO} {
			indexes[kind] = flakeindex.Open(store, kind, "")
		}
		bs.db = &CurrentDB{Schema: schema, Indexes: indexes}
		return nil
	}
	db, err := DBAtCommit(ctx, bs.Adapter, commitID, bs.IndexingOpts.CacheMaxMB)
	if err != nil {
		return err
	}
	bs.latestCommit = commitID
	bs.db = db
	return nil
}

// DBAtCommit rebuilds the CurrentDB an observer would see at commit
// targetID: it walks backward to the nearest ancestor commit carrying
// persisted index roots (a reindex commit, or genesis), opens the indexes
// from those roots, then replays every intervening commit's flake data
// forward into the in-memory novelty overlay -- the same "persisted base
// plus novelty" layering a live branch already presents to readers. This
// lets a cold process (or a reset/merge targeting an older commit) recover
// exactly the state a continuously-running branch would hold, including
// transactions made since the last flush.
func DBAtCommit(ctx context.Context, adapter storage.Adapter, targetID string, cacheMaxMB int) (*CurrentDB, error) {
	target, err := commitstore.Read(ctx, adapter, targetID)
	if err != nil {
		return nil, errs.Wrap("ledger.DBAtCommit", fmt.Errorf("%w: %v", errs.ErrStorageFailure, err))
	}
	if err := commitstore.Verify(target); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidLedger, err)
	}

	var chain []commitstore.Commit // oldest first, base excluded
	baseIndexes := map[string]string(nil)
	walkErr := commitstore.Walk(ctx, adapter, targetID, func(c commitstore.Commit) bool {
		if len(c.Indexes) > 0 {
			baseIndexes = c.Indexes
			return false
		}
		chain = append(chain, c)
		return true
	})
	if walkErr != nil {
		return nil, errs.Wrap("ledger.DBAtCommit", fmt.Errorf("%w: %v", errs.ErrStorageFailure, walkErr))
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	store, err := cachedStore(adapter, cacheMaxMB)
	if err != nil {
		return nil, err
	}
	indexes := make(map[flake.Index]*flakeindex.Index)
	for _, kind := range []flake.Index{flake.SPOT, flake.PSOT, flake.POST, flake.OPST, flake.TSPO} {
		indexes[kind] = flakeindex.Open(store, kind, flakeindex.NodeID(baseIndexes[kind.String()]))
	}

	for _, c := range chain {
		if c.Data == "" {
			continue // reindex-only commit on this path; already accounted for via baseIndexes
		}
		flakes, err := commitstore.ReadData(ctx, adapter, c.Data)
		if err != nil {
			return nil, errs.Wrap("ledger.DBAtCommit", fmt.Errorf("%w: %v", errs.ErrStorageFailure, err))
		}
		for _, f := range flakes {
			for kind, idx := range indexes {
				if flake.AcceptsIndex(f, kind, true) {
					idx.Add(f)
				}
			}
		}
	}

	schema := sid.NewSchema()
	schema.Restore(target.ECount)
	return &CurrentDB{T: target.T, Schema: schema, Indexes: indexes}, nil
}

// DB returns the branch's current live database. Callers must not mutate
// the returned value's Indexes map; Advance or CAS installs a new db.
func (bs *BranchState) DB() *CurrentDB {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.db
}

func (bs *BranchState) LatestCommit() string {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.latestCommit
}

// WithWriteLock runs fn while holding the branch's single-writer lock,
// matching the "single writer per branch" requirement: concurrent
// transactions against the same branch serialize, concurrent readers never
// block.
func (bs *BranchState) WithWriteLock(ctx context.Context, path string, fn func() error) error {
	if status, err := lockfile.Inspect(path); err == nil && status.Locked {
		bs.Logger.Debug("ledger: branch lock contended, waiting for holder",
			"ledger", bs.ID.String(), "holder_pid", status.Info.PID, "stale", status.Stale)
	}
	lock, err := lockfile.AcquireExclusive(path)
	if err != nil {
		return fmt.Errorf("%w: acquire branch lock: %v", errs.ErrStorageFailure, err)
	}
	defer lock.Unlock()
	return fn()
}

// Advance publishes a new latest commit and swaps in its CurrentDB. Callers
// must hold the branch write lock.
func (bs *BranchState) Advance(ctx context.Context, commit commitstore.Commit, db *CurrentDB) error {
	bs.mu.Lock()
	bs.latestCommit = commit.ID
	bs.db = db
	bs.mu.Unlock()

	if err := bs.Adapter.Write(ctx, branchPointerKey(bs.ID), []byte(commit.ID)); err != nil {
		return fmt.Errorf("%w: publish branch pointer: %v", errs.ErrStorageFailure, err)
	}
	bs.Logger.Info("ledger: branch advanced", "ledger", bs.ID.String(), "commit", commit.ID, "t", commit.T)
	return nil
}

// CAS performs a compare-and-swap publish of the branch pointer: it only
// writes newCommit if the pointer still reads expectPrev, returning
// errs.ErrCannotFastForward if another writer already advanced it.
func (bs *BranchState) CAS(ctx context.Context, expectPrev string, commit commitstore.Commit, db *CurrentDB) error {
	key := branchPointerKey(bs.ID)
	current, err := bs.Adapter.Read(ctx, key)
	if err != nil && !errIsNotFound(err) {
		return fmt.Errorf("%w: read pointer for cas: %v", errs.ErrStorageFailure, err)
	}
	if string(current) != expectPrev {
		return fmt.Errorf("%w: branch %s advanced concurrently", errs.ErrCannotFastForward, bs.ID)
	}
	return bs.Advance(ctx, commit, db)
}

func errIsNotFound(err error) bool {
	return err == storage.ErrNotFound
}

// Adopt rebuilds the branch's in-memory view to match commit, which some
// other writer has already published and whose branch pointer is already
// correct. Unlike Advance/CAS, Adopt never touches the branch pointer in
// storage -- it exists for a remote-notification consumer (see
// internal/follow) that is catching up to a commit it didn't itself
// publish, not for the writer that did.
func (bs *BranchState) Adopt(ctx context.Context, commit commitstore.Commit) error {
	db, err := DBAtCommit(ctx, bs.Adapter, commit.ID, bs.IndexingOpts.CacheMaxMB)
	if err != nil {
		return err
	}
	bs.mu.Lock()
	bs.latestCommit = commit.ID
	bs.db = db
	bs.mu.Unlock()
	bs.Logger.Info("ledger: branch adopted remote commit", "ledger", bs.ID.String(), "commit", commit.ID, "t", commit.T)
	return nil
}
