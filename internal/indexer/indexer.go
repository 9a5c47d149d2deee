// Package indexer runs the asynchronous flush loop that moves novelty out
// of a branch's in-memory overlay and into the persisted B+tree, fanning
// the five indexes out across goroutines.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/graphledger/graphledger/internal/commitstore"
	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/ledger"
)

var tracer = otel.Tracer("github.com/graphledger/graphledger/indexer")

var metrics struct {
	flushDuration metric.Float64Histogram
	noveltySize   metric.Int64Histogram
}

func init() {
	m := otel.Meter("github.com/graphledger/graphledger/indexer")
	metrics.flushDuration, _ = m.Float64Histogram("gl.indexer.flush_duration_ms",
		metric.WithDescription("time spent flushing novelty into the persisted tree"),
		metric.WithUnit("ms"),
	)
	metrics.noveltySize, _ = m.Int64Histogram("gl.indexer.novelty_size",
		metric.WithDescription("flake count in the novelty overlay at flush time"),
	)
}

// State tags where a branch sits in the flush decision per §4.7.2.
type State int

const (
	// Idle: novelty is below ReindexMinBytes, no flush warranted.
	Idle State = iota
	// Eligible: novelty has crossed ReindexMinBytes; a flush may run
	// opportunistically but isn't forced.
	Eligible
	// Forced: novelty has crossed ReindexMaxBytes or NoveltyMax; a flush
	// must run before further writes are accepted, to bound worst-case
	// read amplification.
	Forced
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Eligible:
		return "eligible"
	case Forced:
		return "forced"
	default:
		return "unknown"
	}
}

// Classify reports the branch's flush state given its current novelty size
// (flake count) and opts' thresholds. Byte-size estimation is approximated
// here as a fixed per-flake cost; callers with exact serialized sizes can
// classify using those instead.
func Classify(noveltyFlakes int, approxBytesPerFlake int, opts ledger.IndexingOptions) State {
	bytes := int64(noveltyFlakes * approxBytesPerFlake)
	switch {
	case opts.NoveltyMax > 0 && noveltyFlakes >= opts.NoveltyMax:
		return Forced
	case opts.ReindexMaxBytes > 0 && bytes >= opts.ReindexMaxBytes:
		return Forced
	case opts.ReindexMinBytes > 0 && bytes >= opts.ReindexMinBytes:
		return Eligible
	default:
		return Idle
	}
}

// Indexer drives flushes for one branch.
type Indexer struct {
	bs     *ledger.BranchState
	logger *slog.Logger
}

func New(bs *ledger.BranchState, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{bs: bs, logger: logger}
}

// Flush runs a flush of every index concurrently (bounded by errgroup),
// writes a reindex commit recording the new roots, and CAS-publishes it.
func (ix *Indexer) Flush(ctx context.Context) (commitstore.Commit, error) {
	ctx, span := tracer.Start(ctx, "indexer.flush")
	defer span.End()
	start := time.Now()

	db := ix.bs.DB()
	noveltyBefore := db.NoveltySize()
	if noveltyBefore == 0 {
		return commitstore.Commit{}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, idx := range db.Indexes {
		idx := idx
		g.Go(func() error {
			return idx.Flush(gctx, ix.bs.IndexingOpts.LeafSize)
		})
	}
	if err := g.Wait(); err != nil {
		return commitstore.Commit{}, fmt.Errorf("%w: flush: %v", errs.ErrStorageFailure, err)
	}

	roots, err := db.Flush(ctx, ix.bs.IndexingOpts.LeafSize)
	if err != nil {
		return commitstore.Commit{}, fmt.Errorf("%w: collect roots: %v", errs.ErrStorageFailure, err)
	}

	prev := ix.bs.LatestCommit()
	var prevT int64
	if prev != "" {
		pc, err := commitstore.Read(ctx, ix.bs.Adapter, prev)
		if err != nil {
			return commitstore.Commit{}, err
		}
		prevT = pc.T
	}

	commit := commitstore.Commit{
		Prev:    prev,
		Branch:  ix.bs.ID.Branch,
		T:       prevT,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Indexes: roots,
		ECount:  db.Schema.MaxCounter(),
	}
	written, err := commitstore.Write(ctx, ix.bs.Adapter, commit)
	if err != nil {
		return commitstore.Commit{}, fmt.Errorf("%w: write reindex commit: %v", errs.ErrStorageFailure, err)
	}
	if err := ix.bs.Advance(ctx, written, db); err != nil {
		return commitstore.Commit{}, err
	}

	elapsed := time.Since(start).Seconds() * 1000
	metrics.flushDuration.Record(ctx, elapsed)
	metrics.noveltySize.Record(ctx, int64(noveltyBefore))
	ix.logger.Info("indexer: flushed", "ledger", ix.bs.ID.String(), "flakes", noveltyBefore, "elapsed_ms", elapsed)
	return written, nil
}

// MaybeFlush flushes if the branch's current novelty state is Eligible or
// Forced, per Classify.
func (ix *Indexer) MaybeFlush(ctx context.Context, approxBytesPerFlake int) (bool, error) {
	db := ix.bs.DB()
	state := Classify(db.NoveltySize(), approxBytesPerFlake, ix.bs.IndexingOpts)
	if state == Idle {
		return false, nil
	}
	_, err := ix.Flush(ctx)
	return true, err
}
