// Package follow drives a branch's local view from remote commit/index
// notifications. It is the one production consumer of
// nameservice.Service.Subscribe: it classifies every incoming Record with
// internal/ingest's state machine and decides whether to adopt it, ignore
// it as stale, or defer to a local writer racing the same index (§4.4.2,
// §4.7.1 -- a concurrent remote commit and local transaction converging on
// the same branch).
package follow

import (
	"context"
	"fmt"

	"github.com/graphledger/graphledger/internal/commitstore"
	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/ingest"
	"github.com/graphledger/graphledger/internal/ledger"
	"github.com/graphledger/graphledger/internal/nameservice"
)

// Watch subscribes to ns for bs's branch and applies every incoming record
// to bs, logging (never returning) per-record failures so one bad
// notification doesn't tear down the whole watch. It returns when ctx is
// canceled or ns closes the subscription channel.
func Watch(ctx context.Context, bs *ledger.BranchState, ns nameservice.Service) error {
	ch, err := ns.Subscribe(ctx, bs.ID)
	if err != nil {
		return fmt.Errorf("follow: subscribe %s: %w", bs.ID, err)
	}
	defer ns.Release(bs.ID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case rec, ok := <-ch:
			if !ok {
				return nil
			}
			if err := apply(ctx, bs, rec); err != nil {
				bs.Logger.Error("follow: apply notify failed", "ledger", bs.ID.String(), "commit", rec.CommitID, "error", err)
			}
		}
	}
}

// apply classifies rec against bs's current state and adopts it when the
// state machine says to.
func apply(ctx context.Context, bs *ledger.BranchState, rec nameservice.Record) error {
	commit, err := commitstore.Read(ctx, bs.Adapter, rec.CommitID)
	if err != nil {
		return fmt.Errorf("%w: read notified commit %s: %v", errs.ErrStorageFailure, rec.CommitID, err)
	}

	db := bs.DB()
	switch ingest.ClassifyCommitNotify(bs.LatestCommit(), db.T, commit) {
	case ingest.CommitCurrent, ingest.CommitBehind:
		bs.Logger.Debug("follow: ignoring notify", "ledger", bs.ID.String(), "commit", commit.ID)
		return nil
	case ingest.CommitDiverged:
		bs.Logger.Info("follow: branch diverged, reloading from published commit", "ledger", bs.ID.String(), "commit", commit.ID)
		return bs.Adopt(ctx, commit)
	}

	// CommitAhead: commit chains directly from our local state, but each
	// index may carry local novelty past the notification's t -- resolve
	// the conflict per index before committing to a full reload.
	for kind, idx := range db.Indexes {
		incomingRoot := commit.Indexes[kind.String()]
		if ingest.ClassifyIndexNotify(string(idx.Root), incomingRoot, idx.Novelty.Size() > 0) != ingest.IndexConflict {
			continue
		}
		if ingest.ResolveIndexTie(string(idx.Root), incomingRoot) == string(idx.Root) {
			bs.Logger.Info("follow: index conflict, local novelty wins tie-break, deferring adoption",
				"ledger", bs.ID.String(), "index", kind.String())
			return nil
		}
		bs.Logger.Info("follow: index conflict, remote root wins tie-break",
			"ledger", bs.ID.String(), "index", kind.String())
	}
	return bs.Adopt(ctx, commit)
}
