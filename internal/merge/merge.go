package merge

import (
	"context"
	"fmt"
	"time"

	"github.com/graphledger/graphledger/internal/commitstore"
	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/storage"
)

// FlakesSince collects the union of flakes introduced by every commit
// strictly after ancestor, up to and including tip, in commit order
// (oldest first). Used by squash to compute a branch's net effect since it
// diverged from another.
func FlakesSince(ctx context.Context, adapter storage.Adapter, ancestor, tip string) ([]flake.Flake, error) {
	var chain []commitstore.Commit
	err := commitstore.Walk(ctx, adapter, tip, func(c commitstore.Commit) bool {
		if c.ID == ancestor {
			return false
		}
		chain = append(chain, c)
		return true
	})
	if err != nil {
		return nil, err
	}

	var out []flake.Flake
	for i := len(chain) - 1; i >= 0; i-- { // oldest first
		flakes, err := commitstore.ReadData(ctx, adapter, chain[i].Data)
		if err != nil {
			return nil, err
		}
		out = append(out, flakes...)
	}
	return out, nil
}

// SquashEffect is the net per-(s,p,o) effect of a chain of commits: later
// flakes for the same fact supersede earlier ones, exactly like the
// per-leaf resolve contract, but computed over a commit range instead of
// an index leaf.
func SquashEffect(flakes []flake.Flake) []flake.Flake {
	type key struct {
		s, p uint64
		objKey string
	}
	order := make([]key, 0, len(flakes))
	latest := make(map[key]flake.Flake, len(flakes))
	for _, f := range flakes {
		k := key{uint64(f.S), uint64(f.P), objectKey(f.O)}
		if _, seen := latest[k]; !seen {
			order = append(order, k)
		}
		latest[k] = f // last write (highest |t|, i.e. most recent) wins
	}
	out := make([]flake.Flake, 0, len(order))
	for _, k := range order {
		out = append(out, latest[k])
	}
	return out
}

func objectKey(o flake.Object) string {
	if o.IsRef {
		return fmt.Sprintf("ref:%d", o.Ref)
	}
	return fmt.Sprintf("lit:%d:%v:%s", o.Datatype, o.Value, o.Lang)
}

// Squash replays the net effect of commits on a source branch since it
// diverged from target's tip as a single new commit on target, discarding
// the source branch's intermediate history.
func Squash(ctx context.Context, adapter storage.Adapter, targetTip, sourceTip string, author, message string) (commitstore.Commit, error) {
	ancestor, err := LCA(ctx, adapter, targetTip, sourceTip)
	if err != nil {
		return commitstore.Commit{}, err
	}
	flakes, err := FlakesSince(ctx, adapter, ancestor, sourceTip)
	if err != nil {
		return commitstore.Commit{}, err
	}
	net := SquashEffect(flakes)

	var baseCommit commitstore.Commit
	if targetTip != "" {
		baseCommit, err = commitstore.Read(ctx, adapter, targetTip)
		if err != nil {
			return commitstore.Commit{}, err
		}
	}
	nextT := baseCommit.T - 1

	retimed := make([]flake.Flake, len(net))
	for i, f := range net {
		f.T = nextT
		retimed[i] = f
	}
	dataKey, err := commitstore.WriteData(ctx, adapter, retimed)
	if err != nil {
		return commitstore.Commit{}, err
	}

	c := commitstore.Commit{
		Prev:    targetTip,
		Branch:  baseCommit.Branch,
		T:       nextT,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Data:    dataKey,
		Author:  author,
		Message: message,
	}
	return commitstore.Write(ctx, adapter, c)
}

// Rebase replays source's commits since its divergence from base on top of
// newBase, producing one synthetic commit per original (preserving
// authorship/message) and returning the new chain's tip id. This is a
// pointer-swap operation: the source branch's old history becomes
// unreachable from the branch pointer but is not deleted (content-
// addressed storage is immutable).
func Rebase(ctx context.Context, adapter storage.Adapter, base, source, newBase string) (string, error) {
	ancestor, err := LCA(ctx, adapter, base, source)
	if err != nil {
		return "", err
	}
	var chain []commitstore.Commit
	err = commitstore.Walk(ctx, adapter, source, func(c commitstore.Commit) bool {
		if c.ID == ancestor {
			return false
		}
		chain = append(chain, c)
		return true
	})
	if err != nil {
		return "", err
	}

	tip := newBase
	for i := len(chain) - 1; i >= 0; i-- { // oldest first
		orig := chain[i]
		flakes, err := commitstore.ReadData(ctx, adapter, orig.Data)
		if err != nil {
			return "", err
		}
		var baseCommit commitstore.Commit
		if tip != "" {
			baseCommit, err = commitstore.Read(ctx, adapter, tip)
			if err != nil {
				return "", err
			}
		}
		nextT := baseCommit.T - 1
		retimed := make([]flake.Flake, len(flakes))
		for j, f := range flakes {
			f.T = nextT
			retimed[j] = f
		}
		dataKey, err := commitstore.WriteData(ctx, adapter, retimed)
		if err != nil {
			return "", err
		}
		newCommit, err := commitstore.Write(ctx, adapter, commitstore.Commit{
			Prev:    tip,
			Branch:  orig.Branch,
			T:       nextT,
			Time:    orig.Time,
			Data:    dataKey,
			Author:  orig.Author,
			Message: orig.Message,
		})
		if err != nil {
			return "", err
		}
		tip = newCommit.ID
	}
	return tip, nil
}

// CheckReset validates that target is reachable from current (an ancestor
// or current itself), the "safe mode" check required before moving a
// branch pointer backward or sideways.
func CheckReset(ctx context.Context, adapter storage.Adapter, current, target string) error {
	if target == current {
		return nil
	}
	ok, err := IsAncestor(ctx, adapter, target, current)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not reachable from %s", errs.ErrInvalidLedger, target, current)
	}
	return nil
}

// Divergence reports how two branch tips relate: their common ancestor and
// how many commits each has made since.
type Divergence struct {
	Ancestor    string
	AheadLocal  int
	AheadRemote int
}

// Report computes the divergence between local and remote branch tips.
func Report(ctx context.Context, adapter storage.Adapter, local, remote string) (Divergence, error) {
	ancestor, err := LCA(ctx, adapter, local, remote)
	if err != nil {
		return Divergence{}, err
	}
	localAhead, err := countSince(ctx, adapter, ancestor, local)
	if err != nil {
		return Divergence{}, err
	}
	remoteAhead, err := countSince(ctx, adapter, ancestor, remote)
	if err != nil {
		return Divergence{}, err
	}
	return Divergence{Ancestor: ancestor, AheadLocal: localAhead, AheadRemote: remoteAhead}, nil
}

func countSince(ctx context.Context, adapter storage.Adapter, ancestor, tip string) (int, error) {
	n := 0
	err := commitstore.Walk(ctx, adapter, tip, func(c commitstore.Commit) bool {
		if c.ID == ancestor {
			return false
		}
		n++
		return true
	})
	return n, err
}
