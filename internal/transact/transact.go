// Package transact implements the with-t transactional write: given a
// proposed set of new flakes against a branch's current db, it assigns
// them the branch's next t, routes each into the indexes that accept it,
// and produces the commit that durably records the result.
package transact

import (
	"context"
	"fmt"
	"time"

	"github.com/graphledger/graphledger/internal/commitstore"
	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/ledger"
	"github.com/graphledger/graphledger/internal/resolve"
	"github.com/graphledger/graphledger/internal/sid"
)

// PredicateIndexOptions reports, for a given predicate SID, whether it
// should be routed into the post index (the schema-declared idx? flag).
type PredicateIndexOptions interface {
	Indexed(p sid.SID) bool
}

// AlwaysIndexed routes every predicate into post; used when no schema-level
// index declarations are configured.
type AlwaysIndexed struct{}

func (AlwaysIndexed) Indexed(sid.SID) bool { return true }

// Input is one proposed flake, keyed by IRI rather than SID since a
// transaction may be minting brand-new subjects/predicates that don't have
// SIDs yet.
type Input struct {
	Subject   string
	Predicate string
	Object    flake.Object
	ObjectIRI string // set instead of Object.Ref when Object references an IRI not yet encoded
	Retract   bool
	Meta      flake.Meta
}

// Result is the outcome of a successful transaction.
type Result struct {
	Commit commitstore.Commit
	DB     *ledger.CurrentDB
	Tempids *resolve.TempIDGenerator
}

// Apply assigns inputs the branch's next t (one less than the current db's
// t), encodes any new IRIs through the schema, routes each resulting flake
// into every index that accepts it, and returns the new CurrentDB plus an
// unwritten commit describing the transaction. The caller is responsible
// for durably publishing the commit (commitstore.Write) and CAS-ing the
// branch pointer (ledger.BranchState.CAS) under the branch's write lock.
func Apply(ctx context.Context, bs *ledger.BranchState, inputs []Input, opts PredicateIndexOptions, author, message string) (Result, error) {
	if len(inputs) == 0 {
		return Result{}, fmt.Errorf("%w: empty transaction", errs.ErrInvalidTransaction)
	}
	if opts == nil {
		opts = AlwaysIndexed{}
	}

	base := bs.DB()
	next := base.WithSchema()
	nextT := next.T - 1 // t strictly decreases

	flakes := make([]flake.Flake, 0, len(inputs))
	for _, in := range inputs {
		f, err := resolveInput(next, in, nextT)
		if err != nil {
			return Result{}, err
		}
		flakes = append(flakes, f)
	}

	if err := validateUniqueness(flakes); err != nil {
		return Result{}, err
	}

	for _, f := range flakes {
		for kind, ix := range next.Indexes {
			predicateIndexed := opts.Indexed(f.P)
			if flake.AcceptsIndex(f, kind, predicateIndexed) {
				ix.Add(f)
			}
		}
	}
	next.T = nextT

	dataKey, err := commitstore.WriteData(ctx, bs.Adapter, flakes)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", errs.ErrStorageFailure, err)
	}

	ecount := next.Schema.MaxCounter()
	commit := commitstore.Commit{
		Prev:    bs.LatestCommit(),
		Branch:  bs.ID.Branch,
		T:       nextT,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Data:    dataKey,
		Author:  author,
		Message: message,
		ECount:  ecount,
	}

	return Result{Commit: commit, DB: next}, nil
}

func resolveInput(db *ledger.CurrentDB, in Input, t int64) (flake.Flake, error) {
	if in.Subject == "" || in.Predicate == "" {
		return flake.Flake{}, fmt.Errorf("%w: empty subject or predicate", errs.ErrInvalidFlake)
	}
	s, err := db.Schema.Encode(in.Subject)
	if err != nil {
		return flake.Flake{}, fmt.Errorf("%w: encode subject: %v", errs.ErrInvalidFlake, err)
	}
	p, err := db.Schema.Encode(in.Predicate)
	if err != nil {
		return flake.Flake{}, fmt.Errorf("%w: encode predicate: %v", errs.ErrInvalidFlake, err)
	}
	obj := in.Object
	if in.ObjectIRI != "" {
		ref, err := db.Schema.Encode(in.ObjectIRI)
		if err != nil {
			return flake.Flake{}, fmt.Errorf("%w: encode object iri: %v", errs.ErrInvalidFlake, err)
		}
		obj = flake.RefObject(ref)
	}
	return flake.Flake{S: s, P: p, O: obj, T: t, Op: !in.Retract, M: in.Meta}, nil
}

// validateUniqueness enforces the (s,p,o,t) global uniqueness invariant
// within a single transaction (cross-transaction uniqueness holds
// automatically since every transaction gets a distinct t).
func validateUniqueness(flakes []flake.Flake) error {
	seen := make(map[string]struct{}, len(flakes))
	for _, f := range flakes {
		key := f.String()
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: duplicate flake %s within one transaction", errs.ErrInvalidTransaction, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
