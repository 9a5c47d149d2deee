// Package policy implements the query executor's access-control filter:
// given a requesting identity and a candidate flake, decide whether it may
// be read, with a per-(class, predicate) cache of rule results so repeated
// checks against subjects of the same rdf:type don't re-evaluate the same
// rule. Allow resolves the subject's class on every call; AllowBatch
// resolves it once per distinct subject in the batch.
package policy

import (
	"context"
	"sync"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/sid"
)

// Identity is the opaque requesting principal a Policy evaluates against;
// the engine never interprets it beyond passing it through.
type Identity any

// Rule decides whether a flake belonging to a subject of class (the
// subject's rdf:type SID, or the zero SID if untyped) and predicate p is
// visible to identity.
type Rule func(identity Identity, class sid.SID, p sid.SID) bool

// AllowAll is the default rule: every flake is visible.
func AllowAll(Identity, sid.SID, sid.SID) bool { return true }

// classKey caches a rule's answer for one (class, predicate) pair, since
// the rule is defined not to depend on the specific subject/object once
// class and predicate are fixed.
type classKey struct {
	class sid.SID
	pred  sid.SID
}

// Filter evaluates a Rule against a stream of flakes, caching per-
// (class, predicate) results for one identity's query lifetime.
type Filter struct {
	identity Identity
	rule     Rule
	classOf  func(ctx context.Context, s sid.SID) (sid.SID, error)

	mu    sync.Mutex
	cache map[classKey]bool
}

// NewFilter builds a Filter for one query. classOf resolves a subject's
// rdf:type (its "class", in the policy sense); the executor supplies this
// since only it has an index handle to look the type flake up with.
func NewFilter(identity Identity, rule Rule, classOf func(ctx context.Context, s sid.SID) (sid.SID, error)) *Filter {
	if rule == nil {
		rule = AllowAll
	}
	return &Filter{identity: identity, rule: rule, classOf: classOf, cache: make(map[classKey]bool)}
}

// Allow reports whether f may be returned to the Filter's identity.
func (flt *Filter) Allow(ctx context.Context, f flake.Flake) (bool, error) {
	class, err := flt.classOf(ctx, f.S)
	if err != nil {
		return false, err
	}
	key := classKey{class: class, pred: f.P}

	flt.mu.Lock()
	if v, ok := flt.cache[key]; ok {
		flt.mu.Unlock()
		return v, nil
	}
	flt.mu.Unlock()

	allowed := flt.rule(flt.identity, class, f.P)

	flt.mu.Lock()
	flt.cache[key] = allowed
	flt.mu.Unlock()
	return allowed, nil
}

// AllowBatch filters flakes in place, returning only the visible ones; it
// groups by subject first so classOf is called at most once per distinct
// subject in the batch rather than once per flake.
func (flt *Filter) AllowBatch(ctx context.Context, flakes []flake.Flake) ([]flake.Flake, error) {
	classBySubject := make(map[sid.SID]sid.SID)
	out := make([]flake.Flake, 0, len(flakes))
	for _, f := range flakes {
		class, ok := classBySubject[f.S]
		if !ok {
			c, err := flt.classOf(ctx, f.S)
			if err != nil {
				return nil, err
			}
			class = c
			classBySubject[f.S] = c
		}
		key := classKey{class: class, pred: f.P}
		flt.mu.Lock()
		allowed, cached := flt.cache[key]
		if !cached {
			allowed = flt.rule(flt.identity, class, f.P)
			flt.cache[key] = allowed
		}
		flt.mu.Unlock()
		if allowed {
			out = append(out, f)
		}
	}
	return out, nil
}
