// Package exec evaluates a query.Pattern pipeline against one branch's
// CurrentDB: index selection per triple pattern, property-family joins
// across a running set of variable bindings, and the OPTIONAL/UNION/
// FILTER/BIND/MINUS/transitive-path combinators built on top of it.
package exec

import (
	"context"
	"fmt"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/fuel"
	"github.com/graphledger/graphledger/internal/ledger"
	"github.com/graphledger/graphledger/internal/policy"
	"github.com/graphledger/graphledger/internal/query"
	"github.com/graphledger/graphledger/internal/sid"
)

// Row is one set of variable bindings produced while walking a pattern
// pipeline. Subjects and predicates are always bound as reference objects
// (they're always IRIs); object positions may be either.
type Row map[string]flake.Object

// Clone returns a shallow copy of r, safe to mutate without affecting r.
func (r Row) Clone() Row {
	out := make(Row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Executor runs a pattern pipeline against one db snapshot, charging every
// scan and join probe against a shared fuel.Tracker and, if set, filtering
// every candidate flake through a policy.Filter before it can bind a
// variable.
type Executor struct {
	db     *ledger.CurrentDB
	asOfT  int64
	tank   *fuel.Tracker
	policy *policy.Filter
}

// New builds an Executor over db as of asOfT. tank may be nil to run
// unmetered (e.g. tests); pf may be nil to skip access-control filtering.
func New(db *ledger.CurrentDB, asOfT int64, tank *fuel.Tracker, pf *policy.Filter) *Executor {
	if tank == nil {
		tank = fuel.New(1 << 40)
	}
	return &Executor{db: db, asOfT: asOfT, tank: tank, policy: pf}
}

// Run evaluates patterns in sequence, starting from a single empty row, and
// returns every binding set that survives the whole pipeline.
func (e *Executor) Run(ctx context.Context, patterns []query.Pattern) ([]Row, error) {
	return e.applyAll(ctx, []Row{{}}, patterns)
}

func (e *Executor) applyAll(ctx context.Context, rows []Row, patterns []query.Pattern) ([]Row, error) {
	for _, p := range patterns {
		var err error
		rows, err = e.apply(ctx, rows, p)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return rows, nil
		}
	}
	return rows, nil
}

func (e *Executor) apply(ctx context.Context, rows []Row, p query.Pattern) ([]Row, error) {
	switch p.Kind {
	case query.KindTriple:
		return e.applyJoin(ctx, rows, func(row Row) (*query.TriplePattern, error) { return p.Triple, nil })
	case query.KindClass:
		return e.applyClass(ctx, rows, p.Class)
	case query.KindOptional:
		return e.applyOptional(ctx, rows, p.Optional)
	case query.KindUnion:
		return e.applyUnion(ctx, rows, p.Union)
	case query.KindFilter:
		return e.applyFilter(ctx, rows, p.Filter)
	case query.KindBind:
		return e.applyBind(ctx, rows, p.Bind)
	case query.KindMinus:
		return e.applyMinus(ctx, rows, p.Minus)
	case query.KindTransitivePath:
		return e.applyTransitivePath(ctx, rows, p.TransitivePath)
	default:
		return nil, fmt.Errorf("query/exec: unhandled pattern kind %d", p.Kind)
	}
}

func (e *Executor) applyClass(ctx context.Context, rows []Row, cp *query.ClassPattern) ([]Row, error) {
	tp := &query.TriplePattern{
		Subject:   cp.Subject,
		Predicate: query.Bound("rdf:type"),
		Object:    query.Bound(cp.Class),
	}
	return e.applyJoin(ctx, rows, func(Row) (*query.TriplePattern, error) { return tp, nil })
}

// applyJoin runs tpOf(row)'s triple pattern against each input row
// (a property-family join: one index scan per input row, narrowed by
// whatever that row already bound), producing zero or more output rows per
// input row.
func (e *Executor) applyJoin(ctx context.Context, rows []Row, tpOf func(Row) (*query.TriplePattern, error)) ([]Row, error) {
	var out []Row
	for _, row := range rows {
		tp, err := tpOf(row)
		if err != nil {
			return nil, err
		}
		matched, err := e.matchTriple(ctx, row, tp)
		if err != nil {
			return nil, err
		}
		out = append(out, matched...)
	}
	return out, nil
}

// resolved is one term's state after trying to bind it against a row and
// the schema.
type resolved struct {
	obj      flake.Object
	bound    bool // term has a concrete value to test/narrow against
	matchAny bool // term is a bound IRI with no known SID: can never match
}

func (e *Executor) resolveTerm(t query.Term, row Row) (resolved, error) {
	if t.IsVariable() {
		if v, ok := row[t.Variable]; ok {
			return resolved{obj: v, bound: true}, nil
		}
		return resolved{}, nil
	}
	if t.IsLit {
		return resolved{obj: flake.LitObject(t.Literal, sid.XSDString, ""), bound: true}, nil
	}
	id, ok := e.db.Schema.Lookup(t.IRI)
	if !ok {
		return resolved{matchAny: true}, nil
	}
	return resolved{obj: flake.RefObject(id), bound: true}, nil
}

// matchTriple resolves tp's three terms against row, picks the index best
// narrowed by whichever positions are bound, scans it, and binds any
// unbound positions in a fresh row per matching flake.
func (e *Executor) matchTriple(ctx context.Context, row Row, tp *query.TriplePattern) ([]Row, error) {
	s, err := e.resolveTerm(tp.Subject, row)
	if err != nil {
		return nil, err
	}
	if s.matchAny {
		return nil, nil
	}
	p, err := e.resolveTerm(tp.Predicate, row)
	if err != nil {
		return nil, err
	}
	if p.matchAny {
		return nil, nil
	}
	o, err := e.resolveTerm(tp.Object, row)
	if err != nil {
		return nil, err
	}
	if o.matchAny {
		return nil, nil
	}

	idx, from, to := planScan(s, p, o)
	index, ok := e.db.Indexes[idx]
	if !ok {
		return nil, fmt.Errorf("query/exec: index %s not open", idx)
	}

	flakes, err := index.Scan(ctx, from, to, e.asOfT)
	if err != nil {
		return nil, err
	}
	if err := e.tank.Spend(ctx, int64(len(flakes))*fuel.CostPerFlakeScanned); err != nil {
		return nil, err
	}
	if e.policy != nil {
		flakes, err = e.policy.AllowBatch(ctx, flakes)
		if err != nil {
			return nil, err
		}
	}

	out := make([]Row, 0, len(flakes))
	for _, f := range flakes {
		if s.bound && f.S != s.obj.Ref {
			continue
		}
		if p.bound && f.P != p.obj.Ref {
			continue
		}
		if o.bound && !flake.ObjectsEqual(f.O, o.obj) {
			continue
		}
		next := row.Clone()
		if tp.Subject.IsVariable() && !s.bound {
			next[tp.Subject.Variable] = flake.RefObject(f.S)
		}
		if tp.Predicate.IsVariable() && !p.bound {
			next[tp.Predicate.Variable] = flake.RefObject(f.P)
		}
		if tp.Object.IsVariable() && !o.bound {
			next[tp.Object.Variable] = f.O
		}
		out = append(out, next)
	}
	return out, nil
}

// planScan picks the index (and a narrowing [from, to) range within it)
// best suited to the combination of bound terms per §4.5.2: prefer an exact
// (s,p) prefix, then (p,o-ref), then p alone, then o-ref alone, then s
// alone, falling back to an unbounded spot scan when nothing is bound.
func planScan(s, p, o resolved) (flake.Index, *flake.Flake, *flake.Flake) {
	// minObject is the comparator's lowest possible object (refs sort before
	// literals, and ref 0 is the lowest ref): used as the "from" bound's
	// object field whenever the object position isn't the one narrowing the
	// scan, so an unbound trailing field doesn't accidentally exclude
	// real ref-typed objects that tie with the zero Go value on every
	// preceding field.
	minObject := flake.RefObject(0)

	switch {
	case s.bound && p.bound:
		return flake.SPOT,
			&flake.Flake{S: s.obj.Ref, P: p.obj.Ref, O: minObject},
			&flake.Flake{S: s.obj.Ref, P: nextSID(p.obj.Ref)}
	case p.bound && o.bound && o.obj.IsRef:
		return flake.POST,
			&flake.Flake{P: p.obj.Ref, O: o.obj},
			&flake.Flake{P: p.obj.Ref, O: flake.RefObject(nextSID(o.obj.Ref))}
	case p.bound:
		return flake.PSOT,
			&flake.Flake{P: p.obj.Ref, O: minObject},
			&flake.Flake{P: nextSID(p.obj.Ref)}
	case o.bound && o.obj.IsRef:
		return flake.OPST,
			&flake.Flake{O: o.obj},
			&flake.Flake{O: flake.RefObject(nextSID(o.obj.Ref))}
	case s.bound:
		return flake.SPOT,
			&flake.Flake{S: s.obj.Ref, O: minObject},
			&flake.Flake{S: nextSID(s.obj.Ref)}
	default:
		return flake.SPOT, nil, nil
	}
}

// nextSID returns the smallest SID strictly greater than id, for building an
// exclusive upper bound on a prefix scan. Namespace occupies the high bits
// and counter the low bits, so raw successor order matches SID order.
func nextSID(id sid.SID) sid.SID { return id + 1 }

func (e *Executor) applyOptional(ctx context.Context, rows []Row, op *query.OptionalPattern) ([]Row, error) {
	var out []Row
	for _, row := range rows {
		matched, err := e.applyAll(ctx, []Row{row}, op.Inner)
		if err != nil {
			return nil, err
		}
		if len(matched) == 0 {
			out = append(out, row)
			continue
		}
		out = append(out, matched...)
	}
	return out, nil
}

func (e *Executor) applyUnion(ctx context.Context, rows []Row, u *query.UnionPattern) ([]Row, error) {
	var out []Row
	for _, row := range rows {
		left, err := e.applyAll(ctx, []Row{row}, u.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.applyAll(ctx, []Row{row}, u.Right)
		if err != nil {
			return nil, err
		}
		out = append(out, left...)
		out = append(out, right...)
	}
	return out, nil
}

func (e *Executor) applyFilter(ctx context.Context, rows []Row, fp *query.FilterPattern) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if err := e.tank.Spend(ctx, fuel.CostPerFilterEval); err != nil {
			return nil, err
		}
		ok, err := query.EvalFilter(fp.Expr, row)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (e *Executor) applyBind(ctx context.Context, rows []Row, bp *query.BindPattern) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		v, err := bp.Compute(row)
		if err != nil {
			return nil, err
		}
		next := row.Clone()
		next[bp.Variable] = v
		out = append(out, next)
	}
	return out, nil
}

func (e *Executor) applyMinus(ctx context.Context, rows []Row, mp *query.MinusPattern) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		matched, err := e.applyAll(ctx, []Row{row}, mp.Inner)
		if err != nil {
			return nil, err
		}
		if len(matched) == 0 {
			out = append(out, row)
		}
	}
	return out, nil
}
