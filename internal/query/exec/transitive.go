package exec

import (
	"context"
	"fmt"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/fuel"
	"github.com/graphledger/graphledger/internal/query"
	"github.com/graphledger/graphledger/internal/sid"
)

// applyTransitivePath walks Predicate edges breadth-first from whichever of
// Subject/Object is bound, binding the other end for every node reached
// within [MinHops, MaxHops]. When neither endpoint is bound it instead
// computes the predicate's bounded transitive closure over every edge
// (closeBothFree) and binds both ends of each pair.
func (e *Executor) applyTransitivePath(ctx context.Context, rows []Row, tpp *query.TransitivePathPattern) ([]Row, error) {
	var out []Row
	for _, row := range rows {
		s, err := e.resolveTerm(tpp.Subject, row)
		if err != nil {
			return nil, err
		}
		o, err := e.resolveTerm(tpp.Object, row)
		if err != nil {
			return nil, err
		}
		if s.matchAny || o.matchAny {
			continue
		}

		p, err := e.resolveTerm(tpp.Predicate, row)
		if err != nil {
			return nil, err
		}
		if p.matchAny || !p.bound {
			continue
		}

		switch {
		case s.bound:
			reached, err := e.walkPredicate(ctx, p.obj.Ref, s.obj.Ref, tpp.MinHops, tpp.MaxHops, true)
			if err != nil {
				return nil, err
			}
			for _, id := range reached {
				if o.bound && id != o.obj.Ref {
					continue
				}
				next := row.Clone()
				if tpp.Object.IsVariable() && !o.bound {
					next[tpp.Object.Variable] = flake.RefObject(id)
				}
				out = append(out, next)
			}
		case o.bound:
			reached, err := e.walkPredicate(ctx, p.obj.Ref, o.obj.Ref, tpp.MinHops, tpp.MaxHops, false)
			if err != nil {
				return nil, err
			}
			for _, id := range reached {
				next := row.Clone()
				if tpp.Subject.IsVariable() {
					next[tpp.Subject.Variable] = flake.RefObject(id)
				}
				out = append(out, next)
			}
		default:
			rel, err := e.predicateRelation(ctx, p.obj.Ref)
			if err != nil {
				return nil, err
			}
			for _, pr := range closeBothFree(rel, tpp.MinHops, tpp.MaxHops) {
				next := row.Clone()
				if tpp.Subject.IsVariable() {
					next[tpp.Subject.Variable] = flake.RefObject(pr.s)
				}
				if tpp.Object.IsVariable() {
					next[tpp.Object.Variable] = flake.RefObject(pr.o)
				}
				out = append(out, next)
			}
		}
	}
	return out, nil
}

// walkPredicate performs a breadth-first traversal of pred-labeled edges
// starting at start, returning every node reached within [minHops, maxHops]
// (maxHops<=0 means unbounded, capped only by the fuel budget). forward
// follows subject->object edges; otherwise it follows object->subject.
func (e *Executor) walkPredicate(ctx context.Context, pred, start sid.SID, minHops, maxHops int, forward bool) ([]sid.SID, error) {
	visited := map[sid.SID]int{start: 0}
	frontier := []sid.SID{start}
	var result []sid.SID
	if minHops == 0 {
		result = append(result, start)
	}

	for hop := 1; len(frontier) > 0 && (maxHops <= 0 || hop <= maxHops); hop++ {
		next, err := e.stepEdges(ctx, pred, frontier, forward)
		if err != nil {
			return nil, err
		}
		var nextFrontier []sid.SID
		for _, id := range next {
			if _, seen := visited[id]; seen {
				continue
			}
			visited[id] = hop
			nextFrontier = append(nextFrontier, id)
			if hop >= minHops {
				result = append(result, id)
			}
		}
		frontier = nextFrontier
	}
	return result, nil
}

// stepEdges scans the psot index for pred (always populated, per
// flake.AcceptsIndex) and returns the neighbors of every node in from.
func (e *Executor) stepEdges(ctx context.Context, pred sid.SID, from []sid.SID, forward bool) ([]sid.SID, error) {
	index, ok := e.db.Indexes[flake.PSOT]
	if !ok {
		return nil, fmt.Errorf("query/exec: index %s not open", flake.PSOT)
	}
	bound := make(map[sid.SID]bool, len(from))
	for _, id := range from {
		bound[id] = true
	}

	lo := &flake.Flake{P: pred}
	hi := &flake.Flake{P: nextSID(pred)}
	flakes, err := index.Scan(ctx, lo, hi, e.asOfT)
	if err != nil {
		return nil, err
	}
	if err := e.tank.Spend(ctx, int64(len(flakes))*fuel.CostPerFlakeScanned); err != nil {
		return nil, err
	}

	var out []sid.SID
	for _, f := range flakes {
		if !f.O.IsRef {
			continue
		}
		if forward {
			if bound[f.S] {
				out = append(out, f.O.Ref)
			}
		} else if bound[f.O.Ref] {
			out = append(out, f.S)
		}
	}
	return out, nil
}

// predicateRelation scans every pred-labeled edge and returns it as a
// subject->objects adjacency, the single-step binary relation item 3 of
// §4.5.2 starts from when neither path endpoint is bound.
func (e *Executor) predicateRelation(ctx context.Context, pred sid.SID) (map[sid.SID][]sid.SID, error) {
	index, ok := e.db.Indexes[flake.PSOT]
	if !ok {
		return nil, fmt.Errorf("query/exec: index %s not open", flake.PSOT)
	}

	lo := &flake.Flake{P: pred}
	hi := &flake.Flake{P: nextSID(pred)}
	flakes, err := index.Scan(ctx, lo, hi, e.asOfT)
	if err != nil {
		return nil, err
	}
	if err := e.tank.Spend(ctx, int64(len(flakes))*fuel.CostPerFlakeScanned); err != nil {
		return nil, err
	}

	rel := make(map[sid.SID][]sid.SID)
	for _, f := range flakes {
		if !f.O.IsRef {
			continue
		}
		rel[f.S] = append(rel[f.S], f.O.Ref)
	}
	return rel, nil
}

// sidPair is one (subject, object) pair of a predicate's binary relation.
type sidPair struct{ s, o sid.SID }

// closeBothFree computes rel's transitive closure bounded by
// [minHops, maxHops] (maxHops<=0 means unbounded, capped only by the
// fixpoint itself converging): it starts from the single-step relation and
// repeatedly joins the newest round against rel to discover pairs one hop
// further out, stopping once a round adds nothing new (§4.5.2 item 3,
// "both free" case). minHops==0 additionally seeds every node touched by
// rel with a reflexive pair at hop 0, per p*'s zero-length solution.
func closeBothFree(rel map[sid.SID][]sid.SID, minHops, maxHops int) []sidPair {
	hopOf := make(map[sidPair]int)

	if minHops == 0 {
		nodes := make(map[sid.SID]bool)
		for s, objs := range rel {
			nodes[s] = true
			for _, o := range objs {
				nodes[o] = true
			}
		}
		for n := range nodes {
			hopOf[sidPair{n, n}] = 0
		}
	}

	frontier := make(map[sidPair]bool)
	for s, objs := range rel {
		for _, o := range objs {
			p := sidPair{s, o}
			if _, seen := hopOf[p]; !seen {
				hopOf[p] = 1
			}
			frontier[p] = true
		}
	}

	for hop := 2; len(frontier) > 0 && (maxHops <= 0 || hop <= maxHops); hop++ {
		next := make(map[sidPair]bool)
		for fp := range frontier {
			for _, o := range rel[fp.o] {
				np := sidPair{fp.s, o}
				if _, seen := hopOf[np]; seen {
					continue
				}
				hopOf[np] = hop
				next[np] = true
			}
		}
		frontier = next
	}

	var out []sidPair
	for p, hop := range hopOf {
		if hop < minHops {
			continue
		}
		if maxHops > 0 && hop > maxHops {
			continue
		}
		out = append(out, p)
	}
	return out
}
