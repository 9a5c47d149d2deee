package flake

import (
	"cmp"
	"fmt"
)

// Index names the five sorted flake collections.
type Index int

const (
	SPOT Index = iota
	PSOT
	POST
	OPST
	TSPO
)

func (i Index) String() string {
	switch i {
	case SPOT:
		return "spot"
	case PSOT:
		return "psot"
	case POST:
		return "post"
	case OPST:
		return "opst"
	case TSPO:
		return "tspo"
	default:
		return "unknown"
	}
}

// Comparator is a strict total order over flakes for one index.
type Comparator func(a, b Flake) int

// Comparators maps every index to its comparator.
var Comparators = map[Index]Comparator{
	SPOT: compareSPOT,
	PSOT: comparePSOT,
	POST: comparePOST,
	OPST: compareOPST,
	TSPO: compareTSPO,
}

// compareObject orders objects: references before literals, then by
// reference SID, or by (datatype, value, lang) for literals.
func compareObject(a, b Object) int {
	if a.IsRef != b.IsRef {
		if a.IsRef {
			return -1
		}
		return 1
	}
	if a.IsRef {
		return cmp.Compare(a.Ref, b.Ref)
	}
	if c := cmp.Compare(a.Datatype, b.Datatype); c != 0 {
		return c
	}
	if c := compareValue(a.Value, b.Value); c != 0 {
		return c
	}
	return cmp.Compare(a.Lang, b.Lang)
}

// compareValue orders literal values of possibly-differing dynamic types.
// Same-type values compare naturally; differing types fall back to a
// deterministic tiebreak on their formatted representation so the order is
// still total (required for the B+tree to have a single valid leaf layout).
func compareValue(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return cmp.Compare(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmp.Compare(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return cmp.Compare(boolToInt(av), boolToInt(bv))
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// compareT orders t ascending, i.e. more negative (more recent) sorts
// first, matching the invariant that t strictly decreases over time.
func compareT(a, b int64) int { return cmp.Compare(a, b) }

func compareSPOT(a, b Flake) int {
	if c := cmp.Compare(a.S, b.S); c != 0 {
		return c
	}
	if c := cmp.Compare(a.P, b.P); c != 0 {
		return c
	}
	if c := compareObject(a.O, b.O); c != 0 {
		return c
	}
	return compareT(a.T, b.T)
}

func comparePSOT(a, b Flake) int {
	if c := cmp.Compare(a.P, b.P); c != 0 {
		return c
	}
	if c := cmp.Compare(a.S, b.S); c != 0 {
		return c
	}
	if c := compareObject(a.O, b.O); c != 0 {
		return c
	}
	return compareT(a.T, b.T)
}

func comparePOST(a, b Flake) int {
	if c := cmp.Compare(a.P, b.P); c != 0 {
		return c
	}
	if c := compareObject(a.O, b.O); c != 0 {
		return c
	}
	if c := cmp.Compare(a.S, b.S); c != 0 {
		return c
	}
	return compareT(a.T, b.T)
}

func compareOPST(a, b Flake) int {
	if c := compareObject(a.O, b.O); c != 0 {
		return c
	}
	if c := cmp.Compare(a.P, b.P); c != 0 {
		return c
	}
	if c := cmp.Compare(a.S, b.S); c != 0 {
		return c
	}
	return compareT(a.T, b.T)
}

func compareTSPO(a, b Flake) int {
	if c := compareT(a.T, b.T); c != 0 {
		return c
	}
	if c := cmp.Compare(a.S, b.S); c != 0 {
		return c
	}
	if c := cmp.Compare(a.P, b.P); c != 0 {
		return c
	}
	return compareObject(a.O, b.O)
}

// AcceptsIndex reports whether f should be routed into idx per §4.2.5:
// spot/psot/tspo always accept; post only predicates marked idx?; opst only
// reference-typed objects.
func AcceptsIndex(f Flake, idx Index, predicateIndexed bool) bool {
	switch idx {
	case SPOT, PSOT, TSPO:
		return true
	case POST:
		return predicateIndexed
	case OPST:
		return f.O.IsRef
	default:
		return false
	}
}
