// Package flake defines the atomic fact of the database -- the flake -- and
// the strict total-order comparators each of the five indexes sorts by.
package flake

import (
	"fmt"

	"github.com/graphledger/graphledger/internal/sid"
)

// Object is a flake's object position: either a reference to another
// subject (a SID) or a typed literal value.
type Object struct {
	Ref      sid.SID // valid iff IsRef
	IsRef    bool
	Value    any     // literal value (string, int64, float64, bool, ...)
	Datatype sid.SID // literal datatype SID; zero value when IsRef
	Lang     string  // optional language tag, literals only
}

// RefObject builds a reference-typed Object.
func RefObject(s sid.SID) Object { return Object{Ref: s, IsRef: true} }

// LitObject builds a literal-typed Object.
func LitObject(value any, datatype sid.SID, lang string) Object {
	return Object{Value: value, Datatype: datatype, Lang: lang}
}

// Meta holds optional per-flake metadata, e.g. {:i N} marking list index.
type Meta map[string]any

// ListIndex returns the ordered-collection index recorded in m, if any.
func (m Meta) ListIndex() (int, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m["i"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Flake is the immutable 6-tuple (s, p, o, t, op, m).
//
// (S, P, O, T) is globally unique. For a fixed (S, P, O), Op alternates
// strictly as T decreases: a retraction always follows an existing
// assertion.
type Flake struct {
	S  sid.SID
	P  sid.SID
	O  Object
	T  int64 // strictly decreasing; more negative = more recent. t=0 is genesis.
	Op bool  // true = assert, false = retract
	M  Meta
}

func (f Flake) String() string {
	verb := "+"
	if !f.Op {
		verb = "-"
	}
	return fmt.Sprintf("%s[%s %s %v @%d]", verb, f.S, f.P, f.O, f.T)
}

// SameFact reports whether a and b share the same (s, p, o) regardless of t/op.
func SameFact(a, b Flake) bool {
	return a.S == b.S && a.P == b.P && objectEqual(a.O, b.O)
}

// ObjectsEqual reports whether a and b are the same ref or the same typed
// literal; exported for callers outside this package (the query executor)
// that need to test a bound object term against a scanned flake's object.
func ObjectsEqual(a, b Object) bool { return objectEqual(a, b) }

func objectEqual(a, b Object) bool {
	if a.IsRef != b.IsRef {
		return false
	}
	if a.IsRef {
		return a.Ref == b.Ref
	}
	return a.Datatype == b.Datatype && a.Lang == b.Lang && a.Value == b.Value
}
