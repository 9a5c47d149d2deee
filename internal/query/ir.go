package query

import (
	"github.com/graphledger/graphledger/internal/flake"
)

// Term is one position of a triple pattern: either bound to a concrete IRI
// or literal, or an unbound pattern variable.
type Term struct {
	Variable string // non-empty iff this position is unbound
	IRI      string // bound subject/predicate/reference-object IRI
	Literal  any    // bound literal value
	IsLit    bool
}

func Var(name string) Term        { return Term{Variable: name} }
func Bound(iri string) Term       { return Term{IRI: iri} }
func BoundLit(v any) Term         { return Term{Literal: v, IsLit: true} }

func (t Term) IsVariable() bool { return t.Variable != "" }

// Pattern is a tagged-sum query IR node: exactly one of the embedded
// pointers is non-nil, switched on by Kind. This mirrors the engine-wide
// convention of representing sum types as a kind tag plus per-variant
// fields rather than dynamic dispatch through an interface.
type PatternKind int

const (
	KindTriple PatternKind = iota
	KindClass
	KindOptional
	KindUnion
	KindFilter
	KindBind
	KindMinus
	KindTransitivePath
)

type Pattern struct {
	Kind PatternKind

	Triple         *TriplePattern
	Class          *ClassPattern
	Optional       *OptionalPattern
	Union          *UnionPattern
	Filter         *FilterPattern
	Bind           *BindPattern
	Minus          *MinusPattern
	TransitivePath *TransitivePathPattern
}

// TriplePattern matches flakes against a (subject, predicate, object)
// shape, any position of which may be an unbound variable.
type TriplePattern struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// ClassPattern is sugar for a TriplePattern on rdf:type, kept distinct so
// the planner can special-case "which subjects have this type" without
// pattern-matching the generic triple shape.
type ClassPattern struct {
	Subject Term
	Class   string // class IRI
}

// OptionalPattern matches Inner if possible, but doesn't eliminate the
// outer binding set when it fails to match (SPARQL LEFT JOIN semantics).
type OptionalPattern struct {
	Inner []Pattern
}

// UnionPattern matches if either arm matches, producing the union of both
// binding sets.
type UnionPattern struct {
	Left  []Pattern
	Right []Pattern
}

// FilterPattern restricts the current binding set to rows satisfying Expr,
// parsed with query.Parse into the comparison/AND/OR/NOT AST.
type FilterPattern struct {
	Expr Node
}

// BindPattern introduces a new binding computed from existing ones.
type BindPattern struct {
	Variable string
	Compute  func(bindings map[string]flake.Object) (flake.Object, error)
}

// MinusPattern removes bindings that also satisfy Inner (SPARQL MINUS).
type MinusPattern struct {
	Inner []Pattern
}

// TransitivePathPattern matches zero-or-more (MinHops==0) or one-or-more
// (MinHops==1) hops of Predicate from Subject to Object, e.g. rdfs
// subClassOf* or a folder-containment hierarchy.
type TransitivePathPattern struct {
	Subject   Term
	Predicate Term
	Object    Term
	MinHops   int
	MaxHops   int // 0 means unbounded
}
