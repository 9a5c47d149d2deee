package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/graphledger/graphledger/internal/flake"
)

// Document is the minimal JSON query format the gl CLI's query command
// reads under --format=fql: a flat select list plus a where clause of
// pattern nodes. It is not SPARQL or JSON-LD -- parsing those is out of
// scope here -- just a direct JSON rendering of the Pattern IR so a query
// can be handed to the engine without an embedder writing Go.
type Document struct {
	Select []string          `json:"select"`
	Where  []json.RawMessage `json:"where"`
}

// ParseDocument decodes data into a pattern pipeline and the list of
// variables its select clause projects.
func ParseDocument(data []byte) ([]Pattern, []string, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("query: parse document: %w", err)
	}
	patterns := make([]Pattern, 0, len(doc.Where))
	for i, raw := range doc.Where {
		p, err := parseWhereNode(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("query: where[%d]: %w", i, err)
		}
		patterns = append(patterns, p)
	}
	return patterns, doc.Select, nil
}

type jsonTriple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

type jsonClass struct {
	Subject string `json:"subject"`
	Class   string `json:"class"`
}

type jsonGroup struct {
	Where []json.RawMessage `json:"where"`
}

type jsonUnion struct {
	Left  []json.RawMessage `json:"left"`
	Right []json.RawMessage `json:"right"`
}

type jsonBind struct {
	Var  string `json:"var"`
	From string `json:"from"` // copies another variable's current binding
}

type jsonTransitive struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	MinHops   int    `json:"minHops"`
	MaxHops   int    `json:"maxHops"`
}

type whereWrapper struct {
	Triple     *jsonTriple     `json:"triple"`
	Class      *jsonClass      `json:"class"`
	Filter     *string         `json:"filter"`
	Optional   *jsonGroup      `json:"optional"`
	Union      *jsonUnion      `json:"union"`
	Minus      *jsonGroup      `json:"minus"`
	Bind       *jsonBind       `json:"bind"`
	Transitive *jsonTransitive `json:"transitive"`
}

func parseWhereNode(raw json.RawMessage) (Pattern, error) {
	var w whereWrapper
	if err := json.Unmarshal(raw, &w); err != nil {
		return Pattern{}, err
	}
	switch {
	case w.Triple != nil:
		return Pattern{Kind: KindTriple, Triple: &TriplePattern{
			Subject:   parseTerm(w.Triple.Subject),
			Predicate: parseTerm(w.Triple.Predicate),
			Object:    parseTerm(w.Triple.Object),
		}}, nil
	case w.Class != nil:
		return Pattern{Kind: KindClass, Class: &ClassPattern{
			Subject: parseTerm(w.Class.Subject),
			Class:   w.Class.Class,
		}}, nil
	case w.Filter != nil:
		expr, err := Parse(*w.Filter)
		if err != nil {
			return Pattern{}, fmt.Errorf("filter expression: %w", err)
		}
		return Pattern{Kind: KindFilter, Filter: &FilterPattern{Expr: expr}}, nil
	case w.Optional != nil:
		inner, err := parseGroup(w.Optional.Where)
		if err != nil {
			return Pattern{}, err
		}
		return Pattern{Kind: KindOptional, Optional: &OptionalPattern{Inner: inner}}, nil
	case w.Union != nil:
		left, err := parseGroup(w.Union.Left)
		if err != nil {
			return Pattern{}, err
		}
		right, err := parseGroup(w.Union.Right)
		if err != nil {
			return Pattern{}, err
		}
		return Pattern{Kind: KindUnion, Union: &UnionPattern{Left: left, Right: right}}, nil
	case w.Minus != nil:
		inner, err := parseGroup(w.Minus.Where)
		if err != nil {
			return Pattern{}, err
		}
		return Pattern{Kind: KindMinus, Minus: &MinusPattern{Inner: inner}}, nil
	case w.Bind != nil:
		from := w.Bind.From
		return Pattern{Kind: KindBind, Bind: &BindPattern{
			Variable: w.Bind.Var,
			Compute: func(bindings map[string]flake.Object) (flake.Object, error) {
				v, ok := bindings[from]
				if !ok {
					return flake.Object{}, fmt.Errorf("query: bind: %q is unbound", from)
				}
				return v, nil
			},
		}}, nil
	case w.Transitive != nil:
		t := w.Transitive
		return Pattern{Kind: KindTransitivePath, TransitivePath: &TransitivePathPattern{
			Subject:   parseTerm(t.Subject),
			Predicate: parseTerm(t.Predicate),
			Object:    parseTerm(t.Object),
			MinHops:   t.MinHops,
			MaxHops:   t.MaxHops,
		}}, nil
	default:
		return Pattern{}, fmt.Errorf("unrecognized where-clause shape: %s", raw)
	}
}

func parseGroup(raw []json.RawMessage) ([]Pattern, error) {
	out := make([]Pattern, 0, len(raw))
	for i, r := range raw {
		p, err := parseWhereNode(r)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// parseTerm applies the document's term convention: a leading '?' marks an
// unbound pattern variable, a quoted string marks a literal constant, a
// bare numeric string marks a numeric literal, anything else is a bound
// IRI.
func parseTerm(raw string) Term {
	switch {
	case strings.HasPrefix(raw, "?"):
		return Var(strings.TrimPrefix(raw, "?"))
	case strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) && len(raw) >= 2:
		return BoundLit(strings.Trim(raw, `"`))
	default:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return BoundLit(n)
		}
		return Bound(raw)
	}
}
