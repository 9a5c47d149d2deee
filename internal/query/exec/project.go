package exec

import (
	"context"
	"fmt"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/fuel"
	"github.com/graphledger/graphledger/internal/sid"
)

// Value is one row's fully-decoded binding: a reference's IRI, or a
// literal's Go value, whichever the underlying flake.Object held.
type Value struct {
	IRI     string // set iff the binding was a reference
	Literal any    // set iff the binding was a literal
	IsRef   bool
}

// Project decodes every binding in rows back to IRIs/literals via the db's
// schema, keeping only the named variables (in order) as projected columns.
func (e *Executor) Project(rows []Row, variables []string) ([]map[string]Value, error) {
	out := make([]map[string]Value, 0, len(rows))
	for _, row := range rows {
		projected := make(map[string]Value, len(variables))
		for _, v := range variables {
			obj, ok := row[v]
			if !ok {
				continue
			}
			projected[v] = e.decode(obj)
		}
		out = append(out, projected)
	}
	return out, nil
}

func (e *Executor) decode(o flake.Object) Value {
	if o.IsRef {
		iri, ok := e.db.Schema.Decode(o.Ref)
		if !ok {
			iri = o.Ref.String()
		}
		return Value{IRI: iri, IsRef: true}
	}
	return Value{Literal: o.Value}
}

// Record is a full description of one subject: every (predicate, object)
// pair currently visible for it, grouped by decoded predicate IRI.
type Record struct {
	Subject    string
	Properties map[string][]Value
}

// Crawl fetches the complete current record for each subject SID in ids --
// the "describe" operation used to materialize full objects after a query
// has narrowed down which subjects matter, rather than forcing every
// pattern to project every property eagerly.
func (e *Executor) Crawl(ctx context.Context, ids []sid.SID) ([]Record, error) {
	index, ok := e.db.Indexes[flake.SPOT]
	if !ok {
		return nil, fmt.Errorf("query/exec: index %s not open", flake.SPOT)
	}

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		from := &flake.Flake{S: id}
		to := &flake.Flake{S: nextSID(id)}
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

		subjectIRI, ok := e.db.Schema.Decode(id)
		if !ok {
			subjectIRI = id.String()
		}
		rec := Record{Subject: subjectIRI, Properties: make(map[string][]Value)}
		for _, f := range flakes {
			predIRI, ok := e.db.Schema.Decode(f.P)
			if !ok {
				predIRI = f.P.String()
			}
			rec.Properties[predIRI] = append(rec.Properties[predIRI], e.decode(f.O))
		}
		out = append(out, rec)
	}
	return out, nil
}
