package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/flakeindex"
	"github.com/graphledger/graphledger/internal/ledger"
	"github.com/graphledger/graphledger/internal/query"
	"github.com/graphledger/graphledger/internal/sid"
)

// testDB builds a small CurrentDB over in-memory stores and seeds it with
// a tiny graph: two Person subjects, one knows the other, each has a name
// and an age.
func testDB(t *testing.T) (*ledger.CurrentDB, string, string) {
	t.Helper()
	ctx := context.Background()
	schema := sid.NewSchema()

	db := &ledger.CurrentDB{T: -1, Schema: schema, Indexes: make(map[flake.Index]*flakeindex.Index)}
	for _, kind := range []flake.Index{flake.SPOT, flake.PSOT, flake.POST, flake.OPST, flake.TSPO} {
		db.Indexes[kind] = flakeindex.Open(flakeindex.NewMemStore(), kind, "")
	}

	alice, err := schema.Encode("urn:person:alice")
	require.NoError(t, err)
	bob, err := schema.Encode("urn:person:bob")
	require.NoError(t, err)
	typeP, err := schema.Encode("rdf:type")
	require.NoError(t, err)
	require.Equal(t, sid.RDFType, typeP)
	personClass, err := schema.Encode("urn:class:Person")
	require.NoError(t, err)
	nameP, err := schema.Encode("urn:prop:name")
	require.NoError(t, err)
	ageP, err := schema.Encode("urn:prop:age")
	require.NoError(t, err)
	knowsP, err := schema.Encode("urn:prop:knows")
	require.NoError(t, err)

	add := func(s, p sid.SID, o flake.Object) {
		f := flake.Flake{S: s, P: p, O: o, T: -1, Op: true}
		for kind, idx := range db.Indexes {
			if flake.AcceptsIndex(f, kind, true) {
				idx.Add(f)
			}
		}
	}

	add(alice, typeP, flake.RefObject(personClass))
	add(bob, typeP, flake.RefObject(personClass))
	add(alice, nameP, flake.LitObject("Alice", sid.XSDString, ""))
	add(bob, nameP, flake.LitObject("Bob", sid.XSDString, ""))
	add(alice, ageP, flake.LitObject(int64(30), sid.XSDInteger, ""))
	add(bob, ageP, flake.LitObject(int64(25), sid.XSDInteger, ""))
	add(alice, knowsP, flake.RefObject(bob))

	for _, idx := range db.Indexes {
		require.NoError(t, idx.Flush(ctx, 256))
	}

	return db, "urn:person:alice", "urn:person:bob"
}

func TestTriplePatternBindsObject(t *testing.T) {
	db, alice, _ := testDB(t)
	e := New(db, db.T, nil, nil)

	patterns := []query.Pattern{
		{Kind: query.KindTriple, Triple: &query.TriplePattern{
			Subject:   query.Bound(alice),
			Predicate: query.Bound("urn:prop:name"),
			Object:    query.Var("name"),
		}},
	}
	rows, err := e.Run(context.Background(), patterns)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Alice", rows[0]["name"].Value)
}

func TestClassPatternFindsBothSubjects(t *testing.T) {
	db, _, _ := testDB(t)
	e := New(db, db.T, nil, nil)

	patterns := []query.Pattern{
		{Kind: query.KindClass, Class: &query.ClassPattern{Subject: query.Var("s"), Class: "urn:class:Person"}},
	}
	rows, err := e.Run(context.Background(), patterns)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestJoinAcrossTwoTriplePatterns(t *testing.T) {
	db, _, _ := testDB(t)
	e := New(db, db.T, nil, nil)

	patterns := []query.Pattern{
		{Kind: query.KindTriple, Triple: &query.TriplePattern{
			Subject: query.Var("s"), Predicate: query.Bound("urn:prop:knows"), Object: query.Var("o"),
		}},
		{Kind: query.KindTriple, Triple: &query.TriplePattern{
			Subject: query.Var("o"), Predicate: query.Bound("urn:prop:name"), Object: query.Var("friendName"),
		}},
	}
	rows, err := e.Run(context.Background(), patterns)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Bob", rows[0]["friendName"].Value)
}

func TestFilterRestrictsByAge(t *testing.T) {
	db, _, _ := testDB(t)
	e := New(db, db.T, nil, nil)

	expr, err := query.Parse("?age>27")
	require.NoError(t, err)

	patterns := []query.Pattern{
		{Kind: query.KindTriple, Triple: &query.TriplePattern{
			Subject: query.Var("s"), Predicate: query.Bound("urn:prop:age"), Object: query.Var("?age"),
		}},
		{Kind: query.KindFilter, Filter: &query.FilterPattern{Expr: expr}},
	}
	rows, err := e.Run(context.Background(), patterns)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 30, rows[0]["?age"].Value)
}

func TestOptionalKeepsUnmatchedRow(t *testing.T) {
	db, _, _ := testDB(t)
	e := New(db, db.T, nil, nil)

	patterns := []query.Pattern{
		{Kind: query.KindClass, Class: &query.ClassPattern{Subject: query.Var("s"), Class: "urn:class:Person"}},
		{Kind: query.KindOptional, Optional: &query.OptionalPattern{Inner: []query.Pattern{
			{Kind: query.KindTriple, Triple: &query.TriplePattern{
				Subject: query.Var("s"), Predicate: query.Bound("urn:prop:nickname"), Object: query.Var("nick"),
			}},
		}}},
	}
	rows, err := e.Run(context.Background(), patterns)
	require.NoError(t, err)
	require.Len(t, rows, 2, "optional with no matches keeps both outer rows")
	for _, r := range rows {
		_, bound := r["nick"]
		require.False(t, bound)
	}
}

func TestTransitivePathWalksKnowsEdges(t *testing.T) {
	db, alice, _ := testDB(t)
	e := New(db, db.T, nil, nil)

	patterns := []query.Pattern{
		{Kind: query.KindTransitivePath, TransitivePath: &query.TransitivePathPattern{
			Subject: query.Bound(alice), Predicate: query.Bound("urn:prop:knows"), Object: query.Var("reached"),
			MinHops: 1, MaxHops: 0,
		}},
	}
	rows, err := e.Run(context.Background(), patterns)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	projected, err := e.Project(rows, []string{"reached"})
	require.NoError(t, err)
	require.Equal(t, "urn:person:bob", projected[0]["reached"].IRI)
}

// chainDB builds alice-knows->bob-knows->carol, a three-node chain, for
// exercising the "both endpoints free" transitive path case.
func chainDB(t *testing.T) *ledger.CurrentDB {
	t.Helper()
	ctx := context.Background()
	schema := sid.NewSchema()

	db := &ledger.CurrentDB{T: -1, Schema: schema, Indexes: make(map[flake.Index]*flakeindex.Index)}
	for _, kind := range []flake.Index{flake.SPOT, flake.PSOT, flake.POST, flake.OPST, flake.TSPO} {
		db.Indexes[kind] = flakeindex.Open(flakeindex.NewMemStore(), kind, "")
	}

	alice, err := schema.Encode("urn:person:alice")
	require.NoError(t, err)
	bob, err := schema.Encode("urn:person:bob")
	require.NoError(t, err)
	carol, err := schema.Encode("urn:person:carol")
	require.NoError(t, err)
	knowsP, err := schema.Encode("urn:prop:knows")
	require.NoError(t, err)

	add := func(s, p sid.SID, o flake.Object) {
		f := flake.Flake{S: s, P: p, O: o, T: -1, Op: true}
		for kind, idx := range db.Indexes {
			if flake.AcceptsIndex(f, kind, true) {
				idx.Add(f)
			}
		}
	}
	add(alice, knowsP, flake.RefObject(bob))
	add(bob, knowsP, flake.RefObject(carol))

	for _, idx := range db.Indexes {
		require.NoError(t, idx.Flush(ctx, 256))
	}
	return db
}

func TestTransitivePathBothFreeOneHop(t *testing.T) {
	db := chainDB(t)
	e := New(db, db.T, nil, nil)

	patterns := []query.Pattern{
		{Kind: query.KindTransitivePath, TransitivePath: &query.TransitivePathPattern{
			Subject: query.Var("s"), Predicate: query.Bound("urn:prop:knows"), Object: query.Var("o"),
			MinHops: 1, MaxHops: 1,
		}},
	}
	rows, err := e.Run(context.Background(), patterns)
	require.NoError(t, err)
	require.Len(t, rows, 2, "exactly the two direct knows edges")

	projected, err := e.Project(rows, []string{"s", "o"})
	require.NoError(t, err)
	got := make(map[[2]string]bool)
	for _, r := range projected {
		got[[2]string{r["s"].IRI, r["o"].IRI}] = true
	}
	require.True(t, got[[2]string{"urn:person:alice", "urn:person:bob"}])
	require.True(t, got[[2]string{"urn:person:bob", "urn:person:carol"}])
}

func TestTransitivePathBothFreeClosureReachesTwoHops(t *testing.T) {
	db := chainDB(t)
	e := New(db, db.T, nil, nil)

	patterns := []query.Pattern{
		{Kind: query.KindTransitivePath, TransitivePath: &query.TransitivePathPattern{
			Subject: query.Var("s"), Predicate: query.Bound("urn:prop:knows"), Object: query.Var("o"),
			MinHops: 1, MaxHops: 0,
		}},
	}
	rows, err := e.Run(context.Background(), patterns)
	require.NoError(t, err)
	require.Len(t, rows, 3, "alice->bob, bob->carol, and the joined alice->carol pair")

	projected, err := e.Project(rows, []string{"s", "o"})
	require.NoError(t, err)
	got := make(map[[2]string]bool)
	for _, r := range projected {
		got[[2]string{r["s"].IRI, r["o"].IRI}] = true
	}
	require.True(t, got[[2]string{"urn:person:alice", "urn:person:carol"}], "transitive closure must join the two single-step pairs")
}

func TestTransitivePathBothFreeZeroLengthIncludesReflexivePairs(t *testing.T) {
	db := chainDB(t)
	e := New(db, db.T, nil, nil)

	patterns := []query.Pattern{
		{Kind: query.KindTransitivePath, TransitivePath: &query.TransitivePathPattern{
			Subject: query.Var("s"), Predicate: query.Bound("urn:prop:knows"), Object: query.Var("o"),
			MinHops: 0, MaxHops: 1,
		}},
	}
	rows, err := e.Run(context.Background(), patterns)
	require.NoError(t, err)

	projected, err := e.Project(rows, []string{"s", "o"})
	require.NoError(t, err)
	got := make(map[[2]string]bool)
	for _, r := range projected {
		got[[2]string{r["s"].IRI, r["o"].IRI}] = true
	}
	require.True(t, got[[2]string{"urn:person:alice", "urn:person:alice"}], "p* seeds a reflexive pair for every node touched by the relation")
	require.True(t, got[[2]string{"urn:person:bob", "urn:person:bob"}])
	require.True(t, got[[2]string{"urn:person:carol", "urn:person:carol"}])
}
