package flake

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/sid"
)

func mkFlake(s, p uint64, o Object, t int64, op bool) Flake {
	return Flake{S: sid.SID(s), P: sid.SID(p), O: o, T: t, Op: op}
}

func TestSameFact(t *testing.T) {
	a := mkFlake(1, 2, LitObject("x", sid.XSDString, ""), -1, true)
	b := mkFlake(1, 2, LitObject("x", sid.XSDString, ""), -5, false)
	c := mkFlake(1, 2, LitObject("y", sid.XSDString, ""), -1, true)

	assert.True(t, SameFact(a, b))
	assert.False(t, SameFact(a, c))
}

func TestCompareObjectRefsBeforeLiterals(t *testing.T) {
	ref := RefObject(sid.SID(10))
	lit := LitObject("v", sid.XSDString, "")
	assert.Negative(t, compareObject(ref, lit))
	assert.Positive(t, compareObject(lit, ref))
}

func TestComparatorsAreStrictTotalOrders(t *testing.T) {
	flakes := []Flake{
		mkFlake(1, 1, LitObject(int64(3), sid.XSDInteger, ""), -1, true),
		mkFlake(1, 2, RefObject(sid.SID(9)), -2, true),
		mkFlake(2, 1, LitObject("a", sid.XSDString, ""), -1, true),
		mkFlake(1, 1, LitObject(int64(3), sid.XSDInteger, ""), -3, false),
	}

	for idx, cmpFn := range Comparators {
		shuffled := append([]Flake(nil), flakes...)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		sort.Slice(shuffled, func(i, j int) bool { return cmpFn(shuffled[i], shuffled[j]) < 0 })

		for i := 0; i < len(shuffled); i++ {
			require.Equal(t, 0, cmpFn(shuffled[i], shuffled[i]), "index %s: not reflexive", idx)
			for j := i + 1; j < len(shuffled); j++ {
				a, b := cmpFn(shuffled[i], shuffled[j]), cmpFn(shuffled[j], shuffled[i])
				require.True(t, a <= 0 && b >= 0, "index %s: ordering not antisymmetric at (%d,%d)", idx, i, j)
			}
		}
	}
}

func TestCompareTDescending(t *testing.T) {
	// More negative t (more recent) sorts first.
	assert.Negative(t, compareT(-5, -1))
	assert.Positive(t, compareT(-1, -5))
	assert.Zero(t, compareT(-1, -1))
}

func TestAcceptsIndex(t *testing.T) {
	litFlake := mkFlake(1, 1, LitObject("x", sid.XSDString, ""), -1, true)
	refFlake := mkFlake(1, 1, RefObject(sid.SID(7)), -1, true)

	assert.True(t, AcceptsIndex(litFlake, SPOT, false))
	assert.True(t, AcceptsIndex(litFlake, PSOT, false))
	assert.True(t, AcceptsIndex(litFlake, TSPO, false))
	assert.False(t, AcceptsIndex(litFlake, POST, false))
	assert.True(t, AcceptsIndex(litFlake, POST, true))
	assert.False(t, AcceptsIndex(litFlake, OPST, true))
	assert.True(t, AcceptsIndex(refFlake, OPST, false))
}
