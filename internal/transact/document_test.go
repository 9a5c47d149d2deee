package transact

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/sid"
)

func TestParseDocumentStringLiteral(t *testing.T) {
	doc := []byte(`[{"subject": "https://ex/alice", "predicate": "https://ex/name", "object": "Alice"}]`)
	inputs, err := ParseDocument(doc)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	require.Equal(t, flake.LitObject("Alice", sid.XSDString, ""), inputs[0].Object)
}

func TestParseDocumentWholeNumberIsInteger(t *testing.T) {
	doc := []byte(`[{"subject": "https://ex/alice", "predicate": "https://ex/age", "object": 30}]`)
	inputs, err := ParseDocument(doc)
	require.NoError(t, err)
	require.Equal(t, flake.LitObject(int64(30), sid.XSDInteger, ""), inputs[0].Object)
}

func TestParseDocumentFractionalNumberIsDouble(t *testing.T) {
	doc := []byte(`[{"subject": "https://ex/alice", "predicate": "https://ex/score", "object": 30.5}]`)
	inputs, err := ParseDocument(doc)
	require.NoError(t, err)
	require.Equal(t, flake.LitObject(30.5, sid.XSDDouble, ""), inputs[0].Object)
}

func TestParseDocumentBooleanLiteral(t *testing.T) {
	doc := []byte(`[{"subject": "https://ex/alice", "predicate": "https://ex/active", "object": true}]`)
	inputs, err := ParseDocument(doc)
	require.NoError(t, err)
	require.Equal(t, flake.LitObject(true, sid.XSDBoolean, ""), inputs[0].Object)
}

func TestParseDocumentObjectIRISkipsObjectResolution(t *testing.T) {
	doc := []byte(`[{"subject": "https://ex/alice", "predicate": "https://ex/knows", "objectIRI": "https://ex/bob"}]`)
	inputs, err := ParseDocument(doc)
	require.NoError(t, err)
	require.Equal(t, "https://ex/bob", inputs[0].ObjectIRI)
	require.Equal(t, flake.Object{}, inputs[0].Object)
}

func TestParseDocumentRetractAndMeta(t *testing.T) {
	doc := []byte(`[{"subject": "https://ex/alice", "predicate": "https://ex/name", "object": "Alice", "retract": true, "meta": {"note": "cleanup"}}]`)
	inputs, err := ParseDocument(doc)
	require.NoError(t, err)
	require.True(t, inputs[0].Retract)
	require.Equal(t, flake.Meta{"note": "cleanup"}, inputs[0].Meta)
}

func TestParseDocumentMissingObjectErrors(t *testing.T) {
	doc := []byte(`[{"subject": "https://ex/alice", "predicate": "https://ex/name"}]`)
	_, err := ParseDocument(doc)
	require.Error(t, err)
}

func TestParseDocumentRejectsMalformedJSON(t *testing.T) {
	_, err := ParseDocument([]byte(`not json`))
	require.Error(t, err)
}
