package natsns

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/ledger"
)

// natsns talks to a real JetStream connection, so it has no in-process
// fixture the way memstore/localstore do (see internal/storage/storage_test.go's
// same exclusion for s3store). These tests cover the pure key-mapping logic
// that Publish/Lookup/ListBranches rely on without needing a live server.

func TestKeyJoinsAliasAndBranchWithDot(t *testing.T) {
	id := ledger.ID{Alias: "acme", Branch: "main"}
	require.Equal(t, "acme.main", key(id))
}

func TestKeyEscapesSlashesInAliasOrBranch(t *testing.T) {
	id := ledger.ID{Alias: "acme/sub", Branch: "feature/x"}
	require.Equal(t, "acme_sub.feature_x", key(id))
}

func TestListBranchesPrefixMatchesOnlyThatAlias(t *testing.T) {
	keys := []string{"acme.main", "acme.dev", "other.main"}
	prefix := "acme."
	var matched []string
	for _, k := range keys {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			matched = append(matched, k[len(prefix):])
		}
	}
	require.ElementsMatch(t, []string{"main", "dev"}, matched)
}
