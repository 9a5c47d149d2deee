// Package ledger implements the top-level addressable unit of the engine:
// an alias identifying one logical database, and the set of branches
// (each a BranchState) within it.
package ledger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/flakeindex"
	"github.com/graphledger/graphledger/internal/sid"
)

// ID identifies one branch of one ledger: "<alias>:<branch>". Branch
// defaults to "main" when omitted.
type ID struct {
	Alias  string
	Branch string
}

var aliasPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Parse splits "<alias>:<branch>" or bare "<alias>" (branch defaults to
// "main") into an ID, validating both components are non-empty and
// path-safe (since aliases and branches double as storage key segments).
func Parse(input string) (ID, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return ID{}, fmt.Errorf("%w: empty ledger id", errs.ErrInvalidLedger)
	}
	alias, branch := input, "main"
	if idx := strings.IndexByte(input, ':'); idx >= 0 {
		alias, branch = input[:idx], input[idx+1:]
	}
	if !aliasPattern.MatchString(alias) {
		return ID{}, fmt.Errorf("%w: invalid alias %q", errs.ErrInvalidLedger, alias)
	}
	if branch == "" || !aliasPattern.MatchString(branch) {
		return ID{}, fmt.Errorf("%w: invalid branch %q", errs.ErrInvalidLedger, branch)
	}
	return ID{Alias: alias, Branch: branch}, nil
}

func (id ID) String() string { return fmt.Sprintf("%s:%s", id.Alias, id.Branch) }

// CurrentDB is a branch's live, queryable state: the persisted index roots
// plus each index's novelty overlay and the schema mapping IRIs to SIDs.
type CurrentDB struct {
	T       int64
	Schema  *sid.Schema
	Indexes map[flake.Index]*flakeindex.Index
}
