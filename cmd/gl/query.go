package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/fuel"
	"github.com/graphledger/graphledger/internal/ledger"
	"github.com/graphledger/graphledger/internal/query"
	"github.com/graphledger/graphledger/internal/query/exec"
	"github.com/graphledger/graphledger/internal/sid"
)

var (
	queryFormat string
	queryMeta   bool
)

var queryCmd = &cobra.Command{
	Use:   "query <alias> <file>",
	Short: "run an fql pattern document against a ledger branch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if queryFormat == "sparql" {
			return fmt.Errorf("%w: --format=sparql", errs.ErrNotImplemented)
		}
		if queryFormat != "" && queryFormat != "fql" {
			return fmt.Errorf("%w: unknown format %q", errs.ErrInvalidTransaction, queryFormat)
		}

		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("%w: read query file: %v", errs.ErrInvalidTransaction, err)
		}
		patterns, selected, err := query.ParseDocument(data)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrInvalidTransaction, err)
		}

		id, err := ledger.Parse(args[0])
		if err != nil {
			return err
		}
		adapter, err := openAdapter(ctx)
		if err != nil {
			return err
		}
		bs, err := ledger.Open(ctx, id, adapter, ledger.DefaultIndexingOptions(), logger)
		if err != nil {
			return err
		}
		db := bs.DB()

		tank := fuel.New(1 << 30)
		e := exec.New(db, db.T, tank, nil)
		rows, err := e.Run(ctx, patterns)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrInvalidTransaction, err)
		}

		var payload any
		if queryMeta {
			payload, err = describeRows(ctx, e, rows, selected)
		} else {
			payload, err = e.Project(rows, selected)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrInvalidTransaction, err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	},
}

// describeRows implements --meta: rather than projecting rows' bare
// bindings, it crawls every reference bound to a selected variable and
// returns each subject's full current property set (§6.3's "--meta").
func describeRows(ctx context.Context, e *exec.Executor, rows []exec.Row, selected []string) ([]exec.Record, error) {
	seen := make(map[sid.SID]bool)
	var ids []sid.SID
	for _, row := range rows {
		for _, v := range selected {
			obj, ok := row[v]
			if !ok || !obj.IsRef {
				continue
			}
			if !seen[obj.Ref] {
				seen[obj.Ref] = true
				ids = append(ids, obj.Ref)
			}
		}
	}
	return e.Crawl(ctx, ids)
}

func init() {
	queryCmd.Flags().StringVar(&queryFormat, "format", "fql", "query document format: fql or sparql")
	queryCmd.Flags().BoolVar(&queryMeta, "meta", false, "describe every selected subject's full current property set instead of projecting bare bindings")
}
