package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/ledger"
)

var loadCmd = &cobra.Command{
	Use:   "load <alias-or-address>",
	Short: "load an existing ledger branch and report its current commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := ledger.Parse(args[0])
		if err != nil {
			return err
		}

		adapter, err := openAdapter(ctx)
		if err != nil {
			return err
		}
		exists, err := ledger.Exists(ctx, id, adapter)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: ledger %s not found", errs.ErrInvalidLedger, id)
		}

		bs, err := ledger.Open(ctx, id, adapter, ledger.DefaultIndexingOptions(), logger)
		if err != nil {
			return err
		}
		db := bs.DB()
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %s at commit %s (t=%d)\n", id, bs.LatestCommit(), db.T)
		return nil
	},
}
