package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphledger/graphledger/internal/commitstore"
	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/ledger"
	"github.com/graphledger/graphledger/internal/merge"
)

var (
	resetMode    string
	resetPreview bool
)

var resetCmd = &cobra.Command{
	Use:   "reset <branch> <to>",
	Short: "move a branch's pointer to another commit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := ledger.Parse(args[0])
		if err != nil {
			return err
		}
		target := args[1]

		adapter, err := openAdapter(ctx)
		if err != nil {
			return err
		}
		bs, err := ledger.Open(ctx, id, adapter, ledger.DefaultIndexingOptions(), logger)
		if err != nil {
			return err
		}
		current := bs.LatestCommit()

		if resetMode != "hard" {
			if err := merge.CheckReset(ctx, adapter, current, target); err != nil {
				return err
			}
		}

		if resetPreview {
			commit, err := commitstore.Read(ctx, adapter, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "preview: %s would move from %s to %s (t=%d)\n", id, current, target, commit.T)
			return nil
		}

		err = bs.WithWriteLock(ctx, id.String(), func() error {
			targetDB, err := ledger.DBAtCommit(ctx, adapter, target, opts.CacheMaxMB)
			if err != nil {
				return err
			}
			commit, err := commitstore.Read(ctx, adapter, target)
			if err != nil {
				return err
			}
			return bs.CAS(ctx, current, commit, targetDB)
		})
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrInvalidLedger, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ok: %s reset to %s\n", id, target)
		return nil
	},
}

func init() {
	resetCmd.Flags().StringVar(&resetMode, "mode", "safe", "safe (target must be an ancestor) or hard (unconditional)")
	resetCmd.Flags().BoolVar(&resetPreview, "preview", false, "report the move without applying it")
}
