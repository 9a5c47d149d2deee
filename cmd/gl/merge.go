package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphledger/graphledger/internal/commitstore"
	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/ledger"
	"github.com/graphledger/graphledger/internal/merge"
)

var (
	mergeFF      string
	mergeSquash  bool
	mergePreview bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge <from> <to>",
	Short: "merge one branch into another, fast-forwarding or squashing as directed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fromID, err := ledger.Parse(args[0])
		if err != nil {
			return err
		}
		toID, err := ledger.Parse(args[1])
		if err != nil {
			return err
		}

		adapter, err := openAdapter(ctx)
		if err != nil {
			return err
		}
		fromBS, err := ledger.Open(ctx, fromID, adapter, ledger.DefaultIndexingOptions(), logger)
		if err != nil {
			return err
		}
		toBS, err := ledger.Open(ctx, toID, adapter, ledger.DefaultIndexingOptions(), logger)
		if err != nil {
			return err
		}
		fromTip, toTip := fromBS.LatestCommit(), toBS.LatestCommit()

		div, err := merge.Report(ctx, adapter, toTip, fromTip)
		if err != nil {
			return err
		}
		if mergePreview {
			fmt.Fprintf(cmd.OutOrStdout(), "preview: ancestor=%s to-ahead=%d from-ahead=%d\n",
				div.Ancestor, div.AheadLocal, div.AheadRemote)
			return nil
		}

		canFF, err := merge.CanFastForward(ctx, adapter, toTip, fromTip)
		if err != nil {
			return err
		}

		switch {
		case mergeFF == "only" && !canFF:
			return fmt.Errorf("%w: %s cannot fast-forward onto %s", errs.ErrCannotFastForward, toID, fromID)
		case canFF && mergeFF != "never" && !mergeSquash:
			commit, err := commitstore.Read(ctx, adapter, fromTip)
			if err != nil {
				return err
			}
			if err := toBS.CAS(ctx, toTip, commit, fromBS.DB()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: fast-forwarded %s to %s\n", toID, commit.ID)
			return nil
		default:
			ancestor, err := merge.LCA(ctx, adapter, toTip, fromTip)
			if err != nil {
				return err
			}
			since, err := merge.FlakesSince(ctx, adapter, ancestor, fromTip)
			if err != nil {
				return err
			}
			net := merge.SquashEffect(since)

			commit, err := merge.Squash(ctx, adapter, toTip, fromTip, "gl-cli", fmt.Sprintf("merge %s into %s", fromID, toID))
			if err != nil {
				return err
			}

			newDB := toBS.DB()
			for _, f := range net {
				f.T = commit.T
				for kind, idx := range newDB.Indexes {
					if flake.AcceptsIndex(f, kind, true) {
						idx.Add(f)
					}
				}
			}
			newDB.T = commit.T

			if err := toBS.CAS(ctx, toTip, commit, newDB); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: squashed %s into %s at commit %s\n", fromID, toID, commit.ID)
			return nil
		}
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeFF, "ff", "auto", "fast-forward policy: auto, only, or never")
	mergeCmd.Flags().BoolVar(&mergeSquash, "squash", false, "always squash instead of fast-forwarding")
	mergeCmd.Flags().BoolVar(&mergePreview, "preview", false, "report divergence without changing anything")
}
