package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphledger/graphledger/internal/indexer"
)

var triggerIndexTimeoutMS int

var triggerIndexCmd = &cobra.Command{
	Use:   "trigger-index <alias>",
	Short: "force an immediate flush of a branch's novelty overlay into the persisted indexes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if triggerIndexTimeoutMS > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(triggerIndexTimeoutMS)*time.Millisecond)
			defer cancel()
		}

		bs, err := openBranch(ctx, args[0])
		if err != nil {
			return err
		}

		ix := indexer.New(bs, logger)
		commit, err := ix.Flush(ctx)
		if err != nil {
			return err
		}
		if commit.ID == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s had no novelty to flush\n", bs.ID)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %s flushed at commit %s\n", bs.ID, commit.ID)
		return nil
	},
}

func init() {
	triggerIndexCmd.Flags().IntVar(&triggerIndexTimeoutMS, "timeout-ms", 0, "abort the flush if it exceeds this many milliseconds (0 disables)")
}
