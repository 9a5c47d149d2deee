package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphledger/graphledger/internal/follow"
)

var watchCmd = &cobra.Command{
	Use:   "watch <branch>",
	Short: "follow a branch's nameservice pointer, adopting remote commits as they're published",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		bs, err := openBranch(ctx, args[0])
		if err != nil {
			return err
		}
		ns, err := openNameservice()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ok: watching %s (ctrl-c to stop)\n", bs.ID)
		return follow.Watch(ctx, bs, ns)
	},
}
