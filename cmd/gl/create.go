package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphledger/graphledger/internal/commitstore"
	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/flake"
	"github.com/graphledger/graphledger/internal/ledger"
)

var (
	createBranch string
	createDID    string
)

var createCmd = &cobra.Command{
	Use:   "create <alias>",
	Short: "create a new ledger branch with an empty genesis commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		branch := createBranch
		if branch == "" {
			branch = "main"
		}
		id := ledger.ID{Alias: args[0], Branch: branch}

		adapter, err := openAdapter(ctx)
		if err != nil {
			return err
		}
		exists, err := ledger.Exists(ctx, id, adapter)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: ledger %s already exists", errs.ErrInvalidLedger, id)
		}

		bs, err := ledger.Open(ctx, id, adapter, ledger.DefaultIndexingOptions(), logger)
		if err != nil {
			return err
		}

		genesisData, err := commitstore.WriteData(ctx, adapter, []flake.Flake{})
		if err != nil {
			return err
		}
		commit, err := commitstore.Write(ctx, adapter, commitstore.Commit{
			Branch: branch,
			T:      0,
			Time:   time.Now().UTC().Format(time.RFC3339),
			Data:   genesisData,
		})
		if err != nil {
			return err
		}
		if err := bs.Advance(ctx, commit, bs.DB()); err != nil {
			return err
		}

		if createDID != "" {
			ns, err := openNameservice()
			if err != nil {
				return err
			}
			if err := ns.Publish(ctx, id, "", commit.ID, commit.T); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ok: created %s at commit %s\n", id, commit.ID)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createBranch, "branch", "main", "branch name within the new alias")
	createCmd.Flags().StringVar(&createDID, "did", "", "if non-empty, also publish the new branch pointer to the nameservice under the ledger id (the identifier itself is not stored)")
}
