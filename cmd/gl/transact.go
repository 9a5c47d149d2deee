package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graphledger/graphledger/internal/commitstore"
	"github.com/graphledger/graphledger/internal/credential"
	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/transact"
)

var transactPrivateKey string

var transactCmd = &cobra.Command{
	Use:   "transact <alias> <file>",
	Short: "apply a transaction document to a ledger branch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("%w: read transaction file: %v", errs.ErrInvalidTransaction, err)
		}
		inputs, err := transact.ParseDocument(data)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrInvalidTransaction, err)
		}

		bs, err := openBranch(ctx, args[0])
		if err != nil {
			return err
		}

		key := transactPrivateKey
		if key == "" {
			key = opts.TxPrivateKey
		}

		var commit commitstore.Commit
		err = bs.WithWriteLock(ctx, bs.ID.String(), func() error {
			result, err := transact.Apply(ctx, bs, inputs, transact.AlwaysIndexed{}, "gl-cli", "")
			if err != nil {
				return err
			}
			if key != "" {
				signed, err := signCommit(ctx, result.Commit, key)
				if err != nil {
					return err
				}
				result.Commit = signed
			}
			prev := bs.LatestCommit()
			written, err := commitstore.Write(ctx, bs.Adapter, result.Commit)
			if err != nil {
				return err
			}
			if err := bs.CAS(ctx, prev, written, result.DB); err != nil {
				return err
			}
			commit = written
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrInvalidTransaction, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ok: %s at commit %s (t=%d)\n", bs.ID, commit.ID, commit.T)
		return nil
	},
}

// signCommit attests to commit's content hash under key and records the
// resulting signature on the commit document.
func signCommit(ctx context.Context, commit commitstore.Commit, key string) (commitstore.Commit, error) {
	hash, err := commitstore.Hash(commit)
	if err != nil {
		return commitstore.Commit{}, err
	}
	signer := credential.NewJWTSigner(commit.Author, []byte(key))
	sig, err := signer.Sign(ctx, hash)
	if err != nil {
		return commitstore.Commit{}, fmt.Errorf("%w: sign commit: %v", errs.ErrInvalidCredential, err)
	}
	commit.Signature = sig
	return commit, nil
}

func init() {
	transactCmd.Flags().StringVar(&transactPrivateKey, "private-key", "", "shared signing key for this transaction's commit (overrides tx-private-key config)")
}
