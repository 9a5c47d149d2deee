package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphledger/graphledger/internal/config"
)

var connectCmd = &cobra.Command{
	Use:   "connect <config-file>",
	Short: "validate a config file and report the storage target it resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(args[0])
		if err != nil {
			return err
		}
		target := loaded.StoragePath
		if loaded.S3Bucket != "" {
			target = fmt.Sprintf("s3://%s/%s", loaded.S3Bucket, loaded.S3Prefix)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: storage=%s parallelism=%d\n", target, loaded.Parallelism)
		return nil
	},
}
