// Command gl is the minimal CLI surface over the engine: connect/create/
// load a ledger, run transactions and queries against it, and drive
// history operations (merge, reset, trigger-index). It exists to exercise
// the engine end-to-end, not as a full client -- wire protocols, JSON-LD,
// and SPARQL/GraphQL parsing are out of scope (see internal/query's FILTER
// grammar and the fql document format this CLI reads instead).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/graphledger/graphledger/internal/config"
	"github.com/graphledger/graphledger/internal/engine/errs"
	"github.com/graphledger/graphledger/internal/ledger"
	"github.com/graphledger/graphledger/internal/nameservice"
	"github.com/graphledger/graphledger/internal/nameservice/localns"
	"github.com/graphledger/graphledger/internal/nameservice/natsns"
	"github.com/graphledger/graphledger/internal/storage"
	"github.com/graphledger/graphledger/internal/storage/localstore"
	"github.com/graphledger/graphledger/internal/storage/memstore"
	"github.com/graphledger/graphledger/internal/storage/s3store"
	"github.com/graphledger/graphledger/internal/telemetry"
)

var (
	configFile   string
	opts         config.Options
	logger       *slog.Logger
	shutdownFunc telemetry.Shutdown = func(context.Context) error { return nil }
)

var rootCmd = &cobra.Command{
	Use:           "gl",
	Short:         "graphledger: an immutable, content-addressed, versioned graph database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		opts = loaded

		l, shutdown, err := telemetry.Init(telemetry.Options{
			ServiceName: "gl",
			LogLevel:    slog.LevelInfo,
		})
		if err != nil {
			return err
		}
		logger = l
		shutdownFunc = shutdown
		return nil
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		return shutdownFunc(context.Background())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(connectCmd, createCmd, loadCmd, queryCmd, transactCmd, mergeCmd, resetCmd, triggerIndexCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps the engine's error taxonomy to the CLI's documented exit
// codes (§6.3): 2 for a missing/existing ledger, 3 for query/transact
// failures, 4 for merge conflicts, 1 for anything else.
func exitCodeFor(err error) int {
	switch errs.ClassOf(err) {
	case errs.KindInvalidLedger:
		return 2
	case errs.KindInvalidTransaction, errs.KindInvalidFlake, errs.KindFuelExceeded:
		return 3
	case errs.KindCannotFastForward:
		return 4
	default:
		return 1
	}
}

// openAdapter picks a storage.Adapter from opts: an S3 bucket if configured,
// otherwise a local bolt-backed store under storage-path, falling back to
// an in-memory store for quick throwaway runs when neither is set.
func openAdapter(ctx context.Context) (storage.Adapter, error) {
	switch {
	case opts.S3Bucket != "":
		return s3store.Open(ctx, s3store.Options{
			Bucket:   opts.S3Bucket,
			Prefix:   opts.S3Prefix,
			Endpoint: opts.S3Endpoint,
			Region:   opts.S3Region,
		})
	case opts.StoragePath != "":
		return localstore.Open(opts.StoragePath)
	default:
		return memstore.New(), nil
	}
}

func openBranch(ctx context.Context, aliasOrAddress string) (*ledger.BranchState, error) {
	adapter, err := openAdapter(ctx)
	if err != nil {
		return nil, err
	}
	id, err := ledger.Parse(aliasOrAddress)
	if err != nil {
		return nil, err
	}
	indexOpts := ledger.IndexingOptions{
		ReindexMinBytes: opts.ReindexMinBytes,
		ReindexMaxBytes: opts.ReindexMaxBytes,
		NoveltyMax:      opts.NoveltyMax,
		LeafSize:        256,
		CacheMaxMB:      opts.CacheMaxMB,
	}
	return ledger.Open(ctx, id, adapter, indexOpts, logger)
}

// openNameservice picks a nameservice.Service: a NATS JetStream-backed one
// if nats-url is configured, so branch pointers are visible across a
// cluster, otherwise a local directory watched with fsnotify.
func openNameservice() (nameservice.Service, error) {
	if opts.NATSURL != "" {
		nc, err := nats.Connect(opts.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("%w: connect to %s: %v", errs.ErrStorageFailure, opts.NATSURL, err)
		}
		js, err := nc.JetStream()
		if err != nil {
			return nil, fmt.Errorf("%w: jetstream context: %v", errs.ErrStorageFailure, err)
		}
		return natsns.Open(js, opts.NATSBucket)
	}

	dir := opts.StoragePath
	if dir == "" {
		dir = "./graphledger-data"
	}
	return localns.Open(dir + "/nameservice")
}
