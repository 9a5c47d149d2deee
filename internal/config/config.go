// Package config loads the engine's runtime options from a YAML file,
// environment variables, and flags, the same layered viper setup the CLI
// uses for its own settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/graphledger/graphledger/internal/ledger"
)

// Options holds every engine-level setting §6.5 exposes: where content is
// stored, cache/indexing thresholds, and the transaction signing key.
type Options struct {
	StoragePath string `mapstructure:"storage-path"`

	S3Bucket   string `mapstructure:"s3-bucket"`
	S3Endpoint string `mapstructure:"s3-endpoint"`
	S3Prefix   string `mapstructure:"s3-prefix"`
	S3Region   string `mapstructure:"s3-region"`

	AES256Key string `mapstructure:"aes256-key"`

	Parallelism int `mapstructure:"parallelism"`
	CacheMaxMB  int `mapstructure:"cache-max-mb"`

	ReindexMinBytes int64 `mapstructure:"reindex-min-bytes"`
	ReindexMaxBytes int64 `mapstructure:"reindex-max-bytes"`
	NoveltyMax      int   `mapstructure:"novelty-max"`

	TxPrivateKey string `mapstructure:"tx-private-key"`

	LockTimeout time.Duration `mapstructure:"lock-timeout"`

	// NATSURL, when set, switches the branch-pointer nameservice from the
	// local directory-watching backend to one backed by NATS JetStream, so
	// multiple gl processes can observe each other's commit advances.
	NATSURL    string `mapstructure:"nats-url"`
	NATSBucket string `mapstructure:"nats-bucket"`
}

// Defaults returns the baseline Options before any file/env/flag overlay is
// applied, mirroring ledger.DefaultIndexingOptions so the two never drift.
func Defaults() Options {
	idx := ledger.DefaultIndexingOptions()
	return Options{
		StoragePath:     "./graphledger-data",
		Parallelism:     4,
		CacheMaxMB:      idx.CacheMaxMB,
		ReindexMinBytes: idx.ReindexMinBytes,
		ReindexMaxBytes: idx.ReindexMaxBytes,
		NoveltyMax:      idx.NoveltyMax,
		LockTimeout:     5 * time.Second,
		NATSBucket:      "graphledger-branches",
	}
}

// Load reads configPath (if non-empty and present) as YAML, overlays
// GRAPHLEDGER_-prefixed environment variables, and unmarshals the result
// onto Defaults(). An absent configPath is not an error: env vars and
// defaults alone are a valid configuration for a fresh ledger.
func Load(configPath string) (Options, error) {
	opts := Defaults()

	v := viper.New()
	v.SetEnvPrefix("graphledger")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return opts, fmt.Errorf("config: read %s: %w", configPath, err)
			}
		}
	}

	bindEnv(v, "storage-path", "s3-bucket", "s3-endpoint", "s3-prefix", "s3-region",
		"aes256-key", "parallelism", "cache-max-mb", "reindex-min-bytes",
		"reindex-max-bytes", "novelty-max", "tx-private-key", "lock-timeout",
		"nats-url", "nats-bucket")

	if err := v.Unmarshal(&opts); err != nil {
		return opts, fmt.Errorf("config: unmarshal: %w", err)
	}
	return opts, nil
}

func bindEnv(v *viper.Viper, keys ...string) {
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}
