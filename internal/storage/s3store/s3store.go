// Package s3store is a storage.Adapter backed by an S3-compatible bucket,
// for teams that want their ledger's content blobs durable in object
// storage rather than a single local bbolt file.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/otel"

	"github.com/graphledger/graphledger/internal/storage"
)

var tracer = otel.Tracer("github.com/graphledger/graphledger/storage/s3store")

// Store adapts an S3 bucket (or any S3-compatible endpoint, via Endpoint)
// to storage.Adapter, keyed under Prefix.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// Options configures Open.
type Options struct {
	Bucket   string
	Prefix   string
	Endpoint string // optional, for S3-compatible providers (e.g. MinIO)
	Region   string
}

// Open builds an s3.Client from the ambient AWS config (env vars, shared
// config file, or IMDS credentials) and returns a Store scoped to
// opts.Bucket/opts.Prefix.
func Open(ctx context.Context, opts Options) (*Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("s3store: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{client: client, bucket: opts.Bucket, prefix: strings.TrimSuffix(opts.Prefix, "/")}, nil
}

func (s *Store) fullKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	ctx, span := tracer.Start(ctx, "s3store.write")
	defer span.End()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("s3store: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "s3store.read")
	defer span.End()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("s3store: get %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3store: read body %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("s3store: head %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.fullKey(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3store: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if s.prefix != "" {
				k = strings.TrimPrefix(k, s.prefix+"/")
			}
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3store: delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

var _ storage.Adapter = (*Store)(nil)
