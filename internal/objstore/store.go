// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package objstore

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// ClientConfig holds the S3 connection settings.
type ClientConfig struct {
	// Region is the AWS region of the bucket.
	Region string

	// Endpoint overrides the S3 endpoint URL. Set this for MinIO or other
	// S3-compatible stores; leave empty for AWS.
	Endpoint string

	// ForcePathStyle addresses buckets as path components instead of
	// subdomains. Required by most non-AWS stores.
	ForcePathStyle bool
}

// NewClient builds an S3 API client from the given settings. Credentials
// come from the standard AWS environment/config chain.
func NewClient(cfg ClientConfig) (s3iface.S3API, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.ForcePathStyle {
		awsCfg = awsCfg.WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create AWS session: %w", err)
	}
	return s3.New(sess), nil
}

// Store provides listing and retrieval of ingest files. Bucket and Prefix,
// when set, override the per-mapper defaults; this mirrors the CLI flags
// that point an import at a mirror bucket. Store is safe for concurrent use.
type Store struct {
	api    s3iface.S3API
	bucket string
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithBucket overrides the default bucket for all operations.
func WithBucket(bucket string) Option {
	return func(s *Store) { s.bucket = bucket }
}

// WithPrefix overrides the default key prefix for listing.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// NewStore wraps an S3 API client.
func NewStore(api s3iface.S3API, opts ...Option) *Store {
	s := &Store{api: api}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bucket returns the configured bucket override, or def when unset.
func (s *Store) Bucket(def string) string {
	if s.bucket != "" {
		return s.bucket
	}
	return def
}

// Prefix returns the configured prefix override, or def when unset.
func (s *Store) Prefix(def string) string {
	if s.prefix != "" {
		return s.prefix
	}
	return def
}

// Open returns a streaming reader over the raw bytes of one object.
// The caller owns the reader and must close it.
func (s *Store) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket(bucket)),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", s.Bucket(bucket), key, err)
	}
	return out.Body, nil
}
