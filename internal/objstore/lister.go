// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package objstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/tomtom215/siphon/internal/logging"
)

// List returns every ingest file under prefix, in object-store listing
// order (lexicographic on key, which is chronological for one prefix).
//
// When after is set, the listing starts after the synthesized key for
// (prefix, after), so already-imported files are excluded server-side.
// When before is set, descriptors with a timestamp past it are dropped
// client-side after the full candidate set is accumulated; object stores
// cannot filter on timestamps embedded in key names.
//
// Any listing failure or malformed key aborts with an error: a partial or
// untrusted list could silently skip files.
func (s *Store) List(ctx context.Context, bucket, prefix string, after, before *time.Time) ([]FileDescriptor, error) {
	bucket = s.Bucket(bucket)
	prefix = s.Prefix(prefix)

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	if after != nil {
		input.StartAfter = aws.String(MakeKey(prefix, *after))
	}

	var files []FileDescriptor
	for {
		out, err := s.api.ListObjectsV2WithContext(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list objects %s/%s: %w", bucket, prefix, err)
		}

		for _, obj := range out.Contents {
			fd, err := ParseKey(aws.StringValue(obj.Key))
			if err != nil {
				return nil, fmt.Errorf("list objects %s/%s: %w", bucket, prefix, err)
			}
			files = append(files, fd)
		}

		if out.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}

	if before != nil {
		kept := files[:0]
		for _, fd := range files {
			if !fd.Timestamp.After(*before) {
				kept = append(kept, fd)
			}
		}
		files = kept
	}

	logging.Debug().
		Str("bucket", bucket).
		Str("prefix", prefix).
		Int("files", len(files)).
		Msg("Listed ingest files")

	return files, nil
}
