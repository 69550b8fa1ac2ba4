// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package objstore

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrMalformedKey indicates an object key that does not match the
// <prefix>.<millis>[.gz] naming contract. A malformed key during listing
// aborts the whole listing: it means the ordering assumption the
// incremental import depends on no longer holds for that prefix.
var ErrMalformedKey = errors.New("malformed object key")

// keyPattern captures the producer prefix and the millisecond timestamp.
var keyPattern = regexp.MustCompile(`^([a-z0-9_]+)\.(\d+)(\.gz)?$`)

// FileDescriptor identifies one ingest file in the object store.
// It is immutable once constructed; Prefix and Timestamp are always
// derivable from Key, or parsing fails.
type FileDescriptor struct {
	// Key is the full object-store identifier.
	Key string

	// Prefix is the file-kind identifier embedded in the key.
	Prefix string

	// Timestamp is the file's logical ordering position, not its
	// wall-clock receipt time.
	Timestamp time.Time
}

// ParseKey parses an object key of the form <prefix>.<millis>[.gz] into a
// FileDescriptor. The timestamp is interpreted as milliseconds since the
// Unix epoch, UTC. Returns ErrMalformedKey if the key does not match the
// pattern or the digit run does not fit in an int64.
func ParseKey(key string) (FileDescriptor, error) {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return FileDescriptor{}, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}

	millis, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return FileDescriptor{}, fmt.Errorf("%w: timestamp in %q: %v", ErrMalformedKey, key, err)
	}

	return FileDescriptor{
		Key:       key,
		Prefix:    m[1],
		Timestamp: time.UnixMilli(millis).UTC(),
	}, nil
}

// MakeKey synthesizes the key a file with the given prefix and timestamp
// would have. The object is not required to exist; the lister uses the
// synthesized key as a StartAfter cursor so the store only returns keys
// lexicographically (and therefore chronologically) after it.
func MakeKey(prefix string, ts time.Time) string {
	return fmt.Sprintf("%s.%d.gz", prefix, ts.UnixMilli())
}
