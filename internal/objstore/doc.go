// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

// Package objstore handles discovery and retrieval of ingest files in an
// S3-compatible object store.
//
// Ingest files are named <prefix>.<millis>[.gz], where prefix identifies the
// upstream producer and millis is the file's position in that producer's
// timeline (milliseconds since the Unix epoch, UTC). Because timestamps are
// plain increasing decimal integers sharing one prefix, the store's
// lexicographic listing order is also chronological order, and a synthesized
// key can act as a StartAfter cursor for incremental listing.
//
// The package exposes three units:
//
//   - ParseKey / MakeKey: the key format contract (see FileDescriptor)
//   - Store.List: the paginated, time-windowed listing loop
//   - Store.Open: a streaming reader over one object's bytes
package objstore
