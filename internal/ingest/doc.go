// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

// Package ingest drives files from the object store into the database.
//
// A run resolves the requested time window (an explicit --after bound, the
// stored watermark for --continue, or a single explicit file), lists the
// candidate files, and processes up to a fixed number of them
// concurrently. Each file moves through fetch, frame decoding, record
// mapping, bulk append, and finally a watermark record — strictly in that
// order, so a file is never marked processed before its rows are durable.
//
// Failure isolation: a corrupt record is logged and skipped; any other
// per-file failure (fetch, framing, persistence) abandons that file and
// surfaces after the remaining files finish. The failed file is absent
// from files_processed and will be retried by the next continue run.
package ingest
