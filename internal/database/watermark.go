// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RecordProcessedFile appends one row to the files_processed ledger.
// The scheduler calls this only after every row of the file is durably
// appended; the ledger never mentions a file that was not fully imported.
func (db *DB) RecordProcessedFile(ctx context.Context, key, prefix string, timestamp time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO files_processed (file_name, prefix, file_timestamp, processed_at)
		 VALUES (?, ?, ?, ?)`,
		key, prefix, timestamp.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record processed file %s: %w", key, err)
	}
	return nil
}

// LatestProcessedTimestamp returns the maximum file_timestamp recorded for
// prefix, which is the resumption watermark for a continue run. ok is
// false when no file for that prefix has ever been recorded.
//
// Because files complete out of order under concurrency, this is a
// max-after-success watermark: a continue run may re-attempt an earlier
// file that was recorded after a later one. Re-import is safe; appends are
// at-least-once and duplicates are keyed by source file.
func (db *DB) LatestProcessedTimestamp(ctx context.Context, prefix string) (time.Time, bool, error) {
	var ts time.Time
	err := db.conn.QueryRowContext(ctx,
		`SELECT file_timestamp
		 FROM files_processed
		 WHERE prefix = ?
		 ORDER BY file_timestamp DESC
		 LIMIT 1`,
		prefix,
	).Scan(&ts)

	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query watermark for %s: %w", prefix, err)
	}
	return ts.UTC(), true, nil
}
