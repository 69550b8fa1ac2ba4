// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/siphon/internal/mapper"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.duckdb")})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func testSchema() mapper.TableSchema {
	return mapper.TableSchema{
		Name: "transfer_reports",
		Fields: []mapper.Field{
			{Name: "hotspot_key"},
			{Name: "bytes", SQLType: "UBIGINT"},
			{Name: "seen_at", SQLType: "TIMESTAMPTZ"},
			{Name: "note", Nullable: true},
		},
	}
}

func TestNewCreatesLedgerTable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Ping(ctx))

	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT count(*) FROM files_processed").Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEnsureTableIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.EnsureTable(ctx, testSchema()))
	require.NoError(t, db.EnsureTable(ctx, testSchema()))

	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT count(*) FROM transfer_reports").Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEnsureTableRejectsBadIdentifiers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.EnsureTable(ctx, mapper.TableSchema{Name: "bad name; drop"})
	require.Error(t, err)

	err = db.EnsureTable(ctx, mapper.TableSchema{
		Name:   "good_name",
		Fields: []mapper.Field{{Name: "bad-col"}},
	})
	require.Error(t, err)
}

func TestAppendRowsStampsSourceFile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.EnsureTable(ctx, testSchema()))

	seenAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rows := []mapper.Row{
		{"key-a", uint64(100), seenAt, nil},
		{"key-b", uint64(200), seenAt, "hello"},
	}
	require.NoError(t, db.AppendRows(ctx, "transfer_reports", rows, "prefix.100.gz"))

	got, err := db.conn.QueryContext(ctx,
		"SELECT hotspot_key, bytes, source_file FROM transfer_reports ORDER BY hotspot_key")
	require.NoError(t, err)
	defer got.Close()

	var keys []string
	for got.Next() {
		var key, src string
		var bytes uint64
		require.NoError(t, got.Scan(&key, &bytes, &src))
		keys = append(keys, key)
		assert.Equal(t, "prefix.100.gz", src)
	}
	require.NoError(t, got.Err())
	assert.Equal(t, []string{"key-a", "key-b"}, keys)
}

// Re-importing a file appends again; the import is at-least-once and
// duplicates stay attributable through source_file.
func TestAppendRowsDuplicateImport(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.EnsureTable(ctx, testSchema()))

	rows := []mapper.Row{{"key-a", uint64(1), time.Now().UTC(), nil}}
	require.NoError(t, db.AppendRows(ctx, "transfer_reports", rows, "prefix.100.gz"))
	require.NoError(t, db.AppendRows(ctx, "transfer_reports", rows, "prefix.100.gz"))

	var count int
	err := db.conn.QueryRowContext(ctx,
		"SELECT count(*) FROM transfer_reports WHERE source_file = ?", "prefix.100.gz").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAppendRowsEmptyBatch(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AppendRows(context.Background(), "transfer_reports", nil, "x"))
}

func TestAppendRowsWidthMismatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.EnsureTable(ctx, testSchema()))

	rows := []mapper.Row{
		{"key-a", uint64(1), time.Now().UTC(), nil},
		{"short"},
	}
	err := db.AppendRows(ctx, "transfer_reports", rows, "prefix.100.gz")
	require.Error(t, err)

	// The failed batch must not be partially visible.
	var count int
	require.NoError(t, db.conn.QueryRowContext(ctx,
		"SELECT count(*) FROM transfer_reports").Scan(&count))
	assert.Zero(t, count)
}

func TestAppendRowsChunking(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.EnsureTable(ctx, testSchema()))

	n := appendChunkRows*2 + 37
	rows := make([]mapper.Row, n)
	now := time.Now().UTC()
	for i := range rows {
		rows[i] = mapper.Row{"key", uint64(i), now, nil}
	}
	require.NoError(t, db.AppendRows(ctx, "transfer_reports", rows, "prefix.1.gz"))

	var count int
	require.NoError(t, db.conn.QueryRowContext(ctx,
		"SELECT count(*) FROM transfer_reports").Scan(&count))
	assert.Equal(t, n, count)
}

func TestWatermarkLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, ok, err := db.LatestProcessedTimestamp(ctx, "foo")
	require.NoError(t, err)
	assert.False(t, ok)

	stamp := func(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

	// Files complete out of order; the watermark is the maximum.
	require.NoError(t, db.RecordProcessedFile(ctx, "foo.100.gz", "foo", stamp(100)))
	require.NoError(t, db.RecordProcessedFile(ctx, "foo.250.gz", "foo", stamp(250)))
	require.NoError(t, db.RecordProcessedFile(ctx, "foo.180.gz", "foo", stamp(180)))

	ts, ok, err := db.LatestProcessedTimestamp(ctx, "foo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(250), ts.UnixMilli())

	// Watermarks are per prefix.
	_, ok, err = db.LatestProcessedTimestamp(ctx, "bar")
	require.NoError(t, err)
	assert.False(t, ok)
}
