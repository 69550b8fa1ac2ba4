// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

// Package database is the persistence gateway: it owns the embedded DuckDB
// database, creates tables from declarative schemas, bulk-appends mapped
// rows, and records the processed-file watermarks that make repeated runs
// incremental.
//
// All writes go through a single serialized connection. The ingest
// scheduler runs many files concurrently, and a per-call append batch must
// never interleave with another; limiting the pool to one connection gives
// that guarantee without any locking in the callers.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/siphon/internal/logging"
)

// Config holds the DuckDB connection settings.
type Config struct {
	// Path is the database file location.
	Path string

	// MaxMemory caps DuckDB's memory use, e.g. "2GB".
	MaxMemory string

	// Threads sets DuckDB's internal thread count; 0 means runtime.NumCPU().
	Threads int
}

// DB wraps the DuckDB connection and provides the gateway operations.
// It is safe for concurrent use.
type DB struct {
	conn *sql.DB
}

// filesProcessedDDL is the watermark ledger: one append-only row per
// successfully ingested file.
const filesProcessedDDL = `
CREATE TABLE IF NOT EXISTS files_processed (
    file_name TEXT NOT NULL,
    prefix TEXT NOT NULL,
    file_timestamp TIMESTAMPTZ NOT NULL,
    processed_at TIMESTAMPTZ NOT NULL
)`

// New opens (creating if necessary) the database file and initializes the
// session and the files_processed table. The session runs in UTC so the
// TIMESTAMPTZ columns round-trip without zone drift.
func New(cfg Config) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure the parent directory exists for the database file.
	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dbDir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d", cfg.Path, numThreads)
	if cfg.MaxMemory != "" {
		connStr += "&max_memory=" + cfg.MaxMemory
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer connection; see the package comment.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	logging.Debug().Str("path", cfg.Path).Msg("Database opened")
	return db, nil
}

func (db *DB) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "SET TimeZone = 'UTC'"); err != nil {
		return fmt.Errorf("set session timezone: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, filesProcessedDDL); err != nil {
		return fmt.Errorf("create files_processed table: %w", err)
	}
	return nil
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close flushes and closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	// Checkpoint flushes the WAL so the next open replays nothing.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}

	return db.conn.Close()
}
