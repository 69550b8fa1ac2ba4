// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tomtom215/siphon/internal/mapper"
)

// sourceFileColumn is the provenance column appended to every mapper
// table. The gateway stamps it from the file key passed to AppendRows, so
// mapper row shapes never carry provenance themselves.
const sourceFileColumn = "source_file"

// identPattern constrains table and column names to plain SQL
// identifiers. Schema names come from registered mappers, but they are
// interpolated into DDL, so they are validated all the same.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// EnsureTable issues idempotent CREATE TABLE IF NOT EXISTS DDL for the
// given schema plus the provenance column. Safe to call repeatedly and
// concurrently.
func (db *DB) EnsureTable(ctx context.Context, schema mapper.TableSchema) error {
	ddl, err := buildDDL(schema)
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", schema.Name, err)
	}
	return nil
}

func buildDDL(schema mapper.TableSchema) (string, error) {
	if !identPattern.MatchString(schema.Name) {
		return "", fmt.Errorf("invalid table name %q", schema.Name)
	}

	cols := make([]string, 0, len(schema.Fields)+1)
	for _, f := range schema.Fields {
		if !identPattern.MatchString(f.Name) {
			return "", fmt.Errorf("table %s: invalid column name %q", schema.Name, f.Name)
		}

		sqlType := f.SQLType
		if sqlType == "" {
			sqlType = "TEXT"
		}
		nullable := "NOT NULL"
		if f.Nullable {
			nullable = "NULL"
		}
		cols = append(cols, fmt.Sprintf("%s %s %s", f.Name, sqlType, nullable))
	}
	cols = append(cols, sourceFileColumn+" TEXT NOT NULL")

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", schema.Name, strings.Join(cols, ", ")), nil
}

// appendChunkRows caps the rows per INSERT statement to keep the bind
// parameter count reasonable.
const appendChunkRows = 1000

// AppendRows bulk-loads rows into table in one batch, stamping each row
// with sourceFile. All rows land in a single transaction: either the whole
// file's batch for this table is durable or none of it is.
func (db *DB) AppendRows(ctx context.Context, table string, rows []mapper.Row, sourceFile string) error {
	if len(rows) == 0 {
		return nil
	}
	if !identPattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append to %s: begin: %w", table, err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	width := len(rows[0]) + 1
	for start := 0; start < len(rows); start += appendChunkRows {
		end := start + appendChunkRows
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		args := make([]any, 0, len(chunk)*width)
		placeholders := make([]string, 0, len(chunk))
		rowHoles := "(" + strings.TrimSuffix(strings.Repeat("?,", width), ",") + ")"

		for _, row := range chunk {
			if len(row)+1 != width {
				return fmt.Errorf("append to %s: row width %d, want %d", table, len(row), width-1)
			}
			placeholders = append(placeholders, rowHoles)
			args = append(args, row...)
			args = append(args, sourceFile)
		}

		stmt := fmt.Sprintf("INSERT INTO %s VALUES %s", table, strings.Join(placeholders, ", "))
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("append to %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append to %s: commit: %w", table, err)
	}
	return nil
}
