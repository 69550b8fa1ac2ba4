// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

// Package mapper defines the pluggable record mappers that translate one
// decoded binary record into relational rows, and the registry the CLI
// selects them from.
//
// A mapper owns everything about one file kind: which bucket and key
// prefix its files live under, the tables it writes to, how to decode one
// framed payload, and how a decoded message expands into rows. The ingest
// core treats all of that as opaque configuration; it only moves bytes in
// and (table, rows) batches out.
//
// Mappers register themselves at startup as ordinary values:
//
//	func init() { mapper.Register(&dataTransferMapper{}) }
//
// One message may fan out into rows for several tables (a parent record
// plus child collections, or a tagged-union payload with one table per
// variant), so Map returns TableRows batches rather than a flat row list.
package mapper

import (
	"fmt"
	"sort"
	"sync"
)

// Message is one decoded record. Its concrete type is private to the
// mapper that produced it; the core never inspects it.
type Message any

// Row is an ordered tuple of column values matching a table's declared
// field order. The persistence layer appends the originating file key as
// a final provenance column; mappers never include it.
type Row []any

// Field describes one column in a declarative table schema.
type Field struct {
	// Name is the column name.
	Name string

	// SQLType is the DuckDB column type. Empty means TEXT.
	SQLType string

	// Nullable permits NULL values. Columns are NOT NULL by default.
	Nullable bool
}

// TableSchema declares a destination table. The persistence layer issues
// idempotent CREATE TABLE IF NOT EXISTS DDL from it.
type TableSchema struct {
	Name   string
	Fields []Field
}

// TableRows binds a batch of rows to their destination table.
type TableRows struct {
	Table string
	Rows  []Row
}

// Mapper translates framed records of one file kind into rows.
//
// Decode failures are per-record: the scheduler logs and skips the record
// and continues with the rest of the file. Map must be total for any
// message Decode returns.
type Mapper interface {
	// Kind is the registry name selected with --file-type.
	Kind() string

	// Bucket is the default source bucket for this file kind.
	Bucket() string

	// Prefix is the object key prefix grouping this kind's files.
	Prefix() string

	// Schemas lists every table this mapper writes to.
	Schemas() []TableSchema

	// Decode parses one framed payload into a message.
	Decode(b []byte) (Message, error)

	// Map expands one decoded message into zero or more table-bound row
	// batches. sourceKey is the originating file's object key, passed
	// explicitly for mappings that need provenance.
	Map(msg Message, sourceKey string) []TableRows
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Mapper)
)

// Register adds a mapper to the registry. It panics on a duplicate kind;
// registration happens from init functions where a duplicate is a
// programming error.
func Register(m Mapper) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[m.Kind()]; dup {
		panic(fmt.Sprintf("mapper: duplicate registration for kind %q", m.Kind()))
	}
	registry[m.Kind()] = m
}

// Lookup returns the mapper registered under kind.
func Lookup(kind string) (Mapper, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	m, ok := registry[kind]
	return m, ok
}

// Kinds returns all registered kinds, sorted.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
