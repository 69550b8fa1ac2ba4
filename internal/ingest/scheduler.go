// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/siphon/internal/frame"
	"github.com/tomtom215/siphon/internal/logging"
	"github.com/tomtom215/siphon/internal/mapper"
	"github.com/tomtom215/siphon/internal/objstore"
)

// DefaultConcurrency is the number of files in flight at once when no
// explicit limit is configured.
const DefaultConcurrency = 10

// Store is the object-store surface the scheduler consumes. Prefix
// reports the effective key prefix for a mapper default, so a configured
// override is visible to the scheduler and not just to List.
type Store interface {
	List(ctx context.Context, bucket, prefix string, after, before *time.Time) ([]objstore.FileDescriptor, error)
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Prefix(def string) string
}

// Gateway is the persistence surface the scheduler consumes.
type Gateway interface {
	Watermarks
	EnsureTable(ctx context.Context, schema mapper.TableSchema) error
	AppendRows(ctx context.Context, table string, rows []mapper.Row, sourceFile string) error
	RecordProcessedFile(ctx context.Context, key, prefix string, timestamp time.Time) error
}

// Scheduler runs imports: it fans files out to a bounded number of
// workers and funnels their rows into the gateway.
type Scheduler struct {
	store       Store
	db          Gateway
	concurrency int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConcurrency bounds the number of files in flight simultaneously.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New creates a Scheduler over the given store and gateway.
func New(store Store, db Gateway, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:       store,
		db:          db,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run imports every file the selection resolves to, using m to decode and
// map records. Files are processed independently and complete out of
// order; within one file the steps are strictly sequential. The first
// per-file error is returned after all other files have finished, so one
// bad file never blocks the rest of the run.
func (s *Scheduler) Run(ctx context.Context, m mapper.Mapper, sel Selection) error {
	if err := sel.Validate(); err != nil {
		return err
	}

	for _, schema := range m.Schemas() {
		if err := s.db.EnsureTable(ctx, schema); err != nil {
			return err
		}
	}

	// The continue watermark, the listing, and the recorded descriptors
	// must all see the same prefix, so a configured override is resolved
	// here, before the watermark query, not inside List.
	bucket := m.Bucket()
	prefix := s.store.Prefix(m.Prefix())
	files, err := sel.files(ctx, s.store, s.db, bucket, prefix)
	if err != nil {
		return err
	}

	logging.Info().
		Str("kind", m.Kind()).
		Int("files", len(files)).
		Int("concurrency", s.concurrency).
		Msg("Starting import")

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, fd := range files {
		g.Go(func() error {
			if err := s.processFile(ctx, m, bucket, fd); err != nil {
				logging.Error().Err(err).Str("file", fd.Key).Msg("File import failed")
				return fmt.Errorf("file %s: %w", fd.Key, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// processFile moves one file through fetch, frame decoding, mapping,
// append, and the watermark record. The watermark insert happens last:
// a file missing from files_processed is retried by the next run, which
// is safe because appends are at-least-once.
func (s *Scheduler) processFile(ctx context.Context, m mapper.Mapper, bucket string, fd objstore.FileDescriptor) error {
	logging.Info().
		Str("file", fd.Key).
		Time("timestamp", fd.Timestamp).
		Msg("Processing")

	body, err := s.store.Open(ctx, bucket, fd.Key)
	if err != nil {
		return err
	}
	defer func() {
		_ = body.Close()
	}()

	dec, err := frame.NewDecoder(body)
	if err != nil {
		return err
	}
	defer func() {
		_ = dec.Close()
	}()

	// Rows for the whole file accumulate in memory, bucketed per table;
	// persistence commits per (file, table) batch, not per record.
	buckets := make(map[string][]mapper.Row)
	var mapped, skipped int

	for {
		raw, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		msg, err := m.Decode(raw)
		if err != nil {
			// Per-record decode failures are the only recovered class.
			logging.Warn().Err(err).Str("file", fd.Key).Msg("Skipping undecodable record")
			skipped++
			continue
		}

		for _, tr := range m.Map(msg, fd.Key) {
			buckets[tr.Table] = append(buckets[tr.Table], tr.Rows...)
		}
		mapped++
	}

	// Append in declared schema order for deterministic write sequencing.
	for _, schema := range m.Schemas() {
		rows := buckets[schema.Name]
		if len(rows) == 0 {
			continue
		}
		if err := s.db.AppendRows(ctx, schema.Name, rows, fd.Key); err != nil {
			return err
		}
	}

	if err := s.db.RecordProcessedFile(ctx, fd.Key, fd.Prefix, fd.Timestamp); err != nil {
		return err
	}

	logging.Info().
		Str("file", fd.Key).
		Int("records", mapped).
		Int("skipped", skipped).
		Msg("File imported")
	return nil
}
