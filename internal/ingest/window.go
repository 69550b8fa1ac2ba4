// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/siphon/internal/objstore"
)

// ErrSelectionConflict indicates mutually exclusive file-selection flags.
// It is raised by Validate before any I/O happens.
var ErrSelectionConflict = errors.New("conflicting file selection")

// ErrNoPriorImport indicates a continue run for a prefix that has never
// been imported; there is no watermark to continue from.
var ErrNoPriorImport = errors.New("no previously processed files")

// Selection describes which files a run should import. Exactly one of
// After, Continue, or File may be active; Before may combine with After
// or Continue but not with File.
type Selection struct {
	// After selects files strictly newer than this timestamp.
	After *time.Time

	// Before drops files newer than this timestamp.
	Before *time.Time

	// Continue resumes from the stored watermark for the prefix.
	Continue bool

	// File names a single object key to import, bypassing listing.
	File string
}

// Validate checks the selection for conflicting options. It performs no
// I/O, so a bad invocation fails before any listing or database work.
func (s Selection) Validate() error {
	if s.Continue && s.After != nil {
		return fmt.Errorf("%w: cannot specify both 'continue' and 'after'", ErrSelectionConflict)
	}
	if s.File != "" && s.Before != nil {
		return fmt.Errorf("%w: cannot specify 'before' with 'file'", ErrSelectionConflict)
	}
	if s.File != "" && (s.Continue || s.After != nil) {
		return fmt.Errorf("%w: cannot combine 'file' with 'continue' or 'after'", ErrSelectionConflict)
	}
	return nil
}

// Watermarks is the slice of the persistence gateway the window resolver
// needs.
type Watermarks interface {
	LatestProcessedTimestamp(ctx context.Context, prefix string) (time.Time, bool, error)
}

// resolveAfter computes the effective lower bound for listing: the stored
// watermark for continue runs, the explicit After otherwise.
func (s Selection) resolveAfter(ctx context.Context, wm Watermarks, prefix string) (*time.Time, error) {
	if !s.Continue {
		return s.After, nil
	}

	ts, ok, err := wm.LatestProcessedTimestamp(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("resolve continue watermark: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w for prefix %q", ErrNoPriorImport, prefix)
	}
	return &ts, nil
}

// files resolves the selection into the concrete descriptor list: either
// the single explicit file, or a time-windowed listing.
func (s Selection) files(ctx context.Context, store Store, wm Watermarks, bucket, prefix string) ([]objstore.FileDescriptor, error) {
	if s.File != "" {
		fd, err := objstore.ParseKey(s.File)
		if err != nil {
			return nil, err
		}
		return []objstore.FileDescriptor{fd}, nil
	}

	after, err := s.resolveAfter(ctx, wm, prefix)
	if err != nil {
		return nil, err
	}
	return store.List(ctx, bucket, prefix, after, s.Before)
}
