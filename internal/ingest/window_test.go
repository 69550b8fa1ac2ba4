// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/siphon/internal/objstore"
)

func timePtr(ts time.Time) *time.Time { return &ts }

func TestSelectionValidate(t *testing.T) {
	now := time.Now().UTC()

	valid := []Selection{
		{},
		{After: timePtr(now)},
		{After: timePtr(now), Before: timePtr(now)},
		{Continue: true},
		{Continue: true, Before: timePtr(now)},
		{File: "foo.100.gz"},
	}
	for _, sel := range valid {
		assert.NoError(t, sel.Validate(), "%+v", sel)
	}

	conflicting := []Selection{
		{Continue: true, After: timePtr(now)},
		{File: "foo.100.gz", Before: timePtr(now)},
		{File: "foo.100.gz", Continue: true},
		{File: "foo.100.gz", After: timePtr(now)},
	}
	for _, sel := range conflicting {
		err := sel.Validate()
		require.Error(t, err, "%+v", sel)
		assert.True(t, errors.Is(err, ErrSelectionConflict), "%+v", sel)
	}
}

// fakeWatermarks serves a canned watermark per prefix and records the
// prefixes queried.
type fakeWatermarks struct {
	marks    map[string]time.Time
	err      error
	calls    int
	prefixes []string
}

func (f *fakeWatermarks) LatestProcessedTimestamp(_ context.Context, prefix string) (time.Time, bool, error) {
	f.calls++
	f.prefixes = append(f.prefixes, prefix)
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	ts, ok := f.marks[prefix]
	return ts, ok, nil
}

func TestResolveAfterPassesThroughExplicitBound(t *testing.T) {
	wm := &fakeWatermarks{}
	bound := time.UnixMilli(500).UTC()

	after, err := Selection{After: timePtr(bound)}.resolveAfter(context.Background(), wm, "foo")
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.True(t, after.Equal(bound))
	assert.Zero(t, wm.calls, "explicit bounds must not touch the watermark store")
}

func TestResolveAfterContinueUsesWatermark(t *testing.T) {
	mark := time.UnixMilli(1234).UTC()
	wm := &fakeWatermarks{marks: map[string]time.Time{"foo": mark}}

	after, err := Selection{Continue: true}.resolveAfter(context.Background(), wm, "foo")
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.True(t, after.Equal(mark))
}

func TestResolveAfterContinueWithoutHistory(t *testing.T) {
	wm := &fakeWatermarks{}

	_, err := Selection{Continue: true}.resolveAfter(context.Background(), wm, "foo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPriorImport))
}

func TestResolveAfterContinuePropagatesStoreError(t *testing.T) {
	boom := errors.New("db gone")
	wm := &fakeWatermarks{err: boom}

	_, err := Selection{Continue: true}.resolveAfter(context.Background(), wm, "foo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestFilesExplicitFileBypassesListing(t *testing.T) {
	store := &fakeIngestStore{} // List would fail; it must not be called
	wm := &fakeWatermarks{}

	files, err := Selection{File: "foo.1722520800000.gz"}.files(
		context.Background(), store, wm, "bucket", "foo")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "foo.1722520800000.gz", files[0].Key)
	assert.Equal(t, "foo", files[0].Prefix)
	assert.Equal(t, int64(1722520800000), files[0].Timestamp.UnixMilli())
	assert.Zero(t, store.listCalls)
	assert.Zero(t, wm.calls)
}

func TestFilesExplicitFileMalformedKey(t *testing.T) {
	_, err := Selection{File: "not a key"}.files(
		context.Background(), &fakeIngestStore{}, &fakeWatermarks{}, "bucket", "foo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, objstore.ErrMalformedKey))
}

func TestFilesListingWindow(t *testing.T) {
	store := &fakeIngestStore{
		files: []objstore.FileDescriptor{mustParse(t, "foo.100.gz"), mustParse(t, "foo.200.gz")},
	}
	mark := time.UnixMilli(50).UTC()
	wm := &fakeWatermarks{marks: map[string]time.Time{"foo": mark}}
	before := time.UnixMilli(300).UTC()

	files, err := Selection{Continue: true, Before: timePtr(before)}.files(
		context.Background(), store, wm, "bucket", "foo")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	require.Equal(t, 1, store.listCalls)
	require.NotNil(t, store.lastAfter)
	assert.True(t, store.lastAfter.Equal(mark))
	require.NotNil(t, store.lastBefore)
	assert.True(t, store.lastBefore.Equal(before))
}

func mustParse(t *testing.T, key string) objstore.FileDescriptor {
	t.Helper()
	fd, err := objstore.ParseKey(key)
	require.NoError(t, err)
	return fd
}
