// Siphon - Incremental Object Storage to DuckDB Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/siphon

package mapper

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHasBundledMappers(t *testing.T) {
	kinds := Kinds()
	assert.True(t, sort.StringsAreSorted(kinds))
	assert.Contains(t, kinds, "data-transfer-ingest")
	assert.Contains(t, kinds, "radio-usage-stats")
	assert.Contains(t, kinds, "mobile-rewards")
}

func TestLookupUnknownKind(t *testing.T) {
	_, ok := Lookup("no-such-kind")
	assert.False(t, ok)
}

type stubMapper struct{ kind string }

func (m *stubMapper) Kind() string                  { return m.kind }
func (*stubMapper) Bucket() string                  { return "bucket" }
func (*stubMapper) Prefix() string                  { return "prefix" }
func (*stubMapper) Schemas() []TableSchema          { return nil }
func (*stubMapper) Decode([]byte) (Message, error)  { return nil, nil }
func (*stubMapper) Map(Message, string) []TableRows { return nil }

func TestRegisterDuplicatePanics(t *testing.T) {
	Register(&stubMapper{kind: "registry-test-kind"})
	require.Panics(t, func() {
		Register(&stubMapper{kind: "registry-test-kind"})
	})

	m, ok := Lookup("registry-test-kind")
	require.True(t, ok)
	assert.Equal(t, "registry-test-kind", m.Kind())
}

// Every bundled mapper's schemas must have valid identifiers; the
// persistence layer rejects anything else at table creation time.
func TestSchemasHaveNames(t *testing.T) {
	for _, kind := range Kinds() {
		m, _ := Lookup(kind)
		for _, schema := range m.Schemas() {
			assert.NotEmpty(t, schema.Name, "kind %s", kind)
			assert.NotEmpty(t, schema.Fields, "table %s", schema.Name)
			for _, f := range schema.Fields {
				assert.NotEmpty(t, f.Name, "table %s", schema.Name)
			}
		}
	}
}
