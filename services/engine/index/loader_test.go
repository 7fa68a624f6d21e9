// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeIndex writes an index file into a temp dir and returns its path.
func writeIndex(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "element_index.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleIndex = `[
  {
    "name": "process_payment",
    "type": "function",
    "file": "src/billing/payment.py",
    "line": 42,
    "parameters": ["amount", "currency"],
    "calls": ["validate_card"],
    "dependencies": ["validate_card"],
    "calledBy": ["checkout", "refund_order"]
  },
  {
    "name": "validate_card",
    "type": "function",
    "file": "src/billing/card.py",
    "line": 10,
    "calledBy": ["process_payment"]
  },
  {
    "name": "checkout",
    "type": "method",
    "file": "src/store/checkout.py",
    "line": 88,
    "dependencies": ["process_payment"]
  }
]`

// TestNewLoader_Defaults verifies default configuration.
func TestNewLoader_Defaults(t *testing.T) {
	loader := NewLoader()
	assert.Equal(t, DefaultIndexPath, loader.Path())
	assert.False(t, loader.Loaded())
}

// TestNewLoader_Options verifies functional options are applied.
func TestNewLoader_Options(t *testing.T) {
	loader := NewLoader(
		WithPath("custom/index.json"),
		WithMaxElements(10),
	)
	assert.Equal(t, "custom/index.json", loader.Path())
	assert.Equal(t, 10, loader.config.MaxElements)
}

// TestConfig_Validate_ClampsInvalid verifies out-of-range values fall
// back to defaults rather than failing.
func TestConfig_Validate_ClampsInvalid(t *testing.T) {
	cfg := Config{Path: "", MaxElements: -1}
	cfg.Validate()
	assert.Equal(t, DefaultIndexPath, cfg.Path)
	assert.Equal(t, DefaultMaxElements, cfg.MaxElements)
	assert.NotNil(t, cfg.Logger)
}

// TestLoader_EnsureLoaded_Success verifies a well-formed index loads.
func TestLoader_EnsureLoaded_Success(t *testing.T) {
	path := writeIndex(t, sampleIndex)
	loader := NewLoader(WithPath(path))

	snap, err := loader.EnsureLoaded(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, 3, snap.Len())
	assert.False(t, snap.Missing())
	assert.True(t, loader.Loaded())

	el, ok := snap.Get("process_payment")
	require.True(t, ok)
	assert.Equal(t, KindFunction, el.Kind)
	assert.Equal(t, "src/billing/payment.py", el.File)
	assert.Equal(t, 42, el.Line)
	assert.Equal(t, []string{"amount", "currency"}, el.Parameters)
	assert.Equal(t, []string{"checkout", "refund_order"}, el.CalledBy)
}

// TestLoader_EnsureLoaded_PreservesFileOrder verifies All() iterates in
// index file order, which downstream traversal relies on for
// deterministic tie-breaking.
func TestLoader_EnsureLoaded_PreservesFileOrder(t *testing.T) {
	path := writeIndex(t, sampleIndex)
	loader := NewLoader(WithPath(path))

	snap, err := loader.EnsureLoaded(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, snap.Len())
	for _, el := range snap.All() {
		names = append(names, el.Name)
	}
	assert.Equal(t, []string{"process_payment", "validate_card", "checkout"}, names)
}

// TestLoader_EnsureLoaded_MissingFile verifies an absent index is a
// soft failure: empty snapshot, no error.
func TestLoader_EnsureLoaded_MissingFile(t *testing.T) {
	loader := NewLoader(WithPath(filepath.Join(t.TempDir(), "nope.json")))

	snap, err := loader.EnsureLoaded(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, 0, snap.Len())
	assert.True(t, snap.Missing())
	assert.True(t, loader.Loaded(), "empty snapshot still counts as loaded")
}

// TestLoader_EnsureLoaded_CorruptFile verifies unparseable JSON is a
// hard error carrying ErrIndexCorrupt.
func TestLoader_EnsureLoaded_CorruptFile(t *testing.T) {
	path := writeIndex(t, `{"not": "an array"`)
	loader := NewLoader(WithPath(path))

	_, err := loader.EnsureLoaded(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexCorrupt)

	var idxErr *IndexError
	require.ErrorAs(t, err, &idxErr)
	assert.Equal(t, path, idxErr.Path)
}

// TestLoader_EnsureLoaded_TooLarge verifies the element-count guard.
func TestLoader_EnsureLoaded_TooLarge(t *testing.T) {
	path := writeIndex(t, sampleIndex)
	loader := NewLoader(WithPath(path), WithMaxElements(2))

	_, err := loader.EnsureLoaded(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexTooLarge)
}

// TestLoader_EnsureLoaded_NilContext verifies the contract check.
func TestLoader_EnsureLoaded_NilContext(t *testing.T) {
	loader := NewLoader()
	//nolint:staticcheck // deliberately passing nil to exercise the guard
	_, err := loader.EnsureLoaded(nil)
	assert.ErrorIs(t, err, ErrNilContext)
}

// TestLoader_EnsureLoaded_SkipsMalformedEntries verifies entries
// without a name are dropped individually, not fatally.
func TestLoader_EnsureLoaded_SkipsMalformedEntries(t *testing.T) {
	path := writeIndex(t, `[
	  {"name": "good", "type": "function", "file": "a.py", "line": 1},
	  {"type": "function", "file": "b.py", "line": 2},
	  {"name": "", "type": "class", "file": "c.py", "line": 3},
	  {"name": "also_good", "type": "class", "file": "d.py", "line": 4}
	]`)
	loader := NewLoader(WithPath(path))

	snap, err := loader.EnsureLoaded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())

	_, ok := snap.Get("good")
	assert.True(t, ok)
	_, ok = snap.Get("also_good")
	assert.True(t, ok)
}

// TestLoader_EnsureLoaded_DuplicateNamesKeepFirst verifies duplicate
// names keep the first occurrence.
func TestLoader_EnsureLoaded_DuplicateNamesKeepFirst(t *testing.T) {
	path := writeIndex(t, `[
	  {"name": "dup", "type": "function", "file": "first.py", "line": 1},
	  {"name": "dup", "type": "class", "file": "second.py", "line": 2}
	]`)
	loader := NewLoader(WithPath(path))

	snap, err := loader.EnsureLoaded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())

	el, ok := snap.Get("dup")
	require.True(t, ok)
	assert.Equal(t, "first.py", el.File)
}

// TestLoader_EnsureLoaded_CachesSnapshot verifies the second call
// returns the same snapshot without re-reading the file.
func TestLoader_EnsureLoaded_CachesSnapshot(t *testing.T) {
	path := writeIndex(t, sampleIndex)
	loader := NewLoader(WithPath(path))
	ctx := context.Background()

	first, err := loader.EnsureLoaded(ctx)
	require.NoError(t, err)

	// Delete the file; the cache must survive.
	require.NoError(t, os.Remove(path))

	second, err := loader.EnsureLoaded(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

// TestLoader_Reload_DropsCache verifies Reload picks up a regenerated
// index file.
func TestLoader_Reload_DropsCache(t *testing.T) {
	path := writeIndex(t, sampleIndex)
	loader := NewLoader(WithPath(path))
	ctx := context.Background()

	first, err := loader.EnsureLoaded(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Len())

	// Regenerate with a single element.
	require.NoError(t, os.WriteFile(path, []byte(`[
	  {"name": "only", "type": "function", "file": "x.py", "line": 1}
	]`), 0o644))

	second, err := loader.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Len())
	assert.NotSame(t, first, second)
}

// TestLoader_EnsureLoaded_Concurrent verifies concurrent first loads
// all receive the same snapshot.
func TestLoader_EnsureLoaded_Concurrent(t *testing.T) {
	path := writeIndex(t, sampleIndex)
	loader := NewLoader(WithPath(path))
	ctx := context.Background()

	const goroutines = 16
	snaps := make([]*Snapshot, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := loader.EnsureLoaded(ctx)
			assert.NoError(t, err)
			snaps[i] = snap
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, snaps[0], snaps[i])
	}
}

// TestSnapshot_Get_Unknown verifies lookup misses are comma-ok.
func TestSnapshot_Get_Unknown(t *testing.T) {
	path := writeIndex(t, sampleIndex)
	loader := NewLoader(WithPath(path))

	snap, err := loader.EnsureLoaded(context.Background())
	require.NoError(t, err)

	el, ok := snap.Get("ghost")
	assert.False(t, ok)
	assert.Nil(t, el)
}
