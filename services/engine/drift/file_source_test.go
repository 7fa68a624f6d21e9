// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package drift

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDrift writes a drift report at the conventional path inside a
// fresh project dir and returns the project root.
func writeDrift(t *testing.T, content string) string {
	t.Helper()

	root := t.TempDir()
	dir := filepath.Join(root, ".seismic")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "drift.json"), []byte(content), 0o644))
	return root
}

// TestFileSource_ChangedFiles verifies reading a well-formed report.
func TestFileSource_ChangedFiles(t *testing.T) {
	root := writeDrift(t, `{"changed_files": ["src/billing/payment.py", "src/models/user.py"]}`)
	source := NewFileSource(root)

	files, ok, err := source.ChangedFiles(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"src/billing/payment.py", "src/models/user.py"}, files)
}

// TestFileSource_ChangedFiles_MissingFile verifies the soft signal for
// an absent report.
func TestFileSource_ChangedFiles_MissingFile(t *testing.T) {
	source := NewFileSource(t.TempDir())

	files, ok, err := source.ChangedFiles(context.Background())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, files)
}

// TestFileSource_ChangedFiles_Malformed verifies the corrupt-report
// sentinel.
func TestFileSource_ChangedFiles_Malformed(t *testing.T) {
	root := writeDrift(t, `{not json`)
	source := NewFileSource(root)

	_, _, err := source.ChangedFiles(context.Background())

	assert.ErrorIs(t, err, ErrMalformedDrift)
}

// TestFileSource_ChangedFiles_EmptyList verifies that an explicit empty
// report is data, not absence of data.
func TestFileSource_ChangedFiles_EmptyList(t *testing.T) {
	root := writeDrift(t, `{"changed_files": []}`)
	source := NewFileSource(root)

	files, ok, err := source.ChangedFiles(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, files)
}

// TestFileSource_ChangedFiles_Normalizes verifies trimming, slash
// conversion, and dedup.
func TestFileSource_ChangedFiles_Normalizes(t *testing.T) {
	root := writeDrift(t,
		`{"changed_files": ["  src/a.py ", "src\\win\\b.py", "src/a.py", ""]}`)
	source := NewFileSource(root)

	files, ok, err := source.ChangedFiles(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"src/a.py", "src/win/b.py"}, files)
}

// TestFileSource_CustomPath verifies WithDriftPath.
func TestFileSource_CustomPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my_drift.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"changed_files": ["x.py"]}`), 0o644))

	source := NewFileSource(dir, WithDriftPath(path))
	files, ok, err := source.ChangedFiles(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"x.py"}, files)
}

// TestFileSource_ChangedFiles_NilContext verifies the contract check.
func TestFileSource_ChangedFiles_NilContext(t *testing.T) {
	source := NewFileSource(t.TempDir())

	//nolint:staticcheck // deliberately passing nil to exercise the guard
	_, _, err := source.ChangedFiles(nil)

	assert.ErrorIs(t, err, ErrNilContext)
}
