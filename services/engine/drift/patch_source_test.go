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

const samplePatch = `diff --git a/src/billing/payment.py b/src/billing/payment.py
index 83db48f..bf269f4 100644
--- a/src/billing/payment.py
+++ b/src/billing/payment.py
@@ -1,3 +1,4 @@
 def process_payment(amount):
+    validate(amount)
     total = amount
     return charge(total)
diff --git a/src/models/user.py b/src/models/user.py
index 9daeafb..b5a7f63 100644
--- a/src/models/user.py
+++ b/src/models/user.py
@@ -1,2 +1,3 @@
 class User:
+    email = ""
     pass
`

const deletionPatch = `diff --git a/src/legacy.py b/src/legacy.py
deleted file mode 100644
index e69de29..0000000
--- a/src/legacy.py
+++ /dev/null
@@ -1,1 +0,0 @@
-print("legacy")
`

// writePatch writes patch content to a temp file.
func writePatch(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "changes.patch")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestPatchSource_ChangedFiles verifies multi-file extraction with
// prefix stripping.
func TestPatchSource_ChangedFiles(t *testing.T) {
	source := NewPatchSource(writePatch(t, samplePatch))

	files, ok, err := source.ChangedFiles(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"src/billing/payment.py", "src/models/user.py"}, files)
}

// TestPatchSource_ChangedFiles_Deletion verifies deletions resolve to
// the original name rather than /dev/null.
func TestPatchSource_ChangedFiles_Deletion(t *testing.T) {
	source := NewPatchSource(writePatch(t, deletionPatch))

	files, ok, err := source.ChangedFiles(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"src/legacy.py"}, files)
}

// TestPatchSource_ChangedFiles_MissingFile verifies the soft signal.
func TestPatchSource_ChangedFiles_MissingFile(t *testing.T) {
	source := NewPatchSource(filepath.Join(t.TempDir(), "absent.patch"))

	files, ok, err := source.ChangedFiles(context.Background())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, files)
}

// TestPatchSource_ChangedFiles_Malformed verifies a broken hunk header
// surfaces the sentinel.
func TestPatchSource_ChangedFiles_Malformed(t *testing.T) {
	source := NewPatchSource(writePatch(t, "--- a/src/x.py\n+++ b/src/x.py\n@@ garbage @@\n"))

	_, _, err := source.ChangedFiles(context.Background())

	assert.ErrorIs(t, err, ErrMalformedPatch)
}

// TestPatchSource_ChangedFiles_NilContext verifies the contract check.
func TestPatchSource_ChangedFiles_NilContext(t *testing.T) {
	source := NewPatchSource(writePatch(t, samplePatch))

	//nolint:staticcheck // deliberately passing nil to exercise the guard
	_, _, err := source.ChangedFiles(nil)

	assert.ErrorIs(t, err, ErrNilContext)
}
