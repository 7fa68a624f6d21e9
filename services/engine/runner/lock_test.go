// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runner

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func skipWithoutFlock(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("advisory locking is a no-op on windows")
	}
}

func TestAcquireRunLock_CreatesLockFile(t *testing.T) {
	project := t.TempDir()

	lock, err := acquireRunLock(project)
	if err != nil {
		t.Fatalf("acquireRunLock() error = %v", err)
	}
	defer lock.release()

	path := filepath.Join(project, ".seismic", "locks", "run.lock")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("lock file missing: %v", err)
	}
}

func TestAcquireRunLock_Conflict(t *testing.T) {
	skipWithoutFlock(t)
	project := t.TempDir()

	first, err := acquireRunLock(project)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	if _, err := acquireRunLock(project); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("second acquire error = %v, want ErrRunInProgress", err)
	}

	first.release()

	third, err := acquireRunLock(project)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	third.release()
}

func TestRunLock_ReleaseNilSafe(t *testing.T) {
	var lock *runLock
	lock.release()
}
