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
	"fmt"
	"os"
	"path/filepath"
)

// runLock is an advisory per-project lock held for the duration of a
// test run. Two processes running tests in the same project at once
// would race over reporter artifacts and shared caches.
type runLock struct {
	file *os.File
}

// acquireRunLock takes the project's run lock without blocking.
// Returns ErrRunInProgress when another process holds it.
func acquireRunLock(projectPath string) (*runLock, error) {
	dir := filepath.Join(projectPath, ".seismic", "locks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "run.lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := flockExclusive(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &runLock{file: f}, nil
}

// release drops the lock. Safe on a nil receiver so callers can defer
// it unconditionally.
func (l *runLock) release() {
	if l == nil || l.file == nil {
		return
	}
	_ = flockRelease(l.file)
	_ = l.file.Close()
}
