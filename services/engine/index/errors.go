// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index loads and caches the flat element index for a project.
//
// The index is produced by an external scanner and stored as a JSON array
// of element records, conventionally at .seismic/element_index.json. This
// package only reads that file; it never discovers source files or
// maintains the index itself.
//
// # Ownership Model
//
// Loaded elements are immutable snapshots:
//   - Elements MUST NOT be mutated after load
//   - To pick up a regenerated index, call Reload()
//   - Snapshot accessors return the internal structures without copying
//     (for memory efficiency); callers treat them as read-only
//
// # Loaded State
//
// A Loader distinguishes "not loaded yet" from "loaded empty" with an
// explicit snapshot value rather than a nil-slice sentinel. A missing
// index file is a valid project state: EnsureLoaded returns an empty
// snapshot and logs a warning. A present-but-unparseable file is an
// operator problem and returns ErrIndexCorrupt.
//
// # Thread Safety
//
// Loader is safe for concurrent use. Concurrent first loads are
// deduplicated so the file is parsed once.
package index

import (
	"errors"
	"fmt"
)

// Sentinel errors for element index operations.
var (
	// ErrNilContext is returned when a nil context is passed to a
	// context-taking method.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrIndexCorrupt is returned when the index file exists but cannot
	// be parsed. The underlying JSON error is wrapped.
	ErrIndexCorrupt = errors.New("element index corrupt")

	// ErrIndexTooLarge is returned when the index file contains more
	// elements than the loader's configured maximum.
	ErrIndexTooLarge = errors.New("element index exceeds maximum element count")
)

// IndexError wraps a load failure with the path that caused it.
//
// Implements Unwrap() so callers can still branch on the sentinel:
//
//	if errors.Is(err, index.ErrIndexCorrupt) { ... }
type IndexError struct {
	// Path is the index file that failed to load.
	Path string

	// Err is the underlying failure, usually wrapping a sentinel.
	Err error
}

// Error returns a human-readable description including the path.
func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *IndexError) Unwrap() error {
	return e.Err
}
