// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import "errors"

var (
	// ErrNilContext is returned when a nil context is passed to a
	// store operation.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrNilResults is returned when Record receives nil results.
	ErrNilResults = errors.New("results cannot be nil")

	// ErrEntryNotFound is returned by Get when no entry has the
	// requested id.
	ErrEntryNotFound = errors.New("history entry not found")

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("history store is closed")
)
