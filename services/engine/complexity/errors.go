// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package complexity

import "errors"

var (
	// ErrNilContext is returned when a nil context is passed to any
	// method requiring one.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrElementNotFound is returned by EstimateElement when the named
	// element is absent from the index. EstimateTask never returns it;
	// missing names are collected and skipped instead.
	ErrElementNotFound = errors.New("element not found in index")
)
