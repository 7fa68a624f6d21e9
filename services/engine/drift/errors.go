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

import "errors"

var (
	// ErrNilContext is returned when a nil context is passed to any
	// method requiring one.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrMalformedDrift is returned when a drift report file exists but
	// is not valid JSON. A missing file is a soft signal, not this
	// error.
	ErrMalformedDrift = errors.New("drift report is not valid JSON")

	// ErrMalformedPatch is returned when a patch file exists but cannot
	// be parsed as a unified diff.
	ErrMalformedPatch = errors.New("patch is not a valid unified diff")

	// ErrMissingBase is returned by GitSource in branch mode when no
	// base branch was configured.
	ErrMissingBase = errors.New("base branch required for branch mode")
)
