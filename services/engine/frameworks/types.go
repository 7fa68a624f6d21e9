// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package frameworks detects which test frameworks apply to a project
// by probing marker files. Detection is deterministic: the same project
// tree always yields the same ordered result.
package frameworks

import "fmt"

// Framework identifies a supported test framework. The set is closed;
// dispatch over it is exhaustive with no fallthrough.
type Framework string

const (
	Pytest  Framework = "pytest"
	Jest    Framework = "jest"
	Vitest  Framework = "vitest"
	Cargo   Framework = "cargo"
	Mocha   Framework = "mocha"
	Unknown Framework = "unknown"
)

// All lists every detectable framework in precedence order. Ties in
// detection confidence resolve to the earlier entry.
func All() []Framework {
	return []Framework{Pytest, Jest, Vitest, Cargo, Mocha}
}

// Parse converts a user-supplied framework name into a Framework.
//
// # Outputs
//
//   - Framework: The matching constant.
//   - error: ErrUnknownFramework wrapped with the input when the name
//     is not in the closed set. "unknown" is not accepted as input;
//     it is a detection outcome, not a request value.
func Parse(s string) (Framework, error) {
	switch Framework(s) {
	case Pytest, Jest, Vitest, Cargo, Mocha:
		return Framework(s), nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnknownFramework, s)
	}
}

// Info describes one detected framework and why it was detected.
type Info struct {
	Framework  Framework `json:"framework"`
	Confidence float64   `json:"confidence"`
	Marker     string    `json:"marker"`
	Reason     string    `json:"reason"`
}
