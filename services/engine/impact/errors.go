// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package impact analyzes change impact over the element index.
//
// The analyzer builds per-direction adjacency from the element index and
// performs bounded breadth-first traversal to answer "what is affected
// if this element changes?". Results are scored into risk levels and
// rendered as markdown reports.
//
// # Soft Failures
//
// A start element that is absent from the index yields an empty result
// and a logged warning from Traverse, never an error. AnalyzeElement,
// the composite entry point, instead returns ErrElementNotFound so API
// callers can branch without string matching.
//
// # Thread Safety
//
// An Analyzer is safe for concurrent use. The underlying element
// snapshot is read-only after first load; adjacency maps are built once
// per direction per snapshot generation and cached.
package impact

import "errors"

// Sentinel errors for impact analysis operations.
var (
	// ErrNilContext is returned when a nil context is passed to a
	// context-taking method.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrElementNotFound is returned by AnalyzeElement when the queried
	// element is absent from the index.
	ErrElementNotFound = errors.New("element not found in index")

	// ErrInvalidDirection is returned when a traversal direction is
	// neither downstream nor upstream.
	ErrInvalidDirection = errors.New("invalid traversal direction")
)
