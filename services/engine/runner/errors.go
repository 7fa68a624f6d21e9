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
	"fmt"
)

var (
	// ErrNilContext is returned when a nil context is passed to RunTests.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrNilRequest is returned when RunTests receives a nil request.
	ErrNilRequest = errors.New("request cannot be nil")

	// ErrEmptyProjectPath is returned when the request has no project path.
	ErrEmptyProjectPath = errors.New("project path cannot be empty")

	// ErrRunInProgress is returned when another run already holds the
	// project's advisory run lock.
	ErrRunInProgress = errors.New("a test run is already in progress for this project")
)

// ErrorKind classifies an expected run failure.
type ErrorKind string

const (
	// KindTimeout: the subprocess exceeded the request timeout and
	// was killed.
	KindTimeout ErrorKind = "timeout"

	// KindToolMissing: the framework binary is not on PATH.
	KindToolMissing ErrorKind = "tool_missing"

	// KindParseError: the framework ran but its output could not be
	// interpreted. Partial results may accompany this kind.
	KindParseError ErrorKind = "parse_error"

	// KindInternal: a defect in the runner itself, such as dispatch
	// reaching a framework with no adapter.
	KindInternal ErrorKind = "internal"
)

// RunError is an expected failure carried inside Results rather than
// returned from RunTests. The Go error interface is implemented so a
// RunError can still travel through error-shaped plumbing when a
// caller wants that.
type RunError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// newRunError builds a RunError with a formatted message.
func newRunError(kind ErrorKind, format string, args ...any) *RunError {
	return &RunError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
