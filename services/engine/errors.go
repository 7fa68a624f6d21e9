// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import "errors"

var (
	// ErrRelativePath is returned when a project path is not absolute.
	ErrRelativePath = errors.New("project path must be absolute")

	// ErrPathTraversal is returned when a project path contains ".."
	// sequences.
	ErrPathTraversal = errors.New("project path must not contain traversal sequences")

	// ErrProjectNotFound is returned when the project path does not
	// exist or is not a directory.
	ErrProjectNotFound = errors.New("project path does not exist")

	// ErrRootNotAllowed is returned when AllowedRoots is configured and
	// the resolved project path falls outside every allowed prefix.
	ErrRootNotAllowed = errors.New("project path is outside the allowed roots")

	// ErrServiceClosed is returned by operations on a closed service.
	ErrServiceClosed = errors.New("service is closed")
)
