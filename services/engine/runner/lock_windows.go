// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build windows

package runner

import "os"

// flockExclusive is a no-op on Windows; runs are not serialized there.
// TODO: Implement using golang.org/x/sys/windows.LockFileEx
func flockExclusive(f *os.File) error {
	return nil
}

// flockRelease is the matching no-op.
func flockRelease(f *os.File) error {
	return nil
}
