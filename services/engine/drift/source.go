// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package drift produces changed-files lists for impact-narrowed test
// selection. Three producers are provided: a drift report file, a git
// working-tree diff, and a unified patch file. All results are
// normalized to slash-separated project-relative paths.
package drift

import (
	"context"
	"path/filepath"
	"strings"
)

// Source supplies a changed-files list.
type Source interface {
	// ChangedFiles returns the changed paths.
	//
	// ok=false means no drift data is available from this source; it
	// is a soft signal distinct from an error, and callers fall back
	// to the full test suite.
	ChangedFiles(ctx context.Context) (files []string, ok bool, err error)
}

// normalizePaths trims, slash-normalizes, and dedupes while keeping
// first-seen order.
func normalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		p = filepath.ToSlash(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
