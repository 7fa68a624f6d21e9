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

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// PatchSource extracts changed files from a unified diff file.
type PatchSource struct {
	path   string
	logger *slog.Logger
}

// PatchSourceOption customizes PatchSource construction.
type PatchSourceOption func(*PatchSource)

// WithPatchLogger sets the logger for patch diagnostics.
func WithPatchLogger(logger *slog.Logger) PatchSourceOption {
	return func(s *PatchSource) {
		s.logger = logger
	}
}

// NewPatchSource creates a source reading the given patch file.
func NewPatchSource(path string, opts ...PatchSourceOption) *PatchSource {
	s := &PatchSource{path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "drift.patch")
	return s
}

// ChangedFiles parses the patch and returns its new-side file names.
//
// # Outputs
//
//   - []string: Normalized changed paths with git's a/ and b/ prefixes
//     stripped; pure deletions resolve to their original name.
//   - bool: False when the patch file does not exist.
//   - error: ErrNilContext, a read failure, or ErrMalformedPatch
//     wrapped with the path.
func (s *PatchSource) ChangedFiles(ctx context.Context) ([]string, bool, error) {
	if ctx == nil {
		return nil, false, ErrNilContext
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("no patch file, skipping narrowing", "path", s.path)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading patch %s: %w", s.path, err)
	}

	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(string(data))).ReadAllFiles()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrMalformedPatch, s.path, err)
	}

	paths := make([]string, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		name := fd.NewName
		if name == "" || name == "/dev/null" {
			name = fd.OrigName
		}
		name = strings.TrimPrefix(name, "a/")
		name = strings.TrimPrefix(name, "b/")
		if name == "" || name == "/dev/null" {
			continue
		}
		paths = append(paths, name)
	}

	files := normalizePaths(paths)
	s.logger.Debug("patch drift parsed", "path", s.path, "changed", len(files))
	return files, true, nil
}
