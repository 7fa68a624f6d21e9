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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultDriftPath is the conventional drift report location, relative
// to the project root.
const DefaultDriftPath = ".seismic/drift.json"

// driftReport is the on-disk drift schema.
type driftReport struct {
	ChangedFiles []string `json:"changed_files"`
}

// FileSource reads changed files from a drift report written by an
// external scanner.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// FileSourceOption customizes FileSource construction.
type FileSourceOption func(*FileSource)

// WithDriftPath overrides the report path.
func WithDriftPath(path string) FileSourceOption {
	return func(s *FileSource) {
		s.path = path
	}
}

// WithFileLogger sets the logger for drift diagnostics.
func WithFileLogger(logger *slog.Logger) FileSourceOption {
	return func(s *FileSource) {
		s.logger = logger
	}
}

// NewFileSource creates a source reading projectPath/.seismic/drift.json.
func NewFileSource(projectPath string, opts ...FileSourceOption) *FileSource {
	s := &FileSource{
		path: filepath.Join(projectPath, filepath.FromSlash(DefaultDriftPath)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "drift.file")
	return s
}

// ChangedFiles reads the drift report.
//
// # Outputs
//
//   - []string: Normalized changed paths; may be empty when the report
//     explicitly lists no changes.
//   - bool: False when the report does not exist.
//   - error: ErrNilContext, a read failure, or ErrMalformedDrift
//     wrapped with the path.
func (s *FileSource) ChangedFiles(ctx context.Context) ([]string, bool, error) {
	if ctx == nil {
		return nil, false, ErrNilContext
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("no drift report, skipping narrowing", "path", s.path)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading drift report %s: %w", s.path, err)
	}

	var report driftReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrMalformedDrift, s.path, err)
	}

	files := normalizePaths(report.ChangedFiles)
	s.logger.Debug("drift report loaded", "path", s.path, "changed", len(files))
	return files, true, nil
}
