// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package selector maps changed source files to candidate test files
// using naming-convention heuristics. It never guesses: only test files
// that exist on disk are selected, and the absence of a mapping is an
// explicit "run the full suite" signal rather than an error.
package selector

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Selector resolves changed files into an impact-narrowed test file
// set.
//
// # Thread Safety
//
// A Selector is safe for concurrent use; it holds no per-call state.
type Selector struct {
	logger *slog.Logger
}

// Option customizes selector construction.
type Option func(*Selector)

// WithLogger sets the logger for selection diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) {
		s.logger = logger
	}
}

// NewSelector creates a test file selector.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "selector")
	return s
}

// SelectTestFiles maps the changed files to existing test files.
//
// # Description
//
// For each changed file with stem S and extension E, four conventions
// are probed: tests/test_S E, tests/S.test E, tests/S.spec E, and a
// same-directory test_S E sibling. A changed file that is itself a test
// file selects itself. Candidates missing from disk are dropped;
// duplicates keep their first-seen position.
//
// # Outputs
//
//   - []string: Slash-separated project-relative test files, non-empty
//     when ok is true.
//   - bool: False when there is no changed-file data or no candidate
//     exists on disk. Callers treat false as "run the full suite"; it
//     is a distinct signal, not an error.
func (s *Selector) SelectTestFiles(projectPath string, changed []string) ([]string, bool) {
	if len(changed) == 0 {
		return nil, false
	}

	selected := make([]string, 0, len(changed))
	seen := make(map[string]struct{})

	for _, file := range changed {
		file = filepath.ToSlash(strings.TrimSpace(file))
		if file == "" {
			continue
		}

		candidates := make([]string, 0, 5)
		if isTestFile(file) {
			candidates = append(candidates, file)
		}
		candidates = append(candidates, candidatesFor(file)...)

		for _, cand := range candidates {
			cand = filepath.ToSlash(cand)
			if _, dup := seen[cand]; dup {
				continue
			}
			if !fileExists(filepath.Join(projectPath, filepath.FromSlash(cand))) {
				continue
			}
			seen[cand] = struct{}{}
			selected = append(selected, cand)
		}
	}

	if len(selected) == 0 {
		s.logger.Debug("no existing test candidates for changed files",
			"changed", len(changed))
		return nil, false
	}

	s.logger.Debug("narrowed test selection",
		"changed", len(changed),
		"selected", len(selected))
	return selected, true
}

// candidatesFor generates the four convention candidates for one
// changed file.
func candidatesFor(path string) []string {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)

	return []string{
		filepath.Join("tests", "test_"+stem+ext),
		filepath.Join("tests", stem+".test"+ext),
		filepath.Join("tests", stem+".spec"+ext),
		filepath.Join(dir, "test_"+stem+ext),
	}
}

// isTestFile reports whether the path already names a test file under
// the conventions this engine understands.
func isTestFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "test_") {
		return true
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.HasSuffix(stem, ".test") ||
		strings.HasSuffix(stem, ".spec") ||
		strings.HasSuffix(stem, "_test")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
