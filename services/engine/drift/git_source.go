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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// GitMode selects which git diff drives change detection.
type GitMode string

const (
	// GitModeWorking diffs the working tree against HEAD.
	GitModeWorking GitMode = "working"

	// GitModeStaged diffs the staging area against HEAD.
	GitModeStaged GitMode = "staged"

	// GitModeBranch diffs the current branch against a base branch
	// merge point.
	GitModeBranch GitMode = "branch"
)

// GitSource derives changed files from git.
//
// # Thread Safety
//
// A GitSource is safe for concurrent use.
type GitSource struct {
	workDir    string
	mode       GitMode
	baseBranch string
	logger     *slog.Logger

	// runGit is swapped in tests to avoid a real repository.
	runGit func(ctx context.Context, dir string, args ...string) (string, error)
}

// GitSourceOption customizes GitSource construction.
type GitSourceOption func(*GitSource)

// WithGitMode selects the diff mode; the default is GitModeWorking.
func WithGitMode(mode GitMode) GitSourceOption {
	return func(s *GitSource) {
		s.mode = mode
	}
}

// WithBaseBranch sets the base branch for GitModeBranch.
func WithBaseBranch(branch string) GitSourceOption {
	return func(s *GitSource) {
		s.baseBranch = branch
	}
}

// WithGitLogger sets the logger for git diagnostics.
func WithGitLogger(logger *slog.Logger) GitSourceOption {
	return func(s *GitSource) {
		s.logger = logger
	}
}

// NewGitSource creates a git-backed change source for the project.
func NewGitSource(projectPath string, opts ...GitSourceOption) *GitSource {
	s := &GitSource{
		workDir: projectPath,
		mode:    GitModeWorking,
		runGit:  runGitCommand,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "drift.git")
	return s
}

// ChangedFiles runs the configured git diff.
//
// # Outputs
//
//   - []string: Normalized changed paths from `git diff --name-only`.
//   - bool: False when the project is not a git repository; git simply
//     does not apply there.
//   - error: ErrNilContext, ErrMissingBase, or a git invocation
//     failure with stderr attached.
func (s *GitSource) ChangedFiles(ctx context.Context) ([]string, bool, error) {
	if ctx == nil {
		return nil, false, ErrNilContext
	}

	if !s.isRepo(ctx) {
		s.logger.Debug("not a git repository, skipping git drift", "dir", s.workDir)
		return nil, false, nil
	}

	var args []string
	switch s.mode {
	case GitModeStaged:
		args = []string{"diff", "--cached", "--name-only"}
	case GitModeBranch:
		if s.baseBranch == "" {
			return nil, false, ErrMissingBase
		}
		if err := s.verifyBranch(ctx, s.baseBranch); err != nil {
			return nil, false, err
		}
		args = []string{"diff", "--name-only", s.baseBranch + "...HEAD"}
	default:
		args = []string{"diff", "--name-only"}
	}

	out, err := s.runGit(ctx, s.workDir, args...)
	if err != nil {
		return nil, false, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}

	files := normalizePaths(splitLines(out))
	s.logger.Debug("git drift computed", "mode", string(s.mode), "changed", len(files))
	return files, true, nil
}

// isRepo checks whether workDir lives inside a git repository.
func (s *GitSource) isRepo(ctx context.Context) bool {
	_, err := s.runGit(ctx, s.workDir, "rev-parse", "--git-dir")
	return err == nil
}

// verifyBranch checks that the base branch resolves.
func (s *GitSource) verifyBranch(ctx context.Context, branch string) error {
	if _, err := s.runGit(ctx, s.workDir, "rev-parse", "--verify", branch); err != nil {
		return fmt.Errorf("branch %q not found: %w", branch, err)
	}
	return nil
}

// runGitCommand executes git with stderr folded into the error.
func runGitCommand(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func splitLines(out string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
