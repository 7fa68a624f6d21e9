// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/SeismicAI/SeismicFOSS/services/engine/drift"
	"github.com/SeismicAI/SeismicFOSS/services/engine/history"
	"github.com/SeismicAI/SeismicFOSS/services/engine/index"
	"github.com/SeismicAI/SeismicFOSS/services/engine/runner"
)

// defaultHistoryKeep matches the engine server's default retention.
const defaultHistoryKeep = 200

// resolveProjectRoot returns the project root a command operates on:
// the --project flag when set, the working directory otherwise. The
// result is absolute so subprocess working directories and history
// paths do not depend on where the CLI was launched.
func resolveProjectRoot() (string, error) {
	if projectFlag == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve project root: %w", err)
		}
		return wd, nil
	}

	abs, err := filepath.Abs(projectFlag)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", abs)
	}
	return abs, nil
}

// newIndexLoader builds a loader for the project's element index.
// The default index path is project-relative, so it is anchored to
// the resolved root rather than the CLI's working directory.
func newIndexLoader(root string) *index.Loader {
	return index.NewLoader(
		index.WithPath(filepath.Join(root, index.DefaultIndexPath)),
	)
}

// driftSources is the default change detection chain: an explicit
// drift report when one was written, the git working tree otherwise.
func driftSources(root string) []drift.Source {
	return []drift.Source{
		drift.NewFileSource(root),
		drift.NewGitSource(root),
	}
}

// resolveChangedFiles walks sources in order and returns the first
// set that resolves. Source errors are soft: a broken drift report or
// a non-git tree falls through to the next source.
func resolveChangedFiles(ctx context.Context, sources []drift.Source) []string {
	for _, src := range sources {
		files, ok, err := src.ChangedFiles(ctx)
		if err != nil {
			slog.Debug("Drift source failed, trying next", "error", err)
			continue
		}
		if ok {
			return files
		}
	}
	return nil
}

// historyKeep resolves the retention cap: the project config value
// when set, the engine default otherwise. Negative disables pruning.
func historyKeep() int {
	if config.HistoryKeep != 0 {
		return config.HistoryKeep
	}
	return defaultHistoryKeep
}

// recordRun appends results to the project's run history, pruning to
// keep entries when keep is positive. History failures never fail the
// run itself; losing a history row is not worth losing test results.
func recordRun(ctx context.Context, root string, results *runner.Results, keep int) {
	store, err := history.Open(history.DefaultConfig(root))
	if err != nil {
		slog.Warn("History disabled for this run", "error", err)
		return
	}
	defer store.Close()

	if _, err := store.Record(ctx, results); err != nil {
		slog.Warn("Failed to record run history", "error", err)
		return
	}
	if keep > 0 {
		if _, err := store.Prune(ctx, keep); err != nil {
			slog.Warn("Failed to prune run history", "error", err)
		}
	}
}
