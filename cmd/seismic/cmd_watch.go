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
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/SeismicAI/SeismicFOSS/pkg/ux"
	"github.com/SeismicAI/SeismicFOSS/services/engine/runner"
	"github.com/SeismicAI/SeismicFOSS/services/engine/watch"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	watchDebounce  int
	watchFramework string
	watchAll       bool
	watchTimeout   int
	watchNoHistory bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the project and run affected tests on change",
	Long: `Watch the project tree and run tests whenever files change.

File events are debounced into batches, so a save-all triggers one
test cycle, not one per file. Each cycle narrows to the tests
affected by the batch unless --all forces the full suite. An initial
baseline cycle runs before watching starts.

Vendor and build directories, editor droppings, and the .seismic
state directory are ignored; add project-specific patterns under
watch.ignore in .seismic/config.yaml.

Examples:
  seismic watch
  seismic watch --all
  seismic watch --debounce 1000
  seismic watch --framework pytest --timeout 120

Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	Run:  runWatchCommand,
}

func init() {
	watchCmd.Flags().IntVar(&watchDebounce, "debounce", 0,
		"Debounce window in milliseconds (default 400)")
	watchCmd.Flags().StringVar(&watchFramework, "framework", "",
		"Pin the test framework: pytest, jest, vitest, cargo, mocha")
	watchCmd.Flags().BoolVar(&watchAll, "all", false,
		"Run the full suite every cycle instead of narrowing")
	watchCmd.Flags().IntVar(&watchTimeout, "timeout", runner.DefaultTimeoutSeconds,
		"Per-cycle test timeout in seconds")
	watchCmd.Flags().BoolVar(&watchNoHistory, "no-history", false,
		"Do not record watch cycles in the history")

	// Add to root
	rootCmd.AddCommand(watchCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runWatchCommand(cmd *cobra.Command, args []string) {
	root, err := resolveProjectRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(CLIExitError)
	}

	opts := watch.DefaultOptions()
	switch {
	case watchDebounce > 0:
		opts.DebounceWindow = time.Duration(watchDebounce) * time.Millisecond
	case config.Watch.DebounceMs > 0:
		opts.DebounceWindow = time.Duration(config.Watch.DebounceMs) * time.Millisecond
	}
	opts.IgnorePatterns = append(opts.IgnorePatterns, config.Watch.Ignore...)

	watcher, err := watch.NewWatcher(root, func(changed []string) {
		runWatchCycle(root, relativize(root, changed))
	}, &opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(CLIExitError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(CLIExitError)
	}

	ux.Title("Seismic Watch")
	ux.Info(fmt.Sprintf("Watching %s (debounce %s). Press Ctrl+C to stop.", root, opts.DebounceWindow))

	// Baseline cycle so the suite state is known before changes land.
	runWatchCycle(root, nil)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	watcher.Stop()
	ux.Muted("Stopped watching.")
	os.Exit(CLIExitSuccess)
}

// runWatchCycle executes one test cycle. It runs on the watcher's
// handler goroutine, which serializes cycles; a batch arriving while
// a cycle runs waits its turn.
func runWatchCycle(root string, changed []string) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(watchTimeout+30)*time.Second)
	defer cancel()

	if len(changed) > 0 {
		fmt.Println()
		ux.Info(fmt.Sprintf("%d files changed: %s", len(changed), summarizeChanged(changed)))
	} else {
		ux.Info("Running baseline suite")
	}

	req := runner.Request{
		ProjectPath:       root,
		Framework:         watchFramework,
		TimeoutSeconds:    watchTimeout,
		UseImpactAnalysis: !watchAll,
		ChangedFiles:      changed,
	}
	if req.Framework == "" {
		req.Framework = config.Framework
	}

	results, err := runner.NewRunner().RunTests(ctx, &req)
	if err != nil {
		ux.Error(fmt.Sprintf("Cycle failed: %v", err))
		return
	}

	if !watchNoHistory {
		recordCtx, recordCancel := context.WithTimeout(context.Background(), 10*time.Second)
		recordRun(recordCtx, root, results, historyKeep())
		recordCancel()
	}

	if results.Error != nil {
		ux.Error(fmt.Sprintf("%s: %s", results.Error.Kind, results.Error.Message))
	}
	for _, test := range results.Tests {
		if test.Status == runner.StatusFailed || test.Status == runner.StatusError {
			ux.TestStatus(test.Name, ux.IconError, string(test.Status))
		}
	}

	s := results.Summary
	ux.Summary(s.Passed, s.Failed, s.Skipped, s.Total)
	ux.Muted(fmt.Sprintf("Cycle finished in %.1fs. Waiting for changes...", time.Since(start).Seconds()))
}

// relativize rewrites watcher paths relative to the project root, the
// form the test selector matches against.
func relativize(root string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
			out = append(out, rel)
			continue
		}
		out = append(out, p)
	}
	return out
}

// summarizeChanged renders a short changed-file list for the cycle
// header without flooding the terminal on large batches.
func summarizeChanged(changed []string) string {
	const show = 3
	if len(changed) <= show {
		return strings.Join(changed, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(changed[:show], ", "), len(changed)-show)
}
