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
	"time"

	"github.com/SeismicAI/SeismicFOSS/services/engine/history"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	historyLimit int
	historyKeepN int
	historyJSON  bool
	historyQuiet bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded test runs",
	Long: `Inspect the run history stored under .seismic/history.

Every non --no-history run appends a summary entry: framework, pass
and fail counts, duration, and the error kind when the run itself
broke. Entries are listed newest first.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	Run:   runHistoryList,
}

var historyGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single recorded run",
	Args:  cobra.ExactArgs(1),
	Run:   runHistoryGet,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the most recent runs",
	Args:  cobra.NoArgs,
	Run:   runHistoryPrune,
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20,
		"Maximum entries to list (0 = all)")
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false,
		"Output as JSON for scripting")
	historyListCmd.Flags().BoolVar(&historyQuiet, "quiet", false,
		"Only exit code, no output")

	historyGetCmd.Flags().BoolVar(&historyJSON, "json", false,
		"Output as JSON for scripting")

	historyPruneCmd.Flags().IntVar(&historyKeepN, "keep", defaultHistoryKeep,
		"Number of most recent runs to keep")
	historyPruneCmd.Flags().BoolVar(&historyJSON, "json", false,
		"Output as JSON for scripting")

	// Add to root
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyGetCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// openHistory opens the project's history store read-write. The
// caller must Close it.
func openHistory() (*history.Store, error) {
	root, err := resolveProjectRoot()
	if err != nil {
		return nil, err
	}
	return history.Open(history.DefaultConfig(root))
}

func runHistoryList(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := OutputConfig{JSON: historyJSON, Quiet: historyQuiet}

	store, err := openHistory()
	if err != nil {
		os.Exit(OutputResult(cfg, "history list", start, nil, false, err))
	}
	defer store.Close()

	entries, err := store.List(ctx, historyLimit)
	if err != nil {
		os.Exit(OutputResult(cfg, "history list", start, nil, false, err))
	}

	result := HistoryListResult{Entries: entries, Count: len(entries)}
	if !cfg.Quiet && !cfg.JSON {
		outputHistoryListText(result)
	}
	os.Exit(OutputResult(cfg, "history list", start, result, false, nil))
}

func runHistoryGet(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := OutputConfig{JSON: historyJSON}

	store, err := openHistory()
	if err != nil {
		os.Exit(OutputResult(cfg, "history get", start, nil, false, err))
	}
	defer store.Close()

	entry, err := store.Get(ctx, args[0])
	if err != nil {
		os.Exit(OutputResult(cfg, "history get", start, nil, false, err))
	}

	if !cfg.JSON {
		outputHistoryEntryText(entry)
	}
	os.Exit(OutputResult(cfg, "history get", start, entry, false, nil))
}

func runHistoryPrune(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := OutputConfig{JSON: historyJSON}

	store, err := openHistory()
	if err != nil {
		os.Exit(OutputResult(cfg, "history prune", start, nil, false, err))
	}
	defer store.Close()

	removed, err := store.Prune(ctx, historyKeepN)
	if err != nil {
		os.Exit(OutputResult(cfg, "history prune", start, nil, false, err))
	}

	result := HistoryPruneResult{Removed: removed, Kept: historyKeepN}
	if !cfg.JSON {
		fmt.Printf("Pruned %d entries (keeping %d)\n", removed, historyKeepN)
	}
	os.Exit(OutputResult(cfg, "history prune", start, result, false, nil))
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputHistoryListText(result HistoryListResult) {
	if result.Count == 0 {
		fmt.Println("No recorded runs.")
		return
	}

	for _, entry := range result.Entries {
		s := entry.Summary
		line := fmt.Sprintf("%s  %-7s %d passed, %d failed, %d skipped (%d total)",
			entry.Timestamp.Format(time.RFC3339), entry.Framework,
			s.Passed, s.Failed, s.Skipped, s.Total)
		if entry.ErrorKind != "" {
			line += fmt.Sprintf("  [%s]", entry.ErrorKind)
		}
		fmt.Println(line)
		fmt.Printf("    id: %s\n", entry.ID)
	}
	fmt.Println()
	fmt.Printf("%d runs\n", result.Count)
}

func outputHistoryEntryText(entry *history.Entry) {
	s := entry.Summary
	fmt.Printf("Run:       %s\n", entry.ID)
	fmt.Printf("When:      %s\n", entry.Timestamp.Format(time.RFC3339))
	fmt.Printf("Project:   %s\n", entry.Project)
	fmt.Printf("Framework: %s\n", entry.Framework)
	fmt.Printf("Results:   %d passed, %d failed, %d skipped, %d errors (%d total)\n",
		s.Passed, s.Failed, s.Skipped, s.Errors, s.Total)
	fmt.Printf("Duration:  %.2fs  Success rate: %.1f%%\n", s.Duration, s.SuccessRate)
	if entry.ErrorKind != "" {
		fmt.Printf("Error:     %s\n", entry.ErrorKind)
	}
}
