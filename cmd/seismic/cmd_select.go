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

	"github.com/SeismicAI/SeismicFOSS/services/engine/selector"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	selectJSON  bool
	selectQuiet bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var selectCmd = &cobra.Command{
	Use:   "select [changed-file...]",
	Short: "Select the test files affected by changed files",
	Long: `Select which test files should run for a set of changed files.

Changed files come from the arguments when given, otherwise from the
drift chain: an explicit .seismic/drift.json report first, the git
working tree second. Selection matches tests by naming convention and
directory proximity; when nothing matches confidently, it falls back
to the full suite rather than guessing.

Examples:
  seismic select src/payments/validate.py
  seismic select                  # changed files from drift/git
  seismic select --json

Exit Codes:
  0 = Tests selected
  1 = Fallback to full suite (no confident selection)
  2 = Error`,
	Args: cobra.ArbitraryArgs,
	Run:  runSelectCommand,
}

func init() {
	selectCmd.Flags().BoolVar(&selectJSON, "json", false,
		"Output as JSON for scripting")
	selectCmd.Flags().BoolVar(&selectQuiet, "quiet", false,
		"Only exit code, no output")

	// Add to root
	rootCmd.AddCommand(selectCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runSelectCommand(cmd *cobra.Command, args []string) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := OutputConfig{JSON: selectJSON, Quiet: selectQuiet}

	root, err := resolveProjectRoot()
	if err != nil {
		os.Exit(OutputResult(cfg, "select", start, nil, false, err))
	}

	changed := args
	if len(changed) == 0 {
		changed = resolveChangedFiles(ctx, driftSources(root))
	}

	sel := selector.NewSelector()
	tests, fallback := sel.SelectTestFiles(root, changed)

	result := SelectResult{
		ChangedFiles:  changed,
		SelectedTests: tests,
		FallbackAll:   fallback,
	}

	if !cfg.Quiet && !cfg.JSON {
		outputSelectText(result)
	}
	os.Exit(OutputResult(cfg, "select", start, result, fallback, nil))
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputSelectText(result SelectResult) {
	fmt.Printf("Changed Files: %d\n", len(result.ChangedFiles))
	for _, f := range result.ChangedFiles {
		fmt.Printf("  %s\n", f)
	}
	fmt.Println()

	if result.FallbackAll {
		fmt.Println("No confident selection; the full suite would run.")
		return
	}

	fmt.Printf("Selected Tests: %d\n", len(result.SelectedTests))
	for _, t := range result.SelectedTests {
		fmt.Printf("  %s\n", t)
	}
}
