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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/SeismicAI/SeismicFOSS/pkg/ux"
	"github.com/SeismicAI/SeismicFOSS/services/engine/runner"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	// Run scope flags
	runFramework string
	runFile      string
	runPattern   string
	runUseImpact bool
	runChanged   []string

	// Execution flags
	runTimeout   int
	runVerbose   bool
	runNoHistory bool

	// Output flags
	runJSON  bool
	runQuiet bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the project's tests",
	Long: `Run tests with the project's framework and record the results.

The framework is auto-detected unless pinned by --framework or the
project config. With --impact, the run narrows to tests selected for
the changed files (from --changed, .seismic/drift.json, or the git
working tree); when selection is not confident, the full suite runs.

Results are normalized across frameworks and appended to the run
history under .seismic/history unless --no-history is set.

Examples:
  seismic run
  seismic run --impact
  seismic run --file tests/test_payments.py
  seismic run --pattern "refund" --verbose
  seismic run --framework jest --timeout 600
  seismic run --impact --changed src/payments/validate.py

Exit Codes:
  0 = All tests passed (or none ran)
  1 = Test failures
  2 = Error (tool missing, timeout, unparseable output)`,
	Args: cobra.NoArgs,
	Run:  runRunCommand,
}

func init() {
	// Run scope flags
	runCmd.Flags().StringVar(&runFramework, "framework", "",
		"Pin the test framework: pytest, jest, vitest, cargo, mocha")
	runCmd.Flags().StringVar(&runFile, "file", "",
		"Run a single test file")
	runCmd.Flags().StringVar(&runPattern, "pattern", "",
		"Run tests matching a name pattern (framework syntax)")
	runCmd.Flags().BoolVar(&runUseImpact, "impact", false,
		"Narrow the run to tests affected by changed files")
	runCmd.Flags().StringSliceVar(&runChanged, "changed", nil,
		"Changed files for narrowing (default: drift chain)")

	// Execution flags
	runCmd.Flags().IntVar(&runTimeout, "timeout", runner.DefaultTimeoutSeconds,
		"Test run timeout in seconds")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false,
		"Verbose framework output and per-test lines")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false,
		"Do not record this run in the history")

	// Output flags
	runCmd.Flags().BoolVar(&runJSON, "json", false,
		"Output as JSON for scripting")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false,
		"Only exit code, no output")

	// Add to root
	rootCmd.AddCommand(runCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runRunCommand(cmd *cobra.Command, args []string) {
	root, err := resolveProjectRoot()
	if err != nil {
		outputRunError("Failed to resolve project root", err)
		os.Exit(CLIExitError)
	}

	req := buildRunRequest(cmd, root)

	// The runner enforces the subprocess timeout itself; the outer
	// context only needs headroom for selection and parsing.
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(req.TimeoutSeconds+30)*time.Second)
	defer cancel()

	// Narrowing needs a changed set. Mirror the engine service:
	// explicit files win, then the drift chain.
	if req.UseImpactAnalysis && req.TestFile == "" && req.TestPattern == "" && len(req.ChangedFiles) == 0 {
		req.ChangedFiles = resolveChangedFiles(ctx, driftSources(root))
	}

	var spinner *ux.Spinner
	if !runJSON && !runQuiet {
		spinner = ux.NewSpinner("Running tests...")
		spinner.Start()
	}

	results, err := runner.NewRunner().RunTests(ctx, &req)

	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		outputRunError("Test run failed", err)
		os.Exit(CLIExitError)
	}

	if !runNoHistory {
		// The run context may be close to its deadline by now.
		recordCtx, recordCancel := context.WithTimeout(context.Background(), 10*time.Second)
		recordRun(recordCtx, root, results, historyKeep())
		recordCancel()
	}

	// Output
	if !runQuiet {
		if runJSON {
			outputRunJSON(results)
		} else {
			outputRunText(results)
		}
	}

	// Exit code
	if results.Error != nil {
		os.Exit(CLIExitError)
	}
	if results.Summary.Failed > 0 || results.Summary.Errors > 0 {
		os.Exit(CLIExitFindings)
	}
	os.Exit(CLIExitSuccess)
}

// buildRunRequest merges flags over the project config. A flag the
// user actually set always wins; config fills the rest.
func buildRunRequest(cmd *cobra.Command, root string) runner.Request {
	req := runner.Request{
		ProjectPath:       root,
		Framework:         runFramework,
		TestFile:          runFile,
		TestPattern:       runPattern,
		TimeoutSeconds:    runTimeout,
		Verbose:           runVerbose,
		UseImpactAnalysis: runUseImpact,
		ChangedFiles:      runChanged,
	}

	if req.Framework == "" {
		req.Framework = config.Framework
	}
	if !cmd.Flags().Changed("timeout") && config.TimeoutSeconds > 0 {
		req.TimeoutSeconds = config.TimeoutSeconds
	}
	if !cmd.Flags().Changed("impact") && config.UseImpactAnalysis {
		req.UseImpactAnalysis = true
	}
	return req
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputRunError(msg string, err error) {
	if runJSON {
		result := map[string]interface{}{
			"success": false,
			"error":   fmt.Sprintf("%s: %v", msg, err),
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(result)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	}
}

func outputRunJSON(results *runner.Results) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(CLIExitError)
	}
}

func outputRunText(results *runner.Results) {
	fmt.Printf("Framework: %s\n", results.Framework)

	if results.Error != nil {
		ux.WarningBox("Run failed", fmt.Sprintf("%s: %s", results.Error.Kind, results.Error.Message))
	}

	// Failures always print; passing tests only with --verbose.
	for _, test := range results.Tests {
		if !runVerbose && test.Status == runner.StatusPassed {
			continue
		}
		ux.TestStatus(test.Name, statusIcon(test.Status), statusDetail(test))
	}

	s := results.Summary
	ux.Summary(s.Passed, s.Failed, s.Skipped, s.Total)
	fmt.Printf("Duration: %.2fs  Success rate: %.1f%%\n", s.Duration, s.SuccessRate)
}

func statusIcon(status runner.Status) ux.Icon {
	switch status {
	case runner.StatusPassed, runner.StatusXPass:
		return ux.IconSuccess
	case runner.StatusFailed, runner.StatusError:
		return ux.IconError
	case runner.StatusSkipped, runner.StatusXFail:
		return ux.IconSkipped
	default:
		return ux.IconPending
	}
}

func statusDetail(test runner.TestResult) string {
	detail := string(test.Status)
	if test.Duration > 0 {
		detail = fmt.Sprintf("%s, %.2fs", detail, test.Duration)
	}
	return detail
}
