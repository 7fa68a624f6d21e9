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
	"fmt"
	"os"
	"time"

	"github.com/SeismicAI/SeismicFOSS/services/engine/frameworks"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	frameworksJSON  bool
	frameworksQuiet bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var frameworksCmd = &cobra.Command{
	Use:   "frameworks",
	Short: "Detect test frameworks in the project",
	Long: `Detect which test frameworks the project uses.

Detection reads marker files under the project root: pytest.ini,
conftest.py, or pyproject.toml for pytest; package.json dependencies
for jest, vitest, and mocha; Cargo.toml for cargo test. Each detected
framework is reported with a confidence, the marker that produced it,
and the reason.

Examples:
  seismic frameworks
  seismic frameworks --json

Exit Codes:
  0 = At least one framework detected
  1 = No framework detected
  2 = Error`,
	Args: cobra.NoArgs,
	Run:  runFrameworksCommand,
}

func init() {
	frameworksCmd.Flags().BoolVar(&frameworksJSON, "json", false,
		"Output as JSON for scripting")
	frameworksCmd.Flags().BoolVar(&frameworksQuiet, "quiet", false,
		"Only exit code, no output")

	// Add to root
	rootCmd.AddCommand(frameworksCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runFrameworksCommand(cmd *cobra.Command, args []string) {
	start := time.Now()
	cfg := OutputConfig{JSON: frameworksJSON, Quiet: frameworksQuiet}

	root, err := resolveProjectRoot()
	if err != nil {
		os.Exit(OutputResult(cfg, "frameworks", start, nil, false, err))
	}

	detector := frameworks.NewDetector()
	detected := detector.Detect(root)

	result := FrameworksResult{
		Frameworks: detected,
		Default:    string(detector.DetectDefault(root)),
		Count:      len(detected),
	}

	if !cfg.Quiet && !cfg.JSON {
		outputFrameworksText(result)
	}
	os.Exit(OutputResult(cfg, "frameworks", start, result, len(detected) == 0, nil))
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputFrameworksText(result FrameworksResult) {
	if result.Count == 0 {
		fmt.Println("No test frameworks detected.")
		return
	}

	fmt.Printf("Detected Frameworks (%d):\n", result.Count)
	for _, info := range result.Frameworks {
		marker := ""
		if info.Marker != "" {
			marker = fmt.Sprintf("  [%s]", info.Marker)
		}
		fmt.Printf("  %-8s %3.0f%%%s  %s\n",
			info.Framework, info.Confidence*100, marker, info.Reason)
	}
	fmt.Println()
	fmt.Printf("Default: %s\n", result.Default)
}
