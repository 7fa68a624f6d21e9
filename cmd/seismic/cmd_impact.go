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
	"strings"
	"time"

	"github.com/SeismicAI/SeismicFOSS/pkg/ux"
	"github.com/SeismicAI/SeismicFOSS/services/engine/impact"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	// Analysis flags
	impactMaxDepth  int
	impactUpstream  bool
	impactThreshold string

	// Output flags
	impactJSON    bool
	impactFormat  string
	impactQuiet   bool
	impactTimeout int
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var impactCmd = &cobra.Command{
	Use:   "impact <element>",
	Short: "Analyze the blast radius of changing an element",
	Long: `Analyze which code would be affected by changing an element.

This command walks the call graph recorded in the element index,
starting from the named function, class, or method, and reports every
element reachable within the depth limit together with an impact score
and risk level.

Directions:
  default      Downstream: what depends on this element (callers)
  --upstream   Upstream: what this element depends on (callees)

Examples:
  seismic impact validate_payment
  seismic impact PaymentService.process --max-depth 5
  seismic impact validate_payment --upstream
  seismic impact validate_payment --format full

CI/CD Integration:
  seismic impact validate_payment --threshold medium --json
  (exits 1 if risk exceeds threshold)

Exit Codes:
  0 = Risk at or below threshold
  1 = Risk above threshold (requires review)
  2 = Error (element not found, corrupt index, analysis failure)`,
	Args: cobra.ExactArgs(1),
	Run:  runImpactCommand,
}

func init() {
	// Analysis flags
	impactCmd.Flags().IntVar(&impactMaxDepth, "max-depth", impact.DefaultMaxDepth,
		"Maximum traversal depth through the call graph")
	impactCmd.Flags().BoolVar(&impactUpstream, "upstream", false,
		"Walk dependencies instead of dependents")
	impactCmd.Flags().StringVar(&impactThreshold, "threshold", "high",
		"Risk threshold for exit code: low, medium, high, critical")

	// Output flags
	impactCmd.Flags().BoolVar(&impactJSON, "json", false,
		"Output as JSON for scripting")
	impactCmd.Flags().StringVar(&impactFormat, "format", "summary",
		"Output format: summary, full")
	impactCmd.Flags().BoolVar(&impactQuiet, "quiet", false,
		"Only exit code, no output")
	impactCmd.Flags().IntVar(&impactTimeout, "timeout", 60,
		"Analysis timeout in seconds")

	// Add to root
	rootCmd.AddCommand(impactCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runImpactCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(impactTimeout)*time.Second)
	defer cancel()

	root, err := resolveProjectRoot()
	if err != nil {
		outputImpactError("Failed to resolve project root", err)
		os.Exit(CLIExitError)
	}

	analyzer := impact.NewAnalyzer(newIndexLoader(root))
	element := args[0]

	var analysis *impact.Analysis
	if impactUpstream {
		analysis, err = analyzeUpstream(ctx, analyzer, element)
	} else {
		analysis, err = analyzer.AnalyzeElement(ctx, element, impactMaxDepth)
	}
	if err != nil {
		outputImpactError("Impact analysis failed", err)
		os.Exit(CLIExitError)
	}

	// Output
	if !impactQuiet {
		if impactJSON {
			outputImpactJSON(analysis)
		} else {
			outputImpactText(analysis, impactFormat)
		}
	}

	// Exit code based on threshold
	threshold := impact.ParseRiskLevel(impactThreshold)
	if analysis.ImpactScore.RiskLevel.Exceeds(threshold) {
		os.Exit(CLIExitFindings)
	}
	os.Exit(CLIExitSuccess)
}

// analyzeUpstream runs a dependency-direction traversal and assembles
// the same Analysis shape the downstream path produces, so both
// directions share output code.
func analyzeUpstream(ctx context.Context, analyzer *impact.Analyzer, element string) (*impact.Analysis, error) {
	affected, err := analyzer.Traverse(ctx, element, impact.TraverseOptions{
		MaxDepth:  impactMaxDepth,
		Direction: impact.DirectionUpstream,
	})
	if err != nil {
		return nil, err
	}

	score := impact.Score(affected)
	return &impact.Analysis{
		ElementName:      element,
		AffectedElements: affected,
		ImpactScore:      score,
		Report:           impact.Report(element, impact.DirectionUpstream, impactMaxDepth, affected, score),
	}, nil
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputImpactError(msg string, err error) {
	if impactJSON {
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

func outputImpactJSON(analysis *impact.Analysis) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(analysis); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(CLIExitError)
	}
}

func outputImpactText(analysis *impact.Analysis, format string) {
	direction := "downstream"
	if impactUpstream {
		direction = "upstream"
	}

	// Header
	fmt.Printf("Impact Analysis: %s (%s)\n", analysis.ElementName, direction)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	// Score summary
	score := analysis.ImpactScore
	fmt.Printf("Affected Elements: %d\n", score.ImpactScore)
	fmt.Printf("Risk Level:        %s %s\n", score.RiskLevel, ux.RiskBadge(string(score.RiskLevel)))

	if len(score.Breakdown) > 0 {
		fmt.Println()
		fmt.Println("By Depth:")
		for depth := 1; depth <= impactMaxDepth; depth++ {
			key := fmt.Sprintf("depth_%d", depth)
			if count, ok := score.Breakdown[key]; ok {
				fmt.Printf("  depth %d: %d elements\n", depth, count)
			}
		}
	}

	// Affected elements
	if len(analysis.AffectedElements) > 0 {
		fmt.Println()
		fmt.Println("Affected:")
		limit := 15
		if format == "full" {
			limit = len(analysis.AffectedElements)
		}
		for i, el := range analysis.AffectedElements {
			if i >= limit {
				fmt.Printf("  ... and %d more (use --format full)\n", len(analysis.AffectedElements)-limit)
				break
			}
			fmt.Printf("  %s %s  %s:%d  (depth %d)\n", ux.IconArrow, el.Name, el.File, el.Line, el.Depth)
		}
	}

	// Full markdown report
	if format == "full" && analysis.Report != "" {
		fmt.Println()
		fmt.Println(analysis.Report)
	}
}
