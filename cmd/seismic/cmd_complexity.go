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
	"github.com/SeismicAI/SeismicFOSS/services/engine/complexity"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	complexityJSON    bool
	complexityQuiet   bool
	complexityTimeout int
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var complexityCmd = &cobra.Command{
	Use:   "complexity <element> [element...]",
	Short: "Estimate modification complexity for elements",
	Long: `Estimate how complex modifying the named elements would be.

Scores combine parameter count, outgoing calls, dependency fan-out,
and inbound callers from the element index. One element produces a
single estimate; several produce a task-level aggregate with a risk
distribution and the high-complexity outliers called out.

Examples:
  seismic complexity validate_payment
  seismic complexity validate_payment process_refund notify_user
  seismic complexity PaymentService.process --json

Exit Codes:
  0 = Estimated
  1 = High or critical complexity found
  2 = Error (element not found, corrupt index)`,
	Args: cobra.MinimumNArgs(1),
	Run:  runComplexityCommand,
}

func init() {
	complexityCmd.Flags().BoolVar(&complexityJSON, "json", false,
		"Output as JSON for scripting")
	complexityCmd.Flags().BoolVar(&complexityQuiet, "quiet", false,
		"Only exit code, no output")
	complexityCmd.Flags().IntVar(&complexityTimeout, "timeout", 60,
		"Estimation timeout in seconds")

	// Add to root
	rootCmd.AddCommand(complexityCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runComplexityCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(complexityTimeout)*time.Second)
	defer cancel()

	root, err := resolveProjectRoot()
	if err != nil {
		outputComplexityError("Failed to resolve project root", err)
		os.Exit(CLIExitError)
	}

	estimator := complexity.NewEstimator(newIndexLoader(root))

	// A single element gets the focused estimate; several get the
	// task aggregate.
	if len(args) == 1 {
		estimate, err := estimator.EstimateElement(ctx, args[0])
		if err != nil {
			outputComplexityError("Complexity estimation failed", err)
			os.Exit(CLIExitError)
		}
		if !complexityQuiet {
			if complexityJSON {
				outputComplexityJSON(estimate)
			} else {
				outputEstimateText(estimate)
			}
		}
		if isHighComplexity(estimate.RiskLevel) {
			os.Exit(CLIExitFindings)
		}
		os.Exit(CLIExitSuccess)
	}

	task, err := estimator.EstimateTask(ctx, args)
	if err != nil {
		outputComplexityError("Complexity estimation failed", err)
		os.Exit(CLIExitError)
	}
	if !complexityQuiet {
		if complexityJSON {
			outputComplexityJSON(task)
		} else {
			outputTaskText(task)
		}
	}
	if len(task.HighComplexityElements) > 0 {
		os.Exit(CLIExitFindings)
	}
	os.Exit(CLIExitSuccess)
}

func isHighComplexity(level complexity.RiskLevel) bool {
	return level == complexity.RiskHigh || level == complexity.RiskCritical
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputComplexityError(msg string, err error) {
	if complexityJSON {
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

func outputComplexityJSON(data interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(CLIExitError)
	}
}

func outputEstimateText(est *complexity.Estimate) {
	fmt.Printf("Complexity: %s\n", est.ElementName)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	fmt.Printf("Score:          %d %s\n", est.ComplexityScore, ux.RiskBadge(string(est.RiskLevel)))
	fmt.Printf("Estimated LOC:  %d\n", est.EstimatedLOC)
	fmt.Printf("Parameters:     %d\n", est.ParameterCount)
	fmt.Printf("Outgoing calls: %d\n", est.CallsCount)

	if len(est.Factors) > 0 {
		fmt.Println()
		fmt.Println("Factors:")
		for _, f := range est.Factors {
			fmt.Printf("  %s %s\n", ux.IconBullet, f)
		}
	}
}

func outputTaskText(task *complexity.TaskEstimate) {
	fmt.Printf("Task Complexity: %d elements\n", len(task.Elements))
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	fmt.Printf("Average score:  %.1f\n", task.AverageComplexity)
	fmt.Printf("Max score:      %d\n", task.MaxComplexity)
	fmt.Printf("Estimated LOC:  %d\n", task.TotalEstimatedLOC)

	if len(task.RiskDistribution) > 0 {
		fmt.Println()
		fmt.Println("Risk Distribution:")
		for _, level := range []complexity.RiskLevel{
			complexity.RiskLow, complexity.RiskMedium,
			complexity.RiskHigh, complexity.RiskCritical,
		} {
			if count, ok := task.RiskDistribution[level]; ok {
				fmt.Printf("  %-10s %d\n", level, count)
			}
		}
	}

	if len(task.HighComplexityElements) > 0 {
		fmt.Println()
		fmt.Println("High Complexity:")
		for _, name := range task.HighComplexityElements {
			fmt.Printf("  %s %s\n", ux.IconWarning, name)
		}
	}

	if len(task.MissingElements) > 0 {
		fmt.Println()
		fmt.Println("Not In Index:")
		for _, name := range task.MissingElements {
			fmt.Printf("  %s %s\n", ux.IconSkipped, name)
		}
	}
}
