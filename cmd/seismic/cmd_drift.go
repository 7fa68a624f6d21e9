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
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/SeismicAI/SeismicFOSS/services/engine/drift"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	// Source selection flags
	driftStaged bool
	driftBranch string
	driftPatch  string

	// Output flags
	driftWrite bool
	driftJSON  bool
	driftQuiet bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Show which files have changed",
	Long: `Show the changed files that impact analysis and test narrowing use.

By default the drift chain is consulted: an explicit
.seismic/drift.json report first, then the git working tree. Flags
pin a single source instead.

Source Modes:
  (default)    .seismic/drift.json, then git working tree
  --staged     Staged changes only (git diff --cached)
  --branch     Changes since a base branch (e.g., main)
  --patch      Files named in a unified diff

Examples:
  seismic drift
  seismic drift --staged
  seismic drift --branch main
  seismic drift --patch changes.patch
  seismic drift --branch main --write   # materialize .seismic/drift.json

Exit Codes:
  0 = Changed files resolved (possibly none)
  2 = Error (no usable source, git failure, bad patch)`,
	Args: cobra.NoArgs,
	Run:  runDriftCommand,
}

func init() {
	// Source selection flags
	driftCmd.Flags().BoolVar(&driftStaged, "staged", false,
		"Read staged changes (git diff --cached)")
	driftCmd.Flags().StringVar(&driftBranch, "branch", "",
		"Read changes since branch point (e.g., main)")
	driftCmd.Flags().StringVar(&driftPatch, "patch", "",
		"Read changed files from a unified diff")

	// Output flags
	driftCmd.Flags().BoolVar(&driftWrite, "write", false,
		"Write the result to .seismic/drift.json")
	driftCmd.Flags().BoolVar(&driftJSON, "json", false,
		"Output as JSON for scripting")
	driftCmd.Flags().BoolVar(&driftQuiet, "quiet", false,
		"Only exit code, no output")

	// Add to root
	rootCmd.AddCommand(driftCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runDriftCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Validate only one source specified
	modeCount := 0
	if driftStaged {
		modeCount++
	}
	if driftBranch != "" {
		modeCount++
	}
	if driftPatch != "" {
		modeCount++
	}
	if modeCount > 1 {
		outputDriftError("Multiple sources specified; use only one of --staged, --branch, or --patch", nil)
		os.Exit(CLIExitError)
	}

	root, err := resolveProjectRoot()
	if err != nil {
		outputDriftError("Failed to resolve project root", err)
		os.Exit(CLIExitError)
	}

	var (
		sources []drift.Source
		names   []string
	)
	switch {
	case driftStaged:
		sources = []drift.Source{drift.NewGitSource(root, drift.WithGitMode(drift.GitModeStaged))}
		names = []string{"git:staged"}
	case driftBranch != "":
		sources = []drift.Source{drift.NewGitSource(root,
			drift.WithGitMode(drift.GitModeBranch),
			drift.WithBaseBranch(driftBranch))}
		names = []string{"git:branch"}
	case driftPatch != "":
		sources = []drift.Source{drift.NewPatchSource(driftPatch)}
		names = []string{"patch"}
	default:
		sources = driftSources(root)
		names = []string{"drift.json", "git:working"}
	}

	var (
		files    []string
		source   string
		resolved bool
	)
	for i, src := range sources {
		f, ok, srcErr := src.ChangedFiles(ctx)
		if srcErr != nil {
			// An explicitly requested source failing is fatal; a
			// default chain member failing falls through.
			if modeCount > 0 {
				outputDriftError("Drift detection failed", srcErr)
				os.Exit(CLIExitError)
			}
			slog.Debug("Drift source failed, trying next", "source", names[i], "error", srcErr)
			continue
		}
		if ok {
			files, source, resolved = f, names[i], true
			break
		}
	}
	if !resolved {
		outputDriftError("No usable change source",
			fmt.Errorf("no .seismic/drift.json and not a git repository"))
		os.Exit(CLIExitError)
	}

	result := DriftResult{Source: source, ChangedFiles: files}

	if driftWrite {
		path, werr := writeDriftReport(root, files)
		if werr != nil {
			outputDriftError("Failed to write drift report", werr)
			os.Exit(CLIExitError)
		}
		result.Written = path
	}

	// Output
	if !driftQuiet {
		if driftJSON {
			outputDriftJSON(result)
		} else {
			outputDriftText(result)
		}
	}
	os.Exit(CLIExitSuccess)
}

// writeDriftReport materializes the changed set as
// .seismic/drift.json, the same file the drift chain reads first.
// Pinning a set this way makes later runs reproducible regardless of
// what the working tree does next.
func writeDriftReport(root string, files []string) (string, error) {
	if files == nil {
		files = []string{}
	}
	report := struct {
		ChangedFiles []string `json:"changed_files"`
	}{ChangedFiles: files}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode drift report: %w", err)
	}

	path := filepath.Join(root, filepath.FromSlash(drift.DefaultDriftPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputDriftError(msg string, err error) {
	if driftJSON {
		result := map[string]interface{}{
			"success": false,
			"error":   msg,
		}
		if err != nil {
			result["error"] = fmt.Sprintf("%s: %v", msg, err)
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(result)
	} else {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		}
	}
}

func outputDriftJSON(result DriftResult) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(CLIExitError)
	}
}

func outputDriftText(result DriftResult) {
	fmt.Printf("Source: %s\n", result.Source)
	fmt.Printf("Changed Files: %d\n", len(result.ChangedFiles))
	for _, f := range result.ChangedFiles {
		fmt.Printf("  %s\n", f)
	}
	if result.Written != "" {
		fmt.Println()
		fmt.Printf("Wrote %s\n", result.Written)
	}
}
