// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SeismicAI/SeismicFOSS/services/engine/frameworks"
)

// jestReport is the subset of the jest JSON reporter schema the
// runner reads. Vitest's json reporter emits the same shape.
type jestReport struct {
	TestResults []struct {
		Name             string `json:"name"`
		AssertionResults []struct {
			Title    string   `json:"title"`
			FullName string   `json:"fullName"`
			Status   string   `json:"status"`
			Duration *float64 `json:"duration"` // milliseconds
		} `json:"assertionResults"`
	} `json:"testResults"`
}

// jestStatus normalizes a jest or vitest assertion status. The
// not-run family (pending, todo, disabled, skipped) all collapse to
// skipped.
func jestStatus(s string) Status {
	switch s {
	case "passed":
		return StatusPassed
	case "failed":
		return StatusFailed
	default:
		return StatusSkipped
	}
}

// jestAdapter runs jest via npx with the JSON reporter writing to a
// per-run artifact, keeping reporter output separate from whatever
// the suite itself prints.
type jestAdapter struct{}

func (jestAdapter) buildInvocation(req *Request, files []string) invocation {
	name := artifactName(frameworks.Jest)
	args := []string{"jest", "--json", "--outputFile", name}
	if req.Verbose {
		args = append(args, "--verbose")
	}
	switch {
	case len(files) > 0:
		args = append(args, files...)
	case req.TestFile != "":
		args = append(args, req.TestFile)
	case req.TestPattern != "":
		args = append(args, "--testNamePattern", req.TestPattern)
	}
	return invocation{command: "npx", args: args, artifact: name}
}

func (jestAdapter) parseOutput(res *commandResult, artifact []byte) ([]TestResult, error) {
	return parseJestJSON(artifact, res.stdout)
}

// vitestAdapter runs vitest in single-pass mode with its
// jest-compatible json reporter.
type vitestAdapter struct{}

func (vitestAdapter) buildInvocation(req *Request, files []string) invocation {
	name := artifactName(frameworks.Vitest)
	args := []string{"vitest", "run", "--reporter=json", "--outputFile", name}
	switch {
	case len(files) > 0:
		args = append(args, files...)
	case req.TestFile != "":
		args = append(args, req.TestFile)
	case req.TestPattern != "":
		args = append(args, "-t", req.TestPattern)
	}
	return invocation{command: "npx", args: args, artifact: name}
}

func (vitestAdapter) parseOutput(res *commandResult, artifact []byte) ([]TestResult, error) {
	return parseJestJSON(artifact, res.stdout)
}

// parseJestJSON decodes a jest-schema report, preferring the artifact
// and falling back to stdout when the reporter wrote there instead.
func parseJestJSON(artifact []byte, stdout string) ([]TestResult, error) {
	data := bytes.TrimSpace(artifact)
	if len(data) == 0 {
		data = bytes.TrimSpace([]byte(stdout))
	}
	if len(data) == 0 {
		return nil, errors.New("reporter produced no output")
	}

	var report jestReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("reporter output is not valid JSON: %w", err)
	}

	var tests []TestResult
	for _, fileResult := range report.TestResults {
		for _, a := range fileResult.AssertionResults {
			name := a.FullName
			if name == "" {
				name = a.Title
			}
			var duration float64
			if a.Duration != nil {
				duration = *a.Duration / 1000
			}
			tests = append(tests, TestResult{
				Name:     name,
				Status:   jestStatus(a.Status),
				Duration: duration,
				File:     fileResult.Name,
			})
		}
	}
	return tests, nil
}
