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
	"strings"
	"time"

	"github.com/SeismicAI/SeismicFOSS/services/engine/frameworks"
)

// Status is the normalized outcome of a single test, independent of
// which framework produced it.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
	StatusXFail   Status = "xfail"
	StatusXPass   Status = "xpass"
)

// Default values applied by Request.Validate.
const (
	// DefaultTimeoutSeconds bounds the test subprocess wall-clock time.
	DefaultTimeoutSeconds = 300

	// DefaultMaxWorkers is recorded on the request for forward
	// compatibility. The runner executes one framework invocation per
	// call and does not fan out; the field is carried, not consumed.
	DefaultMaxWorkers = 4
)

// Request describes one test run.
//
// # Description
//
// ProjectPath is the only required field. Framework, when empty, is
// resolved by marker-file detection. TestFile and TestPattern are
// explicit scope overrides; setting either disables impact narrowing
// regardless of UseImpactAnalysis.
//
// # Ownership Model
//
// The runner treats the request as read-only after Validate. Callers
// may reuse a request across runs.
type Request struct {
	// ProjectPath is the project root the framework is invoked in.
	ProjectPath string `json:"project_path" binding:"required"`

	// Framework optionally pins the framework, bypassing detection.
	// Must be one of the supported framework names when set.
	Framework string `json:"framework,omitempty"`

	// TestFile restricts the run to a single test file.
	TestFile string `json:"test_file,omitempty"`

	// TestPattern restricts the run to tests matching a name pattern,
	// in the framework's native pattern syntax.
	TestPattern string `json:"test_pattern,omitempty"`

	// TimeoutSeconds bounds the subprocess. Zero or negative values
	// are replaced with DefaultTimeoutSeconds.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	// MaxWorkers is reserved for future parallel execution. Zero or
	// negative values are replaced with DefaultMaxWorkers.
	MaxWorkers int `json:"max_workers,omitempty"`

	// Verbose asks the framework for more detailed output where the
	// framework supports it.
	Verbose bool `json:"verbose,omitempty"`

	// UseImpactAnalysis enables changed-file test narrowing. It only
	// takes effect when TestFile and TestPattern are both empty.
	UseImpactAnalysis bool `json:"use_impact_analysis,omitempty"`

	// ChangedFiles seeds narrowing directly. When empty and narrowing
	// is active, the runner falls back to its drift source.
	ChangedFiles []string `json:"changed_files,omitempty"`
}

// Validate normalizes defaults in place and reports contract
// violations. A nil-safe zero timeout becomes DefaultTimeoutSeconds
// and a zero MaxWorkers becomes DefaultMaxWorkers; an empty
// ProjectPath or an unrecognized Framework name is an error.
func (r *Request) Validate() error {
	if r == nil {
		return ErrNilRequest
	}
	if strings.TrimSpace(r.ProjectPath) == "" {
		return ErrEmptyProjectPath
	}
	if r.Framework != "" {
		if _, err := frameworks.Parse(r.Framework); err != nil {
			return err
		}
	}
	if r.TimeoutSeconds <= 0 {
		r.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if r.MaxWorkers <= 0 {
		r.MaxWorkers = DefaultMaxWorkers
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (r *Request) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// TestResult is one normalized test outcome.
type TestResult struct {
	// Name identifies the test in the framework's own addressing
	// scheme (pytest node id, jest full name, cargo test path).
	Name string `json:"name"`

	// Status is the normalized outcome.
	Status Status `json:"status"`

	// Duration is the per-test wall time in seconds. Zero when the
	// framework does not report per-test timing.
	Duration float64 `json:"duration"`

	// File is the test file when the framework reports one.
	File string `json:"file,omitempty"`
}

// Summary aggregates a run's results.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`

	// Duration is the subprocess wall-clock time in seconds.
	Duration float64 `json:"duration"`

	// SuccessRate is passed / (total - skipped) * 100. When every
	// test was skipped, or there were none, the rate is 100.0: an
	// empty run has nothing failing in it.
	SuccessRate float64 `json:"success_rate"`
}

// Results is the unified shape every run produces, regardless of
// framework or failure mode.
//
// # Description
//
// Expected failures (missing tool, timeout, unparseable output) are
// reported in Error with Tests holding whatever was salvaged, never
// as a Go error from RunTests. Tests is always non-nil so the JSON
// form carries "tests": [] rather than null.
type Results struct {
	Project   string               `json:"project"`
	Framework frameworks.Framework `json:"framework"`
	Summary   Summary              `json:"summary"`
	Tests     []TestResult         `json:"tests"`
	Error     *RunError            `json:"error,omitempty"`
}

// newResults builds a Results with the summary derived from tests.
func newResults(project string, fw frameworks.Framework, tests []TestResult, duration time.Duration, runErr *RunError) *Results {
	if tests == nil {
		tests = []TestResult{}
	}
	return &Results{
		Project:   project,
		Framework: fw,
		Summary:   newSummary(tests, duration),
		Tests:     tests,
		Error:     runErr,
	}
}

// newSummary tallies statuses. Expected-failure and unexpected-pass
// outcomes count toward Total only.
func newSummary(tests []TestResult, duration time.Duration) Summary {
	s := Summary{Total: len(tests), Duration: duration.Seconds()}
	for _, t := range tests {
		switch t.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusError:
			s.Errors++
		}
	}
	if denom := s.Total - s.Skipped; denom > 0 {
		s.SuccessRate = float64(s.Passed) / float64(denom) * 100
	} else {
		s.SuccessRate = 100.0
	}
	return s
}
