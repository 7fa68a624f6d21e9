// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runner executes a project's test suite through a framework
// adapter and normalizes the outcome into one unified result shape.
//
// # Description
//
// The runner never reports expected failures as Go errors. A missing
// tool, a killed subprocess, unparseable reporter output: all of
// these land in Results.Error so callers serialize one shape for
// every outcome. RunTests returns a non-nil error only for contract
// violations such as a nil context or an invalid request.
//
// # Thread Safety
//
// A Runner is safe for concurrent use. Per-project exclusivity across
// processes is handled by an advisory file lock when enabled.
package runner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/SeismicAI/SeismicFOSS/services/engine/drift"
	"github.com/SeismicAI/SeismicFOSS/services/engine/frameworks"
	"github.com/SeismicAI/SeismicFOSS/services/engine/selector"
)

// Runner executes test suites.
type Runner struct {
	config   *Config
	detector *frameworks.Detector
	sel      *selector.Selector
	driftSrc drift.Source
	logger   *slog.Logger

	// lookPath and run are swapped out in tests so no framework
	// binary is required.
	lookPath func(string) (string, error)
	run      commandFunc
}

// Option customizes a Runner.
type Option func(*Runner)

// WithConfig sets the runner configuration.
func WithConfig(cfg *Config) Option {
	return func(r *Runner) {
		if cfg != nil {
			r.config = cfg
		}
	}
}

// WithDetector sets the framework detector used when a request does
// not pin a framework.
func WithDetector(d *frameworks.Detector) Option {
	return func(r *Runner) {
		r.detector = d
	}
}

// WithSelector sets the test file selector used for narrowing.
func WithSelector(s *selector.Selector) Option {
	return func(r *Runner) {
		r.sel = s
	}
}

// WithDriftSource sets the changed-file source consulted when a
// narrowing request carries no explicit file list. Without one,
// narrowing falls back to the full suite.
func WithDriftSource(src drift.Source) Option {
	return func(r *Runner) {
		r.driftSrc = src
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner builds a Runner with production defaults.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		config:   DefaultConfig(),
		logger:   slog.Default(),
		lookPath: exec.LookPath,
		run:      runSubprocess,
	}
	for _, opt := range opts {
		opt(r)
	}
	_ = r.config.Validate()
	if r.detector == nil {
		r.detector = frameworks.NewDetector(frameworks.WithLogger(r.logger))
	}
	if r.sel == nil {
		r.sel = selector.NewSelector(selector.WithLogger(r.logger))
	}
	r.logger = r.logger.With("component", "runner")
	return r
}

// RunTests executes the test run described by req.
//
// # Description
//
// The framework is the request's, or detected from project markers
// when unset. An undetectable framework yields an empty, error-free
// result: nothing to run is not a failure. All expected failures
// (missing tool, timeout, unparseable output, concurrent run) are
// reported inside Results.Error.
//
// # Inputs
//
//   - ctx: Context for cancellation. Must not be nil.
//   - req: Run description. Must not be nil; defaults are filled in.
//
// # Outputs
//
//   - *Results: Always non-nil when error is nil.
//   - error: Non-nil only for contract violations.
func (r *Runner) RunTests(ctx context.Context, req *Request) (*Results, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := startRunSpan(ctx, req.ProjectPath, requestedFramework(req))
	defer span.End()

	start := time.Now()
	results := r.execute(ctx, req)
	setRunSpanResult(span, results)
	recordRunMetrics(ctx, time.Since(start), results)
	return results, nil
}

// requestedFramework is the span attribute before resolution.
func requestedFramework(req *Request) string {
	if req.Framework != "" {
		return req.Framework
	}
	return "auto"
}

func (r *Runner) execute(ctx context.Context, req *Request) *Results {
	fw := r.resolveFramework(req)
	if fw == frameworks.Unknown {
		r.logger.Warn("no test framework detected", "project", req.ProjectPath)
		return newResults(req.ProjectPath, frameworks.Unknown, nil, 0, nil)
	}

	ad := adapterFor(fw)
	if ad == nil {
		return newResults(req.ProjectPath, fw, nil, 0,
			newRunError(KindInternal, "no adapter registered for framework %q", fw))
	}

	if r.config.LockRuns {
		lock, err := acquireRunLock(req.ProjectPath)
		switch {
		case errors.Is(err, ErrRunInProgress):
			return newResults(req.ProjectPath, fw, nil, 0,
				newRunError(KindInternal, "%v", err))
		case err != nil:
			// The lock is advisory. Infrastructure failures
			// (read-only project dir, exotic filesystems) should
			// not block the run itself.
			r.logger.Warn("run lock unavailable, continuing unlocked", "error", err)
		default:
			defer lock.release()
		}
	}

	files := r.narrowTests(ctx, req)

	inv := ad.buildInvocation(req, files)
	if _, err := r.lookPath(inv.command); err != nil {
		return newResults(req.ProjectPath, fw, nil, 0,
			newRunError(KindToolMissing, "%s not found on PATH", inv.command))
	}

	if inv.artifact != "" {
		artifactPath := filepath.Join(req.ProjectPath, inv.artifact)
		defer func() {
			if err := os.Remove(artifactPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				r.logger.Warn("could not remove reporter artifact",
					"path", artifactPath, "error", err)
			}
		}()
	}

	r.logger.Info("running tests",
		"framework", fw,
		"command", inv.command,
		"narrowed", len(files) > 0,
		"timeout_seconds", req.TimeoutSeconds)

	res := r.run(ctx, req.ProjectPath, req.Timeout(), r.config.MaxOutputBytes, inv.command, inv.args...)

	if res.timedOut {
		r.logger.Warn("test run timed out", "framework", fw, "timeout_seconds", req.TimeoutSeconds)
		return newResults(req.ProjectPath, fw, nil, res.duration,
			newRunError(KindTimeout, "test run exceeded %d seconds and was killed", req.TimeoutSeconds))
	}
	if res.startErr != nil {
		return newResults(req.ProjectPath, fw, nil, res.duration,
			newRunError(KindInternal, "failed to execute %s: %v", inv.command, res.startErr))
	}
	if res.truncated {
		r.logger.Warn("subprocess output truncated", "limit_bytes", r.config.MaxOutputBytes)
	}

	tests, parseErr := ad.parseOutput(res, r.readArtifact(req.ProjectPath, inv.artifact))
	if parseErr != nil {
		// Partial results stay in the payload; the error records
		// that the stream broke somewhere.
		return newResults(req.ProjectPath, fw, tests, res.duration,
			newRunError(KindParseError, "%v", parseErr))
	}

	results := newResults(req.ProjectPath, fw, tests, res.duration, nil)
	r.logger.Info("test run complete",
		"framework", fw,
		"total", results.Summary.Total,
		"passed", results.Summary.Passed,
		"failed", results.Summary.Failed,
		"success_rate", results.Summary.SuccessRate)
	return results
}

// resolveFramework returns the request's pinned framework or falls
// back to detection. Validate has already vetted a pinned name, so a
// parse failure here cannot happen.
func (r *Runner) resolveFramework(req *Request) frameworks.Framework {
	if req.Framework != "" {
		fw, err := frameworks.Parse(req.Framework)
		if err != nil {
			return frameworks.Unknown
		}
		return fw
	}
	return r.detector.DetectDefault(req.ProjectPath)
}

// narrowTests computes the impacted test file list, or nil for the
// full suite. Narrowing only engages when the request opted in and
// set no explicit scope of its own. Every failure path here degrades
// to the full suite; narrowing is an optimization, never a gate.
func (r *Runner) narrowTests(ctx context.Context, req *Request) []string {
	if !req.UseImpactAnalysis || req.TestFile != "" || req.TestPattern != "" {
		return nil
	}

	changed := req.ChangedFiles
	if len(changed) == 0 && r.driftSrc != nil {
		var ok bool
		var err error
		changed, ok, err = r.driftSrc.ChangedFiles(ctx)
		if err != nil {
			r.logger.Warn("drift source failed, running full suite", "error", err)
			return nil
		}
		if !ok {
			r.logger.Debug("no drift data, running full suite")
			return nil
		}
	}
	if len(changed) == 0 {
		return nil
	}

	selected, ok := r.sel.SelectTestFiles(req.ProjectPath, changed)
	if !ok {
		return nil
	}
	r.logger.Info("narrowed run to impacted tests",
		"changed_files", len(changed), "selected_tests", len(selected))
	return selected
}

// readArtifact loads the reporter artifact when one was declared.
// Missing artifacts are normal for runs that died before reporting.
func (r *Runner) readArtifact(projectPath, artifact string) []byte {
	if artifact == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(projectPath, artifact))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("could not read reporter artifact", "path", artifact, "error", err)
		}
		return nil
	}
	return data
}
