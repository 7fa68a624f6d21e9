// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine composes the Seismic engine behind one HTTP-ready
// service: element index loading, impact analysis, complexity
// estimation, framework detection, impact-narrowed test selection,
// test execution, and run history.
//
// The service exposes endpoints for:
//   - Analyzing the blast radius of an element change
//   - Estimating element and task complexity
//   - Detecting test frameworks and selecting impacted tests
//   - Running tests and browsing recorded run history
package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SeismicAI/SeismicFOSS/services/engine/complexity"
	"github.com/SeismicAI/SeismicFOSS/services/engine/drift"
	"github.com/SeismicAI/SeismicFOSS/services/engine/frameworks"
	"github.com/SeismicAI/SeismicFOSS/services/engine/history"
	"github.com/SeismicAI/SeismicFOSS/services/engine/impact"
	"github.com/SeismicAI/SeismicFOSS/services/engine/index"
	"github.com/SeismicAI/SeismicFOSS/services/engine/runner"
	"github.com/SeismicAI/SeismicFOSS/services/engine/selector"
	"golang.org/x/sync/singleflight"
)

// Default configuration values.
const (
	// DefaultMaxCachedProjects bounds how many per-project engine
	// bundles stay resident before least-recently-used eviction.
	DefaultMaxCachedProjects = 8

	// DefaultHistoryKeep is the per-project run history retention
	// budget applied after each recorded run.
	DefaultHistoryKeep = 200
)

// Config configures the engine service.
type Config struct {
	// MaxCachedProjects is the maximum number of per-project engine
	// bundles to keep resident. Default: DefaultMaxCachedProjects
	MaxCachedProjects int

	// HistoryKeep is the number of history entries retained per
	// project after a recorded run; older entries are pruned. Zero
	// disables pruning. Default: DefaultHistoryKeep
	HistoryKeep int

	// AllowedRoots is an optional list of allowed project root
	// prefixes. If empty, all absolute paths are allowed. Security
	// feature.
	AllowedRoots []string

	// Runner configures test execution. Default: runner.DefaultConfig()
	Runner *runner.Config
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxCachedProjects: DefaultMaxCachedProjects,
		HistoryKeep:       DefaultHistoryKeep,
		Runner:            runner.DefaultConfig(),
	}
}

// Validate clamps out-of-range values to defaults.
func (c *Config) Validate() {
	if c.MaxCachedProjects < 1 {
		c.MaxCachedProjects = DefaultMaxCachedProjects
	}
	if c.HistoryKeep < 0 {
		c.HistoryKeep = DefaultHistoryKeep
	}
	if c.Runner == nil {
		c.Runner = runner.DefaultConfig()
	}
}

// Service is the Seismic engine service.
//
// # Description
//
// A Service binds the stateless components (detector, selector,
// runner) once and builds the index-bound components (loader,
// analyzer, estimator, history store) per project root on first use.
// Project bundles are cached and evicted least-recently-used once
// MaxCachedProjects is exceeded.
//
// # Thread Safety
//
// Service is safe for concurrent use. Concurrent test runs for the
// same project root coalesce into one physical run. Eviction closes
// the evicted project's history store, so a request racing the
// eviction of its own project may observe history.ErrStoreClosed.
type Service struct {
	config   Config
	detector *frameworks.Detector
	sel      *selector.Selector
	runner   *runner.Runner
	logger   *slog.Logger

	// baseLogger is the untagged logger handed to per-project
	// components, which tag themselves.
	baseLogger *slog.Logger

	mu       sync.RWMutex
	projects map[string]*projectEngine

	// runGroup coalesces concurrent test runs per project root.
	runGroup singleflight.Group

	// historyConfig builds the per-project history store config.
	// Swapped out in tests for in-memory stores.
	historyConfig func(projectRoot string) history.Config

	closed atomic.Bool
}

// Option customizes service construction.
type Option func(*Service)

// WithConfig sets the service configuration.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithDetector sets the framework detector.
func WithDetector(d *frameworks.Detector) Option {
	return func(s *Service) {
		s.detector = d
	}
}

// WithSelector sets the test file selector.
func WithSelector(sel *selector.Selector) Option {
	return func(s *Service) {
		s.sel = sel
	}
}

// WithRunner sets the test runner.
func WithRunner(r *runner.Runner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithLogger sets the logger for service diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates an engine service with production defaults.
func NewService(opts ...Option) *Service {
	s := &Service{
		config:   DefaultConfig(),
		logger:   slog.Default(),
		projects: make(map[string]*projectEngine),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.config.Validate()

	s.baseLogger = s.logger
	if s.detector == nil {
		s.detector = frameworks.NewDetector(frameworks.WithLogger(s.baseLogger))
	}
	if s.sel == nil {
		s.sel = selector.NewSelector(selector.WithLogger(s.baseLogger))
	}
	if s.runner == nil {
		s.runner = runner.NewRunner(
			runner.WithConfig(s.config.Runner),
			runner.WithDetector(s.detector),
			runner.WithSelector(s.sel),
			runner.WithLogger(s.baseLogger),
		)
	}
	if s.historyConfig == nil {
		s.historyConfig = history.DefaultConfig
	}
	s.logger = s.logger.With("component", "engine.service")
	return s
}

// =============================================================================
// Per-Project Engine Cache
// =============================================================================

// projectEngine bundles the index-bound components for one project.
type projectEngine struct {
	root      string
	loader    *index.Loader
	analyzer  *impact.Analyzer
	estimator *complexity.Estimator

	// The history store opens lazily so analysis-only callers never
	// touch BadgerDB.
	historyOnce sync.Once
	history     *history.Store
	historyErr  error

	lastUsedMilli atomic.Int64
}

// touch marks the engine as recently used.
func (p *projectEngine) touch() {
	p.lastUsedMilli.Store(time.Now().UnixMilli())
}

// historyStore opens the project's history store on first use.
func (p *projectEngine) historyStore(build func(string) history.Config) (*history.Store, error) {
	p.historyOnce.Do(func() {
		p.history, p.historyErr = history.Open(build(p.root))
	})
	return p.history, p.historyErr
}

// closeHistory closes the history store if open and pins the open
// slot so an evicted engine cannot open a fresh store afterwards.
func (p *projectEngine) closeHistory() error {
	p.historyOnce.Do(func() {
		p.historyErr = history.ErrStoreClosed
	})
	if p.history != nil {
		return p.history.Close()
	}
	return nil
}

// engineFor returns the cached engine for the project, building one
// on first use.
func (s *Service) engineFor(projectPath string) (*projectEngine, error) {
	if s.closed.Load() {
		return nil, ErrServiceClosed
	}
	if err := s.validateProjectRoot(projectPath); err != nil {
		return nil, err
	}
	root := filepath.Clean(projectPath)

	s.mu.RLock()
	eng, ok := s.projects[root]
	s.mu.RUnlock()
	if ok {
		eng.touch()
		return eng, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if eng, ok := s.projects[root]; ok {
		eng.touch()
		return eng, nil
	}

	loader := index.NewLoader(
		index.WithPath(filepath.Join(root, index.DefaultIndexPath)),
		index.WithLogger(s.baseLogger),
	)
	eng = &projectEngine{
		root:      root,
		loader:    loader,
		analyzer:  impact.NewAnalyzer(loader, impact.WithLogger(s.baseLogger)),
		estimator: complexity.NewEstimator(loader, complexity.WithLogger(s.baseLogger)),
	}
	eng.touch()
	s.projects[root] = eng
	s.evictLocked()

	s.logger.Debug("created project engine", "project", root)
	return eng, nil
}

// evictLocked removes least-recently-used engines while over
// capacity. Caller must hold the write lock.
func (s *Service) evictLocked() {
	for len(s.projects) > s.config.MaxCachedProjects {
		var oldestRoot string
		var oldestMilli int64
		for root, eng := range s.projects {
			if m := eng.lastUsedMilli.Load(); oldestRoot == "" || m < oldestMilli {
				oldestMilli = m
				oldestRoot = root
			}
		}
		eng := s.projects[oldestRoot]
		delete(s.projects, oldestRoot)
		if err := eng.closeHistory(); err != nil {
			s.logger.Warn("failed to close evicted history store",
				"project", oldestRoot, "error", err)
		}
		s.logger.Debug("evicted project engine", "project", oldestRoot)
	}
}

// validateProjectRoot validates a project root path.
func (s *Service) validateProjectRoot(projectRoot string) error {
	// Must be absolute
	if !filepath.IsAbs(projectRoot) {
		return ErrRelativePath
	}

	// No path traversal
	if strings.Contains(projectRoot, "..") {
		return ErrPathTraversal
	}

	info, err := os.Stat(projectRoot)
	if err != nil || !info.IsDir() {
		return ErrProjectNotFound
	}

	// Resolve symlinks and check against the allowlist if configured
	if len(s.config.AllowedRoots) > 0 {
		resolved, err := filepath.EvalSymlinks(projectRoot)
		if err != nil {
			return ErrProjectNotFound
		}
		allowed := false
		for _, root := range s.config.AllowedRoots {
			if strings.HasPrefix(resolved, root) {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrRootNotAllowed
		}
	}

	return nil
}

// =============================================================================
// Impact and Complexity Operations
// =============================================================================

// AnalyzeImpact runs the composite impact analysis for one element.
//
// # Outputs
//
//   - *impact.Analysis: Affected elements, score, and rendered report.
//   - error: Path validation errors, impact.ErrElementNotFound, or an
//     index load failure.
func (s *Service) AnalyzeImpact(ctx context.Context, projectPath, elementName string, maxDepth int) (*impact.Analysis, error) {
	eng, err := s.engineFor(projectPath)
	if err != nil {
		return nil, err
	}
	return eng.analyzer.AnalyzeElement(ctx, elementName, maxDepth)
}

// Traverse walks the relationship graph from one element and returns
// the affected elements in breadth-first order.
func (s *Service) Traverse(ctx context.Context, projectPath, elementName string, opts impact.TraverseOptions) ([]impact.AffectedElement, error) {
	eng, err := s.engineFor(projectPath)
	if err != nil {
		return nil, err
	}
	return eng.analyzer.Traverse(ctx, elementName, opts)
}

// EstimateElement returns the complexity estimate for one element.
func (s *Service) EstimateElement(ctx context.Context, projectPath, elementName string) (*complexity.Estimate, error) {
	eng, err := s.engineFor(projectPath)
	if err != nil {
		return nil, err
	}
	return eng.estimator.EstimateElement(ctx, elementName)
}

// EstimateTask aggregates complexity estimates across the elements a
// task touches. Names missing from the index are reported, not fatal.
func (s *Service) EstimateTask(ctx context.Context, projectPath string, elementNames []string) (*complexity.TaskEstimate, error) {
	eng, err := s.engineFor(projectPath)
	if err != nil {
		return nil, err
	}
	return eng.estimator.EstimateTask(ctx, elementNames)
}

// =============================================================================
// Framework and Selection Operations
// =============================================================================

// DetectFrameworks probes the project for test framework markers,
// ordered by confidence descending. An empty result is a valid
// project state, not an error.
func (s *Service) DetectFrameworks(projectPath string) ([]frameworks.Info, error) {
	if s.closed.Load() {
		return nil, ErrServiceClosed
	}
	if err := s.validateProjectRoot(projectPath); err != nil {
		return nil, err
	}
	return s.detector.Detect(filepath.Clean(projectPath)), nil
}

// SelectTests maps changed files to existing test files.
//
// # Description
//
// When changed is empty the project's drift sources are consulted in
// priority order: the drift report file first, the git working tree
// second. A selection with FullSuite true means narrowing was not
// possible and the whole suite should run.
func (s *Service) SelectTests(ctx context.Context, projectPath string, changed []string) (*Selection, error) {
	if s.closed.Load() {
		return nil, ErrServiceClosed
	}
	if err := s.validateProjectRoot(projectPath); err != nil {
		return nil, err
	}
	root := filepath.Clean(projectPath)

	if len(changed) == 0 {
		changed = s.changedFiles(ctx, root)
	}

	files, ok := s.sel.SelectTestFiles(root, changed)
	sel := &Selection{
		TestFiles:    files,
		FullSuite:    !ok,
		ChangedFiles: changed,
	}
	if sel.TestFiles == nil {
		sel.TestFiles = []string{}
	}
	if sel.ChangedFiles == nil {
		sel.ChangedFiles = []string{}
	}
	return sel, nil
}

// changedFiles consults the project's drift sources in priority
// order. Source errors are soft: the next source is tried.
func (s *Service) changedFiles(ctx context.Context, root string) []string {
	sources := []drift.Source{
		drift.NewFileSource(root, drift.WithFileLogger(s.baseLogger)),
		drift.NewGitSource(root, drift.WithGitLogger(s.baseLogger)),
	}
	for _, src := range sources {
		files, ok, err := src.ChangedFiles(ctx)
		if err != nil {
			s.logger.Warn("drift source failed, trying next",
				"project", root, "error", err)
			continue
		}
		if ok {
			return files
		}
	}
	return nil
}

// =============================================================================
// Run and History Operations
// =============================================================================

// RunTests executes a test run for the request's project.
//
// # Description
//
// Concurrent calls for the same project root coalesce into a single
// physical run whose results every caller receives. Completed runs
// are recorded in the project's history store; recording failures
// degrade to a log entry, never to a failed run.
//
// # Outputs
//
//   - *RunRecord: Results plus the history entry ID when recorded.
//   - error: Contract and validation failures only; run failures are
//     carried inside Results per the runner contract.
func (s *Service) RunTests(ctx context.Context, req *runner.Request) (*RunRecord, error) {
	if ctx == nil {
		return nil, runner.ErrNilContext
	}
	if req == nil {
		return nil, runner.ErrNilRequest
	}
	eng, err := s.engineFor(req.ProjectPath)
	if err != nil {
		return nil, err
	}
	// Validate before coalescing so an invalid request fails its own
	// caller instead of piggybacking on a valid concurrent run.
	if err := req.Validate(); err != nil {
		return nil, err
	}

	v, err, shared := s.runGroup.Do(eng.root, func() (any, error) {
		return s.executeRun(ctx, eng, req)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("coalesced concurrent test run", "project", eng.root)
	}
	return v.(*RunRecord), nil
}

// executeRun performs the physical run and records it.
func (s *Service) executeRun(ctx context.Context, eng *projectEngine, req *runner.Request) (*RunRecord, error) {
	run := *req
	run.ProjectPath = eng.root
	if run.UseImpactAnalysis && len(run.ChangedFiles) == 0 &&
		run.TestFile == "" && run.TestPattern == "" {
		run.ChangedFiles = s.changedFiles(ctx, eng.root)
	}

	results, err := s.runner.RunTests(ctx, &run)
	if err != nil {
		return nil, err
	}
	record := &RunRecord{Results: *results}

	store, err := eng.historyStore(s.historyConfig)
	if err != nil {
		s.logger.Warn("history store unavailable, run not recorded",
			"project", eng.root, "error", err)
		return record, nil
	}
	entry, err := store.Record(ctx, results)
	if err != nil {
		s.logger.Warn("failed to record run history",
			"project", eng.root, "error", err)
		return record, nil
	}
	record.HistoryID = entry.ID

	if s.config.HistoryKeep > 0 {
		removed, err := store.Prune(ctx, s.config.HistoryKeep)
		if err != nil {
			s.logger.Warn("history prune failed",
				"project", eng.root, "error", err)
		} else if removed > 0 {
			s.logger.Debug("pruned run history",
				"project", eng.root, "removed", removed)
		}
	}
	return record, nil
}

// History lists the project's recorded runs, newest first. limit <= 0
// returns every entry.
func (s *Service) History(ctx context.Context, projectPath string, limit int) ([]*history.Entry, error) {
	eng, err := s.engineFor(projectPath)
	if err != nil {
		return nil, err
	}
	store, err := eng.historyStore(s.historyConfig)
	if err != nil {
		return nil, err
	}
	return store.List(ctx, limit)
}

// HistoryEntry returns one recorded run by entry ID.
func (s *Service) HistoryEntry(ctx context.Context, projectPath, id string) (*history.Entry, error) {
	eng, err := s.engineFor(projectPath)
	if err != nil {
		return nil, err
	}
	store, err := eng.historyStore(s.historyConfig)
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, id)
}

// =============================================================================
// Lifecycle
// =============================================================================

// ProjectCount returns the number of cached project engines.
func (s *Service) ProjectCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}

// Close releases every cached project engine. Subsequent operations
// return ErrServiceClosed. Close is idempotent.
func (s *Service) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for root, eng := range s.projects {
		if err := eng.closeHistory(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.projects, root)
	}
	return firstErr
}
