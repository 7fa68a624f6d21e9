// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package impact

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SeismicAI/SeismicFOSS/services/engine/index"
)

// adjacency maps an element name to its neighbor names for one
// traversal direction.
type adjacency map[string][]string

// Analyzer performs bounded impact traversal over the element index.
//
// # Example
//
//	loader := index.NewLoader(index.WithPath(path))
//	analyzer := impact.NewAnalyzer(loader)
//	affected, err := analyzer.Traverse(ctx, "process_payment", impact.TraverseOptions{})
type Analyzer struct {
	loader *index.Loader
	logger *slog.Logger

	// Adjacency is rebuilt when the loader serves a new snapshot
	// generation, so Reload() on the loader invalidates it for free.
	mu   sync.Mutex
	snap *index.Snapshot
	adj  map[Direction]adjacency
}

// AnalyzerOption customizes analyzer construction.
type AnalyzerOption func(*Analyzer)

// WithLogger sets the logger for traversal diagnostics.
func WithLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// NewAnalyzer creates an analyzer over the given index loader.
func NewAnalyzer(loader *index.Loader, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		loader: loader,
		adj:    make(map[Direction]adjacency),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("component", "impact.analyzer")
	return a
}

// Traverse walks the relationship graph from elementName and returns
// every element reachable within the depth bound.
//
// # Description
//
// Breadth-first search over the adjacency map for the requested
// direction. A visited set prevents revisiting and breaks cycles; each
// reached element is recorded exactly once at its minimum depth, with
// the first-discovered path as the tie-break among equal-depth routes
// (adjacency lists iterate in index file order, so results are
// deterministic for a fixed snapshot). Expansion stops at nodes whose
// depth has reached MaxDepth, but same-depth neighbors already enqueued
// are still recorded.
//
// # Inputs
//
//   - ctx: Must be non-nil.
//   - elementName: Traversal root. If absent from the index, the result
//     is an empty slice plus a logged warning, never an error.
//   - opts: Depth bound and direction; zero values mean depth 3,
//     downstream.
//
// # Outputs
//
//   - []AffectedElement: Reached elements in discovery order; empty,
//     never nil.
//   - error: ErrNilContext, ErrInvalidDirection, or an index load
//     failure.
func (a *Analyzer) Traverse(ctx context.Context, elementName string, opts TraverseOptions) ([]AffectedElement, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := startTraverseSpan(ctx, elementName, string(opts.Direction), opts.MaxDepth)
	defer span.End()

	adj, snap, err := a.adjacencyFor(ctx, opts.Direction)
	if err != nil {
		setTraverseSpanResult(span, 0, false)
		return nil, err
	}

	affected := []AffectedElement{}

	if _, ok := snap.Get(elementName); !ok {
		a.logger.Warn("element not found in index, returning empty impact",
			"element", elementName,
			"direction", opts.Direction)
		setTraverseSpanResult(span, 0, false)
		recordTraverseMetrics(ctx, time.Since(start), string(opts.Direction), string(RiskLow), 0, false)
		return affected, nil
	}

	type queueItem struct {
		name  string
		depth int
		path  []string
	}

	visited := map[string]struct{}{elementName: {}}
	queue := []queueItem{{name: elementName, depth: 0, path: []string{elementName}}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		// Stop expanding at the depth bound; neighbors already queued
		// at this depth were recorded when they were discovered.
		if item.depth >= opts.MaxDepth {
			continue
		}

		for _, neighborName := range adj[item.name] {
			if _, seen := visited[neighborName]; seen {
				continue
			}
			neighbor, ok := snap.Get(neighborName)
			if !ok {
				// Dangling edge: the index names a neighbor it does
				// not define. Skip the edge, keep the traversal.
				continue
			}
			if isExcludedPath(neighbor.File) {
				continue
			}

			visited[neighborName] = struct{}{}
			path := make([]string, len(item.path), len(item.path)+1)
			copy(path, item.path)
			path = append(path, neighborName)

			affected = append(affected, AffectedElement{
				Name:  neighborName,
				Kind:  neighbor.Kind,
				File:  neighbor.File,
				Line:  neighbor.Line,
				Depth: item.depth + 1,
				Path:  path,
			})
			queue = append(queue, queueItem{name: neighborName, depth: item.depth + 1, path: path})
		}
	}

	score := Score(affected)
	setTraverseSpanResult(span, len(affected), true)
	recordTraverseMetrics(ctx, time.Since(start), string(opts.Direction), string(score.RiskLevel), len(affected), true)

	a.logger.Debug("traversal complete",
		"element", elementName,
		"direction", opts.Direction,
		"max_depth", opts.MaxDepth,
		"affected", len(affected))

	return affected, nil
}

// AnalyzeElement runs the full impact pipeline for one element:
// downstream traversal, scoring, and report rendering.
//
// # Outputs
//
//   - *Analysis: Affected elements, score, and markdown report.
//   - error: ErrElementNotFound when the element is absent (so callers
//     can branch with errors.Is), ErrNilContext, or an index load
//     failure.
func (a *Analyzer) AnalyzeElement(ctx context.Context, elementName string, maxDepth int) (*Analysis, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	snap, err := a.loader.EnsureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Get(elementName); !ok {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, elementName)
	}

	opts := TraverseOptions{MaxDepth: maxDepth, Direction: DirectionDownstream}
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	affected, err := a.Traverse(ctx, elementName, opts)
	if err != nil {
		return nil, err
	}

	score := Score(affected)
	report := Report(elementName, opts.Direction, opts.MaxDepth, affected, score)

	return &Analysis{
		ElementName:      elementName,
		AffectedElements: affected,
		ImpactScore:      score,
		Report:           report,
	}, nil
}

// adjacencyFor returns the cached adjacency map for a direction,
// building it on first use per snapshot generation.
func (a *Analyzer) adjacencyFor(ctx context.Context, dir Direction) (adjacency, *index.Snapshot, error) {
	snap, err := a.loader.EnsureLoaded(ctx)
	if err != nil {
		return nil, nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.snap != snap {
		a.adj = make(map[Direction]adjacency)
		a.snap = snap
	}
	if adj, ok := a.adj[dir]; ok {
		return adj, snap, nil
	}

	adj := buildAdjacency(snap, dir)
	a.adj[dir] = adj
	return adj, snap, nil
}

// buildAdjacency derives the per-direction neighbor map from the
// snapshot, excluding elements under vendor/build directories.
func buildAdjacency(snap *index.Snapshot, dir Direction) adjacency {
	adj := make(adjacency, snap.Len())
	for _, el := range snap.All() {
		if isExcludedPath(el.File) {
			continue
		}
		switch dir {
		case DirectionDownstream:
			adj[el.Name] = el.CalledBy
		case DirectionUpstream:
			adj[el.Name] = el.Dependencies
		}
	}
	return adj
}

// Score buckets a traversal result into an impact score.
//
// Thresholds are fixed: 0-5 affected → low, 6-15 → medium, 16-50 →
// high, >50 → critical. Breakdown tallies counts per depth level.
func Score(affected []AffectedElement) ImpactScore {
	count := len(affected)

	var level RiskLevel
	switch {
	case count <= 5:
		level = RiskLow
	case count <= 15:
		level = RiskMedium
	case count <= 50:
		level = RiskHigh
	default:
		level = RiskCritical
	}

	breakdown := make(map[string]int)
	for _, el := range affected {
		breakdown[fmt.Sprintf("depth_%d", el.Depth)]++
	}

	return ImpactScore{
		ImpactScore: count,
		RiskLevel:   level,
		Breakdown:   breakdown,
	}
}
