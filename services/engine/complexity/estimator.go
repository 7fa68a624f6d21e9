// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package complexity estimates element and task complexity from element
// shape alone: kind, parameter count, and call count. No code is
// executed or parsed; the score is a fixed weighted heuristic meant for
// prioritizing what to test, not a measurement.
package complexity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SeismicAI/SeismicFOSS/services/engine/index"
)

// Complexity scoring bounds.
const (
	// maxScore caps every element score.
	maxScore = 10

	// locPerScorePoint converts a score into the estimated-LOC
	// heuristic. EstimatedLOC is a rough planning number, never an
	// exact measurement.
	locPerScorePoint = 10

	// highComplexityThreshold marks elements worth splitting or testing
	// first when aggregated across a task.
	highComplexityThreshold = 7
)

// Parameter-count bonus thresholds.
const (
	manyParamsThreshold     = 5
	moderateParamsThreshold = 3
)

// Call-count bonus thresholds.
const (
	manyCallsThreshold     = 10
	moderateCallsThreshold = 5
)

// baseScores maps an element kind to its base complexity score. Kinds
// not listed score defaultBaseScore.
var baseScores = map[index.ElementKind]int{
	index.KindClass:     3,
	index.KindMethod:    2,
	index.KindFunction:  2,
	index.KindComponent: 4,
	index.KindHook:      3,
	index.KindInterface: 1,
	index.KindType:      1,
	index.KindDecorator: 2,
	index.KindConstant:  1,
}

const defaultBaseScore = 2

// RiskLevel buckets a complexity score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Estimate is the complexity estimate for a single element.
type Estimate struct {
	ElementName     string    `json:"element_name"`
	ComplexityScore int       `json:"complexity_score"`
	RiskLevel       RiskLevel `json:"risk_level"`
	EstimatedLOC    int       `json:"estimated_loc"`
	ParameterCount  int       `json:"parameter_count"`
	CallsCount      int       `json:"calls_count"`
	Factors         []string  `json:"factors"`
}

// TaskEstimate aggregates estimates across the elements a task touches.
type TaskEstimate struct {
	Elements          []Estimate        `json:"elements"`
	AverageComplexity float64           `json:"average_complexity"`
	MaxComplexity     int               `json:"max_complexity"`
	TotalEstimatedLOC int               `json:"total_estimated_loc"`
	RiskDistribution  map[RiskLevel]int `json:"risk_distribution"`

	// HighComplexityElements lists names scoring above
	// highComplexityThreshold, for test prioritization.
	HighComplexityElements []string `json:"high_complexity_elements"`

	// MissingElements lists requested names absent from the index.
	// Missing names are skipped, never fatal.
	MissingElements []string `json:"missing_elements,omitempty"`
}

// Estimator computes complexity estimates over the element index.
//
// # Thread Safety
//
// An Estimator is safe for concurrent use; it holds no mutable state
// beyond the loader's read-only snapshot.
type Estimator struct {
	loader *index.Loader
	logger *slog.Logger
}

// EstimatorOption customizes estimator construction.
type EstimatorOption func(*Estimator)

// WithLogger sets the logger for estimation diagnostics.
func WithLogger(logger *slog.Logger) EstimatorOption {
	return func(e *Estimator) {
		e.logger = logger
	}
}

// NewEstimator creates an estimator over the given index loader.
func NewEstimator(loader *index.Loader, opts ...EstimatorOption) *Estimator {
	e := &Estimator{loader: loader}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "complexity.estimator")
	return e
}

// EstimateElement returns the complexity estimate for one named element.
//
// # Outputs
//
//   - *Estimate: The scored estimate.
//   - error: ErrNilContext, ErrElementNotFound wrapped with the name,
//     or an index load failure.
func (e *Estimator) EstimateElement(ctx context.Context, name string) (*Estimate, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	snap, err := e.loader.EnsureLoaded(ctx)
	if err != nil {
		return nil, err
	}

	el, ok := snap.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, name)
	}
	return EstimateFor(el), nil
}

// EstimateTask aggregates estimates for every named element. Names
// absent from the index are collected into MissingElements and skipped;
// the aggregate covers the elements that were found.
func (e *Estimator) EstimateTask(ctx context.Context, names []string) (*TaskEstimate, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	snap, err := e.loader.EnsureLoaded(ctx)
	if err != nil {
		return nil, err
	}

	task := &TaskEstimate{
		Elements:               make([]Estimate, 0, len(names)),
		RiskDistribution:       make(map[RiskLevel]int),
		HighComplexityElements: make([]string, 0),
	}

	total := 0
	for _, name := range names {
		el, ok := snap.Get(name)
		if !ok {
			task.MissingElements = append(task.MissingElements, name)
			e.logger.Warn("element not found in index, skipping in task estimate",
				"element", name)
			continue
		}

		est := EstimateFor(el)
		task.Elements = append(task.Elements, *est)
		task.RiskDistribution[est.RiskLevel]++
		task.TotalEstimatedLOC += est.EstimatedLOC
		total += est.ComplexityScore

		if est.ComplexityScore > task.MaxComplexity {
			task.MaxComplexity = est.ComplexityScore
		}
		if est.ComplexityScore > highComplexityThreshold {
			task.HighComplexityElements = append(task.HighComplexityElements, est.ElementName)
		}
	}

	if len(task.Elements) > 0 {
		task.AverageComplexity = float64(total) / float64(len(task.Elements))
	}

	e.logger.Debug("task estimate complete",
		"requested", len(names),
		"found", len(task.Elements),
		"missing", len(task.MissingElements),
		"average", task.AverageComplexity)
	return task, nil
}

// EstimateFor scores a single element. Pure; callers holding an element
// do not need an Estimator.
func EstimateFor(el *index.Element) *Estimate {
	score, factors := scoreElement(el)

	return &Estimate{
		ElementName:     el.Name,
		ComplexityScore: score,
		RiskLevel:       riskFor(score),
		EstimatedLOC:    score * locPerScorePoint,
		ParameterCount:  len(el.Parameters),
		CallsCount:      len(el.Calls),
		Factors:         factors,
	}
}

// scoreElement computes the capped weighted score and the contributing
// factors in application order.
func scoreElement(el *index.Element) (int, []string) {
	factors := make([]string, 0, 3)

	base, ok := baseScores[el.Kind]
	if !ok {
		base = defaultBaseScore
	}
	score := base
	factors = append(factors, fmt.Sprintf("Base score %d for element type '%s'", base, el.Kind))

	params := len(el.Parameters)
	switch {
	case params > manyParamsThreshold:
		score += 3
		factors = append(factors, fmt.Sprintf("High parameter count: %d (+3)", params))
	case params > moderateParamsThreshold:
		score += 2
		factors = append(factors, fmt.Sprintf("Moderate parameter count: %d (+2)", params))
	case params > 0:
		score += 1
		factors = append(factors, fmt.Sprintf("Has parameters: %d (+1)", params))
	}

	calls := len(el.Calls)
	switch {
	case calls > manyCallsThreshold:
		score += 2
		factors = append(factors, fmt.Sprintf("High call count: %d (+2)", calls))
	case calls > moderateCallsThreshold:
		score += 1
		factors = append(factors, fmt.Sprintf("Moderate call count: %d (+1)", calls))
	}

	if score > maxScore {
		score = maxScore
	}
	return score, factors
}

// riskFor buckets a score into a risk level.
func riskFor(score int) RiskLevel {
	switch {
	case score <= 3:
		return RiskLow
	case score <= 6:
		return RiskMedium
	case score <= 8:
		return RiskHigh
	default:
		return RiskCritical
	}
}
