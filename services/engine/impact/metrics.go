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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for impact analysis operations.
var (
	tracer = otel.Tracer("seismic.impact")
	meter  = otel.Meter("seismic.impact")
)

// Metrics for impact traversal operations.
var (
	traverseLatency  metric.Float64Histogram
	traverseTotal    metric.Int64Counter
	affectedElements metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		traverseLatency, err = meter.Float64Histogram(
			"impact_traverse_duration_seconds",
			metric.WithDescription("Duration of impact traversals"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		traverseTotal, err = meter.Int64Counter(
			"impact_traverse_total",
			metric.WithDescription("Total number of impact traversals"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		affectedElements, err = meter.Int64Histogram(
			"impact_affected_elements",
			metric.WithDescription("Number of elements affected per traversal"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startTraverseSpan creates a span for a traversal operation.
func startTraverseSpan(ctx context.Context, element, direction string, maxDepth int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Analyzer.Traverse",
		trace.WithAttributes(
			attribute.String("impact.element", element),
			attribute.String("impact.direction", direction),
			attribute.Int("impact.max_depth", maxDepth),
		),
	)
}

// setTraverseSpanResult sets the result attributes on a traversal span.
func setTraverseSpanResult(span trace.Span, affected int, found bool) {
	span.SetAttributes(
		attribute.Int("impact.affected", affected),
		attribute.Bool("impact.element_found", found),
	)
}

// recordTraverseMetrics records metrics for a traversal.
func recordTraverseMetrics(ctx context.Context, duration time.Duration, direction, riskLevel string, affected int, found bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.String("risk_level", riskLevel),
		attribute.Bool("element_found", found),
	)

	traverseLatency.Record(ctx, duration.Seconds(), attrs)
	traverseTotal.Add(ctx, 1, attrs)
	affectedElements.Record(ctx, int64(affected))
}
