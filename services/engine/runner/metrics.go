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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for test execution operations.
var (
	tracer = otel.Tracer("seismic.runner")
	meter  = otel.Meter("seismic.runner")
)

// Metrics for test runs.
var (
	runLatency    metric.Float64Histogram
	runTotal      metric.Int64Counter
	testsExecuted metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runLatency, err = meter.Float64Histogram(
			"runner_run_duration_seconds",
			metric.WithDescription("Duration of test runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runTotal, err = meter.Int64Counter(
			"runner_runs_total",
			metric.WithDescription("Total number of test runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		testsExecuted, err = meter.Int64Histogram(
			"runner_tests_executed",
			metric.WithDescription("Number of tests executed per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startRunSpan creates a span for a test run.
func startRunSpan(ctx context.Context, project, framework string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Runner.RunTests",
		trace.WithAttributes(
			attribute.String("runner.project", project),
			attribute.String("runner.framework", framework),
		),
	)
}

// setRunSpanResult sets the result attributes on a run span.
func setRunSpanResult(span trace.Span, results *Results) {
	errorKind := ""
	if results.Error != nil {
		errorKind = string(results.Error.Kind)
	}
	span.SetAttributes(
		attribute.String("runner.framework", string(results.Framework)),
		attribute.Int("runner.total", results.Summary.Total),
		attribute.Int("runner.failed", results.Summary.Failed),
		attribute.String("runner.error_kind", errorKind),
	)
}

// recordRunMetrics records metrics for a completed run.
func recordRunMetrics(ctx context.Context, duration time.Duration, results *Results) {
	if err := initMetrics(); err != nil {
		return
	}

	errorKind := "none"
	if results.Error != nil {
		errorKind = string(results.Error.Kind)
	}
	attrs := metric.WithAttributes(
		attribute.String("framework", string(results.Framework)),
		attribute.String("error_kind", errorKind),
	)

	runLatency.Record(ctx, duration.Seconds(), attrs)
	runTotal.Add(ctx, 1, attrs)
	testsExecuted.Record(ctx, int64(results.Summary.Total))
}
