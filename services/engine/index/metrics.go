// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for index operations.
var (
	tracer = otel.Tracer("seismic.index")
	meter  = otel.Meter("seismic.index")
)

// Metrics for index load operations.
var (
	loadLatency  metric.Float64Histogram
	loadTotal    metric.Int64Counter
	elementCount metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		loadLatency, err = meter.Float64Histogram(
			"index_load_duration_seconds",
			metric.WithDescription("Duration of element index loads"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		loadTotal, err = meter.Int64Counter(
			"index_load_total",
			metric.WithDescription("Total number of element index loads"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		elementCount, err = meter.Int64Histogram(
			"index_elements_loaded",
			metric.WithDescription("Number of elements per index load"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startLoadSpan creates a span for an index load operation.
func startLoadSpan(ctx context.Context, path string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Loader.load",
		trace.WithAttributes(
			attribute.String("index.path", path),
		),
	)
}

// setLoadSpanResult sets the result attributes on a load span.
func setLoadSpanResult(span trace.Span, elements int, missing, success bool) {
	span.SetAttributes(
		attribute.Int("index.elements", elements),
		attribute.Bool("index.missing", missing),
		attribute.Bool("index.success", success),
	)
}

// recordLoadMetrics records metrics for an index load.
func recordLoadMetrics(ctx context.Context, duration time.Duration, elements int, missing, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Bool("missing", missing),
		attribute.Bool("success", success),
	)

	loadLatency.Record(ctx, duration.Seconds(), attrs)
	loadTotal.Add(ctx, 1, attrs)
	elementCount.Record(ctx, int64(elements))
}
