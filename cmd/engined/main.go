// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command engined starts the Seismic engine API server.
//
// The engine exposes impact analysis, complexity estimation, framework
// detection, test selection, run execution, and run history over a JSON
// API, so editors and agents can drive Seismic without shelling out to
// the CLI. All analysis reads the project's .seismic/element_index.json;
// run history is persisted per project under .seismic/history/.
//
// Usage:
//
//	go run ./cmd/engined
//	go run ./cmd/engined -port 9090
//	go run ./cmd/engined -allowed-roots /home/dev/src,/srv/projects
//
// Telemetry is configured through the standard environment variables
// (OTEL_TRACES_EXPORTER, OTEL_METRICS_EXPORTER,
// OTEL_EXPORTER_OTLP_ENDPOINT, SEISMIC_ENV). By default traces go to an
// OTLP collector on localhost:4317 and metrics are served on /metrics;
// set OTEL_TRACES_EXPORTER=none for a quiet local run.
//
// Example requests:
//
//	# Health check
//	curl http://localhost:7430/healthz
//
//	# Analyze the blast radius of a change
//	curl -X POST http://localhost:7430/api/v1/impact/analyze \
//	  -H "Content-Type: application/json" \
//	  -d '{"project_path": "/path/to/project", "element_name": "process_payment"}'
//
//	# Run only the tests impacted by the current drift
//	curl -X POST http://localhost:7430/api/v1/tests/run \
//	  -H "Content-Type: application/json" \
//	  -d '{"project_path": "/path/to/project", "use_impact_analysis": true}'
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/SeismicAI/SeismicFOSS/services/engine"
	"github.com/SeismicAI/SeismicFOSS/services/engine/telemetry"
)

func main() {
	port := flag.Int("port", defaultPort(), "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	allowedRoots := flag.String("allowed-roots", "",
		"Comma-separated list of directories projects must live under (empty allows any absolute path)")
	maxProjects := flag.Int("max-projects", engine.DefaultMaxCachedProjects,
		"Maximum number of project engines kept in memory")
	historyKeep := flag.Int("history-keep", engine.DefaultHistoryKeep,
		"Run-history entries retained per project (0 disables pruning)")
	flag.Parse()

	// Set Gin mode and the default logger
	level := slog.LevelInfo
	if *debug {
		gin.SetMode(gin.DebugMode)
		level = slog.LevelDebug
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Init telemetry. AllowDegraded keeps the server usable on a laptop
	// with no collector running; a misconfigured exporter name still
	// fails startup.
	telemetryCfg := telemetry.DefaultConfig()
	telemetryCfg.AllowDegraded = true
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetryCfg)
	if err != nil {
		slog.Error("Failed to initialize telemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create service with flag overrides
	cfg := engine.DefaultConfig()
	cfg.MaxCachedProjects = *maxProjects
	cfg.HistoryKeep = *historyKeep
	cfg.AllowedRoots = splitRoots(*allowedRoots)
	svc := engine.NewService(engine.WithConfig(cfg))

	// Create handlers
	handlers := engine.NewHandlers(svc)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(telemetryCfg.ServiceName))
	if *debug {
		router.Use(gin.Logger())
	}

	// Register routes under /api/v1, plus the ops endpoints at the root
	v1 := router.Group("/api/v1")
	engine.RegisterRoutes(v1, handlers)
	engine.RegisterHealth(router, handlers)
	registerMetrics(router)

	// Print startup banner
	printBanner(*port, telemetryCfg.Environment)

	// Handle graceful shutdown: close project history stores and flush
	// telemetry before exiting.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down Seismic engine server")
		if err := svc.Close(); err != nil {
			slog.Error("Failed to close engine service", slog.String("error", err.Error()))
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			slog.Error("Failed to shut down telemetry", slog.String("error", err.Error()))
		}
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting Seismic engine server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// defaultPort returns the listen port from SEISMIC_ENGINE_PORT, or 7430.
func defaultPort() int {
	raw := os.Getenv("SEISMIC_ENGINE_PORT")
	if raw == "" {
		return 7430
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		slog.Warn("Ignoring invalid SEISMIC_ENGINE_PORT", slog.String("value", raw))
		return 7430
	}
	return port
}

// splitRoots parses the -allowed-roots flag into a root list, dropping
// empty segments so a trailing comma does not allow the empty prefix.
func splitRoots(raw string) []string {
	if raw == "" {
		return nil
	}
	var roots []string
	for _, root := range strings.Split(raw, ",") {
		root = strings.TrimSpace(root)
		if root != "" {
			roots = append(roots, root)
		}
	}
	return roots
}

// registerMetrics exposes the Prometheus scrape endpoint when a
// prometheus metric exporter is configured.
func registerMetrics(router *gin.Engine) {
	handler := telemetry.MetricsHandler()
	if handler == nil {
		slog.Info("Metrics endpoint disabled (no prometheus exporter configured)")
		return
	}
	router.GET("/metrics", gin.WrapH(handler))
}

func printBanner(port int, environment string) {
	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                      SEISMIC ENGINE SERVER                        ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Impact-driven test selection and execution for local projects.   ║
║  Environment: %-50s   ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/healthz                          │  ║
║  │                                                             │  ║
║  │ # Analyze the blast radius of a change                      │  ║
║  │ curl -X POST http://localhost:%d/api/v1/impact/analyze \  │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"project_path": "/p", "element_name": "login"}'      │  ║
║  │                                                             │  ║
║  │ # Run only the tests impacted by the current drift          │  ║
║  │ curl -X POST http://localhost:%d/api/v1/tests/run \       │  ║
║  │   -d '{"project_path": "/p", "use_impact_analysis": true}'  │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Impact: /impact/analyze, /impact/traverse                    ║
║  ├── Complexity: /complexity/element, /complexity/task            ║
║  ├── Tests: /tests/select, /tests/run                             ║
║  ├── History: /history, /history/:id                              ║
║  └── Ops: /healthz, /metrics, GET /frameworks                     ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, environment, port, port, port)
}
