// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all engine API routes with the router.
//
// Description:
//
//	Registers the versioned engine endpoints with the given Gin
//	router group. The router group should already have any required
//	middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /api/v1)
//	handlers - The handlers instance
//
// Impact Endpoints:
//
//	POST /api/v1/impact/analyze - Composite impact analysis
//	POST /api/v1/impact/traverse - Raw dependency traversal
//
// Complexity Endpoints:
//
//	POST /api/v1/complexity/element - Single element estimate
//	POST /api/v1/complexity/task - Aggregated task estimate
//
// Test Endpoints:
//
//	GET  /api/v1/frameworks - Framework detection
//	POST /api/v1/tests/select - Impact-narrowed test selection
//	POST /api/v1/tests/run - Test execution
//
// History Endpoints:
//
//	GET  /api/v1/history - Run history listing
//	GET  /api/v1/history/:id - Single run lookup
//
// Example:
//
//	service := engine.NewService()
//	handlers := engine.NewHandlers(service)
//
//	v1 := router.Group("/api/v1")
//	engine.RegisterRoutes(v1, handlers)
//	engine.RegisterHealth(router, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	// Impact analysis
	impactGroup := rg.Group("/impact")
	{
		impactGroup.POST("/analyze", handlers.HandleAnalyzeImpact)
		impactGroup.POST("/traverse", handlers.HandleTraverse)
	}

	// Complexity estimation
	complexityGroup := rg.Group("/complexity")
	{
		complexityGroup.POST("/element", handlers.HandleElementComplexity)
		complexityGroup.POST("/task", handlers.HandleTaskComplexity)
	}

	// Framework detection
	rg.GET("/frameworks", handlers.HandleFrameworks)

	// Test selection and execution
	tests := rg.Group("/tests")
	{
		tests.POST("/select", handlers.HandleSelectTests)
		tests.POST("/run", handlers.HandleRunTests)
	}

	// Run history
	hist := rg.Group("/history")
	{
		hist.GET("", handlers.HandleHistory)
		hist.GET("/:id", handlers.HandleHistoryEntry)
	}
}

// RegisterHealth registers the unversioned health probe with the
// router root.
//
// Endpoints:
//
//	GET /healthz - Health check
func RegisterHealth(r gin.IRouter, handlers *Handlers) {
	r.GET("/healthz", handlers.HandleHealth)
}
