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
	"github.com/SeismicAI/SeismicFOSS/services/engine/frameworks"
	"github.com/SeismicAI/SeismicFOSS/services/engine/history"
	"github.com/SeismicAI/SeismicFOSS/services/engine/impact"
	"github.com/SeismicAI/SeismicFOSS/services/engine/runner"
)

// AnalyzeRequest is the request body for POST /api/v1/impact/analyze.
type AnalyzeRequest struct {
	// ProjectPath is the absolute path to the project root directory.
	// Required.
	ProjectPath string `json:"project_path" binding:"required"`

	// ElementName is the element to analyze. Required.
	ElementName string `json:"element_name" binding:"required"`

	// MaxDepth bounds the traversal depth. Default: 3.
	MaxDepth int `json:"max_depth"`
}

// TraverseRequest is the request body for POST /api/v1/impact/traverse.
type TraverseRequest struct {
	// ProjectPath is the absolute path to the project root directory.
	// Required.
	ProjectPath string `json:"project_path" binding:"required"`

	// ElementName is the element to start from. Required.
	ElementName string `json:"element_name" binding:"required"`

	// MaxDepth bounds the traversal depth. Default: 3.
	MaxDepth int `json:"max_depth"`

	// Direction is "downstream" (what depends on the element) or
	// "upstream" (what the element depends on). Default: downstream.
	Direction string `json:"direction"`
}

// TraverseResponse is the response for POST /api/v1/impact/traverse.
type TraverseResponse struct {
	// ElementName is the traversal root.
	ElementName string `json:"element_name"`

	// Direction is the edge set that was walked.
	Direction impact.Direction `json:"direction"`

	// MaxDepth is the effective depth bound after defaulting.
	MaxDepth int `json:"max_depth"`

	// AffectedElements lists reached elements in breadth-first order.
	AffectedElements []impact.AffectedElement `json:"affected_elements"`

	// Count is len(AffectedElements).
	Count int `json:"count"`
}

// ElementComplexityRequest is the request body for
// POST /api/v1/complexity/element.
type ElementComplexityRequest struct {
	// ProjectPath is the absolute path to the project root directory.
	// Required.
	ProjectPath string `json:"project_path" binding:"required"`

	// ElementName is the element to estimate. Required.
	ElementName string `json:"element_name" binding:"required"`
}

// TaskComplexityRequest is the request body for
// POST /api/v1/complexity/task.
type TaskComplexityRequest struct {
	// ProjectPath is the absolute path to the project root directory.
	// Required.
	ProjectPath string `json:"project_path" binding:"required"`

	// ElementNames are the elements the task touches. Required.
	ElementNames []string `json:"element_names" binding:"required"`
}

// FrameworksRequest is the query params for GET /api/v1/frameworks.
type FrameworksRequest struct {
	// ProjectPath is the absolute path to the project root directory.
	// Required.
	ProjectPath string `form:"project_path" binding:"required"`
}

// FrameworksResponse is the response for GET /api/v1/frameworks.
type FrameworksResponse struct {
	// Detected lists detected frameworks, confidence descending.
	Detected []frameworks.Info `json:"detected"`

	// Default is the highest-confidence framework, or "unknown" when
	// nothing was detected.
	Default frameworks.Framework `json:"default"`
}

// SelectTestsRequest is the request body for POST /api/v1/tests/select.
type SelectTestsRequest struct {
	// ProjectPath is the absolute path to the project root directory.
	// Required.
	ProjectPath string `json:"project_path" binding:"required"`

	// ChangedFiles seeds selection directly. When empty, the
	// project's drift sources are consulted.
	ChangedFiles []string `json:"changed_files"`
}

// Selection is the outcome of test selection.
type Selection struct {
	// TestFiles are the narrowed test files, project-relative. Empty
	// when FullSuite is true.
	TestFiles []string `json:"test_files"`

	// FullSuite reports that narrowing was not possible and the whole
	// suite should run.
	FullSuite bool `json:"full_suite"`

	// ChangedFiles are the changed files the selection was derived
	// from, after drift resolution.
	ChangedFiles []string `json:"changed_files"`
}

// RunRecord is the response for POST /api/v1/tests/run: a completed
// run plus its history entry ID.
type RunRecord struct {
	runner.Results

	// HistoryID identifies the recorded history entry. Empty when the
	// run could not be recorded.
	HistoryID string `json:"history_id,omitempty"`
}

// HistoryListRequest is the query params for GET /api/v1/history.
type HistoryListRequest struct {
	// ProjectPath is the absolute path to the project root directory.
	// Required.
	ProjectPath string `form:"project_path" binding:"required"`

	// Limit is the maximum number of entries. Default: 20.
	Limit int `form:"limit"`
}

// HistoryEntryRequest is the query params for GET /api/v1/history/:id.
type HistoryEntryRequest struct {
	// ProjectPath is the absolute path to the project root directory.
	// Required.
	ProjectPath string `form:"project_path" binding:"required"`
}

// HistoryResponse is the response for GET /api/v1/history.
type HistoryResponse struct {
	// Entries are recorded runs, newest first.
	Entries []*history.Entry `json:"entries"`

	// Count is len(Entries).
	Count int `json:"count"`
}

// HealthResponse is the response for GET /healthz.
type HealthResponse struct {
	// Status is "healthy" or "degraded".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`

	// Projects is the number of cached project engines.
	Projects int `json:"projects"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
