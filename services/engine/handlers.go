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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SeismicAI/SeismicFOSS/services/engine/complexity"
	"github.com/SeismicAI/SeismicFOSS/services/engine/frameworks"
	"github.com/SeismicAI/SeismicFOSS/services/engine/history"
	"github.com/SeismicAI/SeismicFOSS/services/engine/impact"
	"github.com/SeismicAI/SeismicFOSS/services/engine/index"
	"github.com/SeismicAI/SeismicFOSS/services/engine/runner"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ServiceVersion is the engine service version.
const ServiceVersion = "0.1.0"

// defaultHistoryLimit bounds history listings when the caller does
// not pass a limit.
const defaultHistoryLimit = 20

// Handlers contains the HTTP handlers for the engine service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleAnalyzeImpact handles POST /api/v1/impact/analyze.
//
// Description:
//
//	Runs the composite impact analysis for one element: downstream
//	traversal, score, and rendered report.
//
// Request Body:
//
//	AnalyzeRequest
//
// Response:
//
//	200 OK: impact.Analysis
//	400 Bad Request: Validation error
//	404 Not Found: Element or project not found
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleAnalyzeImpact(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAnalyzeImpact")

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: bindErrorDetails(err),
		})
		return
	}

	logger.Info("Analyzing impact",
		"project", req.ProjectPath,
		"element", req.ElementName,
		"max_depth", req.MaxDepth)

	resp, err := h.svc.AnalyzeImpact(c.Request.Context(), req.ProjectPath, req.ElementName, req.MaxDepth)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "ANALYZE_FAILED"

		if sc, code, ok := pathErrorStatus(err); ok {
			statusCode, errCode = sc, code
		} else if errors.Is(err, impact.ErrElementNotFound) {
			statusCode = http.StatusNotFound
			errCode = "ELEMENT_NOT_FOUND"
		} else if errors.Is(err, index.ErrIndexCorrupt) {
			statusCode = http.StatusBadRequest
			errCode = "INDEX_CORRUPT"
		}

		logger.Error("Impact analysis failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Impact analysis complete",
		"element", resp.ElementName,
		"affected", len(resp.AffectedElements),
		"risk", resp.ImpactScore.RiskLevel)

	c.JSON(http.StatusOK, resp)
}

// HandleTraverse handles POST /api/v1/impact/traverse.
//
// Description:
//
//	Walks the relationship graph from one element and returns the
//	affected elements in breadth-first order.
//
// Request Body:
//
//	TraverseRequest
//
// Response:
//
//	200 OK: TraverseResponse
//	400 Bad Request: Validation error or invalid direction
//	404 Not Found: Element or project not found
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleTraverse(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleTraverse")

	var req TraverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: bindErrorDetails(err),
		})
		return
	}

	opts := impact.TraverseOptions{
		MaxDepth:  req.MaxDepth,
		Direction: impact.Direction(req.Direction),
	}

	logger.Info("Traversing dependencies",
		"project", req.ProjectPath,
		"element", req.ElementName,
		"direction", req.Direction)

	affected, err := h.svc.Traverse(c.Request.Context(), req.ProjectPath, req.ElementName, opts)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "TRAVERSE_FAILED"

		if sc, code, ok := pathErrorStatus(err); ok {
			statusCode, errCode = sc, code
		} else if errors.Is(err, impact.ErrElementNotFound) {
			statusCode = http.StatusNotFound
			errCode = "ELEMENT_NOT_FOUND"
		} else if errors.Is(err, impact.ErrInvalidDirection) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_DIRECTION"
		} else if errors.Is(err, index.ErrIndexCorrupt) {
			statusCode = http.StatusBadRequest
			errCode = "INDEX_CORRUPT"
		}

		logger.Error("Traversal failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	// Echo the effective options after defaulting.
	effective := opts
	if effective.MaxDepth <= 0 {
		effective.MaxDepth = impact.DefaultMaxDepth
	}
	if effective.Direction == "" {
		effective.Direction = impact.DirectionDownstream
	}

	logger.Info("Traversal complete",
		"element", req.ElementName,
		"affected", len(affected))

	c.JSON(http.StatusOK, TraverseResponse{
		ElementName:      req.ElementName,
		Direction:        effective.Direction,
		MaxDepth:         effective.MaxDepth,
		AffectedElements: affected,
		Count:            len(affected),
	})
}

// HandleElementComplexity handles POST /api/v1/complexity/element.
//
// Request Body:
//
//	ElementComplexityRequest
//
// Response:
//
//	200 OK: complexity.Estimate
//	400 Bad Request: Validation error
//	404 Not Found: Element or project not found
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleElementComplexity(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleElementComplexity")

	var req ElementComplexityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: bindErrorDetails(err),
		})
		return
	}

	resp, err := h.svc.EstimateElement(c.Request.Context(), req.ProjectPath, req.ElementName)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "COMPLEXITY_FAILED"

		if sc, code, ok := pathErrorStatus(err); ok {
			statusCode, errCode = sc, code
		} else if errors.Is(err, complexity.ErrElementNotFound) {
			statusCode = http.StatusNotFound
			errCode = "ELEMENT_NOT_FOUND"
		} else if errors.Is(err, index.ErrIndexCorrupt) {
			statusCode = http.StatusBadRequest
			errCode = "INDEX_CORRUPT"
		}

		logger.Error("Complexity estimate failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Complexity estimated",
		"element", resp.ElementName,
		"score", resp.ComplexityScore,
		"risk", resp.RiskLevel)

	c.JSON(http.StatusOK, resp)
}

// HandleTaskComplexity handles POST /api/v1/complexity/task.
//
// Description:
//
//	Aggregates complexity estimates across the elements a task
//	touches. Elements missing from the index are reported in the
//	response, never as an error.
//
// Request Body:
//
//	TaskComplexityRequest
//
// Response:
//
//	200 OK: complexity.TaskEstimate
//	400 Bad Request: Validation error
//	404 Not Found: Project not found
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleTaskComplexity(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleTaskComplexity")

	var req TaskComplexityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: bindErrorDetails(err),
		})
		return
	}

	resp, err := h.svc.EstimateTask(c.Request.Context(), req.ProjectPath, req.ElementNames)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "COMPLEXITY_FAILED"

		if sc, code, ok := pathErrorStatus(err); ok {
			statusCode, errCode = sc, code
		} else if errors.Is(err, index.ErrIndexCorrupt) {
			statusCode = http.StatusBadRequest
			errCode = "INDEX_CORRUPT"
		}

		logger.Error("Task estimate failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Task complexity estimated",
		"requested", len(req.ElementNames),
		"found", len(resp.Elements),
		"missing", len(resp.MissingElements))

	c.JSON(http.StatusOK, resp)
}

// HandleFrameworks handles GET /api/v1/frameworks.
//
// Query Parameters:
//
//	project_path: Absolute project root (required)
//
// Response:
//
//	200 OK: FrameworksResponse
//	400 Bad Request: Validation error
//	404 Not Found: Project not found
func (h *Handlers) HandleFrameworks(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleFrameworks")

	var req FrameworksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		logger.Warn("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid query parameters",
			Code:    "INVALID_REQUEST",
			Details: bindErrorDetails(err),
		})
		return
	}

	detected, err := h.svc.DetectFrameworks(req.ProjectPath)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "DETECT_FAILED"
		if sc, code, ok := pathErrorStatus(err); ok {
			statusCode, errCode = sc, code
		}

		logger.Error("Framework detection failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	def := frameworks.Unknown
	if len(detected) > 0 {
		def = detected[0].Framework
	}

	logger.Info("Frameworks detected",
		"project", req.ProjectPath,
		"count", len(detected),
		"default", def)

	c.JSON(http.StatusOK, FrameworksResponse{
		Detected: detected,
		Default:  def,
	})
}

// HandleSelectTests handles POST /api/v1/tests/select.
//
// Request Body:
//
//	SelectTestsRequest
//
// Response:
//
//	200 OK: Selection
//	400 Bad Request: Validation error
//	404 Not Found: Project not found
func (h *Handlers) HandleSelectTests(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSelectTests")

	var req SelectTestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: bindErrorDetails(err),
		})
		return
	}

	resp, err := h.svc.SelectTests(c.Request.Context(), req.ProjectPath, req.ChangedFiles)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "SELECT_FAILED"
		if sc, code, ok := pathErrorStatus(err); ok {
			statusCode, errCode = sc, code
		}

		logger.Error("Test selection failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Tests selected",
		"project", req.ProjectPath,
		"changed", len(resp.ChangedFiles),
		"selected", len(resp.TestFiles),
		"full_suite", resp.FullSuite)

	c.JSON(http.StatusOK, resp)
}

// HandleRunTests handles POST /api/v1/tests/run.
//
// Description:
//
//	Executes a test run. Expected run failures (missing tool,
//	timeout, unparseable output) come back inside the 200 response
//	body per the runner contract; non-2xx statuses are reserved for
//	request validation failures. Concurrent calls for the same
//	project coalesce into one physical run.
//
// Request Body:
//
//	runner.Request
//
// Response:
//
//	200 OK: RunRecord
//	400 Bad Request: Validation error
//	404 Not Found: Project not found
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleRunTests(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRunTests")

	var req runner.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: bindErrorDetails(err),
		})
		return
	}

	logger.Info("Running tests",
		"project", req.ProjectPath,
		"framework", req.Framework,
		"impact_narrowing", req.UseImpactAnalysis)

	record, err := h.svc.RunTests(c.Request.Context(), &req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "RUN_FAILED"

		if sc, code, ok := pathErrorStatus(err); ok {
			statusCode, errCode = sc, code
		} else if errors.Is(err, frameworks.ErrUnknownFramework) {
			statusCode = http.StatusBadRequest
			errCode = "UNKNOWN_FRAMEWORK"
		} else if errors.Is(err, runner.ErrEmptyProjectPath) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_REQUEST"
		}

		logger.Error("Test run failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	if record.Error != nil {
		logger.Warn("Test run completed with error",
			"project", record.Project,
			"kind", record.Error.Kind)
	} else {
		logger.Info("Test run complete",
			"project", record.Project,
			"framework", record.Framework,
			"total", record.Summary.Total,
			"failed", record.Summary.Failed)
	}

	c.JSON(http.StatusOK, record)
}

// HandleHistory handles GET /api/v1/history.
//
// Query Parameters:
//
//	project_path: Absolute project root (required)
//	limit: Maximum entries to return (optional, default 20)
//
// Response:
//
//	200 OK: HistoryResponse
//	400 Bad Request: Validation error
//	404 Not Found: Project not found
//	500 Internal Server Error: History store failure
func (h *Handlers) HandleHistory(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleHistory")

	var req HistoryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		logger.Warn("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid query parameters",
			Code:    "INVALID_REQUEST",
			Details: bindErrorDetails(err),
		})
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultHistoryLimit
	}

	entries, err := h.svc.History(c.Request.Context(), req.ProjectPath, req.Limit)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "HISTORY_FAILED"
		if sc, code, ok := pathErrorStatus(err); ok {
			statusCode, errCode = sc, code
		}

		logger.Error("History listing failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("History listed",
		"project", req.ProjectPath,
		"entries", len(entries))

	c.JSON(http.StatusOK, HistoryResponse{
		Entries: entries,
		Count:   len(entries),
	})
}

// HandleHistoryEntry handles GET /api/v1/history/:id.
//
// Query Parameters:
//
//	project_path: Absolute project root (required)
//
// Path Parameters:
//
//	id: History entry ID (required)
//
// Response:
//
//	200 OK: history.Entry
//	400 Bad Request: Validation error
//	404 Not Found: Entry or project not found
//	500 Internal Server Error: History store failure
func (h *Handlers) HandleHistoryEntry(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleHistoryEntry")

	var req HistoryEntryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		logger.Warn("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid query parameters",
			Code:    "INVALID_REQUEST",
			Details: bindErrorDetails(err),
		})
		return
	}

	entry, err := h.svc.HistoryEntry(c.Request.Context(), req.ProjectPath, c.Param("id"))
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "HISTORY_FAILED"

		if sc, code, ok := pathErrorStatus(err); ok {
			statusCode, errCode = sc, code
		} else if errors.Is(err, history.ErrEntryNotFound) {
			statusCode = http.StatusNotFound
			errCode = "ENTRY_NOT_FOUND"
		}

		logger.Error("History lookup failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  ServiceVersion,
		Projects: h.svc.ProjectCount(),
	})
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// bindErrorDetails renders a binding failure for the Details field of
// the error response. Failed binding-tag validations list the
// offending fields; malformed JSON and type mismatches pass through
// unchanged.
func bindErrorDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// pathErrorStatus maps the project path validation sentinels shared
// by every endpoint to an HTTP status and error code. ok is false
// when err is not a path error.
func pathErrorStatus(err error) (status int, code string, ok bool) {
	switch {
	case errors.Is(err, ErrRelativePath):
		return http.StatusBadRequest, "INVALID_PATH", true
	case errors.Is(err, ErrPathTraversal):
		return http.StatusBadRequest, "PATH_TRAVERSAL", true
	case errors.Is(err, ErrProjectNotFound):
		return http.StatusNotFound, "PROJECT_NOT_FOUND", true
	case errors.Is(err, ErrRootNotAllowed):
		return http.StatusForbidden, "ROOT_NOT_ALLOWED", true
	case errors.Is(err, ErrServiceClosed):
		return http.StatusServiceUnavailable, "SERVICE_CLOSED", true
	}
	return 0, "", false
}
