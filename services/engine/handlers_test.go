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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeismicAI/SeismicFOSS/services/engine/complexity"
	"github.com/SeismicAI/SeismicFOSS/services/engine/frameworks"
	"github.com/SeismicAI/SeismicFOSS/services/engine/history"
	"github.com/SeismicAI/SeismicFOSS/services/engine/impact"
	"github.com/SeismicAI/SeismicFOSS/services/engine/runner"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestRouter builds a router carrying the full API surface over a
// service whose history stores are in-memory.
func setupTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()

	svc := newTestService(t)
	handlers := NewHandlers(svc)

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), handlers)
	RegisterHealth(router, handlers)
	return router, svc
}

// postJSON performs a JSON POST against the router.
func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// getJSON performs a GET with optional query parameters.
func getJSON(t *testing.T, router *gin.Engine, path string, query url.Values) *httptest.ResponseRecorder {
	t.Helper()

	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals the recorded response body into v.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

// TestHandleHealth verifies the liveness endpoint shape.
func TestHandleHealth(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := getJSON(t, router, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
	assert.Equal(t, 0, resp.Projects)
}

// TestHandleAnalyzeImpact verifies a successful analysis response.
func TestHandleAnalyzeImpact(t *testing.T) {
	router, _ := setupTestRouter(t)
	project := newProject(t, paymentIndex)

	w := postJSON(t, router, "/api/v1/impact/analyze", AnalyzeRequest{
		ProjectPath: project,
		ElementName: "process_payment",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp impact.Analysis
	decodeBody(t, w, &resp)
	assert.Equal(t, "process_payment", resp.ElementName)
	assert.Len(t, resp.AffectedElements, 3)
	assert.Equal(t, impact.RiskLow, resp.ImpactScore.RiskLevel)
	assert.NotEmpty(t, resp.Report)
}

// TestHandleAnalyzeImpactErrors verifies the error status and code
// taxonomy of the analyze endpoint.
func TestHandleAnalyzeImpactErrors(t *testing.T) {
	router, _ := setupTestRouter(t)
	project := newProject(t, paymentIndex)
	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing element name",
			body:       map[string]any{"project_path": project},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "relative project path",
			body:       map[string]any{"project_path": "rel/path", "element_name": "x"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PATH",
		},
		{
			name:       "path traversal",
			body:       map[string]any{"project_path": "/tmp/../etc", "element_name": "x"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "PATH_TRAVERSAL",
		},
		{
			name:       "project not found",
			body:       map[string]any{"project_path": missing, "element_name": "x"},
			wantStatus: http.StatusNotFound,
			wantCode:   "PROJECT_NOT_FOUND",
		},
		{
			name:       "element not found",
			body:       map[string]any{"project_path": project, "element_name": "ghost"},
			wantStatus: http.StatusNotFound,
			wantCode:   "ELEMENT_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/api/v1/impact/analyze", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			var resp ErrorResponse
			decodeBody(t, w, &resp)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Error)
			if tt.wantCode == "INVALID_REQUEST" {
				assert.Contains(t, resp.Details, "ElementName is required")
			}
		})
	}
}

// TestHandleTraverse verifies the traverse endpoint echoes effective
// options after defaulting.
func TestHandleTraverse(t *testing.T) {
	router, _ := setupTestRouter(t)
	project := newProject(t, paymentIndex)

	w := postJSON(t, router, "/api/v1/impact/traverse", TraverseRequest{
		ProjectPath: project,
		ElementName: "checkout",
		Direction:   "upstream",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp TraverseResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "checkout", resp.ElementName)
	assert.Equal(t, impact.DirectionUpstream, resp.Direction)
	assert.Equal(t, impact.DefaultMaxDepth, resp.MaxDepth, "unset depth defaults")
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "process_payment", resp.AffectedElements[0].Name)
}

// TestHandleTraverseInvalidDirection verifies direction validation.
func TestHandleTraverseInvalidDirection(t *testing.T) {
	router, _ := setupTestRouter(t)
	project := newProject(t, paymentIndex)

	w := postJSON(t, router, "/api/v1/impact/traverse", TraverseRequest{
		ProjectPath: project,
		ElementName: "checkout",
		Direction:   "sideways",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "INVALID_DIRECTION", resp.Code)
}

// TestHandleElementComplexity verifies the element estimate endpoint.
func TestHandleElementComplexity(t *testing.T) {
	router, _ := setupTestRouter(t)
	project := newProject(t, paymentIndex)

	w := postJSON(t, router, "/api/v1/complexity/element", ElementComplexityRequest{
		ProjectPath: project,
		ElementName: "process_payment",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var est complexity.Estimate
	decodeBody(t, w, &est)
	assert.Equal(t, "process_payment", est.ElementName)
	assert.Equal(t, 3, est.ComplexityScore)
	assert.Equal(t, complexity.RiskLow, est.RiskLevel)

	w = postJSON(t, router, "/api/v1/complexity/element", ElementComplexityRequest{
		ProjectPath: project,
		ElementName: "ghost",
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "ELEMENT_NOT_FOUND", resp.Code)
}

// TestHandleTaskComplexity verifies aggregation and the soft handling
// of unknown element names.
func TestHandleTaskComplexity(t *testing.T) {
	router, _ := setupTestRouter(t)
	project := newProject(t, paymentIndex)

	w := postJSON(t, router, "/api/v1/complexity/task", TaskComplexityRequest{
		ProjectPath:  project,
		ElementNames: []string{"process_payment", "ghost"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var task complexity.TaskEstimate
	decodeBody(t, w, &task)
	assert.Len(t, task.Elements, 1)
	assert.Equal(t, []string{"ghost"}, task.MissingElements)

	w = postJSON(t, router, "/api/v1/complexity/task", map[string]any{
		"project_path": project,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "INVALID_REQUEST", resp.Code)
}

// TestHandleFrameworks verifies detection over the query-parameter
// endpoint for marked, bare, and invalid requests.
func TestHandleFrameworks(t *testing.T) {
	router, _ := setupTestRouter(t)

	marked := newProject(t, "")
	writeProjectFile(t, marked, "pytest.ini", "[pytest]\n")

	w := getJSON(t, router, "/api/v1/frameworks", url.Values{"project_path": {marked}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp FrameworksResponse
	decodeBody(t, w, &resp)
	require.NotEmpty(t, resp.Detected)
	assert.Equal(t, frameworks.Pytest, resp.Detected[0].Framework)
	assert.Equal(t, frameworks.Pytest, resp.Default)

	w = getJSON(t, router, "/api/v1/frameworks", url.Values{"project_path": {newProject(t, "")}})
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &resp)
	assert.Empty(t, resp.Detected)
	assert.Equal(t, frameworks.Unknown, resp.Default)

	w = getJSON(t, router, "/api/v1/frameworks", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var errResp ErrorResponse
	decodeBody(t, w, &errResp)
	assert.Equal(t, "INVALID_REQUEST", errResp.Code)
}

// TestHandleSelectTests verifies impact-narrowed selection over HTTP.
func TestHandleSelectTests(t *testing.T) {
	router, _ := setupTestRouter(t)
	project := newProject(t, "")
	writeProjectFile(t, project, filepath.Join("tests", "test_payment.py"), "def test_pay(): pass\n")

	w := postJSON(t, router, "/api/v1/tests/select", SelectTestsRequest{
		ProjectPath:  project,
		ChangedFiles: []string{"payment.py"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var sel Selection
	decodeBody(t, w, &sel)
	assert.False(t, sel.FullSuite)
	assert.Equal(t, []string{"tests/test_payment.py"}, sel.TestFiles)
	assert.Equal(t, []string{"payment.py"}, sel.ChangedFiles)
}

// TestHandleRunTests verifies a run against a project without
// framework markers completes with a recorded empty result.
func TestHandleRunTests(t *testing.T) {
	router, _ := setupTestRouter(t)
	project := newProject(t, "")

	w := postJSON(t, router, "/api/v1/tests/run", map[string]any{
		"project_path": project,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var record RunRecord
	decodeBody(t, w, &record)
	assert.Equal(t, frameworks.Unknown, record.Framework)
	assert.Nil(t, record.Error)
	assert.NotEmpty(t, record.HistoryID)
}

// TestHandleRunTestsErrors verifies request validation surfaces as
// non-2xx statuses while run failures do not.
func TestHandleRunTestsErrors(t *testing.T) {
	router, _ := setupTestRouter(t)
	project := newProject(t, "")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing project path",
			body:       map[string]any{"framework": "pytest"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "unknown framework",
			body:       map[string]any{"project_path": project, "framework": "rspec"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "UNKNOWN_FRAMEWORK",
		},
		{
			name:       "relative project path",
			body:       map[string]any{"project_path": "rel/path"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_PATH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/api/v1/tests/run", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			var resp ErrorResponse
			decodeBody(t, w, &resp)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

// TestHandleHistoryEndpoints verifies listing and entry lookup after a
// recorded run.
func TestHandleHistoryEndpoints(t *testing.T) {
	router, svc := setupTestRouter(t)
	project := newProject(t, "")

	record, err := svc.RunTests(context.Background(), &runner.Request{ProjectPath: project})
	require.NoError(t, err)
	require.NotEmpty(t, record.HistoryID)

	w := getJSON(t, router, "/api/v1/history", url.Values{"project_path": {project}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var list HistoryResponse
	decodeBody(t, w, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, record.HistoryID, list.Entries[0].ID)

	w = getJSON(t, router, "/api/v1/history/"+record.HistoryID, url.Values{"project_path": {project}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var entry history.Entry
	decodeBody(t, w, &entry)
	assert.Equal(t, record.HistoryID, entry.ID)
	assert.Equal(t, string(frameworks.Unknown), string(entry.Framework))

	w = getJSON(t, router, "/api/v1/history/no-such-id", url.Values{"project_path": {project}})
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "ENTRY_NOT_FOUND", resp.Code)

	w = getJSON(t, router, "/api/v1/history", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	decodeBody(t, w, &resp)
	assert.Equal(t, "INVALID_REQUEST", resp.Code)
}

// TestBindErrorDetails verifies validation failures name the offending
// fields while other bind errors pass through verbatim.
func TestBindErrorDetails(t *testing.T) {
	type probe struct {
		Name  string `validate:"required"`
		Depth int    `validate:"min=1"`
	}

	err := validator.New().Struct(probe{})
	require.Error(t, err)

	details := bindErrorDetails(err)
	assert.Contains(t, details, "Name is required")
	assert.Contains(t, details, `Depth failed "min" validation`)

	plain := errors.New("unexpected EOF")
	assert.Equal(t, "unexpected EOF", bindErrorDetails(plain))
}

// TestRequestIDHeader verifies the request ID is echoed when supplied
// and generated when absent.
func TestRequestIDHeader(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = getJSON(t, router, "/healthz", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
