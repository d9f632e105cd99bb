package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellsight/cellsight/agent"
	"github.com/cellsight/cellsight/domain"
	"github.com/cellsight/cellsight/harness"
	"github.com/cellsight/cellsight/tests/helpers"
	"github.com/cellsight/cellsight/tools"
	"github.com/cellsight/cellsight/tracer"
)

func newTestHandler(t *testing.T) (*echo.Echo, *tracer.Tracer) {
	t.Helper()

	registry := tools.NewRegistry(nil)
	tools.RegisterBuiltins(registry, tools.BuiltinConfig{})
	tr := tracer.New(helpers.NewTestStore(t))
	capability := agent.NewMock(registry)

	h := harness.New(tr, capability)
	for _, tc := range harness.DefaultCases() {
		require.NoError(t, h.Add(tc))
	}

	e := echo.New()
	NewHandler(tr, capability, h).RegisterRoutes(e)
	return e, tr
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateRunSuccess(t *testing.T) {
	e, _ := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/v1/runs", `{"query":"What's the weather in London?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.NotEmpty(t, resp["run_id"])
	assert.Contains(t, resp["output"], "London")
}

// A failed agent run is still a 200: the failure is recorded data, not a
// transport error.
func TestCreateRunDomainFailure(t *testing.T) {
	e, tr := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/v1/runs", `{"query":"What is 100 divided by 0?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp["status"])
	assert.Contains(t, resp["error"], "division by zero")

	run, err := tr.Run(context.Background(), resp["run_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, domain.ErrorKindDivisionByZero, run.ErrorKind)
}

func TestCreateRunMissingQuery(t *testing.T) {
	e, _ := newTestHandler(t)
	rec := doJSON(e, http.MethodPost, "/v1/runs", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunAndSteps(t *testing.T) {
	e, _ := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/v1/runs", `{"query":"Calculate 2+2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	runID := created["run_id"].(string)

	rec = doJSON(e, http.MethodGet, "/v1/runs/"+runID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var run domain.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, runID, run.RunID)
	assert.Equal(t, domain.RunStatusSuccess, run.Status)

	rec = doJSON(e, http.MethodGet, "/v1/runs/"+runID+"/steps", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stepsResp struct {
		Steps []domain.Step `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stepsResp))
	require.NotEmpty(t, stepsResp.Steps)
	for i, step := range stepsResp.Steps {
		assert.Equal(t, i, step.StepIndex)
	}
}

func TestGetRunNotFound(t *testing.T) {
	e, _ := newTestHandler(t)
	rec := doJSON(e, http.MethodGet, "/v1/runs/run_missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/runs/run_missing/steps", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRuns(t *testing.T) {
	e, _ := newTestHandler(t)

	doJSON(e, http.MethodPost, "/v1/runs", `{"query":"Calculate 2+2"}`)
	doJSON(e, http.MethodPost, "/v1/runs", `{"query":"Calculate 10 / 0"}`)

	rec := doJSON(e, http.MethodGet, "/v1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Runs []domain.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Runs, 2)

	rec = doJSON(e, http.MethodGet, "/v1/runs?status=failed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, domain.RunStatusFailed, resp.Runs[0].Status)
}

func TestListRunsBadTimestamp(t *testing.T) {
	e, _ := newTestHandler(t)
	rec := doJSON(e, http.MethodGet, "/v1/runs?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetrics(t *testing.T) {
	e, _ := newTestHandler(t)

	doJSON(e, http.MethodPost, "/v1/runs", `{"query":"Calculate 2+2"}`)
	doJSON(e, http.MethodPost, "/v1/runs", `{"query":"Calculate 10 / 0"}`)

	rec := doJSON(e, http.MethodGet, "/v1/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot domain.MetricsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, 2, snapshot.TotalRuns)
	assert.Equal(t, 1, snapshot.Succeeded)
	assert.Equal(t, 1, snapshot.Failed)
	assert.Equal(t, 0.5, snapshot.SuccessRate)
	assert.Equal(t, 1, snapshot.ErrorCounts[domain.ErrorKindDivisionByZero])
}

func TestRunTestsAndSummary(t *testing.T) {
	e, _ := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/v1/tests/run", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Results []domain.TestResult `json:"results"`
		Summary domain.Summary      `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 9)
	assert.Equal(t, 9, resp.Summary.Total)

	rec = doJSON(e, http.MethodGet, "/v1/tests/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary domain.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 9, summary.Total)
	assert.Equal(t, summary.Passed, resp.Summary.Passed)
}
