// Package api exposes the read/report surface consumed by dashboards and CLIs.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cellsight/cellsight/agent"
	"github.com/cellsight/cellsight/domain"
	"github.com/cellsight/cellsight/harness"
	"github.com/cellsight/cellsight/store"
	"github.com/cellsight/cellsight/tracer"
)

// Handler bundles the HTTP handlers over the tracer and harness.
type Handler struct {
	tracer     *tracer.Tracer
	capability agent.Capability
	harness    *harness.Harness
}

// NewHandler creates the API handler.
func NewHandler(t *tracer.Tracer, capability agent.Capability, h *harness.Harness) *Handler {
	return &Handler{tracer: t, capability: capability, harness: h}
}

// RegisterRoutes registers all API routes on an echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/runs", h.CreateRun)
	e.GET("/v1/runs", h.ListRuns)
	e.GET("/v1/runs/:run_id", h.GetRun)
	e.GET("/v1/runs/:run_id/steps", h.GetSteps)
	e.GET("/v1/metrics", h.Metrics)
	e.POST("/v1/tests/run", h.RunTests)
	e.GET("/v1/tests/summary", h.TestSummary)
}

type createRunRequest struct {
	Query string `json:"query"`
}

type createRunResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// CreateRun drives one traced agent run for the given query.
func (h *Handler) CreateRun(c echo.Context) error {
	var req createRunRequest
	if err := c.Bind(&req); err != nil || req.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	ctx := c.Request().Context()
	runID, output, err := agent.Run(ctx, h.tracer, h.capability, req.Query)
	if err != nil {
		// Domain failures are data here, not transport errors.
		return c.JSON(http.StatusOK, createRunResponse{
			RunID:  runID,
			Status: string(domain.RunStatusFailed),
			Error:  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, createRunResponse{
		RunID:  runID,
		Status: string(domain.RunStatusSuccess),
		Output: output,
	})
}

// ListRuns lists runs filtered by status and time range.
func (h *Handler) ListRuns(c echo.Context) error {
	filter := store.RunFilter{Limit: 50}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := c.QueryParam("status"); v != "" {
		filter.Status = domain.RunStatus(v)
	}
	if rng, err := parseTimeRange(c); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	} else if rng != nil {
		filter.Range = rng
	}

	runs, err := h.tracer.ListRuns(c.Request().Context(), filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"runs": runs})
}

// GetRun returns one run.
func (h *Handler) GetRun(c echo.Context) error {
	run, err := h.tracer.Run(c.Request().Context(), c.Param("run_id"))
	if err == store.ErrUnknownRun {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, run)
}

// GetSteps returns the ordered step sequence of a run.
func (h *Handler) GetSteps(c echo.Context) error {
	steps, err := h.tracer.Steps(c.Request().Context(), c.Param("run_id"))
	if err == store.ErrUnknownRun {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if steps == nil {
		steps = []domain.Step{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"steps": steps})
}

// Metrics returns the live aggregate over run history.
func (h *Handler) Metrics(c echo.Context) error {
	rng, err := parseTimeRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	snapshot, err := h.tracer.Metrics(c.Request().Context(), rng)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, snapshot)
}

// RunTests executes the registered suite and returns results plus summary.
func (h *Handler) RunTests(c echo.Context) error {
	results := h.harness.RunAll(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]interface{}{
		"results": results,
		"summary": h.harness.Summary(),
	})
}

// TestSummary returns the summary of the last suite execution.
func (h *Handler) TestSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.harness.Summary())
}

func parseTimeRange(c echo.Context) (*store.TimeRange, error) {
	from := c.QueryParam("from")
	to := c.QueryParam("to")
	if from == "" && to == "" {
		return nil, nil
	}
	var rng store.TimeRange
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return nil, fmt.Errorf("invalid from timestamp")
		}
		rng.From = t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return nil, fmt.Errorf("invalid to timestamp")
		}
		rng.To = t
	}
	return &rng, nil
}
