package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cellsight/cellsight/domain"
	"github.com/cellsight/cellsight/tracer"
)

// Remote invokes an external agent service over HTTP. The service receives the
// query plus run_id, runs to completion, and reports its tool usage in the
// response; Remote replays that usage into the trace.
type Remote struct {
	endpoint string
	client   *http.Client
}

// NewRemote creates a remote capability for the given endpoint.
func NewRemote(endpoint string, timeout time.Duration) *Remote {
	return &Remote{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

var _ Capability = (*Remote)(nil)

type remoteRequest struct {
	RunID string `json:"run_id"`
	Query string `json:"query"`
}

type remoteToolCall struct {
	Tool   string          `json:"tool"`
	Args   json.RawMessage `json:"args,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

type remoteResponse struct {
	Output    string           `json:"output"`
	ToolCalls []remoteToolCall `json:"tool_calls,omitempty"`
	Error     *remoteError     `json:"error,omitempty"`
}

type remoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Execute posts the query to the remote agent and records the reported tool
// calls as trace steps.
func (r *Remote) Execute(ctx context.Context, query string, handle *tracer.RunHandle) (string, error) {
	body, err := json.Marshal(remoteRequest{RunID: handle.RunID(), Query: query})
	if err != nil {
		return "", fmt.Errorf("failed to encode agent request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/invoke", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read agent response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("agent API error: status %d - %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out remoteResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("invalid agent response: %w", err)
	}

	for _, tc := range out.ToolCalls {
		if _, err := handle.RecordStep(ctx, domain.StepTypeToolCall, domain.ToolCallPayload{
			Tool: tc.Tool,
			Args: tc.Args,
		}); err != nil {
			return "", err
		}
		if _, err := handle.RecordStep(ctx, domain.StepTypeToolResult, domain.ToolResultPayload{
			Tool:   tc.Tool,
			Result: tc.Result,
		}); err != nil {
			return "", err
		}
	}

	if out.Error != nil {
		return "", fmt.Errorf("%s: %s", out.Error.Code, out.Error.Message)
	}

	if _, err := handle.RecordStep(ctx, domain.StepTypeFinalAnswer, domain.FinalAnswerPayload{Output: out.Output}); err != nil {
		return "", err
	}
	return out.Output, nil
}
