// Package client talks to the collaborator services at the editor's
// boundary: the execution backend that runs compiled workflows, and the
// workflow persistence service.
//
// Requests are context-cancellable and independent: each carries its own
// conversation-history snapshot captured at submission time, and responses
// are keyed by execution id, never by graph state. Use a Session to
// discard responses that arrive after their graph has been replaced.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas"
	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/config"
	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/observability"
)

// CollaboratorError reports an HTTP failure or a non-success response from
// a collaborator service. It is an opaque boundary failure: the core never
// retries it.
type CollaboratorError struct {
	// Op is the operation that failed ("execute", "create_workflow", ...).
	Op string
	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int
	// Message is a human-readable description.
	Message string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *CollaboratorError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Client calls the execution and persistence collaborators.
type Client struct {
	httpClient   *http.Client
	executionURL string
	workflowsURL string
	logger       *slog.Logger
	spans        observability.SpanManager
	metrics      observability.MetricsRecorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger enables structured request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client from settings. Tracing and metrics are enabled per
// the settings' toggles.
func New(settings config.Settings, opts ...Option) *Client {
	workflowsURL := settings.WorkflowsURL
	if workflowsURL == "" {
		workflowsURL = settings.ExecutionURL
	}
	c := &Client{
		httpClient:   &http.Client{Timeout: time.Duration(settings.RequestTimeout)},
		executionURL: settings.ExecutionURL,
		workflowsURL: workflowsURL,
		spans:        observability.NoopSpanManager{},
		metrics:      observability.NoopMetrics{},
	}
	if settings.Tracing {
		c.spans = observability.NewSpanManager()
	}
	if settings.Metrics {
		c.metrics = observability.NewMetricsRecorder()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExecuteRequest is the playground execution payload.
type ExecuteRequest struct {
	WorkflowID          string         `json:"workflow_id"`
	WorkflowIR          *pipecanvas.IR `json:"workflow_ir"`
	Question            string         `json:"question"`
	ConversationHistory []Message      `json:"conversation_history"`
}

// ExecuteResponse is the execution backend's reply. Result maps end-node
// ids to their field values.
type ExecuteResponse struct {
	Success     bool                      `json:"success"`
	Result      map[string]map[string]any `json:"result,omitempty"`
	ExecutionID string                    `json:"execution_id,omitempty"`
	Error       string                    `json:"error,omitempty"`
	Detail      string                    `json:"detail,omitempty"`
}

// Execute submits a compiled workflow with a question and history snapshot
// to the execution backend. Callers must compile (and therefore validate)
// the graph before calling; an invalid graph never reaches the backend.
//
// Multiple Execute calls may be in flight concurrently; each is
// independent. Cancel via ctx.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error) {
	if req.WorkflowIR == nil {
		return nil, &CollaboratorError{Op: "execute", Message: "workflow IR is required"}
	}
	req.ConversationHistory = HistorySnapshot(req.ConversationHistory)

	ctx, span := c.spans.StartExecutionSpan(ctx, req.WorkflowID)
	start := time.Now()
	observability.LogExecutionStart(c.logger, req.WorkflowID)

	var resp ExecuteResponse
	err := c.postJSON(ctx, "execute", c.executionURL+"/execution/playground", req, &resp)
	duration := time.Since(start)
	if err == nil && !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = resp.Detail
		}
		err = &CollaboratorError{Op: "execute", Message: msg}
	}

	c.metrics.RecordExecution(ctx, err == nil, duration)
	c.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogExecutionError(c.logger, req.WorkflowID, err, float64(duration.Milliseconds()))
		return nil, err
	}
	observability.LogExecutionComplete(c.logger, req.WorkflowID, resp.ExecutionID, float64(duration.Milliseconds()))
	return &resp, nil
}

// postJSON sends a JSON request body and decodes a JSON response into out.
// Non-2xx statuses are returned as *CollaboratorError.
func (c *Client) postJSON(ctx context.Context, op, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &CollaboratorError{Op: op, Message: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &CollaboratorError{Op: op, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Preserve context cancellation for callers that check errors.Is.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &CollaboratorError{Op: op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &CollaboratorError{Op: op, StatusCode: resp.StatusCode, Message: string(detail)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &CollaboratorError{Op: op, Message: "decode response", Err: err}
	}
	return nil
}

// IsCollaboratorError reports whether err is a boundary failure from a
// collaborator service.
func IsCollaboratorError(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}
