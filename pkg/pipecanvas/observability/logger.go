// Package observability provides structured logging, metrics, and
// distributed tracing for the workflow editor core.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// LogMutation logs an applied graph mutation.
func LogMutation(logger *slog.Logger, op, nodeID, edgeID string) {
	if logger == nil {
		return
	}
	attrs := []any{
		slog.String("op", op),
		slog.String("node_id", nodeID),
	}
	if edgeID != "" {
		attrs = append(attrs, slog.String("edge_id", edgeID))
	}
	logger.Debug("graph mutation", attrs...)
}

// LogMutationRejected logs a refused mutation with its reason.
func LogMutationRejected(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Debug("graph mutation rejected",
		slog.String("op", op),
		slog.String("reason", err.Error()),
	)
}

// LogCompileStart logs the beginning of a compilation.
func LogCompileStart(logger *slog.Logger, nodeCount, edgeCount int) {
	if logger == nil {
		return
	}
	logger.Debug("compile starting",
		slog.Int("nodes", nodeCount),
		slog.Int("edges", edgeCount),
	)
}

// LogCompileComplete logs a successful compilation.
func LogCompileComplete(logger *slog.Logger, nodeCount, edgeCount int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("compile completed",
		slog.Int("nodes", nodeCount),
		slog.Int("edges", edgeCount),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogCompileError logs a failed compilation.
func LogCompileError(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Error("compile failed",
		slog.String("error", err.Error()),
	)
}

// LogUnresolvedPlaceholders warns about instruction placeholders that no
// upstream field provides. Non-fatal.
func LogUnresolvedPlaceholders(logger *slog.Logger, nodeID string, names []string) {
	if logger == nil {
		return
	}
	logger.Warn("instruction references unknown fields",
		slog.String("node_id", nodeID),
		slog.Any("fields", names),
	)
}

// LogExecutionStart logs the submission of a compiled workflow.
func LogExecutionStart(logger *slog.Logger, workflowID string) {
	if logger == nil {
		return
	}
	logger.Info("execution submitted",
		slog.String("workflow_id", workflowID),
	)
}

// LogExecutionComplete logs a completed execution round trip.
func LogExecutionComplete(logger *slog.Logger, workflowID, executionID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("execution completed",
		slog.String("workflow_id", workflowID),
		slog.String("execution_id", executionID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogExecutionError logs a failed execution round trip.
func LogExecutionError(logger *slog.Logger, workflowID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("execution failed",
		slog.String("workflow_id", workflowID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000.0
	}
}
