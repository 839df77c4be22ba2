package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records editor-core metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordMutation records one applied or rejected graph mutation.
	RecordMutation(ctx context.Context, op string, rejected bool)

	// RecordCompile records one compilation with its duration and outcome.
	RecordCompile(ctx context.Context, nodeCount int, duration time.Duration, err error)

	// RecordExecution records one execution-client round trip.
	RecordExecution(ctx context.Context, success bool, duration time.Duration)
}

type otelMetrics struct {
	mutations      metric.Int64Counter
	compiles       metric.Int64Counter
	compileErrors  metric.Int64Counter
	compileLatency metric.Float64Histogram
	executions     metric.Int64Counter
	execLatency    metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("pipecanvas")

	mutations, err := meter.Int64Counter("pipecanvas.graph.mutations",
		metric.WithDescription("Number of graph mutations"),
	)
	if err != nil {
		return nil, err
	}

	compiles, err := meter.Int64Counter("pipecanvas.compiles",
		metric.WithDescription("Number of graph compilations"),
	)
	if err != nil {
		return nil, err
	}

	compileErrors, err := meter.Int64Counter("pipecanvas.compile.errors",
		metric.WithDescription("Number of failed compilations"),
	)
	if err != nil {
		return nil, err
	}

	compileLatency, err := meter.Float64Histogram("pipecanvas.compile.latency_ms",
		metric.WithDescription("Compilation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	executions, err := meter.Int64Counter("pipecanvas.executions",
		metric.WithDescription("Number of execution-client round trips"),
	)
	if err != nil {
		return nil, err
	}

	execLatency, err := meter.Float64Histogram("pipecanvas.execution.latency_ms",
		metric.WithDescription("Execution round-trip latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		mutations:      mutations,
		compiles:       compiles,
		compileErrors:  compileErrors,
		compileLatency: compileLatency,
		executions:     executions,
		execLatency:    execLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordMutation records one graph mutation.
func (m *otelMetrics) RecordMutation(ctx context.Context, op string, rejected bool) {
	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("rejected", rejected),
	))
}

// RecordCompile records one compilation.
func (m *otelMetrics) RecordCompile(ctx context.Context, nodeCount int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", err == nil),
	}
	m.compiles.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.compileLatency.Record(ctx, float64(duration.Microseconds())/1000.0, metric.WithAttributes(attrs...))
	if err != nil {
		m.compileErrors.Add(ctx, 1)
	}
}

// RecordExecution records one execution round trip.
func (m *otelMetrics) RecordExecution(ctx context.Context, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.executions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.execLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}
