package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the pipecanvas tracer instance, backed by the global OTel
// tracer provider.
var tracer = otel.Tracer("pipecanvas")

// SpanManager handles trace span lifecycle for compile and execution
// boundaries. Use NewSpanManager() for OTel tracing or NoopSpanManager{}
// when disabled.
type SpanManager interface {
	// StartCompileSpan starts a span covering one graph compilation.
	StartCompileSpan(ctx context.Context, nodeCount, edgeCount int) (context.Context, trace.Span)

	// StartExecutionSpan starts a span covering one execution-client call.
	StartExecutionSpan(ctx context.Context, workflowID string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartCompileSpan starts a span covering one graph compilation.
func (m *otelSpanManager) StartCompileSpan(ctx context.Context, nodeCount, edgeCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "pipecanvas.compile",
		trace.WithAttributes(
			attribute.Int("graph.nodes", nodeCount),
			attribute.Int("graph.edges", edgeCount),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartExecutionSpan starts a span covering one execution-client call.
func (m *otelSpanManager) StartExecutionSpan(ctx context.Context, workflowID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "pipecanvas.execute",
		trace.WithAttributes(
			attribute.String("workflow.id", workflowID),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
