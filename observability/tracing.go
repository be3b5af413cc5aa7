package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/feedbacksdev/fanout"

// Tracer provides OpenTelemetry tracing for the engine.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new engine tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartDeliverySpan starts a new span for a delivery attempt.
func (t *Tracer) StartDeliverySpan(ctx context.Context, projectID, endpointID, kind, event string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "fanout.delivery",
		trace.WithAttributes(
			attribute.String("fanout.project_id", projectID),
			attribute.String("fanout.endpoint_id", endpointID),
			attribute.String("fanout.kind", kind),
			attribute.String("fanout.event", event),
		),
	)
}

// EndDeliverySpan ends a delivery span with result attributes.
func (t *Tracer) EndDeliverySpan(span trace.Span, statusCode, latencyMs int, err string) {
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int("fanout.latency_ms", latencyMs),
	)
	if err != "" {
		span.SetAttributes(attribute.String("fanout.error", err))
	}
	span.End()
}

// StartDigestSpan starts a new span for one digest sweep.
func (t *Tracer) StartDigestSpan(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "fanout.digest_sweep")
}

// EndDigestSpan ends a digest sweep span with summary attributes.
func (t *Tracer) EndDigestSpan(span trace.Span, projects, delivered, failed int) {
	span.SetAttributes(
		attribute.Int("fanout.projects", projects),
		attribute.Int("fanout.delivered", delivered),
		attribute.Int("fanout.failed", failed),
	)
	span.End()
}
