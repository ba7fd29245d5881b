// OpenTelemetry tracing helpers for the task pipeline.
package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies this instrumentation library in exported spans.
const tracerName = "github.com/taskflow-go/taskflow"

var (
	tracerMu sync.RWMutex
	tracer   trace.Tracer
)

// SetTracer overrides the tracer used by the pipeline. Intended for
// tests and for applications that manage their own provider instances.
func SetTracer(t trace.Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	tracer = t
}

// Tracer returns the pipeline tracer. Without an explicit SetTracer it
// resolves against the global otel provider, so spans are no-ops until
// the embedding application installs an SDK provider.
func Tracer() trace.Tracer {
	tracerMu.RLock()
	t := tracer
	tracerMu.RUnlock()
	if t != nil {
		return t
	}
	return otel.Tracer(tracerName)
}

// WithTaskAttrs returns a span start option carrying the standard task
// attributes.
func WithTaskAttrs(taskID, priority string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("task.id", taskID),
		attribute.String("task.priority", priority),
	)
}

// SetBatchSize records how many tasks a claim returned.
func SetBatchSize(span trace.Span, n int) {
	span.SetAttributes(attribute.Int("dispatch.batch_size", n))
}

// RecordError marks the span as failed and records the error event.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
