// Package telemetry wraps the OpenTelemetry span lifecycle for a single
// connection: one span from Accepted to Closed, carrying the attributes
// spec.md §4.8's snapshot already tracks in-process. Repointed from
// per-request middleware spans to per-connection spans, since dropgate's
// unit of observability is the connection, not a routed request.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/albertbausili/dropgate/internal/telemetry"

// Tracer wraps an otel.Tracer for connection-lifecycle spans.
type Tracer struct {
	tracer trace.Tracer
}

// New returns a Tracer drawing from the global TracerProvider. Callers
// that want isolation should call otel.SetTracerProvider first.
func New() *Tracer {
	return &Tracer{tracer: otel.Tracer(tracerName)}
}

// ConnectionSpan wraps the span for one connection's full lifetime.
type ConnectionSpan struct {
	span trace.Span
	ctx  context.Context
}

// Start begins a span for a newly accepted connection.
func (t *Tracer) Start(ctx context.Context, connID uint64, peer string) *ConnectionSpan {
	ctx, span := t.tracer.Start(ctx, "connection",
		trace.WithAttributes(
			attribute.Int64("dropgate.connection.id", int64(connID)),
			attribute.String("net.peer.addr", peer),
		),
	)
	return &ConnectionSpan{span: span, ctx: ctx}
}

// SetRequest records the request line once the head has been parsed.
func (s *ConnectionSpan) SetRequest(method, path string) {
	if s == nil {
		return
	}
	s.span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.target", path),
	)
}

// SetResponse records the status and body size once the response head has
// been written.
func (s *ConnectionSpan) SetResponse(status int, bytesWritten int64) {
	if s == nil {
		return
	}
	s.span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.Int64("dropgate.connection.bytes_written", bytesWritten),
	)
	if status >= 500 {
		s.span.SetStatus(codes.Error, "server error")
	}
}

// RecordError attaches err to the span without ending it.
func (s *ConnectionSpan) RecordError(err error) {
	if s == nil || err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// End closes the span when the connection reaches Closed.
func (s *ConnectionSpan) End() {
	if s == nil {
		return
	}
	s.span.End()
}

// Context returns the span-carrying context, for callers that need to
// pass it to further instrumented calls.
func (s *ConnectionSpan) Context() context.Context {
	if s == nil {
		return context.Background()
	}
	return s.ctx
}
