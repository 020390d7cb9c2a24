package middleware

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/redrive/dlq"
)

// tracerName is the instrumentation scope name for redrive tracing.
const tracerName = "github.com/xraph/redrive"

// Tracing returns middleware that wraps each projection in a span from
// the global TracerProvider. Without a configured provider it is a no-op.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
//
// Span attributes: redrive.record.id, redrive.aggregate.id,
// redrive.subject, redrive.stream, redrive.delivery_count. When the
// archived headers carry a W3C traceparent, the span links to the
// original publish.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, rec *dlq.Record, next Handler) error {
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String("redrive.record.id", rec.ID.String()),
				attribute.String("redrive.aggregate.id", aggregateOf(rec)),
				attribute.String("redrive.subject", rec.Subject),
				attribute.String("redrive.stream", rec.Stream),
				attribute.Int64("redrive.delivery_count", int64(rec.DeliveryCount)), //nolint:gosec // delivery counts are small
			),
		}
		if sc := originOf(rec); sc.IsValid() {
			opts = append(opts, trace.WithLinks(trace.Link{SpanContext: sc}))
		}

		ctx, span := tracer.Start(ctx, "redrive.record.replay", opts...)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}

// originOf extracts the span context the record was published under.
// NATS header keys are case-sensitive, so keys are lower-cased to match
// the W3C field names whichever spelling the publisher used.
func originOf(rec *dlq.Record) trace.SpanContext {
	if len(rec.Headers) == 0 {
		return trace.SpanContext{}
	}
	carrier := make(propagation.MapCarrier, len(rec.Headers))
	for k, v := range rec.Headers {
		if len(v) > 0 {
			carrier[strings.ToLower(k)] = v[0]
		}
	}
	ctx := propagation.TraceContext{}.Extract(context.Background(), carrier)
	return trace.SpanContextFromContext(ctx)
}
