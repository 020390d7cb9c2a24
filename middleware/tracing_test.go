package middleware_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	mw "github.com/xraph/redrive/middleware"
)

func setupTestTracer() (*tracetest.SpanRecorder, trace.Tracer) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp.Tracer("test")
}

func onlySpan(t *testing.T, sr *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	return spans[0]
}

func TestTracing_Span(t *testing.T) {
	sr, tracer := setupTestTracer()
	rec := newTestRecord()

	var inner trace.SpanContext
	err := mw.TracingWithTracer(tracer)(context.Background(), rec, func(ctx context.Context) error {
		inner = trace.SpanContextFromContext(ctx)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	span := onlySpan(t, sr)
	if span.Name() != "redrive.record.replay" {
		t.Errorf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", span.Status().Code)
	}
	if !inner.IsValid() || inner.SpanID() != span.SpanContext().SpanID() {
		t.Error("projection did not run inside the replay span")
	}
	if len(span.Links()) != 0 {
		t.Errorf("links = %d, want 0 without traceparent", len(span.Links()))
	}

	got := map[string]any{}
	for _, a := range span.Attributes() {
		switch a.Value.Type() {
		case attribute.STRING:
			got[string(a.Key)] = a.Value.AsString()
		case attribute.INT64:
			got[string(a.Key)] = a.Value.AsInt64()
		}
	}
	want := map[string]any{
		"redrive.record.id":      rec.ID.String(),
		"redrive.aggregate.id":   rec.AggregateID.String(),
		"redrive.subject":        rec.Subject,
		"redrive.stream":         "EVENTS",
		"redrive.delivery_count": int64(4),
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("attribute %q = %v, want %v", k, got[k], v)
		}
	}
}

func TestTracing_ErrorStatus(t *testing.T) {
	sr, tracer := setupTestTracer()

	boom := errors.New("projector failed")
	err := mw.TracingWithTracer(tracer)(context.Background(), newTestRecord(), func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	span := onlySpan(t, sr)
	if span.Status().Code != codes.Error || span.Status().Description != "projector failed" {
		t.Errorf("status = %+v", span.Status())
	}
	recorded := false
	for _, ev := range span.Events() {
		recorded = recorded || ev.Name == "exception"
	}
	if !recorded {
		t.Error("error was not recorded on the span")
	}
}

func TestTracing_LinksToOriginalPublish(t *testing.T) {
	for _, key := range []string{"traceparent", "Traceparent", "TRACEPARENT"} {
		t.Run(key, func(t *testing.T) {
			sr, tracer := setupTestTracer()
			rec := newTestRecord()
			rec.Headers = nats.Header{}
			rec.Headers.Set(key, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

			_ = mw.TracingWithTracer(tracer)(context.Background(), rec, func(context.Context) error { return nil })

			links := onlySpan(t, sr).Links()
			if len(links) != 1 {
				t.Fatalf("links = %d, want 1", len(links))
			}
			if got := links[0].SpanContext.TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
				t.Errorf("linked trace = %s", got)
			}
			if got := links[0].SpanContext.SpanID().String(); got != "00f067aa0ba902b7" {
				t.Errorf("linked span = %s", got)
			}
		})
	}
}

func TestTracing_NoLinkWithoutTraceparent(t *testing.T) {
	sr, tracer := setupTestTracer()
	rec := newTestRecord()
	rec.Headers = nats.Header{"Event-Version": []string{"1"}}

	_ = mw.TracingWithTracer(tracer)(context.Background(), rec, func(context.Context) error { return nil })

	if links := onlySpan(t, sr).Links(); len(links) != 0 {
		t.Errorf("links = %d, want 0", len(links))
	}
}

func TestTracing_GlobalProviderIsSafe(t *testing.T) {
	called := false
	err := mw.Tracing()(context.Background(), newTestRecord(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("err = %v, called = %v", err, called)
	}
}
