package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/redrive/dlq"
)

// meterName is the instrumentation scope name for redrive metrics.
const meterName = "github.com/xraph/redrive"

// Metrics returns middleware recording per-record projection metrics on
// the global MeterProvider.
//
// Instruments:
//   - redrive.record.duration (Float64Histogram, seconds)
//   - redrive.record.replays (Int64Counter)
//
// Both carry the attributes prefix and status ("ok" or "error").
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// The API hands back noop instruments on error.
	duration, _ := meter.Float64Histogram(
		"redrive.record.duration",
		metric.WithDescription("Duration of record projection during replay in seconds"),
		metric.WithUnit("s"),
	)
	replays, _ := meter.Int64Counter(
		"redrive.record.replays",
		metric.WithDescription("Total number of record replay attempts"),
		metric.WithUnit("{replay}"),
	)

	return func(ctx context.Context, rec *dlq.Record, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("prefix", rec.Prefix),
			attribute.String("status", status),
		)
		duration.Record(ctx, elapsed, attrs)
		replays.Add(ctx, 1, attrs)

		return err
	}
}
