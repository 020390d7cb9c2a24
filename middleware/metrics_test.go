package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	mw "github.com/xraph/redrive/middleware"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func stringAttrs(set attribute.Set) map[string]string {
	out := map[string]string{}
	for _, kv := range set.ToSlice() {
		if kv.Value.Type() == attribute.STRING {
			out[string(kv.Key)] = kv.Value.AsString()
		}
	}
	return out
}

func TestMetrics(t *testing.T) {
	tests := []struct {
		name       string
		calls      []error
		wantStatus map[string]int64
	}{
		{"success", []error{nil}, map[string]int64{"ok": 1}},
		{"failure", []error{errors.New("boom")}, map[string]int64{"error": 1}},
		{"mixed", []error{nil, errors.New("boom"), nil}, map[string]int64{"ok": 2, "error": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := sdkmetric.NewManualReader()
			mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			m := mw.MetricsWithMeter(mp.Meter("test"))
			rec := newTestRecord()

			for _, want := range tt.calls {
				got := m(context.Background(), rec, func(context.Context) error { return want })
				if !errors.Is(got, want) {
					t.Fatalf("middleware returned %v, want %v", got, want)
				}
			}

			metrics := collect(t, reader)

			replays, ok := metrics["redrive.record.replays"].Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatal("redrive.record.replays is not an int64 sum")
			}
			gotStatus := map[string]int64{}
			for _, dp := range replays.DataPoints {
				attrs := stringAttrs(dp.Attributes)
				if attrs["prefix"] != "users" {
					t.Errorf("prefix attribute = %q, want users", attrs["prefix"])
				}
				gotStatus[attrs["status"]] += dp.Value
			}
			for status, want := range tt.wantStatus {
				if gotStatus[status] != want {
					t.Errorf("replays{status=%s} = %d, want %d", status, gotStatus[status], want)
				}
			}

			hist, ok := metrics["redrive.record.duration"].Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatal("redrive.record.duration is not a float64 histogram")
			}
			var count uint64
			for _, dp := range hist.DataPoints {
				count += dp.Count
			}
			if count != uint64(len(tt.calls)) {
				t.Errorf("duration samples = %d, want %d", count, len(tt.calls))
			}
		})
	}
}

func TestMetrics_GlobalProviderIsSafe(t *testing.T) {
	called := false
	err := mw.Metrics()(context.Background(), newTestRecord(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("err = %v, called = %v", err, called)
	}
}
