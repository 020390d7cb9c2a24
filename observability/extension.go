package observability

import (
	"context"
	"time"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/ext"
	"github.com/xraph/redrive/replay"
)

// Compile-time interface checks.
var (
	_ ext.Extension          = (*MetricsExtension)(nil)
	_ ext.ReplayStarted      = (*MetricsExtension)(nil)
	_ ext.RecordReplayed     = (*MetricsExtension)(nil)
	_ ext.RecordFailed       = (*MetricsExtension)(nil)
	_ ext.CleanupFailed      = (*MetricsExtension)(nil)
	_ ext.ReplayCompleted    = (*MetricsExtension)(nil)
	_ ext.DeadLetterArchived = (*MetricsExtension)(nil)
	_ ext.SweepFired         = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide replay counters via a go-utils
// MetricFactory.
type MetricsExtension struct {
	ReplaysStarted   gu.Counter
	ReplaysCompleted gu.Counter
	RecordsReplayed  gu.Counter
	RecordsFailed    gu.Counter
	CleanupFailures  gu.Counter
	Archived         gu.Counter
	SweepsFired      gu.Counter
	SweepsFailed     gu.Counter
}

// NewMetricsExtension creates a MetricsExtension using a default metrics collector.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithFactory(gu.NewMetricsCollector("redrive/observability"))
}

// NewMetricsExtensionWithFactory creates a MetricsExtension with the
// provided MetricFactory. Use fapp.Metrics() in forge extensions, or
// gu.NewMetricsCollector in tests.
func NewMetricsExtensionWithFactory(factory gu.MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		ReplaysStarted:   factory.Counter("redrive.replay.started"),
		ReplaysCompleted: factory.Counter("redrive.replay.completed"),
		RecordsReplayed:  factory.Counter("redrive.record.replayed"),
		RecordsFailed:    factory.Counter("redrive.record.failed"),
		CleanupFailures:  factory.Counter("redrive.record.cleanup_failed"),
		Archived:         factory.Counter("redrive.dead_letter.archived"),
		SweepsFired:      factory.Counter("redrive.sweep.fired"),
		SweepsFailed:     factory.Counter("redrive.sweep.failed"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Replay hooks ────────────────────────────────────

// OnReplayStarted implements ext.ReplayStarted.
func (m *MetricsExtension) OnReplayStarted(_ context.Context, _ *replay.Run) error {
	m.ReplaysStarted.Inc()
	return nil
}

// OnRecordReplayed implements ext.RecordReplayed.
func (m *MetricsExtension) OnRecordReplayed(_ context.Context, _ *replay.Run, _ *dlq.Record, _ time.Duration) error {
	m.RecordsReplayed.Inc()
	return nil
}

// OnRecordFailed implements ext.RecordFailed.
func (m *MetricsExtension) OnRecordFailed(_ context.Context, _ *replay.Run, _ *dlq.Record, _ error) error {
	m.RecordsFailed.Inc()
	return nil
}

// OnCleanupFailed implements ext.CleanupFailed.
func (m *MetricsExtension) OnCleanupFailed(_ context.Context, _ *replay.Run, _ *dlq.Record, _ error) error {
	m.CleanupFailures.Inc()
	return nil
}

// OnReplayCompleted implements ext.ReplayCompleted.
func (m *MetricsExtension) OnReplayCompleted(_ context.Context, _ *replay.Run, _ *replay.Summary, _ time.Duration) error {
	m.ReplaysCompleted.Inc()
	return nil
}

// ── Ingestion and sweep hooks ───────────────────────

// OnDeadLetterArchived implements ext.DeadLetterArchived.
func (m *MetricsExtension) OnDeadLetterArchived(_ context.Context, _ *dlq.Record) error {
	m.Archived.Inc()
	return nil
}

// OnSweepFired implements ext.SweepFired.
func (m *MetricsExtension) OnSweepFired(_ context.Context, _ string, _ *replay.Summary, err error) error {
	m.SweepsFired.Inc()
	if err != nil {
		m.SweepsFailed.Inc()
	}
	return nil
}
