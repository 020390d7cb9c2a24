package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/ext"
	"github.com/xraph/redrive/replay"
)

// Compile-time interface checks.
var (
	_ ext.Extension          = (*Extension)(nil)
	_ ext.ReplayStarted      = (*Extension)(nil)
	_ ext.RecordReplayed     = (*Extension)(nil)
	_ ext.RecordFailed       = (*Extension)(nil)
	_ ext.CleanupFailed      = (*Extension)(nil)
	_ ext.ReplayCompleted    = (*Extension)(nil)
	_ ext.DeadLetterArchived = (*Extension)(nil)
	_ ext.SweepFired         = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so the package does not import Chronicle; callers
// inject the concrete backend at wiring time.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
// Callers provide a RecorderFunc adapter that bridges to their audit backend.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
//
// Example bridging to Chronicle:
//
//	audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
//	    b := chronicle.Info(ctx, evt.Action, evt.Resource, evt.ResourceID).
//	        Category(evt.Category).
//	        Outcome(evt.Outcome)
//	    for k, v := range evt.Metadata {
//	        b = b.Meta(k, v)
//	    }
//	    return b.Record()
//	})
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants (mirror chronicle/audit).
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants (mirror chronicle/audit).
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges redrive lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Replay lifecycle hooks ──────────────────────────

// OnReplayStarted implements ext.ReplayStarted.
func (e *Extension) OnReplayStarted(ctx context.Context, run *replay.Run) error {
	return e.record(ctx, ActionReplayStarted, SeverityInfo, OutcomeSuccess,
		ResourceReplay, run.ID.String(), CategoryReplay, nil,
		runMeta(run)...,
	)
}

// OnRecordReplayed implements ext.RecordReplayed.
func (e *Extension) OnRecordReplayed(ctx context.Context, run *replay.Run, rec *dlq.Record, elapsed time.Duration) error {
	return e.record(ctx, ActionRecordReplayed, SeverityInfo, OutcomeSuccess,
		ResourceDeadLetter, rec.ID.String(), CategoryReplay, nil,
		append(recordMeta(run, rec), "elapsed_ms", elapsed.Milliseconds())...,
	)
}

// OnRecordFailed implements ext.RecordFailed.
func (e *Extension) OnRecordFailed(ctx context.Context, run *replay.Run, rec *dlq.Record, recErr error) error {
	return e.record(ctx, ActionRecordFailed, SeverityWarning, OutcomeFailure,
		ResourceDeadLetter, rec.ID.String(), CategoryReplay, recErr,
		recordMeta(run, rec)...,
	)
}

// OnCleanupFailed implements ext.CleanupFailed.
func (e *Extension) OnCleanupFailed(ctx context.Context, run *replay.Run, rec *dlq.Record, cleanupErr error) error {
	return e.record(ctx, ActionCleanupFailed, SeverityWarning, OutcomeFailure,
		ResourceDeadLetter, rec.ID.String(), CategoryReplay, cleanupErr,
		recordMeta(run, rec)...,
	)
}

// OnReplayCompleted implements ext.ReplayCompleted.
func (e *Extension) OnReplayCompleted(ctx context.Context, run *replay.Run, summary *replay.Summary, elapsed time.Duration) error {
	severity, outcome := SeverityInfo, OutcomeSuccess
	if summary.FailedReplays > 0 {
		severity, outcome = SeverityWarning, OutcomeFailure
	}
	return e.record(ctx, ActionReplayCompleted, severity, outcome,
		ResourceReplay, run.ID.String(), CategoryReplay, nil,
		append(runMeta(run),
			"total_events", summary.TotalEvents,
			"successful_replays", summary.SuccessfulReplays,
			"failed_replays", summary.FailedReplays,
			"elapsed_ms", elapsed.Milliseconds(),
		)...,
	)
}

// ── Ingestion and sweep hooks ───────────────────────

// OnDeadLetterArchived implements ext.DeadLetterArchived.
func (e *Extension) OnDeadLetterArchived(ctx context.Context, rec *dlq.Record) error {
	return e.record(ctx, ActionDeadLetterArchived, SeverityWarning, OutcomeFailure,
		ResourceDeadLetter, rec.ID.String(), CategoryDeadLetter, nil,
		"subject", rec.Subject,
		"stream", rec.Stream,
		"delivery_count", rec.DeliveryCount,
		"cause", rec.Error,
	)
}

// OnSweepFired implements ext.SweepFired.
func (e *Extension) OnSweepFired(ctx context.Context, schedule string, summary *replay.Summary, sweepErr error) error {
	severity, outcome := SeverityInfo, OutcomeSuccess
	if sweepErr != nil {
		severity, outcome = SeverityCritical, OutcomeFailure
	}
	kv := []any{"idle", summary == nil}
	if summary != nil {
		kv = append(kv, "total_events", summary.TotalEvents, "failed_replays", summary.FailedReplays)
	}
	return e.record(ctx, ActionSweepFired, severity, outcome,
		ResourceSweep, schedule, CategorySweep, sweepErr,
		kv...,
	)
}

func runMeta(run *replay.Run) []any {
	kv := []any{"kind", string(run.Kind)}
	if run.AggregateID != nil {
		kv = append(kv, "aggregate_id", run.AggregateID.String())
	}
	return kv
}

func recordMeta(run *replay.Run, rec *dlq.Record) []any {
	kv := []any{
		"replay_id", run.ID.String(),
		"subject", rec.Subject,
		"delivery_count", rec.DeliveryCount,
	}
	if rec.AggregateID != nil {
		kv = append(kv, "aggregate_id", rec.AggregateID.String())
	}
	return kv
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", action),
			slog.String("resource_id", resourceID),
			slog.String("error", recErr.Error()),
		)
	}
	return nil
}
