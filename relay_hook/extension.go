package relayhook

import (
	"context"
	"time"

	"github.com/xraph/relay"
	"github.com/xraph/relay/event"

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

const defaultTenant = "redrive"

// Extension bridges redrive lifecycle events to Relay for webhook
// delivery. Each lifecycle hook emits a typed event via [relay.Relay.Send].
type Extension struct {
	relay    *relay.Relay
	tenant   string
	enabled  map[string]bool        // nil = all enabled
	payloads map[string]PayloadFunc // custom payload builders
}

// New creates an Extension that emits redrive lifecycle events
// through the provided Relay instance.
func New(r *relay.Relay, opts ...Option) *Extension {
	h := &Extension{relay: r, tenant: defaultTenant}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements ext.Extension.
func (h *Extension) Name() string { return "relay-hook" }

// ── Replay lifecycle hooks ──────────────────────────

// OnReplayStarted implements ext.ReplayStarted.
func (h *Extension) OnReplayStarted(ctx context.Context, run *replay.Run) error {
	return h.send(ctx, EventReplayStarted, h.tenant, newRunPayload(run))
}

// OnRecordReplayed implements ext.RecordReplayed.
func (h *Extension) OnRecordReplayed(ctx context.Context, run *replay.Run, rec *dlq.Record, elapsed time.Duration) error {
	return h.send(ctx, EventRecordReplayed, h.tenantOf(rec), &recordReplayedPayload{
		recordPayload: *newRecordPayload(run, rec),
		ElapsedMs:     elapsed.Milliseconds(),
	})
}

// OnRecordFailed implements ext.RecordFailed.
func (h *Extension) OnRecordFailed(ctx context.Context, run *replay.Run, rec *dlq.Record, recErr error) error {
	return h.send(ctx, EventRecordFailed, h.tenantOf(rec), &recordErrorPayload{
		recordPayload: *newRecordPayload(run, rec),
		Error:         recErr.Error(),
	})
}

// OnCleanupFailed implements ext.CleanupFailed.
func (h *Extension) OnCleanupFailed(ctx context.Context, run *replay.Run, rec *dlq.Record, cleanupErr error) error {
	return h.send(ctx, EventCleanupFailed, h.tenantOf(rec), &recordErrorPayload{
		recordPayload: *newRecordPayload(run, rec),
		Error:         cleanupErr.Error(),
	})
}

// OnReplayCompleted implements ext.ReplayCompleted.
func (h *Extension) OnReplayCompleted(ctx context.Context, run *replay.Run, summary *replay.Summary, elapsed time.Duration) error {
	return h.send(ctx, EventReplayCompleted, h.tenant, &replayCompletedPayload{
		runPayload: *newRunPayload(run),
		Summary:    summary,
		ElapsedMs:  elapsed.Milliseconds(),
	})
}

// ── Ingestion and sweep hooks ───────────────────────

// OnDeadLetterArchived implements ext.DeadLetterArchived.
func (h *Extension) OnDeadLetterArchived(ctx context.Context, rec *dlq.Record) error {
	return h.send(ctx, EventDeadLetterArchived, h.tenantOf(rec), &archivedPayload{
		RecordID:      rec.ID.String(),
		Subject:       rec.Subject,
		Stream:        rec.Stream,
		Consumer:      rec.Consumer,
		DeliveryCount: rec.DeliveryCount,
		Error:         rec.Error,
	})
}

// OnSweepFired implements ext.SweepFired.
func (h *Extension) OnSweepFired(ctx context.Context, schedule string, summary *replay.Summary, sweepErr error) error {
	p := &sweepPayload{Schedule: schedule, Summary: summary}
	if sweepErr != nil {
		p.Error = sweepErr.Error()
	}
	return h.send(ctx, EventSweepFired, h.tenant, p)
}

// ── Internal helpers ────────────────────────────────

func (h *Extension) tenantOf(rec *dlq.Record) string {
	if rec.Prefix != "" {
		return rec.Prefix
	}
	return h.tenant
}

// send emits an event through Relay if the event type is enabled.
func (h *Extension) send(ctx context.Context, eventType, tenantID string, defaultData any) error {
	if h.enabled != nil && !h.enabled[eventType] {
		return nil
	}

	data := defaultData
	if fn, ok := h.payloads[eventType]; ok {
		custom, err := fn(defaultData)
		if err != nil {
			return err
		}
		data = custom
	}

	return h.relay.Send(ctx, &event.Event{
		Type:     eventType,
		TenantID: tenantID,
		Data:     data,
	})
}

// ── Default payload types ───────────────────────────

type runPayload struct {
	ReplayID    string `json:"replay_id"`
	Kind        string `json:"kind"`
	AggregateID string `json:"aggregate_id,omitempty"`
}

func newRunPayload(run *replay.Run) *runPayload {
	p := &runPayload{ReplayID: run.ID.String(), Kind: string(run.Kind)}
	if run.AggregateID != nil {
		p.AggregateID = run.AggregateID.String()
	}
	return p
}

type replayCompletedPayload struct {
	runPayload
	Summary   *replay.Summary `json:"summary"`
	ElapsedMs int64           `json:"elapsed_ms"`
}

type recordPayload struct {
	ReplayID    string `json:"replay_id"`
	RecordID    string `json:"record_id"`
	Subject     string `json:"subject"`
	AggregateID string `json:"aggregate_id,omitempty"`
}

func newRecordPayload(run *replay.Run, rec *dlq.Record) *recordPayload {
	p := &recordPayload{
		ReplayID: run.ID.String(),
		RecordID: rec.ID.String(),
		Subject:  rec.Subject,
	}
	if rec.AggregateID != nil {
		p.AggregateID = rec.AggregateID.String()
	}
	return p
}

type recordReplayedPayload struct {
	recordPayload
	ElapsedMs int64 `json:"elapsed_ms"`
}

type recordErrorPayload struct {
	recordPayload
	Error string `json:"error"`
}

type archivedPayload struct {
	RecordID      string `json:"record_id"`
	Subject       string `json:"subject"`
	Stream        string `json:"stream,omitempty"`
	Consumer      string `json:"consumer,omitempty"`
	DeliveryCount uint64 `json:"delivery_count"`
	Error         string `json:"error,omitempty"`
}

type sweepPayload struct {
	Schedule string          `json:"schedule"`
	Summary  *replay.Summary `json:"summary,omitempty"`
	Error    string          `json:"error,omitempty"`
}
