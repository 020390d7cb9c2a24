package relayhook_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xraph/relay"
	revent "github.com/xraph/relay/event"
	"github.com/xraph/relay/store/memory"

	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/ext"
	"github.com/xraph/redrive/id"
	rh "github.com/xraph/redrive/relay_hook"
	"github.com/xraph/redrive/replay"
)

// ── Helpers ─────────────────────────────────────────

func newTestRelay(t *testing.T) *relay.Relay {
	t.Helper()
	r, err := relay.New(relay.WithStore(memory.New()))
	if err != nil {
		t.Fatalf("failed to create relay: %v", err)
	}
	if err := rh.RegisterAll(context.Background(), r); err != nil {
		t.Fatalf("failed to register event types: %v", err)
	}
	return r
}

func newTestRecord() *dlq.Record {
	agg := uuid.MustParse("0190d4a4-8f4e-7c1a-9f1a-1d2e3f405060")
	return &dlq.Record{
		ID:            id.NewDeadLetterID(),
		AggregateID:   &agg,
		Subject:       "users.UserCreated." + agg.String(),
		Prefix:        "users",
		Stream:        "EVENTS",
		DeliveryCount: 4,
	}
}

func newTestRun() *replay.Run {
	return &replay.Run{ID: id.NewReplayID(), Kind: replay.KindAll, StartedAt: time.Now()}
}

// lastEvent retrieves the most recent event from the relay store with the
// given type. It fails the test if no matching event is found.
func lastEvent(t *testing.T, r *relay.Relay, eventType string) *revent.Event {
	t.Helper()
	events, err := r.Store().ListEvents(context.Background(), revent.ListOpts{
		Type:  eventType,
		Limit: 1,
	})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) == 0 {
		t.Fatalf("no %s event found", eventType)
	}
	return events[0]
}

// ── Tests ───────────────────────────────────────────

func TestRelayHookExtension_Name(t *testing.T) {
	r := newTestRelay(t)
	h := rh.New(r)
	if h.Name() != "relay-hook" {
		t.Errorf("expected name %q, got %q", "relay-hook", h.Name())
	}
}

func TestRelayHookExtension_ReplayStarted(t *testing.T) {
	r := newTestRelay(t)
	h := rh.New(r)

	if err := h.OnReplayStarted(context.Background(), newTestRun()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	evt := lastEvent(t, r, rh.EventReplayStarted)
	if evt.TenantID != "redrive" {
		t.Errorf("TenantID: want %q, got %q", "redrive", evt.TenantID)
	}
}

func TestRelayHookExtension_WithTenant(t *testing.T) {
	r := newTestRelay(t)
	h := rh.New(r, rh.WithTenant("ops"))

	if err := h.OnReplayCompleted(context.Background(), newTestRun(), &replay.Summary{}, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	evt := lastEvent(t, r, rh.EventReplayCompleted)
	if evt.TenantID != "ops" {
		t.Errorf("TenantID: want %q, got %q", "ops", evt.TenantID)
	}
}

func TestRelayHookExtension_RecordEventsUsePrefixTenant(t *testing.T) {
	r := newTestRelay(t)
	h := rh.New(r)
	ctx := context.Background()

	if err := h.OnRecordReplayed(ctx, newTestRun(), newTestRecord(), time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.OnRecordFailed(ctx, newTestRun(), newTestRecord(), errors.New("boom")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, et := range []string{rh.EventRecordReplayed, rh.EventRecordFailed} {
		evt := lastEvent(t, r, et)
		if evt.TenantID != "users" {
			t.Errorf("%s TenantID: want %q, got %q", et, "users", evt.TenantID)
		}
	}
}

func TestRelayHookExtension_WithEvents_FiltersDisabled(t *testing.T) {
	r := newTestRelay(t)
	h := rh.New(r, rh.WithEvents(rh.EventReplayCompleted))

	ctx := context.Background()
	run := newTestRun()

	if err := h.OnReplayStarted(ctx, run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, err := r.Store().ListEvents(ctx, revent.ListOpts{Type: rh.EventReplayStarted, Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected 0 started events (disabled), got %d", len(events))
	}

	if err := h.OnReplayCompleted(ctx, run, &replay.Summary{}, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, err = r.Store().ListEvents(ctx, revent.ListOpts{Type: rh.EventReplayCompleted, Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 completed event, got %d", len(events))
	}
}

func TestRelayHookExtension_PayloadFunc(t *testing.T) {
	r := newTestRelay(t)
	h := rh.New(r, rh.WithPayloadFunc(rh.EventSweepFired, func(_ any) (any, error) {
		return map[string]string{"custom": "yes"}, nil
	}))

	if err := h.OnSweepFired(context.Background(), "@every 1m", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lastEvent(t, r, rh.EventSweepFired)

	failing := rh.New(r, rh.WithPayloadFunc(rh.EventSweepFired, func(_ any) (any, error) {
		return nil, errors.New("bad payload")
	}))
	if err := failing.OnSweepFired(context.Background(), "@every 1m", nil, nil); err == nil {
		t.Fatal("expected payload error")
	}
}

func TestRelayHookExtension_ViaRegistry(t *testing.T) {
	r := newTestRelay(t)
	h := rh.New(r)

	reg := ext.NewRegistry(slog.Default())
	reg.Register(h)

	ctx := context.Background()
	run := newTestRun()
	rec := newTestRecord()

	reg.EmitReplayStarted(ctx, run)
	reg.EmitRecordReplayed(ctx, run, rec, 50*time.Millisecond)
	reg.EmitRecordFailed(ctx, run, rec, errors.New("fail"))
	reg.EmitCleanupFailed(ctx, run, rec, errors.New("store down"))
	reg.EmitReplayCompleted(ctx, run, &replay.Summary{}, time.Second)
	reg.EmitDeadLetterArchived(ctx, rec)
	reg.EmitSweepFired(ctx, "@every 1m", nil, errors.New("store down"))

	allTypes := []string{
		rh.EventReplayStarted,
		rh.EventRecordReplayed,
		rh.EventRecordFailed,
		rh.EventCleanupFailed,
		rh.EventReplayCompleted,
		rh.EventDeadLetterArchived,
		rh.EventSweepFired,
	}

	for _, et := range allTypes {
		events, err := r.Store().ListEvents(ctx, revent.ListOpts{Type: et, Limit: 10})
		if err != nil {
			t.Fatalf("ListEvents(%s) failed: %v", et, err)
		}
		if len(events) != 1 {
			t.Errorf("expected 1 %s event, got %d", et, len(events))
		}
	}

	if len(rh.AllDefinitions()) != len(allTypes) {
		t.Errorf("AllDefinitions: want %d, got %d", len(allTypes), len(rh.AllDefinitions()))
	}
}
