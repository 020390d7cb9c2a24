package relayhook

import (
	"context"

	"github.com/xraph/relay"
	"github.com/xraph/relay/catalog"
)

// Redrive lifecycle event types. Each constant maps to one ext lifecycle
// hook and is used as the event.Event.Type when sending via Relay.
const (
	EventReplayStarted      = "redrive.replay.started"
	EventRecordReplayed     = "redrive.replay.record_replayed"
	EventRecordFailed       = "redrive.replay.record_failed"
	EventCleanupFailed      = "redrive.replay.cleanup_failed"
	EventReplayCompleted    = "redrive.replay.completed"
	EventDeadLetterArchived = "redrive.dead_letter.archived"
	EventSweepFired         = "redrive.sweep.fired"
)

// AllDefinitions returns webhook definitions for all redrive lifecycle
// event types. Pass these to relay.RegisterEventType to populate the catalog.
func AllDefinitions() []catalog.WebhookDefinition {
	return []catalog.WebhookDefinition{
		// ── Replay events ───────────────────────────────
		{
			Name:        EventReplayStarted,
			Description: "Fired when a replay invocation finds dead letters to process.",
			Group:       "replays",
			Version:     "2026-01-01",
		},
		{
			Name:        EventRecordReplayed,
			Description: "Fired after a dead letter was projected and removed.",
			Group:       "replays",
			Version:     "2026-01-01",
		},
		{
			Name:        EventRecordFailed,
			Description: "Fired when a dead letter could not be replayed and stays archived.",
			Group:       "replays",
			Version:     "2026-01-01",
		},
		{
			Name:        EventCleanupFailed,
			Description: "Fired when a replayed dead letter could not be removed from the store.",
			Group:       "replays",
			Version:     "2026-01-01",
		},
		{
			Name:        EventReplayCompleted,
			Description: "Fired with the summary of a finished replay invocation.",
			Group:       "replays",
			Version:     "2026-01-01",
		},
		// ── Dead letter events ──────────────────────────
		{
			Name:        EventDeadLetterArchived,
			Description: "Fired when a failed delivery is archived as a dead letter.",
			Group:       "dead_letters",
			Version:     "2026-01-01",
		},
		// ── Sweep events ───────────────────────────────
		{
			Name:        EventSweepFired,
			Description: "Fired after each scheduled replay sweep.",
			Group:       "sweeps",
			Version:     "2026-01-01",
		},
	}
}

// RegisterAll registers all redrive webhook event types in the Relay catalog.
// Call this once during application startup before sending events.
func RegisterAll(ctx context.Context, r *relay.Relay) error {
	for _, def := range AllDefinitions() {
		if _, err := r.RegisterEventType(ctx, def); err != nil {
			return err
		}
	}
	return nil
}
