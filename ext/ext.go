package ext

import (
	"context"
	"time"

	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/replay"
)

// Extension is the base interface every redrive extension implements.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Replay lifecycle hooks
// ──────────────────────────────────────────────────

// ReplayStarted is called when a replay invocation has found records and
// is about to process them.
type ReplayStarted interface {
	OnReplayStarted(ctx context.Context, run *replay.Run) error
}

// RecordReplayed is called after a record was projected successfully.
type RecordReplayed interface {
	OnRecordReplayed(ctx context.Context, run *replay.Run, rec *dlq.Record, elapsed time.Duration) error
}

// RecordFailed is called when a record could not be reconstructed,
// decoded or projected. The record stays in the store.
type RecordFailed interface {
	OnRecordFailed(ctx context.Context, run *replay.Run, rec *dlq.Record, err error) error
}

// CleanupFailed is called when a replayed record could not be removed.
type CleanupFailed interface {
	OnCleanupFailed(ctx context.Context, run *replay.Run, rec *dlq.Record, err error) error
}

// ReplayCompleted is called with the final summary of an invocation,
// including invocations cut short by cancellation.
type ReplayCompleted interface {
	OnReplayCompleted(ctx context.Context, run *replay.Run, summary *replay.Summary, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Other hooks
// ──────────────────────────────────────────────────

// DeadLetterArchived is called when a failed delivery was archived.
type DeadLetterArchived interface {
	OnDeadLetterArchived(ctx context.Context, rec *dlq.Record) error
}

// SweepFired is called after each scheduled sweep. summary is nil when
// the sweep found nothing to replay; err is set when the sweep failed.
type SweepFired interface {
	OnSweepFired(ctx context.Context, schedule string, summary *replay.Summary, err error) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
