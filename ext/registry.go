package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/replay"
)

// Named entry types pair a hook with the extension name captured at
// registration time.
type replayStartedEntry struct {
	name string
	hook ReplayStarted
}

type recordReplayedEntry struct {
	name string
	hook RecordReplayed
}

type recordFailedEntry struct {
	name string
	hook RecordFailed
}

type cleanupFailedEntry struct {
	name string
	hook CleanupFailed
}

type replayCompletedEntry struct {
	name string
	hook ReplayCompleted
}

type deadLetterArchivedEntry struct {
	name string
	hook DeadLetterArchived
}

type sweepFiredEntry struct {
	name string
	hook SweepFired
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry fans lifecycle events out to registered extensions. Register
// everything before the first replay; emitting is then safe from many
// goroutines, and extensions must tolerate concurrent calls.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	replayStarted      []replayStartedEntry
	recordReplayed     []recordReplayedEntry
	recordFailed       []recordFailedEntry
	cleanupFailed      []cleanupFailedEntry
	replayCompleted    []replayCompletedEntry
	deadLetterArchived []deadLetterArchivedEntry
	sweepFired         []sweepFiredEntry
	shutdown           []shutdownEntry
}

var (
	_ replay.Emitter = (*Registry)(nil)
	_ dlq.Notifier   = (*Registry)(nil)
)

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and caches it under every hook it
// implements. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(ReplayStarted); ok {
		r.replayStarted = append(r.replayStarted, replayStartedEntry{name, h})
	}
	if h, ok := e.(RecordReplayed); ok {
		r.recordReplayed = append(r.recordReplayed, recordReplayedEntry{name, h})
	}
	if h, ok := e.(RecordFailed); ok {
		r.recordFailed = append(r.recordFailed, recordFailedEntry{name, h})
	}
	if h, ok := e.(CleanupFailed); ok {
		r.cleanupFailed = append(r.cleanupFailed, cleanupFailedEntry{name, h})
	}
	if h, ok := e.(ReplayCompleted); ok {
		r.replayCompleted = append(r.replayCompleted, replayCompletedEntry{name, h})
	}
	if h, ok := e.(DeadLetterArchived); ok {
		r.deadLetterArchived = append(r.deadLetterArchived, deadLetterArchivedEntry{name, h})
	}
	if h, ok := e.(SweepFired); ok {
		r.sweepFired = append(r.sweepFired, sweepFiredEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Replay event emitters
// ──────────────────────────────────────────────────

// EmitReplayStarted notifies all extensions that implement ReplayStarted.
func (r *Registry) EmitReplayStarted(ctx context.Context, run *replay.Run) {
	for _, e := range r.replayStarted {
		if err := e.hook.OnReplayStarted(ctx, run); err != nil {
			r.logHookError("OnReplayStarted", e.name, err)
		}
	}
}

// EmitRecordReplayed notifies all extensions that implement RecordReplayed.
func (r *Registry) EmitRecordReplayed(ctx context.Context, run *replay.Run, rec *dlq.Record, elapsed time.Duration) {
	for _, e := range r.recordReplayed {
		if err := e.hook.OnRecordReplayed(ctx, run, rec, elapsed); err != nil {
			r.logHookError("OnRecordReplayed", e.name, err)
		}
	}
}

// EmitRecordFailed notifies all extensions that implement RecordFailed.
func (r *Registry) EmitRecordFailed(ctx context.Context, run *replay.Run, rec *dlq.Record, recErr error) {
	for _, e := range r.recordFailed {
		if err := e.hook.OnRecordFailed(ctx, run, rec, recErr); err != nil {
			r.logHookError("OnRecordFailed", e.name, err)
		}
	}
}

// EmitCleanupFailed notifies all extensions that implement CleanupFailed.
func (r *Registry) EmitCleanupFailed(ctx context.Context, run *replay.Run, rec *dlq.Record, cleanupErr error) {
	for _, e := range r.cleanupFailed {
		if err := e.hook.OnCleanupFailed(ctx, run, rec, cleanupErr); err != nil {
			r.logHookError("OnCleanupFailed", e.name, err)
		}
	}
}

// EmitReplayCompleted notifies all extensions that implement ReplayCompleted.
func (r *Registry) EmitReplayCompleted(ctx context.Context, run *replay.Run, summary *replay.Summary, elapsed time.Duration) {
	for _, e := range r.replayCompleted {
		if err := e.hook.OnReplayCompleted(ctx, run, summary, elapsed); err != nil {
			r.logHookError("OnReplayCompleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitDeadLetterArchived notifies all extensions that implement DeadLetterArchived.
func (r *Registry) EmitDeadLetterArchived(ctx context.Context, rec *dlq.Record) {
	for _, e := range r.deadLetterArchived {
		if err := e.hook.OnDeadLetterArchived(ctx, rec); err != nil {
			r.logHookError("OnDeadLetterArchived", e.name, err)
		}
	}
}

// EmitSweepFired notifies all extensions that implement SweepFired.
func (r *Registry) EmitSweepFired(ctx context.Context, schedule string, summary *replay.Summary, sweepErr error) {
	for _, e := range r.sweepFired {
		if err := e.hook.OnSweepFired(ctx, schedule, summary, sweepErr); err != nil {
			r.logHookError("OnSweepFired", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a hook fails. Hook errors never reach
// the replay.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
