package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionReplayStarted      = "replay.started"
	ActionRecordReplayed     = "replay.record_replayed"
	ActionRecordFailed       = "replay.record_failed"
	ActionCleanupFailed      = "replay.cleanup_failed"
	ActionReplayCompleted    = "replay.completed"
	ActionDeadLetterArchived = "dead_letter.archived"
	ActionSweepFired         = "sweep.fired"
)

// Audit event categories group related actions.
const (
	CategoryReplay     = "redrive.replay"
	CategoryDeadLetter = "redrive.dead_letter"
	CategorySweep      = "redrive.sweep"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceReplay     = "replay_run"
	ResourceDeadLetter = "dead_letter"
	ResourceSweep      = "sweep_schedule"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionReplayStarted,
		ActionRecordReplayed,
		ActionRecordFailed,
		ActionCleanupFailed,
		ActionReplayCompleted,
		ActionDeadLetterArchived,
		ActionSweepFired,
	}
}
