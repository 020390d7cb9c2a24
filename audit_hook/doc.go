// Package audithook is a redrive extension that bridges replay lifecycle
// events to an immutable audit trail backend such as Chronicle.
//
// Every replay, archive and sweep hook emits a structured audit event
// through the [Recorder] interface. Failed projections and cleanup
// failures are recorded with warning severity; a replay that finishes
// with failures is recorded as a failure outcome.
//
// # Usage with Chronicle
//
//	audithook.New(audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
//	    return chronicle.Info(ctx, evt.Action, evt.Resource, evt.ResourceID).
//	        Category(evt.Category).
//	        Outcome(evt.Outcome).
//	        Record()
//	}))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionRecordFailed,
//	        audithook.ActionReplayCompleted,
//	    ),
//	)
package audithook
