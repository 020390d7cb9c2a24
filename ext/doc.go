// Package ext defines the extension system for redrive.
//
// Extensions are notified of replay lifecycle events and can react to
// them by recording metrics, emitting webhooks or writing audit logs.
// Each hook is a separate interface so extensions opt in only to the
// events they care about.
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	func (e *MyExtension) OnRecordFailed(ctx context.Context, run *replay.Run, rec *dlq.Record, err error) error {
//	    log.Printf("record %s still failing: %v", rec.ID, err)
//	    return nil
//	}
//
// # Replay Hooks
//
//   - [ReplayStarted]: a replay invocation found records to process
//   - [RecordReplayed]: a record was projected
//   - [RecordFailed]: a record failed and stays archived
//   - [CleanupFailed]: a replayed record could not be removed
//   - [ReplayCompleted]: the invocation finished, with its summary
//
// # Other Hooks
//
//   - [DeadLetterArchived]: a failed delivery was archived
//   - [SweepFired]: a scheduled sweep ran
//   - [Shutdown]: redrive is shutting down
//
// The [Registry] fans each event out to every extension implementing the
// corresponding interface. Hook errors are logged, never propagated.
package ext
