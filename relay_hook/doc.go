// Package relayhook bridges redrive lifecycle events to Relay for webhook
// delivery. When registered as an extension, it emits typed webhook events
// (redrive.replay.completed, redrive.dead_letter.archived, etc.) at every
// lifecycle point.
//
// Usage:
//
//	r, _ := relay.New(relay.WithStore(store))
//	relayhook.RegisterAll(ctx, r)
//
//	hook := relayhook.New(r)
//	engine.WithExtension(hook)
//
// Record events use the record's subject prefix as the tenant. To restrict
// which events are emitted:
//
//	hook := relayhook.New(r,
//	    relayhook.WithEvents(
//	        relayhook.EventRecordFailed,
//	        relayhook.EventReplayCompleted,
//	    ),
//	)
package relayhook
