// Package redrive replays dead-lettered events of a NATS JetStream backed,
// event-sourced application back through their projectors.
//
// When a subscriber permanently fails to project a delivered event, the
// event is archived as a dead-letter record. Redrive rebuilds a processable
// message from the record, decodes it, hands it to a projector, and reports
// what happened in a summary. Records are removed only after a successful
// replay, so nothing is lost or silently dropped.
//
// # Quick Start
//
//	r, err := redrive.New(
//	    redrive.WithStore(pgStore),
//	    redrive.WithConcurrency(8),
//	)
//
//	eng, err := engine.Build(r,
//	    engine.WithDecoder(registry),
//	    engine.WithProjector(usersProjector),
//	)
//
//	summary, err := eng.Driver().ReplayAll(ctx)
//
// # Architecture
//
// Each concern lives in its own package: dlq (records and store contract),
// envelope (message reconstruction and JetStream ack addressing), event
// (decoding), project (projector contract), replay (the driver), admin and
// api (command and HTTP surfaces), and store/* (backends). A single backend
// implements the whole store.Store interface.
//
// Record IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based
// identifiers. Aggregate IDs are plain UUIDs owned by the application.
package redrive
