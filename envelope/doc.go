// Package envelope rebuilds processable messages from dead-letter records.
//
// A [Reconstructor] restores the original subject, headers and payload and
// re-attaches the JetStream acknowledgment address of the failed delivery
// (see [AckSubject]), so decoders downstream cannot tell a replay from a
// live delivery. Records lacking a prefix, headers or subject are
// rejected with a [ReconstructionError]; nothing is defaulted. The ack
// address is informational: replays never acknowledge the original
// delivery.
//
//	rc := envelope.NewReconstructor()
//	env, err := rc.Reconstruct(rec)
package envelope
