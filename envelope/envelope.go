package envelope

import (
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/xraph/redrive/dlq"
)

// Envelope is a message rebuilt from a dead-letter record, indistinguishable
// to a decoder from the original delivery.
type Envelope struct {
	// Msg carries the original subject, headers and payload. Its Reply is
	// the ack address of the failed delivery, kept for inspection only.
	Msg *nats.Msg

	// Prefix is the subject prefix the projector subscribed with.
	Prefix string
}

// Subject returns the original event subject.
func (e *Envelope) Subject() string { return e.Msg.Subject }

// Header returns the original headers.
func (e *Envelope) Header() nats.Header { return e.Msg.Header }

// Data returns the payload bytes.
func (e *Envelope) Data() []byte { return e.Msg.Data }

// Tokens returns the subject tokens after the prefix, e.g. the event name
// and aggregate id for "<prefix>.<Event>.<aggregate_id>".
func (e *Envelope) Tokens() []string {
	rest := strings.TrimPrefix(e.Msg.Subject, e.Prefix)
	rest = strings.TrimPrefix(rest, ".")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, ".")
}

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithoutAckAddress skips the ack address for stores that keep no
// delivery coordinates. Envelopes then have an empty reply subject.
func WithoutAckAddress() Option {
	return func(r *Reconstructor) { r.ackDisabled = true }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconstructor) { r.logger = l }
}

// Reconstructor turns dead-letter records into envelopes. It is safe for
// concurrent use.
type Reconstructor struct {
	ackDisabled bool
	logger      *slog.Logger
}

// NewReconstructor creates a Reconstructor.
func NewReconstructor(opts ...Option) *Reconstructor {
	r := &Reconstructor{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconstruct builds an envelope from rec. Absent fields are errors; no
// defaults are invented for delivery metadata. Headers and payload are
// copied so the envelope never aliases the record.
func (r *Reconstructor) Reconstruct(rec *dlq.Record) (*Envelope, error) {
	switch {
	case rec.Prefix == "":
		return nil, &ReconstructionError{Kind: MissingPrefix, RecordID: rec.ID}
	case rec.Headers == nil:
		return nil, &ReconstructionError{Kind: MissingHeaders, RecordID: rec.ID}
	case rec.Subject == "":
		return nil, &ReconstructionError{Kind: MissingSubject, RecordID: rec.ID}
	}

	var reply string
	if !r.ackDisabled {
		ack, err := AckSubject(rec)
		if err != nil {
			return nil, &ReconstructionError{Kind: InvalidAckAddress, RecordID: rec.ID, Err: err}
		}
		reply = ack
	}

	c := rec.Clone()
	msg := &nats.Msg{
		Subject: c.Subject,
		Reply:   reply,
		Header:  c.Headers,
		Data:    c.Payload,
	}
	if msg.Data == nil {
		msg.Data = []byte{}
	}

	return &Envelope{Msg: msg, Prefix: c.Prefix}, nil
}
