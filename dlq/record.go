package dlq

import (
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/xraph/redrive/id"
)

// Record is an archived event that failed projection. It carries enough
// of the original delivery to rebuild a processable message.
//
// Headers distinguishes nil (headers were never captured) from an empty
// map (the message had no headers). Only nil counts as missing.
type Record struct {
	ID          id.DeadLetterID `json:"id"`
	AggregateID *uuid.UUID      `json:"aggregate_id,omitempty"`
	Subject     string          `json:"subject"`
	Prefix      string          `json:"prefix"`
	Payload     []byte          `json:"payload"`
	Headers     nats.Header     `json:"headers"`

	// JetStream delivery coordinates of the failed delivery.
	Stream         string    `json:"stream"`
	Consumer       string    `json:"consumer"`
	DeliveryCount  uint64    `json:"delivery_count"`
	StreamSequence uint64    `json:"stream_sequence"`
	Timestamp      time.Time `json:"timestamp"`

	Error     string    `json:"error"`
	FailedAt  time.Time `json:"failed_at"`
	CreatedAt time.Time `json:"created_at"`
}

// HasAggregate reports whether the record can be grouped by aggregate.
func (r *Record) HasAggregate() bool {
	return r.AggregateID != nil && *r.AggregateID != uuid.Nil
}

// BelongsTo reports whether the record was emitted by aggregate agg.
func (r *Record) BelongsTo(agg uuid.UUID) bool {
	return r.AggregateID != nil && *r.AggregateID == agg
}

// Clone returns a deep copy so a record can be handed to another
// goroutine without sharing header maps or payload bytes.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.AggregateID != nil {
		agg := *r.AggregateID
		out.AggregateID = &agg
	}
	if r.Payload != nil {
		out.Payload = append([]byte(nil), r.Payload...)
	}
	if r.Headers != nil {
		out.Headers = make(nats.Header, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = append([]string(nil), v...)
		}
	}
	return &out
}
