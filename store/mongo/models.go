package mongo

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/xraph/grove"

	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/id"
)

// deadLetterModel is the document layout. Headers stay a BSON document so
// operators can query them; a nil map is stored as null.
type deadLetterModel struct {
	grove.BaseModel `grove:"table:redrive_dead_letters"`

	ID             string              `grove:"id,pk"               bson:"_id"`
	AggregateID    *string             `grove:"aggregate_id"        bson:"aggregate_id,omitempty"`
	Subject        string              `grove:"subject,notnull"     bson:"subject"`
	Prefix         string              `grove:"prefix,notnull"      bson:"prefix"`
	Payload        []byte              `grove:"payload,notnull"     bson:"payload"`
	Headers        map[string][]string `grove:"headers"             bson:"headers"`
	Stream         string              `grove:"stream,notnull"      bson:"stream"`
	Consumer       string              `grove:"consumer,notnull"    bson:"consumer"`
	DeliveryCount  int64               `grove:"delivery_count"      bson:"delivery_count"`
	StreamSequence int64               `grove:"stream_sequence"     bson:"stream_sequence"`
	Timestamp      *time.Time          `grove:"msg_timestamp"       bson:"msg_timestamp,omitempty"`
	Error          string              `grove:"error,notnull"       bson:"error"`
	FailedAt       time.Time           `grove:"failed_at,notnull"   bson:"failed_at"`
	CreatedAt      time.Time           `grove:"created_at,notnull"  bson:"created_at"`
}

func toDeadLetterModel(r *dlq.Record) *deadLetterModel {
	m := &deadLetterModel{
		ID:             r.ID.String(),
		Subject:        r.Subject,
		Prefix:         r.Prefix,
		Payload:        r.Payload,
		Headers:        r.Headers,
		Stream:         r.Stream,
		Consumer:       r.Consumer,
		DeliveryCount:  int64(r.DeliveryCount),  //nolint:gosec // JetStream counters fit int64
		StreamSequence: int64(r.StreamSequence), //nolint:gosec // JetStream counters fit int64
		Error:          r.Error,
		FailedAt:       r.FailedAt,
		CreatedAt:      r.CreatedAt,
	}
	if r.AggregateID != nil {
		agg := r.AggregateID.String()
		m.AggregateID = &agg
	}
	if !r.Timestamp.IsZero() {
		ts := r.Timestamp
		m.Timestamp = &ts
	}
	return m
}

func fromDeadLetterModel(m *deadLetterModel) (*dlq.Record, error) {
	parsedID, err := id.ParseDeadLetterID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("redrive/mongo: parse dead letter id %q: %w", m.ID, err)
	}

	r := &dlq.Record{
		ID:             parsedID,
		Subject:        m.Subject,
		Prefix:         m.Prefix,
		Payload:        m.Payload,
		Stream:         m.Stream,
		Consumer:       m.Consumer,
		DeliveryCount:  uint64(m.DeliveryCount),  //nolint:gosec // stored from uint64
		StreamSequence: uint64(m.StreamSequence), //nolint:gosec // stored from uint64
		Error:          m.Error,
		FailedAt:       m.FailedAt.UTC(),
		CreatedAt:      m.CreatedAt.UTC(),
	}
	if m.Headers != nil {
		r.Headers = nats.Header(m.Headers)
	}
	if m.AggregateID != nil {
		agg, parseErr := uuid.Parse(*m.AggregateID)
		if parseErr != nil {
			return nil, fmt.Errorf("redrive/mongo: parse aggregate id %q: %w", *m.AggregateID, parseErr)
		}
		r.AggregateID = &agg
	}
	if m.Timestamp != nil {
		r.Timestamp = m.Timestamp.UTC()
	}
	return r, nil
}
