package bunstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/id"
)

type deadLetterModel struct {
	bun.BaseModel `bun:"table:redrive_dead_letters"`

	ID             string     `bun:"id,pk"`
	AggregateID    *string    `bun:"aggregate_id"`
	Subject        string     `bun:"subject,notnull"`
	Prefix         string     `bun:"prefix,notnull"`
	Payload        []byte     `bun:"payload,notnull,type:bytea"`
	Headers        *string    `bun:"headers"`
	Stream         string     `bun:"stream,notnull"`
	Consumer       string     `bun:"consumer,notnull"`
	DeliveryCount  int64      `bun:"delivery_count,notnull"`
	StreamSequence int64      `bun:"stream_sequence,notnull"`
	Timestamp      *time.Time `bun:"msg_timestamp"`
	Error          string     `bun:"error,notnull"`
	FailedAt       time.Time  `bun:"failed_at,notnull"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
}

func toDeadLetterModel(r *dlq.Record) (*deadLetterModel, error) {
	m := &deadLetterModel{
		ID:             r.ID.String(),
		Subject:        r.Subject,
		Prefix:         r.Prefix,
		Payload:        r.Payload,
		Stream:         r.Stream,
		Consumer:       r.Consumer,
		DeliveryCount:  int64(r.DeliveryCount),  //nolint:gosec // JetStream counters fit int64
		StreamSequence: int64(r.StreamSequence), //nolint:gosec // JetStream counters fit int64
		Error:          r.Error,
		FailedAt:       r.FailedAt,
		CreatedAt:      r.CreatedAt,
	}
	if m.Payload == nil {
		m.Payload = []byte{}
	}
	if r.AggregateID != nil {
		agg := r.AggregateID.String()
		m.AggregateID = &agg
	}
	if !r.Timestamp.IsZero() {
		ts := r.Timestamp
		m.Timestamp = &ts
	}
	headers, err := dlq.MarshalHeaders(r.Headers)
	if err != nil {
		return nil, err
	}
	if headers != nil {
		h := string(headers)
		m.Headers = &h
	}
	return m, nil
}

func fromDeadLetterModel(m *deadLetterModel) (*dlq.Record, error) {
	parsedID, err := id.ParseDeadLetterID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("redrive/bun: parse dead letter id %q: %w", m.ID, err)
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
	if m.AggregateID != nil {
		agg, parseErr := uuid.Parse(*m.AggregateID)
		if parseErr != nil {
			return nil, fmt.Errorf("redrive/bun: parse aggregate id %q: %w", *m.AggregateID, parseErr)
		}
		r.AggregateID = &agg
	}
	if m.Timestamp != nil {
		r.Timestamp = m.Timestamp.UTC()
	}
	if m.Headers != nil {
		if r.Headers, err = dlq.UnmarshalHeaders([]byte(*m.Headers)); err != nil {
			return nil, fmt.Errorf("redrive/bun: %w", err)
		}
	}
	return r, nil
}
