package sqlite

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xraph/grove"

	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/id"
)

type deadLetterModel struct {
	grove.BaseModel `grove:"table:redrive_dead_letters"`

	ID             string     `grove:"id,pk"`
	AggregateID    *string    `grove:"aggregate_id"`
	Subject        string     `grove:"subject,notnull"`
	Prefix         string     `grove:"prefix,notnull"`
	Payload        []byte     `grove:"payload,notnull"`
	Headers        *string    `grove:"headers"`
	Stream         string     `grove:"stream,notnull"`
	Consumer       string     `grove:"consumer,notnull"`
	DeliveryCount  int64      `grove:"delivery_count,notnull"`
	StreamSequence int64      `grove:"stream_sequence,notnull"`
	Timestamp      *time.Time `grove:"msg_timestamp"`
	Error          string     `grove:"error,notnull"`
	FailedAt       time.Time  `grove:"failed_at,notnull"`
	CreatedAt      time.Time  `grove:"created_at,notnull"`
}

func toDeadLetterModel(r *dlq.Record) (*deadLetterModel, error) {
	headers, err := dlq.MarshalHeaders(r.Headers)
	if err != nil {
		return nil, err
	}

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
		FailedAt:       r.FailedAt.UTC(),
		CreatedAt:      r.CreatedAt.UTC(),
	}
	if m.Payload == nil {
		m.Payload = []byte{}
	}
	if r.AggregateID != nil {
		agg := r.AggregateID.String()
		m.AggregateID = &agg
	}
	if headers != nil {
		h := string(headers)
		m.Headers = &h
	}
	if !r.Timestamp.IsZero() {
		ts := r.Timestamp.UTC()
		m.Timestamp = &ts
	}
	return m, nil
}

func fromDeadLetterModel(m *deadLetterModel) (*dlq.Record, error) {
	parsedID, err := id.ParseDeadLetterID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("redrive/sqlite: parse dead letter id %q: %w", m.ID, err)
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
			return nil, fmt.Errorf("redrive/sqlite: parse aggregate id %q: %w", *m.AggregateID, parseErr)
		}
		r.AggregateID = &agg
	}
	if m.Headers != nil {
		if r.Headers, err = dlq.UnmarshalHeaders([]byte(*m.Headers)); err != nil {
			return nil, fmt.Errorf("redrive/sqlite: %w", err)
		}
	}
	if m.Timestamp != nil {
		r.Timestamp = m.Timestamp.UTC()
	}
	return r, nil
}
