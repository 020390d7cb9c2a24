package postgres

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/id"
)

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// aggregateParam maps an optional aggregate id to a nullable text param.
func aggregateParam(agg *uuid.UUID) *string {
	if agg == nil {
		return nil
	}
	s := agg.String()
	return &s
}

// scanDeadLetter scans a row produced by deadLetterColumns.
func scanDeadLetter(row pgx.Row) (*dlq.Record, error) {
	var (
		rawID     string
		aggregate *string
		headers   *string
		delivery  int64
		sequence  int64
		msgTime   *time.Time
		r         dlq.Record
	)
	err := row.Scan(
		&rawID, &aggregate, &r.Subject, &r.Prefix, &r.Payload, &headers,
		&r.Stream, &r.Consumer, &delivery, &sequence, &msgTime,
		&r.Error, &r.FailedAt, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if r.ID, err = id.ParseDeadLetterID(rawID); err != nil {
		return nil, err
	}
	if aggregate != nil {
		agg, parseErr := uuid.Parse(*aggregate)
		if parseErr != nil {
			return nil, parseErr
		}
		r.AggregateID = &agg
	}
	if headers != nil {
		if r.Headers, err = dlq.UnmarshalHeaders([]byte(*headers)); err != nil {
			return nil, err
		}
	}
	r.DeliveryCount = uint64(delivery)   //nolint:gosec // stored from uint64
	r.StreamSequence = uint64(sequence) //nolint:gosec // stored from uint64
	if msgTime != nil {
		r.Timestamp = msgTime.UTC()
	}
	r.FailedAt = r.FailedAt.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

// headersParam encodes headers as nullable JSON text.
func headersParam(r *dlq.Record) (*string, error) {
	b, err := dlq.MarshalHeaders(r.Headers)
	if err != nil || b == nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// nullableTime maps the zero time to NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
