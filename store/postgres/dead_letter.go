package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/id"
)

const deadLetterColumns = `
	id, aggregate_id, subject, prefix, payload, headers,
	stream, consumer, delivery_count, stream_sequence, msg_timestamp,
	error, failed_at, created_at`

// PushDeadLetter archives a record.
func (s *Store) PushDeadLetter(ctx context.Context, r *dlq.Record) error {
	headers, err := headersParam(r)
	if err != nil {
		return fmt.Errorf("redrive/postgres: push dead letter: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO redrive_dead_letters (`+deadLetterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		r.ID.String(), aggregateParam(r.AggregateID), r.Subject, r.Prefix,
		r.Payload, headers, r.Stream, r.Consumer,
		int64(r.DeliveryCount), int64(r.StreamSequence), //nolint:gosec // JetStream counters fit int64
		nullableTime(r.Timestamp), r.Error, r.FailedAt, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("redrive/postgres: push dead letter: %w", err)
	}
	return nil
}

// GetDeadLetters lists records matching f, oldest failure first.
func (s *Store) GetDeadLetters(ctx context.Context, f dlq.Filter) ([]*dlq.Record, error) {
	query := `SELECT ` + deadLetterColumns + ` FROM redrive_dead_letters WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.AggregateID != nil {
		query += fmt.Sprintf(" AND aggregate_id = $%d", argIdx)
		args = append(args, f.AggregateID.String())
		argIdx++
	}

	query += " ORDER BY failed_at ASC, id ASC"

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
		argIdx++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, f.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("redrive/postgres: get dead letters: %w", err)
	}
	defer rows.Close()

	var records []*dlq.Record
	for rows.Next() {
		r, scanErr := scanDeadLetter(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("redrive/postgres: scan dead letter: %w", scanErr)
		}
		records = append(records, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("redrive/postgres: iterate dead letters: %w", err)
	}
	return records, nil
}

// GetDeadLetter returns a record by ID.
func (s *Store) GetDeadLetter(ctx context.Context, recordID id.DeadLetterID) (*dlq.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+deadLetterColumns+` FROM redrive_dead_letters WHERE id = $1`,
		recordID.String(),
	)
	r, err := scanDeadLetter(row)
	if err != nil {
		if isNoRows(err) {
			return nil, redrive.ErrDeadLetterNotFound
		}
		return nil, fmt.Errorf("redrive/postgres: get dead letter: %w", err)
	}
	return r, nil
}

// RemoveDeadLetter deletes a record. Missing records are ignored.
func (s *Store) RemoveDeadLetter(ctx context.Context, recordID id.DeadLetterID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM redrive_dead_letters WHERE id = $1`,
		recordID.String(),
	)
	if err != nil {
		return fmt.Errorf("redrive/postgres: remove dead letter: %w", err)
	}
	return nil
}

// PurgeDeadLetters removes records with FailedAt before the given time.
func (s *Store) PurgeDeadLetters(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM redrive_dead_letters WHERE failed_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("redrive/postgres: purge dead letters: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountDeadLetters returns the number of archived records.
func (s *Store) CountDeadLetters(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM redrive_dead_letters`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("redrive/postgres: count dead letters: %w", err)
	}
	return count, nil
}
