package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/id"
)

// PushDeadLetter archives a record.
func (s *Store) PushDeadLetter(ctx context.Context, r *dlq.Record) error {
	m, err := toDeadLetterModel(r)
	if err != nil {
		return fmt.Errorf("redrive/bun: push dead letter: %w", err)
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("redrive/bun: push dead letter: %w", err)
	}
	return nil
}

// GetDeadLetters lists records matching f, oldest failure first.
func (s *Store) GetDeadLetters(ctx context.Context, f dlq.Filter) ([]*dlq.Record, error) {
	var models []deadLetterModel
	q := s.db.NewSelect().Model(&models)

	if f.AggregateID != nil {
		q = q.Where("aggregate_id = ?", f.AggregateID.String())
	}

	q = q.Order("failed_at ASC", "id ASC")

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("redrive/bun: get dead letters: %w", err)
	}

	records := make([]*dlq.Record, 0, len(models))
	for i := range models {
		r, convErr := fromDeadLetterModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		records = append(records, r)
	}
	return records, nil
}

// GetDeadLetter returns a record by ID.
func (s *Store) GetDeadLetter(ctx context.Context, recordID id.DeadLetterID) (*dlq.Record, error) {
	m := new(deadLetterModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", recordID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, redrive.ErrDeadLetterNotFound
		}
		return nil, fmt.Errorf("redrive/bun: get dead letter: %w", err)
	}
	return fromDeadLetterModel(m)
}

// RemoveDeadLetter deletes a record. Missing records are ignored.
func (s *Store) RemoveDeadLetter(ctx context.Context, recordID id.DeadLetterID) error {
	_, err := s.db.NewDelete().
		Model((*deadLetterModel)(nil)).
		Where("id = ?", recordID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("redrive/bun: remove dead letter: %w", err)
	}
	return nil
}

// PurgeDeadLetters removes records with FailedAt before the given time.
func (s *Store) PurgeDeadLetters(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*deadLetterModel)(nil)).
		Where("failed_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("redrive/bun: purge dead letters: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	return rows, nil
}

// CountDeadLetters returns the number of archived records.
func (s *Store) CountDeadLetters(ctx context.Context) (int64, error) {
	count, err := s.db.NewSelect().
		Model((*deadLetterModel)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("redrive/bun: count dead letters: %w", err)
	}
	return int64(count), nil
}
