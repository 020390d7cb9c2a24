package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/id"
)

// score orders records by FailedAt. Microseconds keep the value inside
// float64's exact integer range; equal scores sort by member, i.e. by ID.
func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

// PushDeadLetter archives a record.
func (s *Store) PushDeadLetter(ctx context.Context, r *dlq.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redrive/redis: push dead letter: %w", err)
	}

	rID := r.ID.String()
	z := goredis.Z{Score: score(r.FailedAt), Member: rID}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, deadLetterKey(rID), data, 0)
	pipe.ZAdd(ctx, failedIndexKey, z)
	if r.AggregateID != nil {
		pipe.ZAdd(ctx, aggregateIndexKey(r.AggregateID.String()), z)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redrive/redis: push dead letter: %w", err)
	}
	return nil
}

// GetDeadLetters lists records matching f, oldest failure first.
func (s *Store) GetDeadLetters(ctx context.Context, f dlq.Filter) ([]*dlq.Record, error) {
	key := failedIndexKey
	if f.AggregateID != nil {
		key = aggregateIndexKey(f.AggregateID.String())
	}

	start := int64(f.Offset)
	stop := int64(-1)
	if f.Limit > 0 {
		stop = start + int64(f.Limit) - 1
	}

	ids, err := s.client.ZRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redrive/redis: get dead letters: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, rID := range ids {
		keys[i] = deadLetterKey(rID)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redrive/redis: get dead letters: %w", err)
	}

	records := make([]*dlq.Record, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Removed between ZRANGE and MGET.
			continue
		}
		r, decErr := decodeRecord(raw)
		if decErr != nil {
			return nil, fmt.Errorf("redrive/redis: decode %s: %w", ids[i], decErr)
		}
		records = append(records, r)
	}
	return records, nil
}

// GetDeadLetter returns a record by ID.
func (s *Store) GetDeadLetter(ctx context.Context, recordID id.DeadLetterID) (*dlq.Record, error) {
	raw, err := s.client.Get(ctx, deadLetterKey(recordID.String())).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, redrive.ErrDeadLetterNotFound
		}
		return nil, fmt.Errorf("redrive/redis: get dead letter: %w", err)
	}
	r, err := decodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("redrive/redis: get dead letter: %w", err)
	}
	return r, nil
}

// RemoveDeadLetter deletes a record. Missing records are ignored.
func (s *Store) RemoveDeadLetter(ctx context.Context, recordID id.DeadLetterID) error {
	r, err := s.GetDeadLetter(ctx, recordID)
	switch {
	case errors.Is(err, redrive.ErrDeadLetterNotFound):
		// Still clear a dangling index entry.
		if zErr := s.client.ZRem(ctx, failedIndexKey, recordID.String()).Err(); zErr != nil {
			return fmt.Errorf("redrive/redis: remove dead letter: %w", zErr)
		}
		return nil
	case err != nil:
		return err
	}

	if err := s.deleteRecords(ctx, []*dlq.Record{r}); err != nil {
		return fmt.Errorf("redrive/redis: remove dead letter: %w", err)
	}
	return nil
}

// PurgeDeadLetters removes records with FailedAt before the given time.
func (s *Store) PurgeDeadLetters(ctx context.Context, before time.Time) (int64, error) {
	ids, err := s.client.ZRangeByScore(ctx, failedIndexKey, &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.UnixMicro(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redrive/redis: purge dead letters: %w", err)
	}

	records := make([]*dlq.Record, 0, len(ids))
	for _, rID := range ids {
		parsed, parseErr := id.ParseDeadLetterID(rID)
		if parseErr != nil {
			continue
		}
		r, getErr := s.GetDeadLetter(ctx, parsed)
		if getErr != nil {
			if errors.Is(getErr, redrive.ErrDeadLetterNotFound) {
				continue
			}
			return 0, getErr
		}
		records = append(records, r)
	}

	if err := s.deleteRecords(ctx, records); err != nil {
		return 0, fmt.Errorf("redrive/redis: purge dead letters: %w", err)
	}
	return int64(len(records)), nil
}

// CountDeadLetters returns the number of archived records.
func (s *Store) CountDeadLetters(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, failedIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redrive/redis: count dead letters: %w", err)
	}
	return n, nil
}

// deleteRecords drops records and their index entries in one transaction.
func (s *Store) deleteRecords(ctx context.Context, records []*dlq.Record) error {
	if len(records) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, r := range records {
		rID := r.ID.String()
		pipe.Del(ctx, deadLetterKey(rID))
		pipe.ZRem(ctx, failedIndexKey, rID)
		if r.AggregateID != nil {
			pipe.ZRem(ctx, aggregateIndexKey(r.AggregateID.String()), rID)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func decodeRecord(raw string) (*dlq.Record, error) {
	var r dlq.Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
