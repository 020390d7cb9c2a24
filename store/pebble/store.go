package pebble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/id"
	"github.com/xraph/redrive/store"
)

var _ store.Store = (*Store)(nil)

// Store is an embedded Pebble implementation of store.Store.
// Safe for concurrent access.
type Store struct {
	db     *pebble.DB
	logger *slog.Logger
	sync   bool
	popts  *pebble.Options

	// mu serializes index maintenance with reads and Close.
	mu     sync.Mutex
	closed bool
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithSync makes every commit fsync the WAL. Off by default.
func WithSync(enabled bool) Option {
	return func(s *Store) { s.sync = enabled }
}

// WithPebbleOptions passes tuning options to pebble.Open.
func WithPebbleOptions(o *pebble.Options) Option {
	return func(s *Store) { s.popts = o }
}

// Open opens or creates a Pebble database in dir.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("redrive/pebble: data dir is required")
	}

	s := &Store{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.popts == nil {
		s.popts = &pebble.Options{}
	}

	db, err := pebble.Open(dir, s.popts)
	if err != nil {
		return nil, fmt.Errorf("redrive/pebble: open %s: %w", dir, err)
	}
	s.db = db
	return s, nil
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op; the key layout needs no schema.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping fails only after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return redrive.ErrStoreClosed
	}
	return nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("redrive/pebble: close: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Dead-letter store
// ──────────────────────────────────────────────────

// PushDeadLetter archives a record.
func (s *Store) PushDeadLetter(ctx context.Context, r *dlq.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redrive/pebble: push dead letter: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	rID := r.ID.String()
	b := s.db.NewBatch()
	defer b.Close()

	// Replacing a record must drop its old index entries.
	if old, getErr := s.get(rID); getErr == nil {
		if err := deleteEntries(b, old); err != nil {
			return fmt.Errorf("redrive/pebble: push dead letter: %w", err)
		}
	} else if !errors.Is(getErr, redrive.ErrDeadLetterNotFound) {
		return getErr
	}

	if err := b.Set(recordKey(rID), data, nil); err != nil {
		return fmt.Errorf("redrive/pebble: push dead letter: %w", err)
	}
	if err := b.Set(failedKey(r.FailedAt, rID), []byte(rID), nil); err != nil {
		return fmt.Errorf("redrive/pebble: push dead letter: %w", err)
	}
	if r.AggregateID != nil {
		if err := b.Set(aggregateKey(*r.AggregateID, r.FailedAt, rID), []byte(rID), nil); err != nil {
			return fmt.Errorf("redrive/pebble: push dead letter: %w", err)
		}
	}
	return s.commit(b, "push dead letter")
}

// GetDeadLetters lists records matching f, oldest failure first.
func (s *Store) GetDeadLetters(ctx context.Context, f dlq.Filter) ([]*dlq.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	prefix := failedPrefix
	if f.AggregateID != nil {
		prefix = aggregateKeyPrefix(*f.AggregateID)
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("redrive/pebble: get dead letters: %w", err)
	}
	defer iter.Close()

	var (
		records []*dlq.Record
		skipped int
	)
	for iter.First(); iter.Valid(); iter.Next() {
		if skipped < f.Offset {
			skipped++
			continue
		}
		if f.Limit > 0 && len(records) >= f.Limit {
			break
		}

		r, getErr := s.get(string(iter.Value()))
		if getErr != nil {
			return nil, getErr
		}
		records = append(records, r)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("redrive/pebble: get dead letters: %w", err)
	}
	return records, nil
}

// GetDeadLetter returns a record by ID.
func (s *Store) GetDeadLetter(ctx context.Context, recordID id.DeadLetterID) (*dlq.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	return s.get(recordID.String())
}

// RemoveDeadLetter deletes a record. Missing records are ignored.
func (s *Store) RemoveDeadLetter(ctx context.Context, recordID id.DeadLetterID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	r, err := s.get(recordID.String())
	if errors.Is(err, redrive.ErrDeadLetterNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := deleteEntries(b, r); err != nil {
		return fmt.Errorf("redrive/pebble: remove dead letter: %w", err)
	}
	return s.commit(b, "remove dead letter")
}

// PurgeDeadLetters removes records with FailedAt before the given time.
func (s *Store) PurgeDeadLetters(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return 0, err
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: failedPrefix,
		UpperBound: failedKey(before, ""),
	})
	if err != nil {
		return 0, fmt.Errorf("redrive/pebble: purge dead letters: %w", err)
	}

	var victims []*dlq.Record
	for iter.First(); iter.Valid(); iter.Next() {
		r, getErr := s.get(string(iter.Value()))
		if getErr != nil {
			_ = iter.Close()
			return 0, getErr
		}
		victims = append(victims, r)
	}
	iterErr := iter.Error()
	if closeErr := iter.Close(); iterErr == nil {
		iterErr = closeErr
	}
	if iterErr != nil {
		return 0, fmt.Errorf("redrive/pebble: purge dead letters: %w", iterErr)
	}
	if len(victims) == 0 {
		return 0, nil
	}

	b := s.db.NewBatch()
	defer b.Close()
	for _, r := range victims {
		if err := deleteEntries(b, r); err != nil {
			return 0, fmt.Errorf("redrive/pebble: purge dead letters: %w", err)
		}
	}
	if err := s.commit(b, "purge dead letters"); err != nil {
		return 0, err
	}

	s.logger.Debug("redrive/pebble: purged dead letters",
		slog.Int("count", len(victims)),
		slog.Time("before", before),
	)
	return int64(len(victims)), nil
}

// CountDeadLetters returns the number of archived records.
func (s *Store) CountDeadLetters(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return 0, err
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: failedPrefix,
		UpperBound: upperBound(failedPrefix),
	})
	if err != nil {
		return 0, fmt.Errorf("redrive/pebble: count dead letters: %w", err)
	}
	defer iter.Close()

	var n int64
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("redrive/pebble: count dead letters: %w", err)
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────

func (s *Store) checkOpen(ctx context.Context) error {
	if s.closed {
		return redrive.ErrStoreClosed
	}
	return ctx.Err()
}

func (s *Store) get(rID string) (*dlq.Record, error) {
	val, closer, err := s.db.Get(recordKey(rID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, redrive.ErrDeadLetterNotFound
		}
		return nil, fmt.Errorf("redrive/pebble: get dead letter: %w", err)
	}
	defer closer.Close()

	var r dlq.Record
	if err := json.Unmarshal(val, &r); err != nil {
		return nil, fmt.Errorf("redrive/pebble: decode %s: %w", rID, err)
	}
	return &r, nil
}

func (s *Store) commit(b *pebble.Batch, op string) error {
	mode := pebble.NoSync
	if s.sync {
		mode = pebble.Sync
	}
	if err := b.Commit(mode); err != nil {
		return fmt.Errorf("redrive/pebble: %s: %w", op, err)
	}
	return nil
}

func deleteEntries(b *pebble.Batch, r *dlq.Record) error {
	rID := r.ID.String()
	if err := b.Delete(recordKey(rID), nil); err != nil {
		return err
	}
	if err := b.Delete(failedKey(r.FailedAt, rID), nil); err != nil {
		return err
	}
	if r.AggregateID != nil {
		return b.Delete(aggregateKey(*r.AggregateID, r.FailedAt, rID), nil)
	}
	return nil
}
