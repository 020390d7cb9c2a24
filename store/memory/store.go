// Package memory provides an in-memory store.Store for tests and local
// development. Records are cloned on the way in and out so callers never
// share state with the store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/id"
	"github.com/xraph/redrive/store"
)

var _ store.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access.
type Store struct {
	mu      sync.RWMutex
	records map[string]*dlq.Record
	closed  bool
}

// New returns a new empty Store.
func New() *Store {
	return &Store{records: make(map[string]*dlq.Record)}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping fails only after Close.
func (m *Store) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return redrive.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Data is kept so tests can inspect it.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// Dead-letter store
// ──────────────────────────────────────────────────

// PushDeadLetter archives a record.
func (m *Store) PushDeadLetter(_ context.Context, r *dlq.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[r.ID.String()] = r.Clone()
	return nil
}

// GetDeadLetters lists records matching f, oldest first.
func (m *Store) GetDeadLetters(_ context.Context, f dlq.Filter) ([]*dlq.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*dlq.Record, 0, len(m.records))
	for _, r := range m.records {
		all = append(all, r.Clone())
	}
	return dlq.Select(all, f), nil
}

// GetDeadLetter returns a record by ID.
func (m *Store) GetDeadLetter(_ context.Context, recordID id.DeadLetterID) (*dlq.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[recordID.String()]
	if !ok {
		return nil, redrive.ErrDeadLetterNotFound
	}
	return r.Clone(), nil
}

// RemoveDeadLetter deletes a record. Missing records are ignored.
func (m *Store) RemoveDeadLetter(_ context.Context, recordID id.DeadLetterID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, recordID.String())
	return nil
}

// PurgeDeadLetters removes records with FailedAt before the given time.
func (m *Store) PurgeDeadLetters(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for key, r := range m.records {
		if r.FailedAt.Before(before) {
			delete(m.records, key)
			count++
		}
	}
	return count, nil
}

// CountDeadLetters returns the number of archived records.
func (m *Store) CountDeadLetters(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.records)), nil
}
