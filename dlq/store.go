package dlq

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/redrive/id"
)

// Filter narrows GetDeadLetters. The zero value returns every record.
type Filter struct {
	Limit       int
	Offset      int
	AggregateID *uuid.UUID
}

// Store defines the persistence contract for dead-letter records.
// Listing returns records ordered by FailedAt, oldest first.
type Store interface {
	// PushDeadLetter archives a record.
	PushDeadLetter(ctx context.Context, r *Record) error

	// GetDeadLetters lists records matching the filter.
	GetDeadLetters(ctx context.Context, f Filter) ([]*Record, error)

	// GetDeadLetter returns one record or redrive.ErrDeadLetterNotFound.
	GetDeadLetter(ctx context.Context, recordID id.DeadLetterID) (*Record, error)

	// RemoveDeadLetter deletes a record. Removing a record that is already
	// gone is not an error.
	RemoveDeadLetter(ctx context.Context, recordID id.DeadLetterID) error

	// PurgeDeadLetters removes records that failed before the given time
	// and returns how many were removed.
	PurgeDeadLetters(ctx context.Context, before time.Time) (int64, error)

	// CountDeadLetters returns the number of archived records.
	CountDeadLetters(ctx context.Context) (int64, error)
}

// Select applies f to an unordered slice of records: it keeps records of
// f.AggregateID, orders the rest by FailedAt (ID breaks ties), and pages
// with Offset and Limit. Backends without server-side querying use it.
func Select(records []*Record, f Filter) []*Record {
	out := make([]*Record, 0, len(records))
	for _, r := range records {
		if f.AggregateID != nil && !r.BelongsTo(*f.AggregateID) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, k int) bool {
		if !out[i].FailedAt.Equal(out[k].FailedAt) {
			return out[i].FailedAt.Before(out[k].FailedAt)
		}
		return out[i].ID.String() < out[k].ID.String()
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
