// Package storetest is a conformance suite for store.Store backends.
// Each backend's tests call Run with a factory returning an empty store.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/id"
	"github.com/xraph/redrive/store"
)

// Factory returns an empty, migrated store.
type Factory func(t *testing.T) store.Store

// NewRecord builds a fully populated record. Times are truncated to the
// millisecond so backends with coarser clocks compare equal.
func NewRecord(agg *uuid.UUID, failedAt time.Time) *dlq.Record {
	failedAt = failedAt.UTC().Truncate(time.Millisecond)
	return &dlq.Record{
		ID:             id.NewDeadLetterID(),
		AggregateID:    agg,
		Subject:        "users.UserCreated.x",
		Prefix:         "users",
		Payload:        []byte(`{"name":"a"}`),
		Headers:        nats.Header{"Content-Type": {"application/json"}},
		Stream:         "EVENTS",
		Consumer:       "users",
		DeliveryCount:  3,
		StreamSequence: 42,
		Timestamp:      failedAt,
		Error:          "boom",
		FailedAt:       failedAt,
		CreatedAt:      failedAt,
	}
}

// Run executes the dead-letter conformance tests against new.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("PushAndGet", func(t *testing.T) { testPushAndGet(t, newStore(t)) })
	t.Run("Headers", func(t *testing.T) { testHeaders(t, newStore(t)) })
	t.Run("GetDeadLetters", func(t *testing.T) { testGetDeadLetters(t, newStore(t)) })
	t.Run("Remove", func(t *testing.T) { testRemove(t, newStore(t)) })
	t.Run("PurgeAndCount", func(t *testing.T) { testPurgeAndCount(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) {
		if err := newStore(t).Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})
}

func testPushAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()

	agg := uuid.New()
	r := NewRecord(&agg, time.Now())
	if err := s.PushDeadLetter(ctx, r); err != nil {
		t.Fatalf("PushDeadLetter: %v", err)
	}

	got, err := s.GetDeadLetter(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetDeadLetter: %v", err)
	}
	if !got.ID.Equal(r.ID) {
		t.Errorf("ID = %s, want %s", got.ID, r.ID)
	}
	if got.AggregateID == nil || *got.AggregateID != agg {
		t.Errorf("AggregateID = %v, want %s", got.AggregateID, agg)
	}
	if got.Subject != r.Subject || got.Prefix != r.Prefix {
		t.Errorf("subject/prefix = %q/%q, want %q/%q", got.Subject, got.Prefix, r.Subject, r.Prefix)
	}
	if string(got.Payload) != string(r.Payload) {
		t.Errorf("Payload = %q, want %q", got.Payload, r.Payload)
	}
	if got.Stream != r.Stream || got.Consumer != r.Consumer {
		t.Errorf("stream/consumer = %q/%q", got.Stream, got.Consumer)
	}
	if got.DeliveryCount != r.DeliveryCount || got.StreamSequence != r.StreamSequence {
		t.Errorf("delivery/sequence = %d/%d, want %d/%d",
			got.DeliveryCount, got.StreamSequence, r.DeliveryCount, r.StreamSequence)
	}
	if !got.Timestamp.Equal(r.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, r.Timestamp)
	}
	if got.Error != r.Error {
		t.Errorf("Error = %q, want %q", got.Error, r.Error)
	}
	if !got.FailedAt.Equal(r.FailedAt) {
		t.Errorf("FailedAt = %v, want %v", got.FailedAt, r.FailedAt)
	}

	_, err = s.GetDeadLetter(ctx, id.NewDeadLetterID())
	if !errors.Is(err, redrive.ErrDeadLetterNotFound) {
		t.Fatalf("GetDeadLetter(unknown) = %v, want ErrDeadLetterNotFound", err)
	}
}

func testHeaders(t *testing.T, s store.Store) {
	ctx := context.Background()

	missing := NewRecord(nil, time.Now())
	missing.Headers = nil
	empty := NewRecord(nil, time.Now())
	empty.Headers = nats.Header{}

	for _, r := range []*dlq.Record{missing, empty} {
		if err := s.PushDeadLetter(ctx, r); err != nil {
			t.Fatalf("PushDeadLetter: %v", err)
		}
	}

	got, err := s.GetDeadLetter(ctx, missing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Headers != nil {
		t.Errorf("missing headers came back as %v", got.Headers)
	}

	got, err = s.GetDeadLetter(ctx, empty.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Headers == nil {
		t.Error("empty headers came back as missing")
	}
}

func testGetDeadLetters(t *testing.T, s store.Store) {
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	base := time.Now().Add(-time.Minute)
	r1 := NewRecord(&a, base)
	r2 := NewRecord(&b, base.Add(time.Second))
	r3 := NewRecord(&a, base.Add(2*time.Second))
	r4 := NewRecord(nil, base.Add(3*time.Second))

	for _, r := range []*dlq.Record{r3, r1, r4, r2} {
		if err := s.PushDeadLetter(ctx, r); err != nil {
			t.Fatalf("PushDeadLetter: %v", err)
		}
	}

	tests := []struct {
		name    string
		filter  dlq.Filter
		wantIDs []id.ID
	}{
		{"all", dlq.Filter{}, []id.ID{r1.ID, r2.ID, r3.ID, r4.ID}},
		{"aggregate", dlq.Filter{AggregateID: &a}, []id.ID{r1.ID, r3.ID}},
		{"limit", dlq.Filter{Limit: 2}, []id.ID{r1.ID, r2.ID}},
		{"offset", dlq.Filter{Offset: 3}, []id.ID{r4.ID}},
		{"offset past end", dlq.Filter{Offset: 9}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetDeadLetters(ctx, tt.filter)
			if err != nil {
				t.Fatalf("GetDeadLetters: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.wantIDs))
			}
			for i, r := range got {
				if !r.ID.Equal(tt.wantIDs[i]) {
					t.Errorf("record %d = %s, want %s", i, r.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func testRemove(t *testing.T, s store.Store) {
	ctx := context.Background()

	r := NewRecord(nil, time.Now())
	if err := s.PushDeadLetter(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveDeadLetter(ctx, r.ID); err != nil {
		t.Fatalf("RemoveDeadLetter: %v", err)
	}
	if _, err := s.GetDeadLetter(ctx, r.ID); !errors.Is(err, redrive.ErrDeadLetterNotFound) {
		t.Fatalf("expected record to be gone, got %v", err)
	}
	if err := s.RemoveDeadLetter(ctx, r.ID); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func testPurgeAndCount(t *testing.T, s store.Store) {
	ctx := context.Background()

	count, err := s.CountDeadLetters(ctx)
	if err != nil {
		t.Fatalf("CountDeadLetters: %v", err)
	}
	if count != 0 {
		t.Fatalf("empty store count = %d, want 0", count)
	}

	old := NewRecord(nil, time.Now().Add(-24*time.Hour))
	recent := NewRecord(nil, time.Now())
	for _, r := range []*dlq.Record{old, recent} {
		if err := s.PushDeadLetter(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	purged, err := s.PurgeDeadLetters(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PurgeDeadLetters: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}

	count, err = s.CountDeadLetters(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("remaining = %d, want 1", count)
	}
}
