package pebble_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/store"
	"github.com/xraph/redrive/store/pebble"
	"github.com/xraph/redrive/store/storetest"
)

func openStore(t *testing.T, dir string) *pebble.Store {
	t.Helper()

	s, err := pebble.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s := openStore(t, t.TempDir())
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := pebble.Open(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestRecordsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	agg := uuid.New()
	r := storetest.NewRecord(&agg, time.Now())

	s := openStore(t, dir)
	if err := s.PushDeadLetter(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s = openStore(t, dir)
	defer s.Close()

	got, err := s.GetDeadLetters(ctx, dlq.Filter{AggregateID: &agg})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].ID.Equal(r.ID) {
		t.Fatalf("after reopen got %d records, want %s", len(got), r.ID)
	}
}

func TestClosedStore(t *testing.T) {
	s := openStore(t, t.TempDir())
	ctx := context.Background()

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, redrive.ErrStoreClosed) {
		t.Fatalf("Ping after Close = %v, want ErrStoreClosed", err)
	}
	if _, err := s.CountDeadLetters(ctx); !errors.Is(err, redrive.ErrStoreClosed) {
		t.Fatalf("Count after Close = %v, want ErrStoreClosed", err)
	}
}

func TestPushReplacesIndexEntries(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	r := storetest.NewRecord(nil, time.Now().Add(-time.Hour))
	if err := s.PushDeadLetter(ctx, r); err != nil {
		t.Fatal(err)
	}

	// Re-archiving the same ID with a later failure moves it in the index.
	r.FailedAt = time.Now().UTC().Truncate(time.Millisecond)
	if err := s.PushDeadLetter(ctx, r); err != nil {
		t.Fatal(err)
	}

	n, err := s.CountDeadLetters(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}
