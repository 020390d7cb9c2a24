package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/store"
	"github.com/xraph/redrive/store/memory"
	"github.com/xraph/redrive/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return memory.New() })
}

// ──────────────────────────────────────────────────
// Lifecycle tests
// ──────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	t.Parallel()
	s := memory.New()
	ctx := context.Background()

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, redrive.ErrStoreClosed) {
		t.Fatalf("Ping after Close = %v, want ErrStoreClosed", err)
	}
}

// ──────────────────────────────────────────────────
// Isolation tests
// ──────────────────────────────────────────────────

func TestReturnedRecordsAreCopies(t *testing.T) {
	t.Parallel()
	s := memory.New()
	ctx := context.Background()

	r := storetest.NewRecord(nil, time.Now())
	if err := s.PushDeadLetter(ctx, r); err != nil {
		t.Fatal(err)
	}

	// Mutating the pushed or returned record must not leak into the store.
	r.Headers.Set("Content-Type", "pushed")
	got, err := s.GetDeadLetter(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	got.Headers.Set("Content-Type", "returned")

	again, err := s.GetDeadLetter(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ct := again.Headers.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, store shares header map with callers", ct)
	}
}
