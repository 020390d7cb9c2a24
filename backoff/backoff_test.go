package backoff_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/redrive/backoff"
)

func TestConstant(t *testing.T) {
	c := backoff.NewConstant(5 * time.Millisecond)
	for attempt := 1; attempt <= 5; attempt++ {
		if got := c.Delay(attempt); got != 5*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want 5ms", attempt, got)
		}
	}
}

func TestExponential_DoublesAndCaps(t *testing.T) {
	e := backoff.NewExponential(time.Second, 10*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{50, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := e.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_JitterStaysInRange(t *testing.T) {
	e := &backoff.Exponential{Initial: time.Second, Max: 4 * time.Second, Jitter: true}
	for i := 0; i < 200; i++ {
		if got := e.Delay(3); got < 0 || got > 4*time.Second {
			t.Fatalf("Delay(3) = %v, want within [0, 4s]", got)
		}
	}
}

func TestDefault(t *testing.T) {
	s := backoff.Default()
	if got := s.Delay(100); got > 2*time.Second {
		t.Errorf("Default().Delay(100) = %v, want at most 2s", got)
	}
}

func TestWait(t *testing.T) {
	if err := backoff.Wait(context.Background(), backoff.NewConstant(time.Millisecond), 1); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := backoff.Wait(ctx, backoff.NewConstant(time.Hour), 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait on canceled ctx = %v, want context.Canceled", err)
	}
	if err := backoff.Wait(ctx, backoff.NewConstant(0), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("zero delay on canceled ctx = %v, want context.Canceled", err)
	}
}
