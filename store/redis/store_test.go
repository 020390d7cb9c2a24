package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/redrive/store"
	redisstore "github.com/xraph/redrive/store/redis"
	"github.com/xraph/redrive/store/storetest"
)

func newStore(t *testing.T) *redisstore.Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redisstore.New(client)
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newStore(t) })
}

func TestRemoveClearsAggregateIndex(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	a := uuid.New()
	r := storetest.NewRecord(&a, time.Now())
	if err := s.PushDeadLetter(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveDeadLetter(ctx, r.ID); err != nil {
		t.Fatal(err)
	}

	n, err := s.Client().ZCard(ctx, "redrive:aggregate:"+a.String()).Result()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("aggregate index has %d members after remove, want 0", n)
	}
}
