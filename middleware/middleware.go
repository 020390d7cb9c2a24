// Package middleware provides composable middleware around the projection
// of a replayed record.
package middleware

import (
	"context"

	"github.com/xraph/redrive/dlq"
)

// Handler is the terminal function that projects one record.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic. It receives the
// record being replayed and MUST call next unless it short-circuits with
// an error.
type Middleware func(ctx context.Context, rec *dlq.Record, next Handler) error

// Chain composes middleware right-to-left: the first one is outermost.
//
//	Chain(recover, logging)(ctx, rec, h)  =>  recover → logging → h
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, rec *dlq.Record, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, rec, prev)
			}
		}
		return h(ctx)
	}
}

func aggregateOf(rec *dlq.Record) string {
	if rec.AggregateID == nil {
		return ""
	}
	return rec.AggregateID.String()
}
