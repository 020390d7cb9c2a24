package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/redrive/dlq"
)

// Recover returns middleware that turns a projector panic into an error,
// so one bad record cannot abort a bulk replay.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, rec *dlq.Record, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("projector panicked",
					slog.String("record_id", rec.ID.String()),
					slog.String("subject", rec.Subject),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				retErr = fmt.Errorf("panic projecting %s: %v", rec.Subject, r)
			}
		}()
		return next(ctx)
	}
}
