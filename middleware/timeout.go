package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/redrive/dlq"
)

// Timeout returns middleware that bounds each projection by d. A zero or
// negative d disables the deadline.
func Timeout(d time.Duration, logger *slog.Logger) Middleware {
	return func(ctx context.Context, rec *dlq.Record, next Handler) error {
		if d <= 0 {
			return next(ctx)
		}
		logger.Debug("projection deadline set",
			slog.String("record_id", rec.ID.String()),
			slog.Duration("timeout", d),
		)
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}
