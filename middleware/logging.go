package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/redrive/dlq"
)

// Logging returns middleware that logs each replay attempt and its outcome.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, rec *dlq.Record, next Handler) error {
		logger.Debug("replaying record",
			slog.String("record_id", rec.ID.String()),
			slog.String("aggregate_id", aggregateOf(rec)),
			slog.String("subject", rec.Subject),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("record replay failed",
				slog.String("record_id", rec.ID.String()),
				slog.String("aggregate_id", aggregateOf(rec)),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("record replayed",
				slog.String("record_id", rec.ID.String()),
				slog.String("aggregate_id", aggregateOf(rec)),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
