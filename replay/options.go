package replay

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/xraph/redrive/backoff"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/envelope"
	"github.com/xraph/redrive/middleware"
)

// Emitter receives replay lifecycle events. Calls may arrive concurrently
// from different aggregates during ReplayAll. The ext.Registry satisfies it.
type Emitter interface {
	EmitReplayStarted(ctx context.Context, run *Run)
	EmitRecordReplayed(ctx context.Context, run *Run, rec *dlq.Record, elapsed time.Duration)
	EmitRecordFailed(ctx context.Context, run *Run, rec *dlq.Record, err error)
	EmitCleanupFailed(ctx context.Context, run *Run, rec *dlq.Record, err error)
	EmitReplayCompleted(ctx context.Context, run *Run, summary *Summary, elapsed time.Duration)
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithReconstructor replaces the default envelope reconstructor.
func WithReconstructor(rc *envelope.Reconstructor) Option {
	return func(d *Driver) { d.reconstructor = rc }
}

// WithConcurrency bounds how many aggregates ReplayAll processes at once.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithRateLimit throttles record replays across all aggregates. A
// non-positive perSecond disables throttling.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(d *Driver) {
		if perSecond <= 0 {
			d.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMiddleware sets the middleware wrapped around every projection.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(d *Driver) { d.chain = middleware.Chain(mws...) }
}

// WithCleanupRetry retries the removal of a replayed record up to
// attempts times, waiting s between tries. A nil s keeps the default
// jittered exponential strategy. The replay counts as a success either
// way; only the final failure becomes a warning.
func WithCleanupRetry(attempts int, s backoff.Strategy) Option {
	return func(d *Driver) {
		if attempts > 0 {
			d.cleanupAttempts = attempts
		}
		if s != nil {
			d.cleanupBackoff = s
		}
	}
}

// WithEmitter sets the lifecycle event receiver.
func WithEmitter(e Emitter) Option {
	return func(d *Driver) {
		if e != nil {
			d.emitter = e
		}
	}
}

type noopEmitter struct{}

func (noopEmitter) EmitReplayStarted(context.Context, *Run) {}
func (noopEmitter) EmitRecordReplayed(context.Context, *Run, *dlq.Record, time.Duration) {}
func (noopEmitter) EmitRecordFailed(context.Context, *Run, *dlq.Record, error) {}
func (noopEmitter) EmitCleanupFailed(context.Context, *Run, *dlq.Record, error) {}
func (noopEmitter) EmitReplayCompleted(context.Context, *Run, *Summary, time.Duration) {}
