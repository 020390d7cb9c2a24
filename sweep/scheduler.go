package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/replay"
)

// Replayer runs a bulk replay. *replay.Driver satisfies it.
type Replayer interface {
	ReplayAll(ctx context.Context) (*replay.Summary, error)
}

// Emitter emits sweep lifecycle events.
// ext.Registry satisfies this interface via EmitSweepFired.
type Emitter interface {
	EmitSweepFired(ctx context.Context, schedule string, summary *replay.Summary, err error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithEmitter sets the lifecycle event emitter.
func WithEmitter(e Emitter) Option {
	return func(s *Scheduler) { s.emitter = e }
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", redrive.ErrInvalidSchedule, expr, err)
	}
	return sched, nil
}

// Scheduler fires ReplayAll on a cron schedule.
type Scheduler struct {
	expr     string
	schedule cronlib.Schedule
	replayer Replayer
	emitter  Emitter
	logger   *slog.Logger

	mu     sync.Mutex
	cron   *cronlib.Cron
	cancel context.CancelFunc
}

// NewScheduler creates a Scheduler. It returns an error wrapping
// redrive.ErrInvalidSchedule when expr cannot be parsed.
func NewScheduler(expr string, replayer Replayer, opts ...Option) (*Scheduler, error) {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		expr:     expr,
		schedule: sched,
		replayer: replayer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Schedule returns the cron expression.
func (s *Scheduler) Schedule() string { return s.expr }

// Next returns the next fire time after t.
func (s *Scheduler) Next(t time.Time) time.Time { return s.schedule.Next(t) }

// Start launches the cron runner. Sweeps run with a context derived from
// ctx's values that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return redrive.ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := cronlib.New(
		cronlib.WithParser(cronParser),
		cronlib.WithLogger(cronLogger{s.logger}),
		cronlib.WithChain(
			cronlib.Recover(cronLogger{s.logger}),
			cronlib.SkipIfStillRunning(cronLogger{s.logger}),
		),
	)
	c.Schedule(s.schedule, cronlib.FuncJob(func() {
		_, _ = s.Fire(runCtx)
	}))
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.logger.Info("sweep scheduler started",
		slog.String("schedule", s.expr),
		slog.Time("next", s.schedule.Next(time.Now())),
	)
	return nil
}

// Stop stops the cron runner and waits for a running sweep. If ctx
// expires first, the running sweep is cancelled and ctx.Err() returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop()
	defer cancel()
	select {
	case <-done.Done():
		s.logger.Info("sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		cancel()
		<-done.Done()
		return ctx.Err()
	}
}

// Fire runs one sweep now. A sweep that finds no dead letters returns
// (nil, nil). Records whose replay fails stay archived.
func (s *Scheduler) Fire(ctx context.Context) (*replay.Summary, error) {
	start := time.Now()
	summary, err := s.replayer.ReplayAll(ctx)

	switch {
	case errors.Is(err, redrive.ErrNoDeadLetters):
		summary, err = nil, nil
		s.logger.Debug("sweep idle", slog.String("schedule", s.expr))
	case err != nil:
		s.logger.Error("sweep failed",
			slog.String("schedule", s.expr),
			slog.String("error", err.Error()),
		)
	default:
		s.logger.Info("sweep completed",
			slog.String("schedule", s.expr),
			slog.Int("total_events", summary.TotalEvents),
			slog.Int("failed_replays", summary.FailedReplays),
			slog.Duration("elapsed", time.Since(start)),
		)
	}

	if s.emitter != nil {
		s.emitter.EmitSweepFired(ctx, s.expr, summary, err)
	}
	return summary, err
}

// cronLogger adapts slog to the cron library's logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
