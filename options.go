package redrive

import (
	"context"
	"log/slog"
)

// Option configures a Redriver.
type Option func(*Redriver) error

// Storer is the minimal store interface held by the Redriver. It covers
// lifecycle operations only; store.Store embeds it together with the
// dead-letter operations.
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// sweepRunner is the lifecycle of the scheduled sweep.
type sweepRunner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// shutdownEmitter notifies extensions on Stop.
type shutdownEmitter interface {
	EmitShutdown(ctx context.Context)
}

// Redriver owns the configuration, logger, store and background sweep of
// a redrive deployment. The engine package wires the replay driver and
// extensions around it.
type Redriver struct {
	config     Config
	logger     *slog.Logger
	store      Storer
	extensions shutdownEmitter
	sweep      sweepRunner

	started bool
}

// New creates a Redriver with the given options.
func New(opts ...Option) (*Redriver, error) {
	r := &Redriver{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.store == nil {
		return nil, ErrNoStore
	}
	return r, nil
}

// Logger returns the redriver's logger.
func (r *Redriver) Logger() *slog.Logger { return r.logger }

// Store returns the redriver's store.
func (r *Redriver) Store() Storer { return r.store }

// Config returns a copy of the configuration.
func (r *Redriver) Config() Config { return r.config }

// SetSweep sets the scheduled sweep (called by the engine).
func (r *Redriver) SetSweep(s sweepRunner) { r.sweep = s }

// SetExtensions sets the shutdown emitter (called by the engine).
func (r *Redriver) SetExtensions(e shutdownEmitter) { r.extensions = e }

// Start starts the scheduled sweep, if one is configured.
func (r *Redriver) Start(ctx context.Context) error {
	if r.started {
		return ErrAlreadyStarted
	}
	if r.sweep != nil {
		if err := r.sweep.Start(ctx); err != nil {
			return err
		}
	}
	r.started = true
	return nil
}

// Stop halts the sweep, notifies extensions, and closes the store.
func (r *Redriver) Stop(ctx context.Context) error {
	if r.sweep != nil && r.started {
		stopCtx, cancel := context.WithTimeout(ctx, r.config.ShutdownTimeout)
		if err := r.sweep.Stop(stopCtx); err != nil {
			r.logger.Error("sweep stop error", slog.String("error", err.Error()))
		}
		cancel()
	}
	r.started = false
	if r.extensions != nil {
		r.extensions.EmitShutdown(ctx)
	}
	return r.store.Close()
}

// WithConcurrency sets how many aggregates ReplayAll processes at once.
func WithConcurrency(n int) Option {
	return func(r *Redriver) error {
		if n > 0 {
			r.config.Concurrency = n
		}
		return nil
	}
}

// WithRateLimit throttles record replays to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(r *Redriver) error {
		r.config.RatePerSecond = perSecond
		r.config.RateBurst = burst
		return nil
	}
}

// WithSweepSchedule enables automatic ReplayAll sweeps on a cron schedule.
func WithSweepSchedule(expr string) Option {
	return func(r *Redriver) error {
		r.config.SweepSchedule = expr
		return nil
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(r *Redriver) error {
		r.config = cfg
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Redriver) error {
		r.logger = l
		return nil
	}
}

// WithStore sets the persistence backend. It must implement Storer at
// minimum; in practice it is a store.Store.
func WithStore(s Storer) Option {
	return func(r *Redriver) error {
		r.store = s
		return nil
	}
}
