package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	gu "github.com/xraph/go-utils/metrics"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/admin"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/envelope"
	"github.com/xraph/redrive/event"
	"github.com/xraph/redrive/ext"
	mw "github.com/xraph/redrive/middleware"
	"github.com/xraph/redrive/observability"
	"github.com/xraph/redrive/project"
	"github.com/xraph/redrive/replay"
	"github.com/xraph/redrive/sweep"
)

const instrumentationName = "github.com/xraph/redrive"

// Engine wraps a Redriver with the replay driver, admin handler,
// archive service, extensions and sweep.
// Use Build() to create one from a Redriver.
type Engine struct {
	r          *redrive.Redriver
	extensions *ext.Registry
	registry   *event.Registry
	decoder    event.Decoder
	projector  project.Projector
	store      dlq.Store
	mws        []mw.Middleware
	logger     *slog.Logger

	recordTimeout time.Duration

	driver     *replay.Driver
	admin      *admin.Handler
	dlqService *dlq.Service
	sweep      *sweep.Scheduler

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	metricFactory  gu.MetricFactory
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.extensions.Register(e)
	}
}

// WithMiddleware adds middleware after the default chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithDecoder replaces the engine's event registry as the decoder.
func WithDecoder(d event.Decoder) Option {
	return func(eng *Engine) {
		eng.decoder = d
	}
}

// WithProjector sets the projector dead letters are replayed into.
func WithProjector(p project.Projector) Option {
	return func(eng *Engine) {
		eng.projector = p
	}
}

// WithRecordTimeout bounds each projector call. Zero disables the bound.
func WithRecordTimeout(d time.Duration) Option {
	return func(eng *Engine) {
		eng.recordTimeout = d
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the metrics
// middleware. If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// WithMetricFactory sets the factory used by the observability
// extension's counters. Forge applications pass fapp.Metrics().
func WithMetricFactory(f gu.MetricFactory) Option {
	return func(eng *Engine) {
		eng.metricFactory = f
	}
}

// Build creates an Engine from an existing Redriver.
// The Redriver's store must implement dlq.Store.
func Build(r *redrive.Redriver, opts ...Option) (*Engine, error) {
	logger := r.Logger()

	st := r.Store()
	if st == nil {
		return nil, redrive.ErrNoStore
	}
	ds, ok := st.(dlq.Store)
	if !ok {
		return nil, fmt.Errorf("redrive: store does not implement dlq.Store")
	}

	eng := &Engine{
		r:          r,
		extensions: ext.NewRegistry(logger),
		registry:   event.NewRegistry(),
		store:      ds,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.projector == nil {
		return nil, redrive.ErrNoProjector
	}
	if eng.decoder == nil {
		eng.decoder = eng.registry
	}

	// Register the observability metrics extension.
	if eng.metricFactory != nil {
		eng.extensions.Register(observability.NewMetricsExtensionWithFactory(eng.metricFactory))
	} else {
		eng.extensions.Register(observability.NewMetricsExtension())
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	// Default middleware stack: recover → tracing → metrics → logging → timeout.
	allMws := make([]mw.Middleware, 0, 5+len(eng.mws))
	allMws = append(allMws,
		mw.Recover(logger),
		tracingMw,
		metricsMw,
		mw.Logging(logger),
		mw.Timeout(eng.recordTimeout, logger),
	)
	allMws = append(allMws, eng.mws...)


	config := r.Config()
	driver, err := replay.NewDriver(ds, eng.decoder, eng.projector,
		replay.WithLogger(logger),
		replay.WithReconstructor(envelope.NewReconstructor(envelope.WithLogger(logger))),
		replay.WithConcurrency(config.Concurrency),
		replay.WithRateLimit(config.RatePerSecond, config.RateBurst),
		replay.WithCleanupRetry(config.CleanupAttempts, nil),
		replay.WithMiddleware(allMws...),
		replay.WithEmitter(eng.extensions),
	)
	if err != nil {
		return nil, err
	}
	eng.driver = driver
	eng.admin = admin.NewHandler(driver, admin.WithLogger(logger))
	eng.dlqService = dlq.NewService(ds, dlq.WithLogger(logger), dlq.WithNotifier(eng.extensions))

	if config.SweepSchedule != "" {
		sweepOpts := []sweep.Option{
			sweep.WithLogger(logger),
			sweep.WithEmitter(eng.extensions),
		}
		s, sweepErr := sweep.NewScheduler(config.SweepSchedule, driver, sweepOpts...)
		if sweepErr != nil {
			return nil, sweepErr
		}
		eng.sweep = s
		r.SetSweep(s)
	}

	// Wire back into the Redriver.
	r.SetExtensions(eng.extensions)

	return eng, nil
}

// RegisterEvent registers an event type with the engine's registry.
func RegisterEvent[T event.Named](eng *Engine) {
	event.Register[T](eng.registry)
}

// Start starts the scheduled sweep, if configured.
func (eng *Engine) Start(ctx context.Context) error {
	return eng.r.Start(ctx)
}

// Stop gracefully shuts down the engine.
func (eng *Engine) Stop(ctx context.Context) error {
	return eng.r.Stop(ctx)
}

// ReplayOne replays the dead letters of one aggregate.
func (eng *Engine) ReplayOne(ctx context.Context, aggregateID uuid.UUID) (*replay.Summary, error) {
	return eng.driver.ReplayOne(ctx, aggregateID)
}

// ReplayAll replays every dead letter that has an aggregate id.
func (eng *Engine) ReplayAll(ctx context.Context) (*replay.Summary, error) {
	return eng.driver.ReplayAll(ctx)
}

// Archive records a failed delivery as a dead letter.
func (eng *Engine) Archive(ctx context.Context, prefix string, msg *nats.Msg, cause error) (*dlq.Record, error) {
	return eng.dlqService.Archive(ctx, prefix, msg, cause)
}

// PurgeDeadLetters removes every dead letter that failed before the
// cutoff, replayed or not. Sweeps never call it.
func (eng *Engine) PurgeDeadLetters(ctx context.Context, before time.Time) (int64, error) {
	n, err := eng.store.PurgeDeadLetters(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("purge dead letters: %w", err)
	}
	return n, nil
}

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Registry returns the event registry.
func (eng *Engine) Registry() *event.Registry { return eng.registry }

// Redriver returns the underlying Redriver.
func (eng *Engine) Redriver() *redrive.Redriver { return eng.r }

// Driver returns the replay driver.
func (eng *Engine) Driver() *replay.Driver { return eng.driver }

// Admin returns the admin command handler.
func (eng *Engine) Admin() *admin.Handler { return eng.admin }

// DLQService returns the archive service.
func (eng *Engine) DLQService() *dlq.Service { return eng.dlqService }

// Store returns the dead-letter store.
func (eng *Engine) Store() dlq.Store { return eng.store }

// Sweep returns the sweep scheduler, or nil if no schedule is configured.
func (eng *Engine) Sweep() *sweep.Scheduler { return eng.sweep }
