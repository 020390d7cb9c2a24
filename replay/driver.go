package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/backoff"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/envelope"
	"github.com/xraph/redrive/event"
	"github.com/xraph/redrive/id"
	"github.com/xraph/redrive/middleware"
	"github.com/xraph/redrive/project"
)

// Store is the part of dlq.Store the driver needs.
type Store interface {
	GetDeadLetters(ctx context.Context, f dlq.Filter) ([]*dlq.Record, error)
	RemoveDeadLetter(ctx context.Context, recordID id.DeadLetterID) error
}

// DefaultConcurrency is the number of aggregates ReplayAll processes at
// once when no WithConcurrency option is given.
const DefaultConcurrency = 4

// Driver re-drives dead-letter records through a projector.
type Driver struct {
	store         Store
	decoder       event.Decoder
	projector     project.Projector
	reconstructor *envelope.Reconstructor
	chain         middleware.Middleware
	concurrency   int
	limiter       *rate.Limiter
	emitter       Emitter
	logger        *slog.Logger

	cleanupAttempts int
	cleanupBackoff  backoff.Strategy
}

// NewDriver creates a Driver.
func NewDriver(store Store, decoder event.Decoder, projector project.Projector, opts ...Option) (*Driver, error) {
	switch {
	case store == nil:
		return nil, redrive.ErrNoStore
	case decoder == nil:
		return nil, redrive.ErrNoDecoder
	case projector == nil:
		return nil, redrive.ErrNoProjector
	}

	d := &Driver{
		store:       store,
		decoder:     decoder,
		projector:   projector,
		chain:       middleware.Chain(),
		concurrency: DefaultConcurrency,
		emitter:     noopEmitter{},
		logger:      slog.Default(),

		cleanupAttempts: 1,
		cleanupBackoff:  backoff.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.reconstructor == nil {
		d.reconstructor = envelope.NewReconstructor(envelope.WithLogger(d.logger))
	}
	return d, nil
}

// ReplayOne replays every record of one aggregate, in store order.
//
// It returns an error wrapping redrive.ErrNoDeadLetters when the
// aggregate has no records, and a *StoreError when they cannot be
// fetched. Per-record failures are reported in the summary, not as an
// error. On cancellation the partial summary is returned with ctx.Err().
func (d *Driver) ReplayOne(ctx context.Context, aggregateID uuid.UUID) (*Summary, error) {
	records, err := d.fetch(ctx)
	if err != nil {
		return nil, err
	}

	matching := make([]*dlq.Record, 0, len(records))
	for _, r := range records {
		if r.BelongsTo(aggregateID) {
			matching = append(matching, r)
		}
	}
	if len(matching) == 0 {
		return nil, fmt.Errorf("aggregate %s: %w", aggregateID, redrive.ErrNoDeadLetters)
	}

	run := d.start(ctx, KindOne, &aggregateID)
	sum := newSummary(aggregateID)
	err = d.replayGroup(ctx, run, aggregateID, matching, sum, false)
	d.finish(ctx, run, sum)
	return sum, err
}

// ReplayAll replays every record that has an aggregate id. Aggregates are
// processed concurrently, up to the configured limit; records of one
// aggregate run sequentially in store order. Records without an
// aggregate id are left untouched.
//
// Errors are as for ReplayOne. ProcessedAggregates lists aggregates in
// the order their first record appears in the store.
func (d *Driver) ReplayAll(ctx context.Context) (*Summary, error) {
	records, err := d.fetch(ctx)
	if err != nil {
		return nil, err
	}

	groups := groupByAggregate(records)
	if len(groups) == 0 {
		return nil, redrive.ErrNoDeadLetters
	}

	run := d.start(ctx, KindAll, nil)

	partials := make([]*Summary, len(groups))
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, grp := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partials[i] = newSummary(grp.aggregate)
			return d.replayGroup(ctx, run, grp.aggregate, grp.records, partials[i], true)
		})
	}
	err = g.Wait()

	sum := newSummary()
	for _, p := range partials {
		if p != nil {
			sum.merge(p)
		}
	}
	d.finish(ctx, run, sum)
	return sum, err
}

type group struct {
	aggregate uuid.UUID
	records   []*dlq.Record
}

// groupByAggregate keeps first-seen aggregate order and store order
// within each group.
func groupByAggregate(records []*dlq.Record) []group {
	index := make(map[uuid.UUID]int)
	var groups []group
	for _, r := range records {
		if !r.HasAggregate() {
			continue
		}
		agg := *r.AggregateID
		i, ok := index[agg]
		if !ok {
			i = len(groups)
			index[agg] = i
			groups = append(groups, group{aggregate: agg})
		}
		groups[i].records = append(groups[i].records, r)
	}
	return groups
}

func (d *Driver) fetch(ctx context.Context) ([]*dlq.Record, error) {
	records, err := d.store.GetDeadLetters(ctx, dlq.Filter{})
	if err != nil {
		return nil, &StoreError{Op: "get_dead_letters", Err: err}
	}
	return records, nil
}

func (d *Driver) replayGroup(ctx context.Context, run *Run, agg uuid.UUID, records []*dlq.Record, sum *Summary, bulk bool) error {
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		sum.TotalEvents++
		start := time.Now()
		if err := d.replayRecord(ctx, rec); err != nil {
			sum.FailedReplays++
			if bulk {
				sum.Errors = append(sum.Errors, fmt.Sprintf("failed to replay event for aggregate %s: %v", agg, err))
			} else {
				sum.Errors = append(sum.Errors, fmt.Sprintf("failed to replay event: %v", err))
			}
			d.emitter.EmitRecordFailed(ctx, run, rec, err)
			continue
		}

		sum.SuccessfulReplays++
		d.emitter.EmitRecordReplayed(ctx, run, rec, time.Since(start))
		if warn := d.cleanup(ctx, run, rec); warn != "" {
			sum.Errors = append(sum.Errors, warn)
		}
	}
	return nil
}

// replayRecord reconstructs, decodes and projects one record. The
// projector receives a fresh handle per record.
func (d *Driver) replayRecord(ctx context.Context, rec *dlq.Record) error {
	env, err := d.reconstructor.Reconstruct(rec)
	if err != nil {
		return err
	}
	evctx, err := d.decoder.Decode(env)
	if err != nil {
		return err
	}

	p := project.Fresh(d.projector)
	err = d.chain(ctx, rec, func(ctx context.Context) error {
		return p.Project(ctx, evctx)
	})
	if err == nil {
		return nil
	}
	var pe *ProjectionError
	if errors.As(err, &pe) {
		return err
	}
	return &ProjectionError{RecordID: rec.ID, Subject: rec.Subject, Err: err}
}

// cleanup removes a replayed record and returns a warning when it could
// not. The replay itself already counts as a success.
func (d *Driver) cleanup(ctx context.Context, run *Run, rec *dlq.Record) string {
	if rec.ID.IsNil() {
		d.logger.Warn("replayed record has no id, leaving it in the store",
			slog.String("subject", rec.Subject),
		)
		return fmt.Sprintf("failed to remove dead letter for subject %s: record has no id", rec.Subject)
	}
	if err := d.remove(ctx, rec); err != nil {
		serr := &StoreError{Op: "remove_dead_letter", Err: err}
		d.logger.Warn("failed to remove replayed record",
			slog.String("record_id", rec.ID.String()),
			slog.String("error", err.Error()),
		)
		d.emitter.EmitCleanupFailed(ctx, run, rec, serr)
		return fmt.Sprintf("failed to remove dead letter %s: %v", rec.ID, err)
	}
	return ""
}

// remove deletes rec, retrying up to the configured number of attempts.
func (d *Driver) remove(ctx context.Context, rec *dlq.Record) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = d.store.RemoveDeadLetter(ctx, rec.ID); err == nil || attempt >= d.cleanupAttempts {
			return err
		}
		d.logger.Debug("retrying dead letter removal",
			slog.String("record_id", rec.ID.String()),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if werr := backoff.Wait(ctx, d.cleanupBackoff, attempt); werr != nil {
			return err
		}
	}
}

func (d *Driver) start(ctx context.Context, kind Kind, agg *uuid.UUID) *Run {
	run := &Run{
		ID:          id.NewReplayID(),
		Kind:        kind,
		AggregateID: agg,
		StartedAt:   time.Now().UTC(),
	}
	d.logger.Info("replay started",
		slog.String("replay_id", run.ID.String()),
		slog.String("kind", string(kind)),
	)
	d.emitter.EmitReplayStarted(ctx, run)
	return run
}

func (d *Driver) finish(ctx context.Context, run *Run, sum *Summary) {
	elapsed := time.Since(run.StartedAt)
	d.logger.Info("replay completed",
		slog.String("replay_id", run.ID.String()),
		slog.Int("total", sum.TotalEvents),
		slog.Int("successful", sum.SuccessfulReplays),
		slog.Int("failed", sum.FailedReplays),
		slog.Duration("elapsed", elapsed),
	)
	d.emitter.EmitReplayCompleted(ctx, run, sum, elapsed)
}
