// Package view projects events into a Postgres JSONB view table through
// Bun. Each aggregate owns one row keyed by view_id; the row holds the
// JSON form of a caller-defined view value.
package view

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/xraph/redrive/event"
)

// View is a read model built by folding events. Apply reports whether
// the event changed the view; unchanged views are not written back.
type View interface {
	Apply(ev *event.Context) (changed bool, err error)
}

// viewPtr constrains PV to a pointer to V that implements View.
type viewPtr[V any] interface {
	*V
	View
}

// Projector loads the view for the event's aggregate, applies the event,
// and upserts the row when the view changed.
type Projector[V any, PV viewPtr[V]] struct {
	name   string
	db     bun.IDB
	logger *slog.Logger
}

// Option configures a Projector.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New returns a projector writing to table name. db may be a *bun.DB or a
// bun.Tx.
func New[V any, PV viewPtr[V]](name string, db bun.IDB, opts ...Option) *Projector[V, PV] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Projector[V, PV]{name: name, db: db, logger: o.logger}
}

// Name returns the view table name.
func (p *Projector[V, PV]) Name() string { return p.name }

// Setup creates the view table if it does not exist.
func (p *Projector[V, PV]) Setup(ctx context.Context) error {
	_, err := p.db.NewRaw(`
		CREATE TABLE IF NOT EXISTS ? (
			view_id uuid  NOT NULL,
			payload jsonb NOT NULL,
			PRIMARY KEY (view_id)
		)`, bun.Ident(p.name)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("view %s: setup: %w", p.name, err)
	}
	return nil
}

// Load returns the stored view, or the zero view when no row exists.
func (p *Projector[V, PV]) Load(ctx context.Context, id uuid.UUID) (*V, error) {
	v := new(V)

	var payload string
	err := p.db.NewRaw(`SELECT payload FROM ? WHERE view_id = ?`, bun.Ident(p.name), id.String()).
		Scan(ctx, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("view %s: load %s: %w", p.name, id, err)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return nil, fmt.Errorf("view %s: decode %s: %w", p.name, id, err)
	}
	return v, nil
}

// Save upserts the view row.
func (p *Projector[V, PV]) Save(ctx context.Context, id uuid.UUID, v *V) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("view %s: encode %s: %w", p.name, id, err)
	}
	_, err = p.db.NewRaw(`
		INSERT INTO ? (view_id, payload) VALUES (?, ?)
		ON CONFLICT (view_id) DO UPDATE SET payload = EXCLUDED.payload`,
		bun.Ident(p.name), id.String(), string(payload)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("view %s: save %s: %w", p.name, id, err)
	}
	return nil
}

// DeleteOne removes one aggregate's row.
func (p *Projector[V, PV]) DeleteOne(ctx context.Context, id uuid.UUID) error {
	_, err := p.db.NewRaw(`DELETE FROM ? WHERE view_id = ?`, bun.Ident(p.name), id.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("view %s: delete %s: %w", p.name, id, err)
	}
	return nil
}

// Delete removes every row.
func (p *Projector[V, PV]) Delete(ctx context.Context) error {
	if _, err := p.db.NewRaw(`DELETE FROM ?`, bun.Ident(p.name)).Exec(ctx); err != nil {
		return fmt.Errorf("view %s: delete all: %w", p.name, err)
	}
	return nil
}

// Project loads, applies and saves; it satisfies project.Projector.
func (p *Projector[V, PV]) Project(ctx context.Context, ev *event.Context) error {
	v, err := p.Load(ctx, ev.AggregateID)
	if err != nil {
		return err
	}

	changed, err := PV(v).Apply(ev)
	if err != nil {
		return fmt.Errorf("view %s: apply %s: %w", p.name, ev.Name, err)
	}
	if !changed {
		p.logger.Debug("view not changed, skipping save",
			slog.String("view", p.name),
			slog.String("view_id", ev.AggregateID.String()),
			slog.String("event", ev.Name),
		)
		return nil
	}
	return p.Save(ctx, ev.AggregateID, v)
}

// Rebuild discards the stored view of id and folds events into a fresh
// one inside a transaction.
func (p *Projector[V, PV]) Rebuild(ctx context.Context, id uuid.UUID, events []*event.Context) error {
	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		txp := &Projector[V, PV]{name: p.name, db: tx, logger: p.logger}
		if err := txp.DeleteOne(ctx, id); err != nil {
			return err
		}
		v := new(V)
		for _, ev := range events {
			if _, err := PV(v).Apply(ev); err != nil {
				return fmt.Errorf("view %s: apply %s: %w", p.name, ev.Name, err)
			}
		}
		return txp.Save(ctx, id, v)
	})
}
