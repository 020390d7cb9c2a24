package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/engine"
	"github.com/xraph/redrive/event"
	"github.com/xraph/redrive/project"
	"github.com/xraph/redrive/store"
	pebblestore "github.com/xraph/redrive/store/pebble"
	pgstore "github.com/xraph/redrive/store/postgres"
	redisstore "github.com/xraph/redrive/store/redis"
)

// app holds the resources opened for one command.
type app struct {
	cfg     Config
	logger  *slog.Logger
	store   store.Store
	nc      *nats.Conn
	eng     *engine.Engine
	closers []func() error
}

// openStore connects the first configured backend.
func (a *app) openStore(ctx context.Context) error {
	switch {
	case a.cfg.PostgresDSN != "":
		s, err := pgstore.New(ctx, a.cfg.PostgresDSN, pgstore.WithLogger(a.logger))
		if err != nil {
			return err
		}
		a.store = s

	case a.cfg.RedisURL != "":
		opts, err := goredis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client := goredis.NewClient(opts)
		a.closers = append(a.closers, client.Close)
		a.store = redisstore.New(client, redisstore.WithLogger(a.logger))

	case a.cfg.PebbleDir != "":
		s, err := pebblestore.Open(a.cfg.PebbleDir, pebblestore.WithLogger(a.logger))
		if err != nil {
			return err
		}
		a.store = s

	default:
		return fmt.Errorf("%w: set REDRIVE_POSTGRES_DSN, REDRIVE_REDIS_URL or REDRIVE_PEBBLE_DIR", redrive.ErrNoStore)
	}
	return nil
}

// openEngine connects NATS and builds an engine that republishes
// replayed dead letters on their original subjects.
func (a *app) openEngine(ctx context.Context) error {
	if err := a.openStore(ctx); err != nil {
		return err
	}

	nc, err := nats.Connect(a.cfg.NATSURL, nats.Name("redrive"))
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	a.nc = nc

	r, err := redrive.New(
		redrive.WithStore(a.store),
		redrive.WithConfig(a.cfg.Redrive()),
		redrive.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	eng, err := engine.Build(r,
		engine.WithProjector(project.Republish(nc)),
		engine.WithDecoder(event.Raw),
		engine.WithRecordTimeout(a.cfg.RecordTimeout),
	)
	if err != nil {
		return err
	}
	a.eng = eng
	return nil
}

// close releases everything in reverse order of acquisition. The store
// is closed by the engine when one was built.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.eng != nil {
		errs = append(errs, a.eng.Stop(ctx))
	} else if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.nc != nil {
		errs = append(errs, a.nc.Drain())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
