package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // sqlite migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/redrive/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps dead letters in a single SQLite table. It borrows the
// *grove.DB it was given: Close does not close it.
type Store struct {
	db     *grove.DB
	sdb    *sqlitedriver.SqliteDB
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for migration output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New wraps db, which must have been opened with the SQLite driver.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		sdb:    sqlitedriver.Unwrap(db),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the borrowed database, e.g. to run the projector's own
// migrations on the same file.
func (s *Store) DB() *grove.DB {
	return s.db
}

// Migrate creates the redrive_dead_letters table and its indexes.
// Applied migrations are skipped, so it runs on every start.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("redrive/sqlite: create migration executor: %w", err)
	}
	if _, err := migrate.NewOrchestrator(executor, Migrations).Migrate(ctx); err != nil {
		return fmt.Errorf("redrive/sqlite: migrate dead letters: %w", err)
	}
	s.logger.Debug("dead letter schema up to date", slog.String("group", Migrations.Name()))
	return nil
}

// Ping reports whether the SQLite file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("redrive/sqlite: ping: %w", err)
	}
	return nil
}

// Close releases nothing; the database belongs to the caller.
func (s *Store) Close() error { return nil }
