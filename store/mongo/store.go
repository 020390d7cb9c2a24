package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/redrive/store"
)

const colDeadLetters = "redrive_dead_letters"

var _ store.Store = (*Store)(nil)

// Store is a grove ORM implementation of store.Store using MongoDB driver.
// The caller owns the *grove.DB lifecycle; Store never closes it.
type Store struct {
	db     *grove.DB
	mdb    *mongodriver.MongoDB
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a MongoDB store. Close leaves db open.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		mdb:    mongodriver.Unwrap(db),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *grove.DB for advanced usage.
func (s *Store) DB() *grove.DB {
	return s.db
}

// Migrate creates the dead-letter indexes.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.mdb.Collection(colDeadLetters).Indexes().CreateMany(ctx, deadLetterIndexes())
	if err != nil {
		return fmt.Errorf("redrive/mongo: migrate %s indexes: %w", colDeadLetters, err)
	}
	s.logger.Debug("redrive/mongo: indexes ensured", slog.String("collection", colDeadLetters))
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close is a no-op because the caller owns the *grove.DB lifecycle.
func (s *Store) Close() error {
	return nil
}

// ── helpers ──────────────────────────────────────────────────────

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

func deadLetterIndexes() []mongod.IndexModel {
	return []mongod.IndexModel{
		{Keys: bson.D{
			{Key: "failed_at", Value: 1},
			{Key: "_id", Value: 1},
		}},
		{
			Keys: bson.D{
				{Key: "aggregate_id", Value: 1},
				{Key: "failed_at", Value: 1},
			},
			Options: options.Index().SetSparse(true),
		},
	}
}
