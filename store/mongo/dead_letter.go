package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/id"
)

// PushDeadLetter archives a record.
func (s *Store) PushDeadLetter(ctx context.Context, r *dlq.Record) error {
	m := toDeadLetterModel(r)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("redrive/mongo: push dead letter: %w", err)
	}
	return nil
}

// GetDeadLetters lists records matching f, oldest failure first.
func (s *Store) GetDeadLetters(ctx context.Context, f dlq.Filter) ([]*dlq.Record, error) {
	col := s.mdb.Collection(colDeadLetters)
	filter := bson.M{}

	if f.AggregateID != nil {
		filter["aggregate_id"] = f.AggregateID.String()
	}

	findOpts := options.Find().SetSort(bson.D{
		{Key: "failed_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	if f.Limit > 0 {
		findOpts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		findOpts.SetSkip(int64(f.Offset))
	}

	cursor, err := col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("redrive/mongo: get dead letters: %w", err)
	}
	defer cursor.Close(ctx)

	var models []deadLetterModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("redrive/mongo: get dead letters decode: %w", err)
	}

	records := make([]*dlq.Record, 0, len(models))
	for i := range models {
		r, convErr := fromDeadLetterModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		records = append(records, r)
	}
	return records, nil
}

// GetDeadLetter returns a record by ID.
func (s *Store) GetDeadLetter(ctx context.Context, recordID id.DeadLetterID) (*dlq.Record, error) {
	col := s.mdb.Collection(colDeadLetters)
	var m deadLetterModel
	err := col.FindOne(ctx, bson.M{"_id": recordID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, redrive.ErrDeadLetterNotFound
		}
		return nil, fmt.Errorf("redrive/mongo: get dead letter: %w", err)
	}
	return fromDeadLetterModel(&m)
}

// RemoveDeadLetter deletes a record. Missing records are ignored.
func (s *Store) RemoveDeadLetter(ctx context.Context, recordID id.DeadLetterID) error {
	col := s.mdb.Collection(colDeadLetters)
	if _, err := col.DeleteOne(ctx, bson.M{"_id": recordID.String()}); err != nil {
		return fmt.Errorf("redrive/mongo: remove dead letter: %w", err)
	}
	return nil
}

// PurgeDeadLetters removes records with FailedAt before the given time.
func (s *Store) PurgeDeadLetters(ctx context.Context, before time.Time) (int64, error) {
	col := s.mdb.Collection(colDeadLetters)
	res, err := col.DeleteMany(ctx, bson.M{
		"failed_at": bson.M{"$lt": before},
	})
	if err != nil {
		return 0, fmt.Errorf("redrive/mongo: purge dead letters: %w", err)
	}
	return res.DeletedCount, nil
}

// CountDeadLetters returns the number of archived records.
func (s *Store) CountDeadLetters(ctx context.Context) (int64, error) {
	col := s.mdb.Collection(colDeadLetters)
	count, err := col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("redrive/mongo: count dead letters: %w", err)
	}
	return count, nil
}
