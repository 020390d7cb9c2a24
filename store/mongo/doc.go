// Package mongo implements store.Store using the grove ORM with the MongoDB
// driver. Dead letters live in the redrive_dead_letters collection keyed by
// their TypeID.
//
// The caller owns the *grove.DB lifecycle; the store never closes it:
//
//	db, _ := grove.Open(ctx, "mongo", dsn)
//	s := mongo.New(db)
//	if err := s.Migrate(ctx); err != nil { ... }
package mongo
