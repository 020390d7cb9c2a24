// Package bunstore implements store.Store using the Bun ORM with PostgreSQL
// dialect. It shares the redrive_dead_letters schema with store/postgres, so
// either backend can read records the other archived.
//
// The caller owns the *bun.DB lifecycle; bunstore never closes it:
//
//	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
//	db := bun.NewDB(sqldb, pgdialect.New())
//	s := bunstore.New(db)
//	if err := s.Migrate(ctx); err != nil { ... }
package bunstore
