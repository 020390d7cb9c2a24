// Package sqlite implements store.Store using the grove ORM with SQLite
// dialect, for embedded deployments and single-node tools.
//
// The caller owns the *grove.DB lifecycle; the store never closes it:
//
//	db, _ := grove.Open(ctx, "sqlite", dsn)
//	s := sqlite.New(db)
//	if err := s.Migrate(ctx); err != nil { ... }
package sqlite
