// Package postgres implements store.Store on PostgreSQL using pgx/v5 with
// raw SQL and embedded migrations. Records are keyed by their TypeID and
// indexed by (aggregate_id, failed_at) so per-aggregate replays stay cheap.
package postgres
