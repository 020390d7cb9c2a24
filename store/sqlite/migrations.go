package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the redrive sqlite store.
var Migrations = migrate.NewGroup("redrive")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_dead_letters_table",
			Version: "20260101000000",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
					CREATE TABLE IF NOT EXISTS redrive_dead_letters (
						id              TEXT PRIMARY KEY,
						aggregate_id    TEXT,
						subject         TEXT NOT NULL,
						prefix          TEXT NOT NULL DEFAULT '',
						payload         BLOB NOT NULL,
						headers         TEXT,
						stream          TEXT NOT NULL DEFAULT '',
						consumer        TEXT NOT NULL DEFAULT '',
						delivery_count  INTEGER NOT NULL DEFAULT 0,
						stream_sequence INTEGER NOT NULL DEFAULT 0,
						msg_timestamp   TEXT,
						error           TEXT NOT NULL DEFAULT '',
						failed_at       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						created_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`)
				if err != nil {
					return err
				}

				_, err = exec.Exec(ctx, `
					CREATE INDEX IF NOT EXISTS idx_redrive_dead_letters_failed_at
						ON redrive_dead_letters (failed_at, id)`)
				if err != nil {
					return err
				}

				_, err = exec.Exec(ctx, `
					CREATE INDEX IF NOT EXISTS idx_redrive_dead_letters_aggregate
						ON redrive_dead_letters (aggregate_id, failed_at)
						WHERE aggregate_id IS NOT NULL`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS redrive_dead_letters`)
				return err
			},
		},
	)
}
