package extension

import (
	"time"

	"github.com/xraph/redrive"
)

// Config holds configuration for the redrive Forge extension.
type Config struct {
	// DisableRoutes disables the registration of HTTP routes.
	// Useful when only the scheduled sweep should run.
	DisableRoutes bool `default:"false" json:"disable_routes"`

	// DisableMigrate disables auto-migration on start.
	DisableMigrate bool `default:"false" json:"disable_migrate"`

	// RequireConfig makes Register fail when no config key is present.
	RequireConfig bool `default:"false" json:"require_config"`

	// GroveDatabase names the grove.DB to resolve from the container.
	// SQLite and MongoDB drivers are supported.
	GroveDatabase string `json:"grove_database"`

	// PostgresDSN opens a pgx-backed store when no store is injected.
	PostgresDSN string `json:"postgres_dsn"`

	// RedisURL opens a Redis-backed store, e.g. "redis://localhost:6379/0".
	RedisURL string `json:"redis_url"`

	// PebbleDir opens an embedded Pebble store in the given directory.
	PebbleDir string `json:"pebble_dir"`

	// RecordTimeout bounds one record's projection. Zero means no limit.
	RecordTimeout time.Duration `json:"record_timeout"`

	// Redrive holds the core replay configuration.
	Redrive redrive.Config `json:"redrive"`
}

// DefaultConfig returns the default extension configuration.
func DefaultConfig() Config {
	return Config{
		Redrive: redrive.DefaultConfig(),
	}
}
