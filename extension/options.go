package extension

import (
	"log/slog"
	"time"

	"github.com/xraph/redrive/event"
	"github.com/xraph/redrive/ext"
	mw "github.com/xraph/redrive/middleware"
	"github.com/xraph/redrive/project"
	"github.com/xraph/redrive/store"
)

// ExtOption configures the redrive Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend. It takes precedence over every
// store setting in Config.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.store = s
	}
}

// WithProjector sets the read-model projector replayed events are applied to.
func WithProjector(p project.Projector) ExtOption {
	return func(e *Extension) {
		e.projector = p
	}
}

// WithDecoder replaces the engine's event registry as the decoder.
func WithDecoder(d event.Decoder) ExtOption {
	return func(e *Extension) {
		e.decoder = d
	}
}

// WithConcurrency sets how many aggregates ReplayAll processes at once.
func WithConcurrency(n int) ExtOption {
	return func(e *Extension) {
		e.config.Redrive.Concurrency = n
	}
}

// WithRateLimit throttles record replays.
func WithRateLimit(perSecond float64, burst int) ExtOption {
	return func(e *Extension) {
		e.config.Redrive.RatePerSecond = perSecond
		e.config.Redrive.RateBurst = burst
	}
}

// WithSweepSchedule enables the scheduled ReplayAll sweep.
func WithSweepSchedule(expr string) ExtOption {
	return func(e *Extension) {
		e.config.Redrive.SweepSchedule = expr
	}
}

// WithRecordTimeout bounds one record's projection.
func WithRecordTimeout(d time.Duration) ExtOption {
	return func(e *Extension) {
		e.config.RecordTimeout = d
	}
}

// WithExtension registers a redrive extension (lifecycle hooks).
func WithExtension(x ext.Extension) ExtOption {
	return func(e *Extension) {
		e.exts = append(e.exts, x)
	}
}

// WithMiddleware adds replay middleware to the engine.
func WithMiddleware(m mw.Middleware) ExtOption {
	return func(e *Extension) {
		e.mws = append(e.mws, m)
	}
}

// WithConfig sets the extension configuration directly.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) ExtOption {
	return func(e *Extension) {
		e.config.RequireConfig = require
	}
}

// WithLogger sets the structured logger for the redrive engine.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithGroveDatabase sets the name of the grove.DB to resolve from the DI
// container. The store backend follows the grove driver (sqlite or mongo).
// Pass an empty string to use the default (unnamed) grove.DB.
func WithGroveDatabase(name string) ExtOption {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}
