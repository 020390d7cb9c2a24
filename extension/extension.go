// Package extension provides the Forge extension adapter for redrive.
//
// It implements the forge.Extension interface to mount the replay engine
// into a Forge application with store discovery, admin route
// registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.redrive" or "redrive" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	goredis "github.com/redis/go-redis/v9"
	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/api"
	"github.com/xraph/redrive/engine"
	"github.com/xraph/redrive/event"
	"github.com/xraph/redrive/ext"
	mw "github.com/xraph/redrive/middleware"
	"github.com/xraph/redrive/project"
	"github.com/xraph/redrive/store"
	mongostore "github.com/xraph/redrive/store/mongo"
	pebblestore "github.com/xraph/redrive/store/pebble"
	pgstore "github.com/xraph/redrive/store/postgres"
	redisstore "github.com/xraph/redrive/store/redis"
	sqlitestore "github.com/xraph/redrive/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "redrive"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Dead-letter replay engine for event-sourced read models"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts redrive as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	eng        *engine.Engine
	apiHandler *api.API
	logger     *slog.Logger
	store      store.Store
	projector  project.Projector
	decoder    event.Decoder
	exts       []ext.Extension
	mws        []mw.Middleware
	useGrove   bool

	// closers release clients the extension opened itself.
	closers []func() error
}

// New creates a redrive Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying redrive engine.
// This is nil until Register is called.
func (e *Extension) Engine() *engine.Engine { return e.eng }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Config returns the resolved configuration.
func (e *Extension) Config() Config { return e.config }

// Register implements [forge.Extension]. It resolves the store, builds the
// engine, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.init(fapp); err != nil {
		return err
	}

	// Register the engine in the DI container so other extensions can use it.
	if err := vessel.Provide(fapp.Container(), func() (*engine.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("redrive: register engine in container: %w", err)
	}

	return nil
}

// init builds the redriver and engine.
func (e *Extension) init(fapp forge.App) error {
	s, err := e.resolveStore(fapp)
	if err != nil {
		return err
	}

	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	r, err := redrive.New(
		redrive.WithStore(s),
		redrive.WithConfig(e.config.Redrive),
		redrive.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("redrive: create redriver: %w", err)
	}

	engOpts := make([]engine.Option, 0, len(e.exts)+len(e.mws)+6)
	engOpts = append(engOpts,
		engine.WithMetricFactory(fapp.Metrics()),
		engine.WithProjector(e.projector),
		engine.WithRecordTimeout(e.config.RecordTimeout),
	)
	if e.decoder != nil {
		engOpts = append(engOpts, engine.WithDecoder(e.decoder))
	}
	for _, x := range e.exts {
		engOpts = append(engOpts, engine.WithExtension(x))
	}
	for _, m := range e.mws {
		engOpts = append(engOpts, engine.WithMiddleware(m))
	}

	e.eng, err = engine.Build(r, engOpts...)
	if err != nil {
		return fmt.Errorf("redrive: build engine: %w", err)
	}

	e.apiHandler = api.New(e.eng, fapp.Router())

	if !e.config.DisableRoutes {
		e.apiHandler.RegisterRoutes(fapp.Router())
	}

	return nil
}

// resolveStore picks the backend: an injected store first, then a grove
// database, then the DSN-style settings in Config.
func (e *Extension) resolveStore(fapp forge.App) (store.Store, error) {
	if e.store != nil {
		return e.store, nil
	}

	if e.useGrove {
		groveDB, err := e.resolveGroveDB(fapp)
		if err != nil {
			return nil, fmt.Errorf("redrive: %w", err)
		}
		return e.buildStoreFromGroveDB(groveDB)
	}

	switch {
	case e.config.PostgresDSN != "":
		s, err := pgstore.New(context.Background(), e.config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("redrive: %w", err)
		}
		return s, nil

	case e.config.RedisURL != "":
		ropts, err := goredis.ParseURL(e.config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redrive: parse redis url: %w", err)
		}
		client := goredis.NewClient(ropts)
		e.closers = append(e.closers, client.Close)
		return redisstore.New(client), nil

	case e.config.PebbleDir != "":
		s, err := pebblestore.Open(e.config.PebbleDir)
		if err != nil {
			return nil, fmt.Errorf("redrive: %w", err)
		}
		return s, nil
	}

	return nil, redrive.ErrNoStore
}

// Start runs auto-migration if enabled and starts the sweep.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("redrive: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.eng.Redriver().Store().Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", redrive.ErrMigrationFailed, err)
		}
	}

	if err := e.eng.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop gracefully shuts down the redrive engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		e.MarkStopped()
		return nil
	}
	err := e.eng.Stop(ctx)
	for _, closeFn := range e.closers {
		if closeErr := closeFn(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	e.closers = nil
	e.MarkStopped()
	return err
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("redrive: extension not initialized")
	}
	return e.eng.Redriver().Store().Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
// Convenience for standalone use outside Forge.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all redrive API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) {
	if e.apiHandler != nil {
		e.apiHandler.RegisterRoutes(router)
	}
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("redrive: configuration is required but not found in config files; " +
				"ensure 'extensions.redrive' or 'redrive' key exists in your config")
		}
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	if e.config.GroveDatabase != "" {
		e.useGrove = true
	}

	e.Logger().Debug("redrive: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("grove_database", e.config.GroveDatabase),
		forge.F("concurrency", e.config.Redrive.Concurrency),
		forge.F("sweep_schedule", e.config.Redrive.SweepSchedule),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.redrive", "redrive"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("redrive: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("redrive: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig().Redrive
	if cfg.Redrive.Concurrency <= 0 {
		cfg.Redrive.Concurrency = defaults.Concurrency
	}
	if cfg.Redrive.RateBurst <= 0 {
		cfg.Redrive.RateBurst = defaults.RateBurst
	}
	if cfg.Redrive.CleanupAttempts <= 0 {
		cfg.Redrive.CleanupAttempts = defaults.CleanupAttempts
	}
	if cfg.Redrive.ShutdownTimeout <= 0 {
		cfg.Redrive.ShutdownTimeout = defaults.ShutdownTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	fillString := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fillString(&yamlConfig.GroveDatabase, programmaticConfig.GroveDatabase)
	fillString(&yamlConfig.PostgresDSN, programmaticConfig.PostgresDSN)
	fillString(&yamlConfig.RedisURL, programmaticConfig.RedisURL)
	fillString(&yamlConfig.PebbleDir, programmaticConfig.PebbleDir)
	fillString(&yamlConfig.Redrive.SweepSchedule, programmaticConfig.Redrive.SweepSchedule)

	if yamlConfig.RecordTimeout == 0 {
		yamlConfig.RecordTimeout = programmaticConfig.RecordTimeout
	}
	if yamlConfig.Redrive.Concurrency == 0 {
		yamlConfig.Redrive.Concurrency = programmaticConfig.Redrive.Concurrency
	}
	if yamlConfig.Redrive.RatePerSecond == 0 {
		yamlConfig.Redrive.RatePerSecond = programmaticConfig.Redrive.RatePerSecond
		yamlConfig.Redrive.RateBurst = programmaticConfig.Redrive.RateBurst
	}
	if yamlConfig.Redrive.CleanupAttempts == 0 {
		yamlConfig.Redrive.CleanupAttempts = programmaticConfig.Redrive.CleanupAttempts
	}
	if yamlConfig.Redrive.ShutdownTimeout == 0 {
		yamlConfig.Redrive.ShutdownTimeout = programmaticConfig.Redrive.ShutdownTimeout
	}

	return e.mergeWithDefaults(yamlConfig)
}

// resolveGroveDB resolves a *grove.DB from the DI container.
// If GroveDatabase is set, it looks up the named DB; otherwise it uses the default.
func (e *Extension) resolveGroveDB(fapp forge.App) (*grove.DB, error) {
	if e.config.GroveDatabase != "" {
		db, err := vessel.InjectNamed[*grove.DB](fapp.Container(), e.config.GroveDatabase)
		if err != nil {
			return nil, fmt.Errorf("grove database %q not found in container: %w", e.config.GroveDatabase, err)
		}
		return db, nil
	}
	db, err := vessel.Inject[*grove.DB](fapp.Container())
	if err != nil {
		return nil, fmt.Errorf("default grove database not found in container: %w", err)
	}
	return db, nil
}

// buildStoreFromGroveDB constructs the store backend for the grove driver.
// Postgres goes through PostgresDSN because the pgx store owns its pool.
func (e *Extension) buildStoreFromGroveDB(db *grove.DB) (store.Store, error) {
	driverName := db.Driver().Name()
	switch driverName {
	case "sqlite":
		return sqlitestore.New(db), nil
	case "mongo":
		return mongostore.New(db), nil
	default:
		return nil, fmt.Errorf("redrive: unsupported grove driver %q", driverName)
	}
}
