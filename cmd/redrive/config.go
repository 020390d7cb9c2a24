package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/xraph/redrive"
)

// Config is read from REDRIVE_* environment variables after an optional
// .env file has been loaded.
type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool       `env:"LOG_JSON"`

	NATSURL string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`

	PostgresDSN string `env:"POSTGRES_DSN"`
	RedisURL    string `env:"REDIS_URL"`
	PebbleDir   string `env:"PEBBLE_DIR"`

	Concurrency     int           `env:"CONCURRENCY" envDefault:"4"`
	RatePerSecond   float64       `env:"RATE_PER_SECOND"`
	RateBurst       int           `env:"RATE_BURST" envDefault:"1"`
	CleanupAttempts int           `env:"CLEANUP_ATTEMPTS" envDefault:"1"`
	SweepSchedule   string        `env:"SWEEP_SCHEDULE"`
	RecordTimeout   time.Duration `env:"RECORD_TIMEOUT"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	OTelEndpoint    string `env:"OTEL_ENDPOINT"`
	OTelServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"redrive"`
}

// loadConfig loads envFile when present and parses the environment.
// A missing default .env is not an error.
func loadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !(envFile == defaultEnvFile && os.IsNotExist(err)) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "REDRIVE_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Redrive returns the library configuration.
func (c Config) Redrive() redrive.Config {
	return redrive.Config{
		Concurrency:     c.Concurrency,
		RatePerSecond:   c.RatePerSecond,
		RateBurst:       c.RateBurst,
		CleanupAttempts: c.CleanupAttempts,
		SweepSchedule:   c.SweepSchedule,
		ShutdownTimeout: c.ShutdownTimeout,
	}
}

func (c Config) logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
