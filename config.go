package redrive

import "time"

// Config holds configuration for the Redriver.
type Config struct {
	// Concurrency bounds how many aggregates ReplayAll processes at once.
	// Records of one aggregate are always replayed in order.
	Concurrency int `json:"concurrency"`

	// RatePerSecond throttles record replays across all aggregates.
	// Zero disables throttling.
	RatePerSecond float64 `json:"rate_per_second"`

	// RateBurst is the limiter burst when RatePerSecond is set.
	RateBurst int `json:"rate_burst"`

	// CleanupAttempts is how many times the removal of a replayed record
	// is tried before it is reported as a warning.
	CleanupAttempts int `json:"cleanup_attempts"`

	// SweepSchedule is a cron expression or descriptor ("@every 5m") for
	// automatic ReplayAll sweeps. Empty disables the sweep.
	SweepSchedule string `json:"sweep_schedule"`

	// ShutdownTimeout is the maximum time to wait for a running sweep
	// during Stop.
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:     4,
		RateBurst:       1,
		CleanupAttempts: 1,
		ShutdownTimeout: 30 * time.Second,
	}
}
