// Package sweep runs ReplayAll on a cron schedule.
//
// A [Scheduler] parses a standard 5-field cron expression or a descriptor
// such as "@every 5m" and fires the replay driver on each tick. A sweep
// that finds no dead letters is idle, not a failure. Overlapping ticks
// are skipped while a sweep is still running. The [ext.SweepFired] hook
// fires after every tick. A sweep only removes records through a
// successful replay.
package sweep
