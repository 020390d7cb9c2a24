// Package observability provides a metrics extension for redrive. The
// MetricsExtension implements lifecycle hooks to count replays, replayed
// and failed records, cleanup failures, archived dead letters and sweeps.
//
// For per-record tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
