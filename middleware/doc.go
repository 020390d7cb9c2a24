// Package middleware provides composable middleware for record replay.
//
// A [Middleware] wraps the projection of one dead-letter record. Chains
// are built with [Chain] and applied right-to-left: the first middleware
// in the slice is the outermost wrapper.
//
//	chain := middleware.Chain(middleware.Recover(logger), middleware.Logging(logger))
//
// # Built-in Middleware
//
//   - [Recover]: converts projector panics into per-record failures
//   - [Logging]: logs record id, aggregate, duration and outcome
//   - [Timeout]: bounds each projection with a deadline
//   - [Tracing]: wraps projection in an OpenTelemetry span
//   - [Metrics]: records projection duration and outcome counters
package middleware
