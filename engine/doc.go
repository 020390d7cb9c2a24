// Package engine wires the redrive subsystems together: the replay
// driver with its default middleware chain, the admin command handler,
// the archive service, the extension registry and the scheduled sweep.
//
// The root redrive package owns configuration, logger and store and
// cannot import the subsystems back. Engine sits above them and below
// the application layer.
//
// # Building an Engine
//
//	r, err := redrive.New(
//	    redrive.WithStore(pgStore),
//	    redrive.WithConcurrency(8),
//	    redrive.WithSweepSchedule("@every 5m"),
//	)
//
//	eng, err := engine.Build(r,
//	    engine.WithProjector(usersProjector),
//	    engine.WithExtension(audithook.New(recorder)),
//	)
//	engine.RegisterEvent[UserCreated](eng)
//
// # Replaying
//
//	sum, err := eng.ReplayOne(ctx, aggregateID)
//	sum, err := eng.ReplayAll(ctx)
//
// # Options
//
//   - [WithProjector]: the projector dead letters are replayed into (required)
//   - [WithDecoder]: replace the built-in event registry
//   - [WithExtension]: register a lifecycle extension
//   - [WithMiddleware]: add a middleware after the default chain
//   - [WithRecordTimeout]: bound each projector call
//   - [WithTracerProvider] / [WithMeterProvider]: OpenTelemetry providers
//   - [WithMetricFactory]: counters for the observability extension
package engine
