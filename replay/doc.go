// Package replay re-drives dead-letter records through a projector.
//
// A [Driver] fetches records from the dead-letter store, rebuilds each
// one into an envelope, decodes it and hands it to the projector through
// the configured middleware chain. Successfully replayed records are
// removed from the store; failed ones stay for a later attempt.
//
//	d, err := replay.NewDriver(store, registry, projector,
//	    replay.WithConcurrency(8),
//	    replay.WithMiddleware(middleware.Recover(logger)),
//	)
//	sum, err := d.ReplayAll(ctx)
//
// [Driver.ReplayOne] targets one aggregate; [Driver.ReplayAll] groups all
// records by aggregate and processes groups concurrently while keeping
// records of one aggregate in order. Both return a [Summary]; only a
// missing record set or a store failure is reported as an error.
package replay
