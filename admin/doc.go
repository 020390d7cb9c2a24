// Package admin exposes the replay driver through a small command
// handler. Commands are plain values; the handler dispatches on their
// type and returns the replay summary or the driver's error unchanged,
// so callers can map redrive.ErrNoDeadLetters and *replay.StoreError to
// their own transport.
//
//	h := admin.NewHandler(driver)
//	sum, err := h.Handle(ctx, admin.ReplayOneDeadLetter{AggregateID: agg})
package admin
