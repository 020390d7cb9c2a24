// Package dlq defines dead-letter records and the store contract that
// holds them.
//
// A [Record] is an event a projector permanently failed to process. It
// keeps the original subject, headers and payload, the subject prefix the
// projector subscribed with, and the JetStream delivery coordinates needed
// to rebuild the ack address of the failed delivery.
//
// # Ingestion
//
// [Service.Archive] turns a failed *nats.Msg into a record:
//
//	svc := dlq.NewService(store, dlq.WithNotifier(registry))
//	rec, err := svc.Archive(ctx, "users", msg, projectErr)
//
// # Admin API
//
// Records are inspected and replayed through the HTTP admin API:
//   - GET   /admin/dead-letters                       list records
//   - GET   /admin/dead-letters/count                 record count
//   - GET   /admin/dead-letters/:recordId             one record
//   - PATCH /admin/dead-letters/replay/:aggregateId   replay one aggregate
//   - POST  /admin/dead-letters/replay-all            replay everything
package dlq
