// Package pebble implements store.Store on an embedded Pebble LSM database,
// for single-node deployments that want durable dead letters without an
// external database.
//
// Key layout (all under the "redrive/" prefix):
//
//	r/{id}                          JSON-encoded dlq.Record
//	f/{failed_at}{id}               failure-order index, value is the ID
//	a/{aggregate}{failed_at}{id}    per-aggregate index, value is the ID
//
// failed_at is big-endian Unix nanoseconds so byte order equals time order,
// and the ID suffix breaks ties the same way dlq.Select does.
package pebble
