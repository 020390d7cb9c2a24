// Package redis implements store.Store on Redis using go-redis v9.
//
// Key layout:
//
//	redrive:dead_letter:{id}      JSON-encoded dlq.Record
//	redrive:dead_letters          ZSET of all record IDs scored by FailedAt
//	redrive:aggregate:{uuid}      ZSET of one aggregate's record IDs
//
// Records without an aggregate are only present in the global index.
package redis
