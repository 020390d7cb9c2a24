package redis

// Redis key naming conventions. All keys share the "redrive:" prefix.

const keyPrefix = "redrive:"

// deadLetterKey returns the key holding one JSON-encoded record:
// redrive:dead_letter:{id}
func deadLetterKey(id string) string { return keyPrefix + "dead_letter:" + id }

// failedIndexKey is the Sorted Set of every record ID scored by FailedAt.
const failedIndexKey = keyPrefix + "dead_letters"

// aggregateIndexKey returns the Sorted Set of one aggregate's record IDs:
// redrive:aggregate:{uuid}
func aggregateIndexKey(agg string) string { return keyPrefix + "aggregate:" + agg }
