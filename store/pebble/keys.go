package pebble

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

var (
	recordPrefix    = []byte("redrive/r/")
	failedPrefix    = []byte("redrive/f/")
	aggregatePrefix = []byte("redrive/a/")
)

func recordKey(recordID string) []byte {
	return append(clone(recordPrefix), recordID...)
}

func failedKey(failedAt time.Time, recordID string) []byte {
	k := clone(failedPrefix)
	k = binary.BigEndian.AppendUint64(k, uint64(failedAt.UnixNano())) //nolint:gosec // pre-1970 failures do not occur
	return append(k, recordID...)
}

func aggregateKey(agg uuid.UUID, failedAt time.Time, recordID string) []byte {
	k := aggregateKeyPrefix(agg)
	k = binary.BigEndian.AppendUint64(k, uint64(failedAt.UnixNano())) //nolint:gosec // pre-1970 failures do not occur
	return append(k, recordID...)
}

func aggregateKeyPrefix(agg uuid.UUID) []byte {
	return append(clone(aggregatePrefix), agg[:]...)
}

// upperBound returns the smallest key greater than every key with prefix p.
func upperBound(p []byte) []byte {
	end := clone(p)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func clone(b []byte) []byte {
	return append(make([]byte, 0, len(b)+48), b...)
}
