package envelope

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/redrive/dlq"
)

// AckPrefix is the subject prefix of JetStream acknowledgment addresses.
const AckPrefix = "$JS.ACK"

// replayToken replaces the random trailing token the server would add, so
// a replayed address is recognisable in broker logs.
const replayToken = "replay"

// AckSubject builds the JetStream v2 acknowledgment address of the failed
// delivery recorded in rec:
//
//	$JS.ACK._._.<stream>.<consumer>.<delivery_count>.<stream_sequence>.1.<timestamp_ns>.0.replay
//
// Domain and account hash are "_", the consumer sequence is 1 and the
// pending count 0. Stream and consumer must be single subject tokens and
// the timestamp must be representable in Unix nanoseconds.
func AckSubject(rec *dlq.Record) (string, error) {
	if err := checkToken("stream", rec.Stream); err != nil {
		return "", err
	}
	if err := checkToken("consumer", rec.Consumer); err != nil {
		return "", err
	}
	ns, err := unixNanos(rec.Timestamp)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(64 + len(rec.Stream) + len(rec.Consumer))
	b.WriteString(AckPrefix)
	b.WriteString("._._.")
	b.WriteString(rec.Stream)
	b.WriteByte('.')
	b.WriteString(rec.Consumer)
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(rec.DeliveryCount, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(rec.StreamSequence, 10))
	b.WriteString(".1.")
	b.WriteString(strconv.FormatInt(ns, 10))
	b.WriteString(".0.")
	b.WriteString(replayToken)
	return b.String(), nil
}

func checkToken(field, v string) error {
	if v == "" {
		return &fieldError{field: field, reason: "empty"}
	}
	if strings.ContainsAny(v, ".*> \t\r\n") {
		return &fieldError{field: field, reason: "not a single subject token"}
	}
	return nil
}

var (
	minUnixNano = time.Unix(0, math.MinInt64)
	maxUnixNano = time.Unix(0, math.MaxInt64)
)

func unixNanos(ts time.Time) (int64, error) {
	if ts.IsZero() {
		return 0, &fieldError{field: "timestamp", reason: "zero"}
	}
	if ts.Before(minUnixNano) || ts.After(maxUnixNano) {
		return 0, &fieldError{field: "timestamp", reason: "outside the nanosecond range"}
	}
	return ts.UnixNano(), nil
}

type fieldError struct {
	field  string
	reason string
}

func (e *fieldError) Error() string { return e.field + " " + e.reason }
