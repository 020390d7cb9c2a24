// Package event decodes reconstructed envelopes into typed domain events.
//
// Subjects follow "<prefix>.<EventName>.<aggregate_id>". The payload codec
// is chosen from the Content-Type header and the schema version from the
// Event-Version header.
package event

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/xraph/redrive/envelope"
)

// HeaderVersion carries the event schema version. Absent means 1.
const HeaderVersion = "Event-Version"

// Named is implemented by event payload types.
type Named interface {
	EventName() string
}

// Context is a decoded event ready for projection.
type Context struct {
	Envelope    *envelope.Envelope
	AggregateID uuid.UUID
	Name        string
	Version     int
	Event       any
}

// Decoder turns an envelope into an event context.
type Decoder interface {
	Decode(env *envelope.Envelope) (*Context, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(env *envelope.Envelope) (*Context, error)

// Decode calls f(env).
func (f DecoderFunc) Decode(env *envelope.Envelope) (*Context, error) { return f(env) }

// As returns the event payload of c as T.
func As[T any](c *Context) (T, bool) {
	v, ok := c.Event.(T)
	return v, ok
}

// Subject returns the subject an event of aggregate agg is published on.
func Subject(prefix, name string, agg uuid.UUID) string {
	return strings.Join([]string{prefix, name, agg.String()}, ".")
}

// DecodeError reports an envelope that could not be decoded.
type DecodeError struct {
	Subject string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("event: decode %q: %v", e.Subject, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
