package event

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/codec"
	"github.com/xraph/redrive/envelope"
)

type decodeFunc func(c codec.Codec, data []byte) (any, error)

// Registry maps event names to payload types. It implements Decoder.
type Registry struct {
	mu    sync.RWMutex
	types map[string]decodeFunc
}

var _ Decoder = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]decodeFunc)}
}

// Register adds the value type T under T's EventName. Registering the
// same name twice replaces the earlier type.
func Register[T Named](r *Registry) {
	var zero T
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types[zero.EventName()] = func(c codec.Codec, data []byte) (any, error) {
		var v T
		if err := c.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Names returns the registered event names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	return names
}

// Decode parses the subject, selects the payload type by event name and
// unmarshals the payload with the codec named by Content-Type.
func (r *Registry) Decode(env *envelope.Envelope) (*Context, error) {
	fail := func(err error) (*Context, error) {
		return nil, &DecodeError{Subject: env.Subject(), Err: err}
	}

	tokens := env.Tokens()
	if len(tokens) != 2 {
		return fail(fmt.Errorf("expected <prefix>.<event>.<aggregate_id>, got %d tokens after prefix", len(tokens)))
	}
	name := tokens[0]
	agg, err := uuid.Parse(tokens[1])
	if err != nil {
		return fail(fmt.Errorf("aggregate id: %w", err))
	}

	r.mu.RLock()
	decode, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return fail(fmt.Errorf("%w: %s", redrive.ErrUnknownEvent, name))
	}

	version, err := versionOf(env.Header())
	if err != nil {
		return fail(err)
	}

	c := codec.ForContentType(env.Header().Get(codec.HeaderContentType))
	v, err := decode(c, env.Data())
	if err != nil {
		return fail(fmt.Errorf("%s payload: %w", c.Name(), err))
	}

	return &Context{
		Envelope:    env,
		AggregateID: agg,
		Name:        name,
		Version:     version,
		Event:       v,
	}, nil
}

func versionOf(h nats.Header) (int, error) {
	raw := h.Get(HeaderVersion)
	if raw == "" {
		return 1, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, errors.New("invalid " + HeaderVersion + " header " + strconv.Quote(raw))
	}
	return v, nil
}

// Encode builds the message an event of aggregate agg is published as.
// It is the inverse of Decode and is used by publishers and fixtures.
func Encode(prefix string, agg uuid.UUID, ev Named, c codec.Codec) (*nats.Msg, error) {
	data, err := c.Marshal(ev)
	if err != nil {
		return nil, err
	}
	msg := nats.NewMsg(Subject(prefix, ev.EventName(), agg))
	msg.Data = data
	msg.Header.Set(codec.HeaderContentType, c.ContentType())
	msg.Header.Set(HeaderVersion, "1")
	return msg, nil
}
