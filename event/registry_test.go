package event_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/codec"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/envelope"
	"github.com/xraph/redrive/event"
	"github.com/xraph/redrive/id"
)

type userCreated struct {
	Name string `json:"name"`
}

func (userCreated) EventName() string { return "UserCreated" }

func newRegistry() *event.Registry {
	r := event.NewRegistry()
	event.Register[userCreated](r)
	return r
}

func envelopeFor(t *testing.T, msg *nats.Msg) *envelope.Envelope {
	t.Helper()
	rec := &dlq.Record{
		ID:      id.NewDeadLetterID(),
		Subject: msg.Subject,
		Prefix:  "users",
		Payload: msg.Data,
		Headers: msg.Header,
	}
	env, err := envelope.NewReconstructor(envelope.WithoutAckAddress()).Reconstruct(rec)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	return env
}

func TestRegistry_DecodeRoundTrip(t *testing.T) {
	for _, c := range []codec.Codec{codec.JSONCodec{}, codec.MsgpackCodec{}} {
		t.Run(c.Name(), func(t *testing.T) {
			agg := uuid.New()
			msg, err := event.Encode("users", agg, userCreated{Name: "alice"}, c)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			ctx, err := newRegistry().Decode(envelopeFor(t, msg))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if ctx.AggregateID != agg {
				t.Errorf("AggregateID = %v, want %v", ctx.AggregateID, agg)
			}
			if ctx.Name != "UserCreated" || ctx.Version != 1 {
				t.Errorf("Name/Version = %q/%d", ctx.Name, ctx.Version)
			}
			ev, ok := event.As[userCreated](ctx)
			if !ok || ev.Name != "alice" {
				t.Errorf("Event = %#v", ctx.Event)
			}
		})
	}
}

func TestRegistry_DecodeErrors(t *testing.T) {
	agg := uuid.New()
	tests := []struct {
		name    string
		subject string
		data    string
		header  nats.Header
		unknown bool
	}{
		{"unknown event", event.Subject("users", "UserDeleted", agg), `{}`, nats.Header{}, true},
		{"bad aggregate", "users.UserCreated.nope", `{}`, nats.Header{}, false},
		{"short subject", "users.UserCreated", `{}`, nats.Header{}, false},
		{"bad payload", event.Subject("users", "UserCreated", agg), `{`, nats.Header{}, false},
		{"bad version", event.Subject("users", "UserCreated", agg), `{}`, nats.Header{event.HeaderVersion: {"zero"}}, false},
	}

	reg := newRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &nats.Msg{Subject: tt.subject, Data: []byte(tt.data), Header: tt.header}
			_, err := reg.Decode(envelopeFor(t, msg))
			var de *event.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("err = %v, want *DecodeError", err)
			}
			if got := errors.Is(err, redrive.ErrUnknownEvent); got != tt.unknown {
				t.Errorf("errors.Is(ErrUnknownEvent) = %v, want %v", got, tt.unknown)
			}
		})
	}
}

func TestRegistry_VersionHeader(t *testing.T) {
	agg := uuid.New()
	msg, _ := event.Encode("users", agg, userCreated{Name: "a"}, codec.JSONCodec{})
	msg.Header.Set(event.HeaderVersion, "3")

	ctx, err := newRegistry().Decode(envelopeFor(t, msg))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ctx.Version != 3 {
		t.Errorf("Version = %d, want 3", ctx.Version)
	}
}
