package project

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/xraph/redrive/event"
)

// Publisher publishes a message. *nats.Conn satisfies it.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// Republisher projects a replayed event by publishing it again on its
// original subject, so live subscribers process it a second time. The
// ack address of the failed delivery is not carried over.
type Republisher struct {
	pub Publisher
}

var errNoEnvelope = errors.New("project: event has no envelope")

// Republish returns a Republisher writing to pub.
func Republish(pub Publisher) *Republisher {
	return &Republisher{pub: pub}
}

// Project publishes the event's original subject, headers and payload.
func (r *Republisher) Project(ctx context.Context, ev *event.Context) error {
	if ev.Envelope == nil || ev.Envelope.Msg == nil {
		return errNoEnvelope
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	src := ev.Envelope.Msg
	msg := nats.NewMsg(src.Subject)
	for k, vs := range src.Header {
		for _, v := range vs {
			msg.Header.Add(k, v)
		}
	}
	msg.Data = append([]byte(nil), src.Data...)
	return r.pub.PublishMsg(msg)
}
