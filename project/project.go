// Package project defines the projector contract that replayed events are
// handed to.
package project

import (
	"context"

	"github.com/xraph/redrive/event"
)

// Projector applies a decoded event to a read model. Projections are
// expected to be idempotent: a replay may deliver an event the projector
// already applied.
type Projector interface {
	Project(ctx context.Context, ev *event.Context) error
}

// ProjectorFunc adapts a function to Projector.
type ProjectorFunc func(ctx context.Context, ev *event.Context) error

// Project calls f(ctx, ev).
func (f ProjectorFunc) Project(ctx context.Context, ev *event.Context) error { return f(ctx, ev) }

// Cloner is implemented by projectors that hold per-event state. Each
// replayed record gets its own handle from Clone.
type Cloner interface {
	Clone() Projector
}

// Fresh returns an independent handle for one record: a clone when p
// implements Cloner, p itself otherwise.
func Fresh(p Projector) Projector {
	if c, ok := p.(Cloner); ok {
		return c.Clone()
	}
	return p
}
