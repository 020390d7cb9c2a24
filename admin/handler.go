package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/replay"
)

// Command is an admin request. The set of commands is closed.
type Command interface {
	commandName() string
}

// ReplayOneDeadLetter replays every dead letter of one aggregate.
type ReplayOneDeadLetter struct {
	AggregateID uuid.UUID `json:"aggregate_id"`
}

func (ReplayOneDeadLetter) commandName() string { return "replay_one_dead_letter" }

// ReplayAllDeadLetters replays every dead letter that has an aggregate id.
type ReplayAllDeadLetters struct{}

func (ReplayAllDeadLetters) commandName() string { return "replay_all_dead_letters" }

// Replayer runs replays. *replay.Driver satisfies it.
type Replayer interface {
	ReplayOne(ctx context.Context, aggregateID uuid.UUID) (*replay.Summary, error)
	ReplayAll(ctx context.Context) (*replay.Summary, error)
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// Handler dispatches admin commands to a Replayer.
type Handler struct {
	replayer Replayer
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(r Replayer, opts ...Option) *Handler {
	h := &Handler{replayer: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle runs cmd. Unknown command types return an error wrapping
// redrive.ErrUnknownCommand.
func (h *Handler) Handle(ctx context.Context, cmd Command) (*replay.Summary, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: <nil>", redrive.ErrUnknownCommand)
	}
	h.logger.Debug("admin command received", slog.String("command", cmd.commandName()))

	switch c := cmd.(type) {
	case ReplayOneDeadLetter:
		return h.replayer.ReplayOne(ctx, c.AggregateID)
	case *ReplayOneDeadLetter:
		return h.replayer.ReplayOne(ctx, c.AggregateID)
	case ReplayAllDeadLetters, *ReplayAllDeadLetters:
		return h.replayer.ReplayAll(ctx)
	default:
		return nil, fmt.Errorf("%w: %T", redrive.ErrUnknownCommand, cmd)
	}
}
