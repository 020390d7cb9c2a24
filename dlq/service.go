package dlq

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/xraph/redrive/id"
)

// Notifier is told about every archived record. The extension registry
// satisfies it.
type Notifier interface {
	EmitDeadLetterArchived(ctx context.Context, r *Record)
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithNotifier sets the archive notifier.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// Service archives failed deliveries into a Store.
type Service struct {
	store    Store
	logger   *slog.Logger
	notifier Notifier
}

// NewService creates a dead-letter service.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Archive builds a Record from a JetStream message that a projector could
// not process and persists it. The aggregate id is taken from the last
// subject token when it is a UUID. Delivery coordinates come from the
// message's ack reply subject; when they are unavailable the record is
// still archived, without them.
func (s *Service) Archive(ctx context.Context, prefix string, msg *nats.Msg, cause error) (*Record, error) {
	now := time.Now().UTC()
	r := &Record{
		ID:        id.NewDeadLetterID(),
		Subject:   msg.Subject,
		Prefix:    prefix,
		Payload:   append([]byte(nil), msg.Data...),
		Headers:   cloneHeader(msg.Header),
		FailedAt:  now,
		CreatedAt: now,
	}
	if cause != nil {
		r.Error = cause.Error()
	}
	if agg, ok := AggregateFromSubject(msg.Subject); ok {
		r.AggregateID = &agg
	}

	if meta, err := msg.Metadata(); err == nil {
		r.Stream = meta.Stream
		r.Consumer = meta.Consumer
		r.DeliveryCount = meta.NumDelivered
		r.StreamSequence = meta.Sequence.Stream
		r.Timestamp = meta.Timestamp
	} else {
		s.logger.Warn("dead letter archived without delivery metadata",
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()),
		)
	}

	if err := s.store.PushDeadLetter(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("dead letter archived",
		slog.String("record_id", r.ID.String()),
		slog.String("subject", r.Subject),
		slog.String("cause", r.Error),
	)
	if s.notifier != nil {
		s.notifier.EmitDeadLetterArchived(ctx, r)
	}
	return r, nil
}

// Store returns the underlying store for list, get, purge and count.
func (s *Service) Store() Store {
	return s.store
}

// AggregateFromSubject parses the trailing token of an event subject
// ("<prefix>.<Event>.<aggregate_id>") as an aggregate id.
func AggregateFromSubject(subject string) (uuid.UUID, bool) {
	i := strings.LastIndexByte(subject, '.')
	if i < 0 || i == len(subject)-1 {
		return uuid.Nil, false
	}
	agg, err := uuid.Parse(subject[i+1:])
	if err != nil || agg == uuid.Nil {
		return uuid.Nil, false
	}
	return agg, true
}

func cloneHeader(h nats.Header) nats.Header {
	if h == nil {
		return nats.Header{}
	}
	out := make(nats.Header, len(h))
	for k, v := range h {
		out[k] = append([]string(nil), v...)
	}
	return out
}
