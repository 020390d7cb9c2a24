package envelope_test

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/envelope"
	"github.com/xraph/redrive/id"
)

func validRecord() *dlq.Record {
	agg := uuid.New()
	return &dlq.Record{
		ID:             id.NewDeadLetterID(),
		AggregateID:    &agg,
		Subject:        "users.UserCreated." + agg.String(),
		Prefix:         "users",
		Payload:        []byte(`{"name":"alice"}`),
		Headers:        nats.Header{"Content-Type": {"application/json"}},
		Stream:         "EVENTS",
		Consumer:       "users-projector",
		DeliveryCount:  5,
		StreamSequence: 1234,
		Timestamp:      time.Unix(1700000000, 123456789),
	}
}

// ── AckSubject ──

func TestAckSubject_Layout(t *testing.T) {
	rec := validRecord()
	got, err := envelope.AckSubject(rec)
	if err != nil {
		t.Fatalf("AckSubject: %v", err)
	}

	want := "$JS.ACK._._.EVENTS.users-projector.5.1234.1." +
		strconv.FormatInt(rec.Timestamp.UnixNano(), 10) + ".0.replay"
	if got != want {
		t.Fatalf("AckSubject = %q, want %q", got, want)
	}

	tokens := strings.Split(got, ".")
	if len(tokens) != 12 {
		t.Fatalf("token count = %d, want 12", len(tokens))
	}
	if tokens[4] != rec.Stream || tokens[5] != rec.Consumer {
		t.Errorf("stream/consumer tokens = %q/%q", tokens[4], tokens[5])
	}
	ns, err := strconv.ParseInt(tokens[9], 10, 64)
	if err != nil {
		t.Fatalf("timestamp token: %v", err)
	}
	if !time.Unix(0, ns).Equal(rec.Timestamp) {
		t.Errorf("timestamp round-trip = %v, want %v", time.Unix(0, ns), rec.Timestamp)
	}
}

func TestAckSubject_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dlq.Record)
	}{
		{"empty stream", func(r *dlq.Record) { r.Stream = "" }},
		{"empty consumer", func(r *dlq.Record) { r.Consumer = "" }},
		{"dotted stream", func(r *dlq.Record) { r.Stream = "a.b" }},
		{"wildcard consumer", func(r *dlq.Record) { r.Consumer = "c>" }},
		{"zero timestamp", func(r *dlq.Record) { r.Timestamp = time.Time{} }},
		{"timestamp overflow", func(r *dlq.Record) { r.Timestamp = time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)
			if _, err := envelope.AckSubject(rec); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// ── Reconstruct ──

func TestReconstruct_RestoresMessage(t *testing.T) {
	rec := validRecord()
	env, err := envelope.NewReconstructor().Reconstruct(rec)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}

	if env.Subject() != rec.Subject {
		t.Errorf("Subject = %q, want %q", env.Subject(), rec.Subject)
	}
	if env.Prefix != "users" {
		t.Errorf("Prefix = %q", env.Prefix)
	}
	if !bytes.Equal(env.Data(), rec.Payload) {
		t.Errorf("Data = %q, want %q", env.Data(), rec.Payload)
	}
	if env.Header().Get("Content-Type") != "application/json" {
		t.Errorf("headers = %v", env.Header())
	}
	want, _ := envelope.AckSubject(rec)
	if env.Msg.Reply != want {
		t.Errorf("Reply = %q, want %q", env.Msg.Reply, want)
	}

	tokens := env.Tokens()
	if len(tokens) != 2 || tokens[0] != "UserCreated" || tokens[1] != rec.AggregateID.String() {
		t.Errorf("Tokens = %v", tokens)
	}

	// The envelope must not alias the record.
	env.Msg.Data[0] = 'X'
	env.Msg.Header.Set("Content-Type", "x")
	if rec.Payload[0] == 'X' || rec.Headers.Get("Content-Type") == "x" {
		t.Error("envelope aliases record state")
	}
}

func TestReconstruct_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dlq.Record)
		kind   envelope.Kind
	}{
		{"prefix", func(r *dlq.Record) { r.Prefix = "" }, envelope.MissingPrefix},
		{"headers", func(r *dlq.Record) { r.Headers = nil }, envelope.MissingHeaders},
		{"subject", func(r *dlq.Record) { r.Subject = "" }, envelope.MissingSubject},
		{"ack address", func(r *dlq.Record) { r.Stream = "" }, envelope.InvalidAckAddress},
	}

	rc := envelope.NewReconstructor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)
			_, err := rc.Reconstruct(rec)
			if !envelope.IsKind(err, tt.kind) {
				t.Fatalf("err = %v, want kind %s", err, tt.kind)
			}
			var re *envelope.ReconstructionError
			if !errors.As(err, &re) || !re.RecordID.Equal(rec.ID) {
				t.Errorf("error does not carry the record id: %v", err)
			}
		})
	}
}

func TestReconstruct_EmptyHeadersAreNotMissing(t *testing.T) {
	rec := validRecord()
	rec.Headers = nats.Header{}
	if _, err := envelope.NewReconstructor().Reconstruct(rec); err != nil {
		t.Fatalf("Reconstruct with empty headers: %v", err)
	}
}

func TestReconstruct_WithoutAckAddress(t *testing.T) {
	rec := validRecord()
	rec.Stream, rec.Consumer, rec.Timestamp = "", "", time.Time{}

	env, err := envelope.NewReconstructor(envelope.WithoutAckAddress()).Reconstruct(rec)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if env.Msg.Reply != "" {
		t.Errorf("Reply = %q, want empty", env.Msg.Reply)
	}
}
