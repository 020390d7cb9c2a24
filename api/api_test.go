package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	forgetesting "github.com/xraph/forge/testing"
	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/redrive"
	"github.com/xraph/redrive/api"
	"github.com/xraph/redrive/codec"
	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/engine"
	"github.com/xraph/redrive/event"
	"github.com/xraph/redrive/id"
	"github.com/xraph/redrive/replay"
	"github.com/xraph/redrive/store/memory"
)

// ── Test Helpers ──────────────────────────────────────

type userCreated struct {
	Name string `json:"name"`
}

func (userCreated) EventName() string { return "UserCreated" }

type rejectPoison struct{}

func (rejectPoison) Project(_ context.Context, ev *event.Context) error {
	if u, _ := event.As[userCreated](ev); u.Name == "poison" {
		return errors.New("name rejected")
	}
	return nil
}

// failingStore wraps memory.Store and fails every read.
type failingStore struct {
	*memory.Store
}

func (failingStore) GetDeadLetters(context.Context, dlq.Filter) ([]*dlq.Record, error) {
	return nil, errors.New("connection reset")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupAPITest(t *testing.T, st redrive.Storer) (*httptest.Server, *engine.Engine) {
	t.Helper()

	r, err := redrive.New(redrive.WithStore(st), redrive.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("redrive.New: %v", err)
	}
	eng, err := engine.Build(r,
		engine.WithProjector(rejectPoison{}),
		engine.WithMetricFactory(gu.NewMetricsCollector("test")),
	)
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	engine.RegisterEvent[userCreated](eng)

	fapp := forgetesting.NewTestApp("api-test-app", "0.1.0")
	api.New(eng, fapp.Router()).RegisterRoutes(fapp.Router())

	ts := httptest.NewServer(fapp.Router())
	t.Cleanup(ts.Close)
	return ts, eng
}

func archive(t *testing.T, eng *engine.Engine, agg uuid.UUID, name string, seq int) *dlq.Record {
	t.Helper()
	msg, err := event.Encode("users", agg, userCreated{Name: name}, codec.JSONCodec{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	msg.Reply = "$JS.ACK.EVENTS.users.2." + strconv.Itoa(seq) + "." + strconv.Itoa(seq) + "." +
		strconv.FormatInt(time.Now().UnixNano(), 10) + ".0"
	msg.Sub = &nats.Subscription{}
	rec, err := eng.Archive(context.Background(), "users", msg, errors.New("projection failed"))
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	return rec
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func assertProblem(t *testing.T, resp *http.Response, status int) api.Problem {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("status = %d, want %d", resp.StatusCode, status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != api.ContentTypeProblem {
		t.Errorf("Content-Type = %q, want %q", ct, api.ContentTypeProblem)
	}
	p := decode[api.Problem](t, resp)
	if p.Status != status {
		t.Errorf("problem status = %d, want %d", p.Status, status)
	}
	if p.Type != "https://httpstatuses.io/"+strconv.Itoa(status) {
		t.Errorf("problem type = %q", p.Type)
	}
	return p
}

// ── Replay one ────────────────────────────────────────

func TestReplayOne_PartialFailure(t *testing.T) {
	ts, eng := setupAPITest(t, memory.New())
	a, b := uuid.New(), uuid.New()
	archive(t, eng, a, "alice", 1)
	archive(t, eng, a, "poison", 2)
	archive(t, eng, b, "bob", 3)

	resp := do(t, http.MethodPatch, ts.URL+"/admin/dead-letters/replay/"+a.String())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get(api.HeaderRequestID) == "" {
		t.Error("missing X-Request-Id")
	}

	sum := decode[replay.Summary](t, resp)
	if sum.TotalEvents != 2 || sum.SuccessfulReplays != 1 || sum.FailedReplays != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(sum.ProcessedAggregates) != 1 || sum.ProcessedAggregates[0] != a {
		t.Errorf("ProcessedAggregates = %v, want [%s]", sum.ProcessedAggregates, a)
	}
	if len(sum.Errors) != 1 {
		t.Errorf("Errors = %v", sum.Errors)
	}

	n, _ := eng.Store().CountDeadLetters(context.Background())
	if n != 2 {
		t.Errorf("remaining dead letters = %d, want 2 (poison + other aggregate)", n)
	}
}

func TestReplayOne_NotFound(t *testing.T) {
	ts, _ := setupAPITest(t, memory.New())

	resp := do(t, http.MethodPatch, ts.URL+"/admin/dead-letters/replay/"+uuid.NewString())
	p := assertProblem(t, resp, http.StatusNotFound)
	if p.Detail != "No dead letter events found" {
		t.Errorf("detail = %q", p.Detail)
	}
}

func TestReplayOne_InvalidAggregateID(t *testing.T) {
	ts, _ := setupAPITest(t, memory.New())

	resp := do(t, http.MethodPatch, ts.URL+"/admin/dead-letters/replay/not-a-uuid")
	assertProblem(t, resp, http.StatusBadRequest)
}

func TestReplayOne_SecondCallNotFound(t *testing.T) {
	ts, eng := setupAPITest(t, memory.New())
	agg := uuid.New()
	archive(t, eng, agg, "alice", 1)

	first := do(t, http.MethodPatch, ts.URL+"/admin/dead-letters/replay/"+agg.String())
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first replay status = %d", first.StatusCode)
	}
	second := do(t, http.MethodPatch, ts.URL+"/admin/dead-letters/replay/"+agg.String())
	assertProblem(t, second, http.StatusNotFound)
}

// ── Replay all ────────────────────────────────────────

func TestReplayAll(t *testing.T) {
	ts, eng := setupAPITest(t, memory.New())
	a, b := uuid.New(), uuid.New()
	archive(t, eng, a, "alice", 1)
	archive(t, eng, a, "poison", 2)
	archive(t, eng, b, "bob", 3)

	resp := do(t, http.MethodPost, ts.URL+"/admin/dead-letters/replay-all")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	sum := decode[replay.Summary](t, resp)
	if sum.TotalEvents != 3 || sum.SuccessfulReplays != 2 || sum.FailedReplays != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(sum.ProcessedAggregates) != 2 {
		t.Errorf("ProcessedAggregates = %v", sum.ProcessedAggregates)
	}
}

func TestReplayAll_Empty(t *testing.T) {
	ts, _ := setupAPITest(t, memory.New())

	resp := do(t, http.MethodPost, ts.URL+"/admin/dead-letters/replay-all")
	assertProblem(t, resp, http.StatusNotFound)
}

func TestReplayAll_StoreError(t *testing.T) {
	ts, _ := setupAPITest(t, failingStore{memory.New()})

	resp := do(t, http.MethodPost, ts.URL+"/admin/dead-letters/replay-all")
	p := assertProblem(t, resp, http.StatusInternalServerError)
	if p.Detail == "" {
		t.Error("expected a detail for the store error")
	}
}

func TestRequestID_Echoed(t *testing.T) {
	ts, _ := setupAPITest(t, memory.New())

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/admin/dead-letters/replay-all", nil)
	req.Header.Set(api.HeaderRequestID, "req-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get(api.HeaderRequestID); got != "req-123" {
		t.Errorf("X-Request-Id = %q, want %q", got, "req-123")
	}
}

// ── Inspection ────────────────────────────────────────

func TestListAndCount(t *testing.T) {
	ts, eng := setupAPITest(t, memory.New())
	a, b := uuid.New(), uuid.New()
	archive(t, eng, a, "alice", 1)
	archive(t, eng, b, "bob", 2)
	archive(t, eng, b, "bob2", 3)

	resp := do(t, http.MethodGet, ts.URL+"/admin/dead-letters/count")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("count status = %d", resp.StatusCode)
	}
	if c := decode[api.CountResponse](t, resp); c.Count != 3 {
		t.Errorf("count = %d, want 3", c.Count)
	}

	resp = do(t, http.MethodGet, ts.URL+"/admin/dead-letters?aggregate_id="+b.String())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	records := decode[[]*dlq.Record](t, resp)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	for _, r := range records {
		if r.AggregateID == nil || *r.AggregateID != b {
			t.Errorf("record %s belongs to %v", r.ID, r.AggregateID)
		}
	}

	resp = do(t, http.MethodGet, ts.URL+"/admin/dead-letters?limit=1")
	if records := decode[[]*dlq.Record](t, resp); len(records) != 1 {
		t.Errorf("limited records = %d, want 1", len(records))
	}

	resp = do(t, http.MethodGet, ts.URL+"/admin/dead-letters?limit=2&offset=2")
	if records := decode[[]*dlq.Record](t, resp); len(records) != 1 {
		t.Errorf("second page records = %d, want 1", len(records))
	}

	for _, query := range []string{"limit=-1", "offset=-3", "aggregate_id=nope"} {
		resp = do(t, http.MethodGet, ts.URL+"/admin/dead-letters?"+query)
		assertProblem(t, resp, http.StatusBadRequest)
	}
}

func TestGetDeadLetter(t *testing.T) {
	ts, eng := setupAPITest(t, memory.New())
	rec := archive(t, eng, uuid.New(), "alice", 1)

	resp := do(t, http.MethodGet, ts.URL+"/admin/dead-letters/"+rec.ID.String())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[dlq.Record](t, resp)
	if !got.ID.Equal(rec.ID) || got.Subject != rec.Subject {
		t.Errorf("got %s %q, want %s %q", got.ID, got.Subject, rec.ID, rec.Subject)
	}

	resp = do(t, http.MethodGet, ts.URL+"/admin/dead-letters/"+id.NewDeadLetterID().String())
	assertProblem(t, resp, http.StatusNotFound)

	resp = do(t, http.MethodGet, ts.URL+"/admin/dead-letters/rpl_01h2xcejqtf2nbrexx3vqjhp41")
	assertProblem(t, resp, http.StatusBadRequest)
}
