package replay_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/redrive/dlq"
	"github.com/xraph/redrive/event"
	"github.com/xraph/redrive/id"
	"github.com/xraph/redrive/project"
	"github.com/xraph/redrive/replay"
)

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// faultyStore injects errors into an otherwise working store.
type faultyStore struct {
	dlq.Store
	getErr    error
	removeErr error
}

func (f *faultyStore) GetDeadLetters(ctx context.Context, filter dlq.Filter) ([]*dlq.Record, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.GetDeadLetters(ctx, filter)
}

func (f *faultyStore) RemoveDeadLetter(ctx context.Context, recordID id.DeadLetterID) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.Store.RemoveDeadLetter(ctx, recordID)
}

// cloningProjector counts how many handles were handed out.
type cloningProjector struct {
	clones atomic.Int32
	used   bool
}

func (c *cloningProjector) Project(context.Context, *event.Context) error {
	c.used = true
	return nil
}

func (c *cloningProjector) Clone() project.Projector {
	c.clones.Add(1)
	return project.ProjectorFunc(func(context.Context, *event.Context) error { return nil })
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
	run    *replay.Run
}

func (e *recordingEmitter) add(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, name)
}

func (e *recordingEmitter) snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

func (e *recordingEmitter) EmitReplayStarted(_ context.Context, run *replay.Run) {
	e.mu.Lock()
	e.run = run
	e.mu.Unlock()
	e.add("started")
}

func (e *recordingEmitter) EmitRecordReplayed(context.Context, *replay.Run, *dlq.Record, time.Duration) {
	e.add("replayed")
}

func (e *recordingEmitter) EmitRecordFailed(context.Context, *replay.Run, *dlq.Record, error) {
	e.add("failed")
}

func (e *recordingEmitter) EmitCleanupFailed(context.Context, *replay.Run, *dlq.Record, error) {
	e.add("cleanup_failed")
}

func (e *recordingEmitter) EmitReplayCompleted(context.Context, *replay.Run, *replay.Summary, time.Duration) {
	e.add("completed")
}
