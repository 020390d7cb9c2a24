package project_test

import (
	"context"
	"testing"

	"github.com/xraph/redrive/event"
	"github.com/xraph/redrive/project"
)

type statefulProjector struct {
	seen int
}

func (p *statefulProjector) Project(_ context.Context, _ *event.Context) error {
	p.seen++
	return nil
}

func (p *statefulProjector) Clone() project.Projector { return &statefulProjector{} }

func TestFresh_ClonesCloners(t *testing.T) {
	base := &statefulProjector{}
	a := project.Fresh(base)
	b := project.Fresh(base)

	if a == project.Projector(base) || a == b {
		t.Fatal("Fresh returned a shared handle for a Cloner")
	}
	_ = a.Project(context.Background(), &event.Context{})
	if base.seen != 0 {
		t.Error("projecting on a clone mutated the base projector")
	}
}

func TestFresh_PlainProjector(t *testing.T) {
	calls := 0
	p := project.ProjectorFunc(func(context.Context, *event.Context) error {
		calls++
		return nil
	})
	if err := project.Fresh(p).Project(context.Background(), &event.Context{}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
