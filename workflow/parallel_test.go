package workflow

import (
	"testing"
)

func newTestParallel(t *testing.T, name string, topics ...string) (*Parallel, []*Puzzle) {
	t.Helper()
	puzzles := make([]*Puzzle, len(topics))
	children := make([]Workflow, len(topics))
	for i, topic := range topics {
		puzzles[i] = NewPuzzle("Puzzle "+topic, topic, nil)
		children[i] = puzzles[i]
	}
	par, err := NewParallel(name, children, nil)
	if err != nil {
		t.Fatalf("NewParallel: %v", err)
	}
	return par, puzzles
}

func TestParallelRejectsDuplicateChildNames(t *testing.T) {
	children := []Workflow{
		NewPuzzle("Twin", "a", nil),
		NewPuzzle("Twin", "b", nil),
	}
	if _, err := NewParallel("Group", children, nil); err == nil {
		t.Fatal("duplicate child names accepted")
	}
}

func TestParallelStartsAllChildren(t *testing.T) {
	bus := newFakeBus()
	par, puzzles := newTestParallel(t, "Both Puzzles", "a", "b", "c")

	par.Execute(bus)

	if par.State() != StateActive {
		t.Fatalf("parallel = %v, want ACTIVE", par.State())
	}
	for i, p := range puzzles {
		if p.State() != StateActive {
			t.Errorf("child %d = %v, want ACTIVE", i, p.State())
		}
	}
	// Children start in declaration order.
	want := []string{"pub a", "sub a", "pub b", "sub b", "pub c", "sub c"}
	if len(bus.ops) != len(want) {
		t.Fatalf("ops = %v, want %v", bus.ops, want)
	}
	for i := range want {
		if bus.ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", bus.ops, want)
		}
	}
}

func TestParallelFinishesWhenAllChildrenTerminal(t *testing.T) {
	bus := newFakeBus()
	par, puzzles := newTestParallel(t, "Both Puzzles", "a", "b")
	rec := &recorder{}
	rec.attach(par)

	par.Execute(bus)
	par.OnMessage("a", solvedPayload())

	if par.State() != StateActive {
		t.Fatalf("parallel finished with child %v still pending", puzzles[1].State())
	}
	if len(rec.finished) != 0 {
		t.Fatalf("finished early: %v", rec.finished)
	}

	par.OnMessage("b", solvedPayload())

	if par.State() != StateFinished {
		t.Errorf("parallel = %v, want FINISHED", par.State())
	}
	if len(rec.finished) != 1 {
		t.Errorf("finishes = %d, want 1", len(rec.finished))
	}
}

func TestParallelBroadcastsMessages(t *testing.T) {
	bus := newFakeBus()
	par, puzzles := newTestParallel(t, "Both Puzzles", "a", "b")

	par.Execute(bus)
	// Out-of-declaration-order completion works because messages reach
	// every child, not just a current one.
	par.OnMessage("b", solvedPayload())

	if puzzles[0].State() != StateActive || puzzles[1].State() != StateFinished {
		t.Errorf("states = %v %v, want ACTIVE FINISHED", puzzles[0].State(), puzzles[1].State())
	}
}

func TestParallelSkipChildCountsAsTerminal(t *testing.T) {
	bus := newFakeBus()
	par, puzzles := newTestParallel(t, "Both Puzzles", "a", "b")
	rec := &recorder{}
	rec.attach(par)

	par.Execute(bus)
	par.OnMessage("a", solvedPayload())
	par.Skip("Puzzle b")

	if puzzles[1].State() != StateSkipped {
		t.Fatalf("skipped child = %v, want SKIPPED", puzzles[1].State())
	}
	if par.State() != StateFinished {
		t.Errorf("parallel = %v, want FINISHED (solved + skipped)", par.State())
	}
	if len(rec.finished) != 1 {
		t.Errorf("finishes = %d, want 1", len(rec.finished))
	}
}

func TestParallelSkipSelfCascades(t *testing.T) {
	bus := newFakeBus()
	par, puzzles := newTestParallel(t, "Both Puzzles", "a", "b")
	rec := &recorder{}
	rec.attach(par)

	par.Execute(bus)
	par.Skip("both puzzles")

	if par.State() != StateSkipped {
		t.Fatalf("parallel = %v, want SKIPPED", par.State())
	}
	for i, p := range puzzles {
		if p.State() != StateSkipped {
			t.Errorf("child %d = %v, want SKIPPED", i, p.State())
		}
	}
	if len(rec.finished) != 1 {
		t.Errorf("finishes = %d, want exactly 1", len(rec.finished))
	}
	// Every active child retires with data "skipped".
	for _, topic := range []string{"a", "b"} {
		pubs := bus.publicationsTo(t, topic)
		last := pubs[len(pubs)-1]
		if last["state"] != "off" || last["data"] != "skipped" {
			t.Errorf("retire on %s = %v, want off/skipped", topic, last)
		}
	}
}

func TestParallelForwardsChildFailure(t *testing.T) {
	bus := newFakeBus()
	par, _ := newTestParallel(t, "Both Puzzles", "a", "b")
	rec := &recorder{}
	rec.attach(par)

	par.Execute(bus)
	par.OnMessage("b", []byte(`{"method": "STATUS", "state": "FAILED", "data": "jam"}`))

	if len(rec.failed) != 1 {
		t.Fatalf("forwarded failures = %d, want 1", len(rec.failed))
	}
	if par.State() != StateActive {
		t.Errorf("parallel = %v, want still ACTIVE", par.State())
	}
}

func TestParallelReExecuteStartsFresh(t *testing.T) {
	bus := newFakeBus()
	par, _ := newTestParallel(t, "Both Puzzles", "a", "b")
	rec := &recorder{}
	rec.attach(par)

	par.Execute(bus)
	par.OnMessage("a", solvedPayload())
	par.Dispose(bus)

	// A completion recorded in the first run must not count towards the
	// second.
	par.Execute(bus)
	par.OnMessage("b", solvedPayload())

	if par.State() != StateActive {
		t.Fatalf("parallel = %v after one solve of the rerun, want ACTIVE", par.State())
	}
	if len(rec.finished) != 0 {
		t.Fatalf("finished early on rerun: %v", rec.finished)
	}

	par.OnMessage("a", solvedPayload())

	if par.State() != StateFinished {
		t.Errorf("parallel = %v, want FINISHED", par.State())
	}
	if len(rec.finished) != 1 {
		t.Errorf("finishes = %d, want 1", len(rec.finished))
	}
}

func TestParallelDisposeResetsChildren(t *testing.T) {
	bus := newFakeBus()
	par, puzzles := newTestParallel(t, "Both Puzzles", "a", "b")

	par.Execute(bus)
	par.Dispose(bus)

	if par.State() != StateInactive {
		t.Errorf("parallel = %v, want INACTIVE", par.State())
	}
	for i, p := range puzzles {
		if p.State() != StateInactive {
			t.Errorf("child %d = %v, want INACTIVE", i, p.State())
		}
	}
	if bus.subscribed["a"] != 0 || bus.subscribed["b"] != 0 {
		t.Errorf("children still subscribed after dispose")
	}
}
