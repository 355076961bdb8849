package workflow

import (
	"testing"
)

func newTestSequence(name string, topics ...string) (*Sequence, []*Puzzle) {
	puzzles := make([]*Puzzle, len(topics))
	children := make([]Workflow, len(topics))
	for i, topic := range topics {
		puzzles[i] = NewPuzzle("Puzzle "+topic, topic, nil)
		children[i] = puzzles[i]
	}
	return NewSequence(name, children, nil), puzzles
}

func TestSequenceAdvancesOnChildFinish(t *testing.T) {
	bus := newFakeBus()
	seq, puzzles := newTestSequence("Lobby Room", "a", "b", "c")
	rec := &recorder{}
	rec.attach(seq)

	seq.Execute(bus)

	if puzzles[0].State() != StateActive || puzzles[1].State() != StateInactive {
		t.Fatalf("after execute: %v %v, want first ACTIVE, rest INACTIVE",
			puzzles[0].State(), puzzles[1].State())
	}

	seq.OnMessage("a", solvedPayload())

	if puzzles[0].State() != StateFinished {
		t.Errorf("first child = %v, want FINISHED", puzzles[0].State())
	}
	if puzzles[1].State() != StateActive {
		t.Errorf("second child = %v, want ACTIVE", puzzles[1].State())
	}
	if bus.subscribed["a"] != 0 {
		t.Errorf("finished child still subscribed")
	}

	// At most one child ACTIVE at any time.
	active := 0
	for _, p := range puzzles {
		if p.State() == StateActive {
			active++
		}
	}
	if active != 1 {
		t.Errorf("%d children ACTIVE, want 1", active)
	}

	seq.OnMessage("b", solvedPayload())
	seq.OnMessage("c", solvedPayload())

	if seq.State() != StateFinished {
		t.Errorf("sequence = %v, want FINISHED", seq.State())
	}
	if len(rec.finished) != 1 {
		t.Errorf("sequence reported %d finishes, want 1", len(rec.finished))
	}
}

func TestSequenceRoutesMessagesToCurrentChildOnly(t *testing.T) {
	bus := newFakeBus()
	seq, puzzles := newTestSequence("Control room", "a", "b")

	seq.Execute(bus)
	// Solving the second child's topic must not advance anything: the
	// message reaches only the current child, which ignores foreign topics.
	seq.OnMessage("b", solvedPayload())

	if puzzles[0].State() != StateActive || puzzles[1].State() != StateInactive {
		t.Errorf("states = %v %v, want ACTIVE INACTIVE", puzzles[0].State(), puzzles[1].State())
	}
}

func TestSequenceForwardsChildFailure(t *testing.T) {
	bus := newFakeBus()
	seq, _ := newTestSequence("Server room", "a", "b")
	rec := &recorder{}
	rec.attach(seq)

	seq.Execute(bus)
	seq.OnMessage("a", []byte(`{"method": "STATUS", "state": "FAILED", "data": "boom"}`))

	if len(rec.failed) != 1 {
		t.Fatalf("forwarded failures = %d, want 1", len(rec.failed))
	}
	if seq.State() != StateActive {
		t.Errorf("sequence = %v, want still ACTIVE (fail-soft)", seq.State())
	}
}

func TestSequenceSkipDeepName(t *testing.T) {
	bus := newFakeBus()
	inner, innerPuzzles := newTestSequence("Puzzle 1 - Cube", "p1", "p2")
	after := NewPuzzle("After", "after", nil)
	outer := NewSequence("Lobby Room", []Workflow{inner, after}, nil)
	rec := &recorder{}
	rec.attach(outer)

	outer.Execute(bus)
	outer.Skip("puzzle 1 - cube")

	if inner.State() != StateSkipped {
		t.Fatalf("inner sequence = %v, want SKIPPED", inner.State())
	}
	for i, p := range innerPuzzles {
		if p.State() != StateSkipped {
			t.Errorf("inner child %d = %v, want SKIPPED", i, p.State())
		}
	}
	if after.State() != StateActive {
		t.Errorf("next sibling = %v, want ACTIVE (outer advanced)", after.State())
	}
	if outer.State() != StateActive {
		t.Errorf("outer = %v, want ACTIVE", outer.State())
	}
	if len(rec.finished) != 0 {
		t.Errorf("outer finished early")
	}

	// The active leaf that got skipped retires with data "skipped".
	pubs := bus.publicationsTo(t, "p1")
	last := pubs[len(pubs)-1]
	if last["state"] != "off" || last["data"] != "skipped" {
		t.Errorf("skipped leaf retire = %v, want off/skipped", last)
	}
	// The never-activated leaf emitted nothing.
	if got := bus.publicationsTo(t, "p2"); len(got) != 0 {
		t.Errorf("inactive leaf published %v, want nothing", got)
	}
}

func TestSequenceSkipSelfWhileActive(t *testing.T) {
	bus := newFakeBus()
	seq, puzzles := newTestSequence("Lobby Room", "a", "b")
	rec := &recorder{}
	rec.attach(seq)

	seq.Execute(bus)
	seq.Skip("Lobby Room")

	if seq.State() != StateSkipped {
		t.Fatalf("sequence = %v, want SKIPPED", seq.State())
	}
	for i, p := range puzzles {
		if p.State() != StateSkipped {
			t.Errorf("child %d = %v, want SKIPPED", i, p.State())
		}
	}
	if len(rec.finished) != 1 {
		t.Errorf("sequence reported %d finishes, want exactly 1", len(rec.finished))
	}
}

func TestSequenceSkippedBeforeExecute(t *testing.T) {
	bus := newFakeBus()
	seq, _ := newTestSequence("Server room", "a", "b")
	rec := &recorder{}
	rec.attach(seq)

	seq.Skip("Server room")
	seq.Execute(bus)

	if seq.State() != StateSkipped {
		t.Errorf("sequence = %v, want SKIPPED", seq.State())
	}
	if len(rec.finished) != 1 {
		t.Errorf("finishes = %d, want 1", len(rec.finished))
	}
	if len(bus.ops) != 0 {
		t.Errorf("bus ops = %v, want none", bus.ops)
	}
}

func TestSequenceDisposeResetsCurrentChild(t *testing.T) {
	bus := newFakeBus()
	seq, puzzles := newTestSequence("Control room", "a", "b")

	seq.Execute(bus)
	seq.OnMessage("a", solvedPayload())
	seq.Dispose(bus)

	if seq.State() != StateInactive {
		t.Errorf("sequence = %v, want INACTIVE", seq.State())
	}
	if puzzles[1].State() != StateInactive {
		t.Errorf("active child = %v, want INACTIVE after dispose", puzzles[1].State())
	}
	if bus.subscribed["b"] != 0 {
		t.Errorf("current child still subscribed after dispose")
	}
}
