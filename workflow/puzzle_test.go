package workflow

import (
	"strings"
	"testing"

	"github.com/ubilab-escape/operator/message"
)

func solvedPayload() []byte {
	return []byte(`{"method": "STATUS", "state": "SOLVED"}`)
}

func TestPuzzleExecutePublishesBeforeSubscribe(t *testing.T) {
	bus := newFakeBus()
	p := NewPuzzle("Power Outage", "0/dummy", nil)

	p.Execute(bus)

	if p.State() != StateActive {
		t.Fatalf("state = %v, want ACTIVE", p.State())
	}
	if len(bus.ops) != 2 || bus.ops[0] != "pub 0/dummy" || bus.ops[1] != "sub 0/dummy" {
		t.Fatalf("ops = %v, want trigger publish before subscribe", bus.ops)
	}

	pubs := bus.publicationsTo(t, "0/dummy")
	if pubs[0]["method"] != "trigger" || pubs[0]["state"] != "on" {
		t.Errorf("arming publish = %v, want trigger/on", pubs[0])
	}
}

func TestPuzzleSolvedFinishesWithTriggerOff(t *testing.T) {
	bus := newFakeBus()
	p := NewPuzzle("Safe Unlocked", "5/safe/activate", map[string]any{"difficulty": "hard"})
	rec := &recorder{}
	rec.attach(p)

	p.Execute(bus)
	p.OnMessage("5/safe/activate", solvedPayload())

	if p.State() != StateFinished {
		t.Fatalf("state = %v, want FINISHED", p.State())
	}
	if len(rec.finished) != 1 || rec.finished[0] != "Safe Unlocked" {
		t.Fatalf("finished callbacks = %v, want one with own name", rec.finished)
	}

	pubs := bus.publicationsTo(t, "5/safe/activate")
	if len(pubs) != 2 {
		t.Fatalf("published %d messages, want ON then OFF", len(pubs))
	}
	if pubs[0]["state"] != "on" || pubs[0]["data"] != "hard" {
		t.Errorf("arming publish = %v, want flattened single setting", pubs[0])
	}
	if pubs[1]["state"] != "off" || pubs[1]["data"] != "hard" {
		t.Errorf("retire publish = %v, want off with settings", pubs[1])
	}
}

func TestPuzzleFailedStatusRoutesOnFailed(t *testing.T) {
	bus := newFakeBus()
	p := NewPuzzle("Radio Tuned", "3/radio", nil)
	rec := &recorder{}
	rec.attach(p)

	p.Execute(bus)
	p.OnMessage("3/radio", []byte(`{"method": "STATUS", "state": "FAILED", "data": "antenna broke"}`))

	if len(rec.failed) != 1 {
		t.Fatalf("failed callbacks = %d, want 1", len(rec.failed))
	}
	if !strings.Contains(rec.failed[0].Error(), "antenna broke") {
		t.Errorf("error = %v, want the failure data", rec.failed[0])
	}
	if p.State() != StateActive {
		t.Errorf("state = %v, want still ACTIVE (parent decides policy)", p.State())
	}
}

func TestPuzzleGarbledPayload(t *testing.T) {
	bus := newFakeBus()
	p := NewPuzzle("Panels Placed", "0/dummy", nil)
	rec := &recorder{}
	rec.attach(p)

	p.Execute(bus)
	p.OnMessage("0/dummy", []byte(`{"method":"STATUS","state":"Invalid}`))

	if len(rec.failed) != 1 {
		t.Fatalf("failed callbacks = %d, want 1", len(rec.failed))
	}
	if !strings.HasPrefix(rec.failed[0].Error(), "[Panels Placed] No valid JSON:") {
		t.Errorf("error = %q, want No valid JSON prefix", rec.failed[0])
	}
	if p.State() != StateActive {
		t.Errorf("state = %v, want ACTIVE (session continues)", p.State())
	}
}

func TestPuzzleUnsupportedState(t *testing.T) {
	bus := newFakeBus()
	p := NewPuzzle("Switches Correct", "7/fusebox", nil)
	rec := &recorder{}
	rec.attach(p)

	p.Execute(bus)
	p.OnMessage("7/fusebox", []byte(`{"method": "STATUS", "state": "UNSOLVED"}`))

	if len(rec.failed) != 1 {
		t.Fatalf("failed callbacks = %d, want 1", len(rec.failed))
	}
	if !strings.Contains(rec.failed[0].Error(), "No valid JSON") {
		t.Errorf("error = %q, want unknown enum routed as parse failure", rec.failed[0])
	}
}

func TestPuzzleIgnoresForeignTopic(t *testing.T) {
	bus := newFakeBus()
	p := NewPuzzle("Battery Placed", "5/battery", nil)
	rec := &recorder{}
	rec.attach(p)

	p.Execute(bus)
	p.OnMessage("5/safe/activate", solvedPayload())

	if p.State() != StateActive || len(rec.finished) != 0 {
		t.Errorf("message on foreign topic changed the node: state=%v finished=%v", p.State(), rec.finished)
	}
}

func TestPuzzleSkipWhileActive(t *testing.T) {
	bus := newFakeBus()
	p := NewPuzzle("Radio Turned On", "3/radio", nil)
	rec := &recorder{}
	rec.attach(p)

	p.Execute(bus)
	p.Skip("radio turned on") // case-insensitive

	if p.State() != StateSkipped {
		t.Fatalf("state = %v, want SKIPPED", p.State())
	}
	if len(rec.finished) != 1 {
		t.Fatalf("finished callbacks = %d, want 1", len(rec.finished))
	}

	pubs := bus.publicationsTo(t, "3/radio")
	if len(pubs) != 2 {
		t.Fatalf("published %d messages, want ON then OFF", len(pubs))
	}
	if pubs[1]["state"] != "off" || pubs[1]["data"] != "skipped" {
		t.Errorf("retire publish = %v, want off with data skipped", pubs[1])
	}
}

func TestPuzzleSkippedBeforeExecuteEmitsNoTraffic(t *testing.T) {
	bus := newFakeBus()
	p := NewPuzzle("Puzzle Solved", "8/puzzle", nil)
	rec := &recorder{}
	rec.attach(p)

	p.Skip("Puzzle Solved")
	if len(rec.finished) != 0 {
		t.Fatalf("skip of INACTIVE node reported a finish")
	}

	p.Execute(bus)

	if len(rec.finished) != 1 {
		t.Fatalf("finished callbacks = %d, want 1", len(rec.finished))
	}
	if len(bus.ops) != 0 {
		t.Errorf("bus ops = %v, want none for a pre-skipped leaf", bus.ops)
	}
	if p.State() != StateSkipped {
		t.Errorf("state = %v, want SKIPPED", p.State())
	}
}

func TestPuzzleSkipIsTerminal(t *testing.T) {
	bus := newFakeBus()
	p := NewPuzzle("Maze", "8/puzzle/maze", nil)

	p.Execute(bus)
	p.OnMessage("8/puzzle/maze", solvedPayload())
	p.Skip("Maze")

	if p.State() != StateFinished {
		t.Errorf("skip after finish changed state to %v", p.State())
	}
}

func TestPuzzleDisposeUnsubscribes(t *testing.T) {
	bus := newFakeBus()
	p := NewPuzzle("Terminal", "6/puzzle/terminal", nil)

	p.Execute(bus)
	p.Dispose(bus)

	if bus.subscribed["6/puzzle/terminal"] != 0 {
		t.Errorf("subscription count = %d, want 0", bus.subscribed["6/puzzle/terminal"])
	}
	if p.State() != StateInactive {
		t.Errorf("state = %v, want INACTIVE", p.State())
	}
}

func TestPuzzleGraphCarriesStatus(t *testing.T) {
	bus := newFakeBus()
	p := NewPuzzle("Globes", "4/globes", nil)

	p.Execute(bus)
	p.OnMessage("4/globes", []byte(`{"method": "status", "state": "solved", "data": "Worked!"}`))

	nodes, _, finals := p.Graph(nil, "")
	if len(nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(nodes))
	}
	n := nodes[0]
	if n.Topic != "4/globes" || n.MessageState != message.StateSolved.String() || n.Message != "Worked!" {
		t.Errorf("node = %+v, want topic and last status", n)
	}
	if n.Status != "FINISHED" {
		t.Errorf("status = %q, want FINISHED", n.Status)
	}
	if len(finals) != 1 || finals[0] != "Globes" {
		t.Errorf("finals = %v", finals)
	}
}
