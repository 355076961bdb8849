package workflow

import (
	"strconv"
	"strings"
)

// Delay parks a sequence for a number of seconds without blocking the shared
// callback path. It observes the game clock's seconds topic as a logical
// clock instead of running a wall-clock timer, so delays pause with the game
// and stay serialized with every other mutation.
type Delay struct {
	node
	clockTopic string
	delaySec   int

	started  bool
	startSec int
}

// NewDelay creates a delay leaf. clockTopic is the game-time-in-seconds
// topic published by the game timer.
func NewDelay(name string, seconds int, clockTopic string) *Delay {
	return &Delay{node: newNode(name, "DelayWorkflow", nil), clockTopic: clockTopic, delaySec: seconds}
}

func (w *Delay) Execute(bus Bus) {
	if w.state == StateSkipped {
		w.finish(true)
		return
	}
	if err := bus.Subscribe(w.clockTopic); err != nil {
		w.logger.Error("Subscribe to game clock failed", "topic", w.clockTopic, "error", err)
	}
	w.started = false
	w.state = StateActive
}

func (w *Delay) Dispose(bus Bus) {
	if w.state == StateSkipped {
		return
	}
	if bus != nil {
		if err := bus.Unsubscribe(w.clockTopic); err != nil {
			w.logger.Error("Unsubscribe from game clock failed", "topic", w.clockTopic, "error", err)
		}
	}
	w.started = false
	if w.state == StateActive {
		w.state = StateInactive
	}
}

func (w *Delay) OnMessage(topic string, payload []byte) {
	if topic != w.clockTopic || w.state != StateActive {
		return
	}
	sec, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		// Clock payloads are our own; anything else on the topic is noise.
		return
	}
	if !w.started {
		w.started = true
		w.startSec = sec
		return
	}
	if sec-w.startSec >= w.delaySec {
		w.logger.Info("Delay elapsed", "seconds", w.delaySec)
		w.finish(false)
	}
}

// Graph adds the clock topic binding to the default node export.
func (w *Delay) Graph(predecessors []string, parent string) ([]GraphNode, []GraphEdge, []string) {
	data := w.graphNode("", nil, parent)
	data.Topic = w.clockTopic
	return []GraphNode{data}, edgesInto(w.name, predecessors), []string{w.name}
}
