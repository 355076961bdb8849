package workflow

import (
	"fmt"

	"github.com/ubilab-escape/operator/message"
)

// Puzzle drives a single puzzle micro-controller over one topic. Execute
// arms the firmware with TRIGGER:ON and subscribes for status reports; a
// SOLVED status finishes the node, a FAILED status reports the error upward
// and leaves policy to the parent.
type Puzzle struct {
	node
	topic string
	bus   Bus

	hasStatus   bool
	statusState message.State
	statusData  any
}

// NewPuzzle creates a puzzle leaf bound to a topic. Settings, when present,
// are sent as the data of the arming trigger.
func NewPuzzle(name, topic string, settings map[string]any) *Puzzle {
	return &Puzzle{node: newNode(name, "Workflow", settings), topic: topic}
}

// Topic returns the bus topic this leaf is bound to.
func (w *Puzzle) Topic() string { return w.topic }

func (w *Puzzle) Execute(bus Bus) {
	w.bus = bus
	if w.state == StateSkipped {
		// A pre-skipped leaf reports completion without any bus traffic.
		w.finish(true)
		return
	}
	w.publishTrigger(message.StateOn, false)
	if w.topic != "" {
		if err := bus.Subscribe(w.topic); err != nil {
			w.logger.Error("Subscribe failed", "topic", w.topic, "error", err)
		} else {
			w.logger.Info("Subscribed to topic", "topic", w.topic)
		}
	}
	w.state = StateActive
}

func (w *Puzzle) Dispose(bus Bus) {
	if w.state == StateSkipped {
		return
	}
	if w.topic != "" && bus != nil {
		if err := bus.Unsubscribe(w.topic); err != nil {
			w.logger.Error("Unsubscribe failed", "topic", w.topic, "error", err)
		} else {
			w.logger.Info("Unsubscribed from topic", "topic", w.topic)
		}
	}
	if w.state == StateActive {
		w.state = StateInactive
	}
}

func (w *Puzzle) Skip(name string) {
	wasActive, ok := w.markSkipped(name)
	if !ok {
		return
	}
	w.logger.Info("Workflow marked as skipped")
	if wasActive {
		w.finishPuzzle(true)
	}
}

func (w *Puzzle) OnMessage(topic string, payload []byte) {
	if topic != w.topic {
		return
	}

	msg, err := message.Parse(payload)
	if err != nil {
		w.fail(fmt.Errorf("[%s] No valid JSON: %v", w.name, err))
		return
	}

	switch msg.Method {
	case message.MethodStatus:
		w.logger.Info("State change", "state", msg.State.String())
		w.hasStatus = true
		w.statusState = msg.State
		w.statusData = msg.Data
		switch msg.State {
		case message.StateInactive:
			w.onStatusInactive(msg.Data)
		case message.StateActive:
			w.onStatusActive(msg.Data)
		case message.StateSolved:
			w.logger.Info("Puzzle solved")
			w.finishPuzzle(false)
		case message.StateFailed:
			w.fail(fmt.Errorf("[%s] %v", w.name, msg.Data))
		default:
			w.fail(fmt.Errorf("[%s] State %q is not supported", w.name, msg.State))
		}
	case message.MethodTrigger:
		w.logger.Info("Requested trigger", "state", msg.State.String())
		switch msg.State {
		case message.StateOn:
			w.onTriggerOn(msg.Data)
		case message.StateOff:
			w.onTriggerOff(msg.Data)
		default:
			w.fail(fmt.Errorf("[%s] Trigger state %q is not supported", w.name, msg.State))
		}
	case message.MethodMessage:
		w.logger.Debug("Received plain message, nothing to do")
	default:
		w.fail(fmt.Errorf("[%s] Method %q is not supported", w.name, msg.Method))
	}
}

// finishPuzzle retires the firmware with a trailing TRIGGER:OFF before
// reporting completion. A skipped finish carries the data "skipped" so the
// firmware can tell early termination from a normal retire.
func (w *Puzzle) finishPuzzle(skipped bool) {
	w.publishTrigger(message.StateOff, skipped)
	w.finish(skipped)
}

func (w *Puzzle) publishTrigger(state message.State, skipped bool) {
	if w.topic == "" || w.bus == nil {
		return
	}
	var data any
	if state == message.StateOff && skipped {
		data = "skipped"
	} else {
		data = w.settingsValue()
	}
	payload, err := message.Message{Method: message.MethodTrigger, State: state, Data: data}.JSON()
	if err != nil {
		w.logger.Error("Serialize trigger failed", "error", err)
		return
	}
	if err := w.bus.Publish(w.topic, 2, false, payload); err != nil {
		w.logger.Error("Publish trigger failed", "topic", w.topic, "error", err)
		return
	}
	w.logger.Info("Trigger published", "state", state.String(), "data", data)
}

// Status hooks. The base puzzle has nothing to do on these; they exist so
// the dispatch over the status table is complete.

func (w *Puzzle) onStatusInactive(any) {
	w.logger.Debug("Status INACTIVE, nothing to do")
}

func (w *Puzzle) onStatusActive(any) {
	w.logger.Debug("Status ACTIVE, nothing to do")
}

func (w *Puzzle) onTriggerOn(any) {
	w.logger.Debug("Trigger ON echoed, nothing to do")
}

func (w *Puzzle) onTriggerOff(any) {
	w.logger.Debug("Trigger OFF echoed, nothing to do")
}

// Graph adds the topic binding and the last received status to the default
// node export.
func (w *Puzzle) Graph(predecessors []string, parent string) ([]GraphNode, []GraphEdge, []string) {
	data := w.graphNode("", nil, parent)
	data.Topic = w.topic
	if w.hasStatus {
		data.MessageState = w.statusState.String()
		data.Message = w.statusData
	}
	return []GraphNode{data}, edgesInto(w.name, predecessors), []string{w.name}
}
