// Package workflow implements the composite state machine that drives one
// escape-room session: topic-bound leaves, sequence/parallel/combined
// composites, operator skip semantics and the dashboard graph export.
//
// The tree is single-threaded by contract: the controller serializes every
// Execute, Dispose, Skip and OnMessage call behind one mutex, so nodes keep
// no locks of their own.
package workflow

import (
	"log/slog"
	"strings"
)

// State is the lifecycle state of a workflow node. It moves along
// INACTIVE -> ACTIVE -> FINISHED, with SKIPPED reachable laterally from any
// non-terminal state. FINISHED and SKIPPED are terminal.
type State int

const (
	StateInactive State = iota
	StateActive
	StateFinished
	StateSkipped
)

var stateNames = [...]string{"INACTIVE", "ACTIVE", "FINISHED", "SKIPPED"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Terminal reports whether the state is FINISHED or SKIPPED.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateSkipped
}

// Bus is the slice of the broker client the workflow tree may touch. The
// controller owns the connection; nodes only publish and manage their own
// topic subscriptions and must never close the client.
type Bus interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string) error
	Unsubscribe(topic string) error
}

// Workflow is one unit in the composite state machine.
type Workflow interface {
	Name() string
	State() State
	SetHighlight(on bool)

	// Execute transitions the node from INACTIVE to ACTIVE. Calling it on
	// an already SKIPPED node immediately reports a skipped finish without
	// touching the bus.
	Execute(bus Bus)

	// Dispose releases bus subscriptions and returns an ACTIVE node to
	// INACTIVE. It is suppressed on SKIPPED nodes.
	Dispose(bus Bus)

	// Skip marks the node (or a matching descendant) as SKIPPED. Matching
	// is case-insensitive; composites cascade per the skip rules.
	Skip(name string)

	// OnMessage delivers one bus message. Nodes ignore topics that are not
	// theirs; composites route to their active children.
	OnMessage(topic string, payload []byte)

	RegisterOnFinished(fn func(name string))
	RegisterOnFailed(fn func(name string, err error))

	// Graph emits this subtree's contribution to the dashboard snapshot.
	// predecessors are the IDs whose final nodes feed edges into this
	// subtree's entry; parent is the enclosing group ID, if any. The
	// returned finals are the IDs downstream siblings connect to next.
	Graph(predecessors []string, parent string) ([]GraphNode, []GraphEdge, []string)
}

// node carries the state every workflow shares. Concrete workflows embed it
// and implement Execute (and whatever else they override) themselves.
type node struct {
	name      string
	typ       string
	settings  map[string]any
	highlight bool
	state     State
	logger    *slog.Logger

	onFinished func(name string)
	onFailed   func(name string, err error)
}

func newNode(name, typ string, settings map[string]any) node {
	return node{
		name:     name,
		typ:      typ,
		settings: settings,
		logger:   slog.Default().With("workflow", name),
	}
}

func (n *node) Name() string { return n.name }

func (n *node) State() State { return n.state }

func (n *node) SetHighlight(on bool) { n.highlight = on }

// RegisterOnFinished installs the parent's completion callback. It is
// rebuilt by the parent on every activation, so no callback outlives the
// subtree it belongs to.
func (n *node) RegisterOnFinished(fn func(name string)) { n.onFinished = fn }

// RegisterOnFailed installs the parent's failure callback.
func (n *node) RegisterOnFailed(fn func(name string, err error)) { n.onFailed = fn }

// OnMessage is a no-op by default; topic leaves and composites override it.
func (n *node) OnMessage(string, []byte) {}

// Dispose returns an ACTIVE node to INACTIVE. Suppressed when SKIPPED so a
// skipped subtree never mutates after its terminal transition.
func (n *node) Dispose(Bus) {
	if n.state == StateSkipped {
		return
	}
	if n.state == StateActive {
		n.state = StateInactive
	}
}

// Skip applies the base skip rule: on a case-insensitive self-match of a
// non-terminal node, transition to SKIPPED; if the node was ACTIVE, report a
// skipped finish so the parent advances.
func (n *node) Skip(name string) {
	wasActive, ok := n.markSkipped(name)
	if !ok {
		return
	}
	n.logger.Info("Workflow marked as skipped")
	if wasActive {
		n.finish(true)
	}
}

// markSkipped performs the self-match transition and reports whether the
// node was ACTIVE at the time and whether the match applied at all.
func (n *node) markSkipped(name string) (wasActive, matched bool) {
	if n.state.Terminal() || !strings.EqualFold(name, n.name) {
		return false, false
	}
	wasActive = n.state == StateActive
	n.state = StateSkipped
	return wasActive, true
}

// finish records completion and reports it upward. A skipped finish keeps
// the SKIPPED state; a normal finish never downgrades a SKIPPED node, which
// keeps SKIPPED terminal when a skip cascade drains a composite.
func (n *node) finish(skipped bool) {
	if !skipped && n.state != StateSkipped {
		n.state = StateFinished
	}
	if n.onFinished != nil {
		n.onFinished(n.name)
	}
}

// fail reports an error upward under this node's own name.
func (n *node) fail(err error) {
	if n.onFailed != nil {
		n.onFailed(n.name, err)
	}
}

// forwardFailure relays a child failure unchanged, preserving the failing
// node's name on the way up.
func (n *node) forwardFailure(name string, err error) {
	if n.onFailed != nil {
		n.onFailed(name, err)
	}
}

// settingsValue flattens a single-entry settings map to its bare value, the
// shape the firmware expects for simple triggers; larger maps pass through
// as a JSON object.
func (n *node) settingsValue() any {
	switch len(n.settings) {
	case 0:
		return nil
	case 1:
		for _, v := range n.settings {
			return v
		}
	}
	return n.settings
}
