package workflow

import "strings"

// Sequence runs its children one after another. At most one child is ACTIVE
// at any time; a child's completion disposes it, advances the index and
// activates the next child, and the sequence finishes when the list is
// exhausted. Child failures are forwarded upward unchanged.
type Sequence struct {
	node
	children []Workflow
	current  int
	bus      Bus
}

// NewSequence creates a sequence over the given children.
func NewSequence(name string, children []Workflow, settings map[string]any) *Sequence {
	return &Sequence{node: newNode(name, "SequenceWorkflow", settings), children: children}
}

// Children returns the child list in declaration order.
func (s *Sequence) Children() []Workflow { return s.children }

func (s *Sequence) Execute(bus Bus) {
	s.bus = bus
	if s.state == StateSkipped {
		s.finish(true)
		return
	}
	s.state = StateActive
	if len(s.children) == 0 {
		s.finish(false)
		return
	}
	s.activateCurrent()
}

func (s *Sequence) Dispose(bus Bus) {
	if s.state == StateSkipped {
		return
	}
	if s.state == StateActive && s.current < len(s.children) {
		s.children[s.current].Dispose(bus)
	}
	s.current = 0
	if s.state == StateActive {
		s.state = StateInactive
	}
}

func (s *Sequence) OnMessage(topic string, payload []byte) {
	if s.current < len(s.children) {
		s.children[s.current].OnMessage(topic, payload)
	}
}

// Skip handles both self-matches and deep-named skips. A self-match marks
// the sequence SKIPPED and propagates per-child self-skips; any other name
// is forwarded unchanged so it can reach a deeper descendant. The sequence's
// own finish fires exactly once: at list exhaustion, or here after the
// cascade when the sequence itself was skipped while ACTIVE.
func (s *Sequence) Skip(name string) {
	if s.state.Terminal() {
		return
	}
	if strings.EqualFold(name, s.name) {
		s.logger.Info("Workflow sequence marked as skipped")
		wasActive := s.state == StateActive
		s.state = StateSkipped
		for _, child := range s.children {
			child.Skip(child.Name())
		}
		if wasActive {
			s.finish(true)
		}
		return
	}
	for _, child := range s.children {
		child.Skip(name)
	}
}

func (s *Sequence) activateCurrent() {
	child := s.children[s.current]
	child.RegisterOnFailed(s.forwardFailure)
	child.RegisterOnFinished(s.childFinished)
	child.Execute(s.bus)
}

func (s *Sequence) childFinished(string) {
	if s.state == StateSkipped {
		// The skip cascade is draining the list; Skip reports the
		// sequence's own completion.
		return
	}
	s.children[s.current].Dispose(s.bus)
	s.current++
	if s.current >= len(s.children) {
		s.logger.Info("Workflow sequence finished")
		s.finish(false)
		return
	}
	s.activateCurrent()
}

// Graph threads the children linearly: each child's finals become the next
// child's predecessors. The sequence reports itself as the single completion
// point for downstream siblings.
func (s *Sequence) Graph(predecessors []string, parent string) ([]GraphNode, []GraphEdge, []string) {
	nodes := []GraphNode{s.graphNode("", nil, parent)}
	edges := edgesInto(s.name, predecessors)

	var last []string
	for _, child := range s.children {
		cn, ce, finals := child.Graph(last, s.name)
		nodes = append(nodes, cn...)
		edges = append(edges, ce...)
		last = finals
	}

	return nodes, edges, []string{s.name}
}
