package workflow

import (
	"fmt"
	"strings"
)

// Parallel runs all children concurrently with respect to the session: every
// child is started in declaration order and every bus message is broadcast
// to all of them. The parallel finishes exactly when every child is terminal
// (FINISHED or SKIPPED).
type Parallel struct {
	node
	children []Workflow
	finished map[string]bool
	bus      Bus
}

// NewParallel creates a parallel composite. Child names must be unique
// within the group because completion is tracked per name.
func NewParallel(name string, children []Workflow, settings map[string]any) (*Parallel, error) {
	p := &Parallel{
		node:     newNode(name, "ParallelWorkflow", settings),
		children: children,
		finished: make(map[string]bool, len(children)),
	}
	for _, child := range children {
		if _, dup := p.finished[child.Name()]; dup {
			return nil, fmt.Errorf("parallel %q: duplicate child name %q", name, child.Name())
		}
		p.finished[child.Name()] = false
		child.RegisterOnFailed(p.forwardFailure)
		child.RegisterOnFinished(p.childFinished)
	}
	return p, nil
}

// Children returns the child list in declaration order.
func (p *Parallel) Children() []Workflow { return p.children }

func (p *Parallel) Execute(bus Bus) {
	p.bus = bus
	if p.state == StateSkipped {
		p.finish(true)
		return
	}
	p.logger.Info("Starting workflows in parallel", "count", len(p.children))
	p.state = StateActive
	for name := range p.finished {
		p.finished[name] = false
	}
	for _, child := range p.children {
		child.Execute(bus)
	}
}

func (p *Parallel) Dispose(bus Bus) {
	if p.state == StateSkipped {
		return
	}
	if p.state == StateActive {
		for _, child := range p.children {
			child.Dispose(bus)
		}
	}
	if p.state == StateActive {
		p.state = StateInactive
	}
}

func (p *Parallel) OnMessage(topic string, payload []byte) {
	for _, child := range p.children {
		child.OnMessage(topic, payload)
	}
}

// Skip follows the same cascade rules as Sequence.
func (p *Parallel) Skip(name string) {
	if p.state.Terminal() {
		return
	}
	if strings.EqualFold(name, p.name) {
		p.logger.Info("Parallel workflows marked as skipped")
		wasActive := p.state == StateActive
		p.state = StateSkipped
		for _, child := range p.children {
			child.Skip(child.Name())
		}
		if wasActive {
			p.finish(true)
		}
		return
	}
	for _, child := range p.children {
		child.Skip(name)
	}
}

func (p *Parallel) childFinished(name string) {
	p.finished[name] = true
	if p.state == StateSkipped {
		return
	}
	for _, done := range p.finished {
		if !done {
			return
		}
	}
	p.logger.Info("Parallel workflows finished")
	p.finish(false)
}

// Graph exports the children grouped under the parallel node with no
// internal predecessors; the parallel itself is the completion point.
func (p *Parallel) Graph(predecessors []string, parent string) ([]GraphNode, []GraphEdge, []string) {
	nodes := []GraphNode{p.graphNode("", nil, parent)}
	edges := edgesInto(p.name, predecessors)

	for _, child := range p.children {
		cn, ce, _ := child.Graph(nil, p.name)
		nodes = append(nodes, cn...)
		edges = append(edges, ce...)
	}

	return nodes, edges, []string{p.name}
}
