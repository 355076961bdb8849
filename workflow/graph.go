package workflow

import (
	"encoding/json"
	"fmt"
)

// GraphNode is the per-node payload of a dashboard snapshot. IDs are the
// globally unique workflow names.
type GraphNode struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Highlight    bool   `json:"highlight"`
	Status       string `json:"status"`
	Type         string `json:"type"`
	Parent       string `json:"parent,omitempty"`
	Topic        string `json:"topic,omitempty"`
	MessageState string `json:"messageState,omitempty"`
	Message      any    `json:"message,omitempty"`
}

// GraphEdge connects two node IDs. Edge IDs are "<src>-><dst>", unique by
// construction because node IDs are unique.
type GraphEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// GraphNodeElement and GraphEdgeElement wrap the data objects the way the
// dashboard's cytoscape renderer expects.
type GraphNodeElement struct {
	Data GraphNode `json:"data"`
}

type GraphEdgeElement struct {
	Data GraphEdge `json:"data"`
}

// GraphConfig is the complete snapshot broadcast on the state topic.
type GraphConfig struct {
	Nodes []GraphNodeElement `json:"nodes"`
	Edges []GraphEdgeElement `json:"edges"`
}

// RenderGraph serializes the live graph of a workflow tree. The output is
// deterministic (fixed field order, stable traversal), so consecutive
// snapshots of an unchanged tree are byte-identical and can be de-duplicated
// by comparison.
func RenderGraph(root Workflow) ([]byte, error) {
	nodes, edges, _ := root.Graph(nil, "")

	cfg := GraphConfig{
		Nodes: make([]GraphNodeElement, 0, len(nodes)),
		Edges: make([]GraphEdgeElement, 0, len(edges)),
	}
	for _, n := range nodes {
		cfg.Nodes = append(cfg.Nodes, GraphNodeElement{Data: n})
	}
	for _, e := range edges {
		cfg.Edges = append(cfg.Edges, GraphEdgeElement{Data: e})
	}

	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("render graph snapshot: %w", err)
	}
	return b, nil
}

// graphNode builds this node's snapshot data. nameOverride replaces both ID
// and display name; highlight, when non-nil, overrides the node's own flag.
func (n *node) graphNode(nameOverride string, highlight *bool, parent string) GraphNode {
	id := n.name
	if nameOverride != "" {
		id = nameOverride
	}
	hl := n.highlight
	if highlight != nil {
		hl = *highlight
	}
	return GraphNode{
		ID:        id,
		Name:      id,
		Highlight: hl,
		Status:    n.state.String(),
		Type:      n.typ,
		Parent:    parent,
	}
}

// edgesInto creates one edge per predecessor feeding the target node.
func edgesInto(target string, predecessors []string) []GraphEdge {
	edges := make([]GraphEdge, 0, len(predecessors))
	for _, p := range predecessors {
		edges = append(edges, GraphEdge{ID: p + "->" + target, Source: p, Target: target})
	}
	return edges
}

// Graph is the default single-node export used by leaves.
func (n *node) Graph(predecessors []string, parent string) ([]GraphNode, []GraphEdge, []string) {
	return []GraphNode{n.graphNode("", nil, parent)},
		edgesInto(n.name, predecessors),
		[]string{n.name}
}
