package workflow

// Combined behaves exactly like a Sequence at runtime but collapses its
// whole subtree to a single node in the dashboard graph. It is the shape of
// "operate a set of actuators as one step" groups and of the named Init and
// Exit workflows.
type Combined struct {
	Sequence
}

// NewCombined creates a combined workflow. When the setting "wrap_parent" is
// true the graph export nests a "<name> routines" subgroup under the node.
func NewCombined(name string, children []Workflow, settings map[string]any) *Combined {
	c := &Combined{Sequence: *NewSequence(name, children, settings)}
	c.typ = "CombinedWorkflow"
	return c
}

// NewInit creates the named "Init" combined workflow that runs the session's
// initial actuator tasks. wrap_parent defaults to true.
func NewInit(children []Workflow, settings map[string]any) *Combined {
	c := NewCombined("Init", children, withWrapParent(settings))
	c.typ = "InitWorkflow"
	return c
}

// NewExit creates the named "Exit" combined workflow that runs the session's
// finalization tasks. wrap_parent defaults to true.
func NewExit(children []Workflow, settings map[string]any) *Combined {
	c := NewCombined("Exit", children, withWrapParent(settings))
	c.typ = "ExitWorkflow"
	return c
}

func withWrapParent(settings map[string]any) map[string]any {
	if settings == nil {
		settings = make(map[string]any, 1)
	}
	if _, ok := settings["wrap_parent"]; !ok {
		settings["wrap_parent"] = true
	}
	return settings
}

// Graph emits a single node for the whole subtree, plus an optional
// "<name> routines" subgroup when wrap_parent is set.
func (c *Combined) Graph(predecessors []string, parent string) ([]GraphNode, []GraphEdge, []string) {
	nodes := []GraphNode{c.graphNode("", nil, parent)}
	edges := edgesInto(c.name, predecessors)

	if c.wrapParent() {
		off := false
		nodes = append(nodes, c.graphNode(c.name+" routines", &off, c.name))
	}

	return nodes, edges, []string{c.name}
}

func (c *Combined) wrapParent() bool {
	v, ok := c.settings["wrap_parent"].(bool)
	return ok && v
}
