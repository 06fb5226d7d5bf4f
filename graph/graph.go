package graph

import (
	"context"
	"fmt"
)

// END is the terminal marker. An edge or router label that targets END
// finishes the branch; the run completes once no other node is pending.
const END = "END"

// StepFunc is the unit of work attached to a node. It receives a private
// snapshot of the current state and returns a partial update that the engine
// merges into the shared state. Returning a nil update is a no-op.
type StepFunc func(ctx context.Context, state State) (State, error)

// RouterFunc picks one label out of a declared label set based on the current
// state. Routers must be pure: observe the state, return a label, nothing
// else. The returned label must be present in the mapping registered with
// AddConditionalEdges; anything else fails the run.
type RouterFunc func(ctx context.Context, state State) string

// Node is a named unit of work in the graph.
type Node struct {
	// Name is the unique identifier for the node.
	Name string

	// Step is the function associated with the node.
	Step StepFunc
}

// Edge is an unconditional connection between two nodes. A node may have
// several outgoing edges; all their targets are scheduled (fan-out).
type Edge struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the name of the node to which the edge points, or END.
	To string
}

// conditional holds a router and its label table for one source node.
type conditional struct {
	router  RouterFunc
	targets map[string]string
	labels  []string // sorted, for deterministic listings
}

// Graph accumulates nodes and edges and compiles them into a Runnable.
// Construction mistakes (duplicate names, nil functions, mixed edge kinds)
// are collected and reported by Compile, never silently dropped.
type Graph struct {
	nodes        map[string]Node
	order        []string
	edges        []Edge
	conditionals map[string]*conditional
	entryPoint   string

	errs []error
}

// New creates an empty graph builder.
func New() *Graph {
	return &Graph{
		nodes:        make(map[string]Node),
		conditionals: make(map[string]*conditional),
	}
}

// AddNode registers a node with the given name and step function. A nil step
// declares a pass-through node: it produces no update and exists only for its
// edges, e.g. as a join point.
func (g *Graph) AddNode(name string, step StepFunc) {
	if name == "" {
		g.errs = append(g.errs, &ValidationError{Message: "node name cannot be empty", Err: ErrInvalidNode})
		return
	}
	if name == END {
		g.errs = append(g.errs, &ValidationError{Node: name, Message: "node name is reserved", Err: ErrInvalidNode})
		return
	}
	if _, exists := g.nodes[name]; exists {
		g.errs = append(g.errs, &ValidationError{Node: name, Message: "duplicate node name", Err: ErrDuplicateNode})
		return
	}
	g.nodes[name] = Node{Name: name, Step: step}
	g.order = append(g.order, name)
}

// AddEdge adds an unconditional edge between the "from" and "to" nodes.
func (g *Graph) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdges attaches a router to the "from" node together with the
// mapping from router labels to target nodes (or END). Exactly one target is
// taken per evaluation. A node cannot carry more than one router, and cannot
// mix a router with unconditional outgoing edges; Compile rejects both.
func (g *Graph) AddConditionalEdges(from string, router RouterFunc, targets map[string]string) {
	if router == nil {
		g.errs = append(g.errs, &ValidationError{Node: from, Message: "router function cannot be nil", Err: ErrInvalidEdge})
		return
	}
	if len(targets) == 0 {
		g.errs = append(g.errs, &ValidationError{Node: from, Message: "router has no label targets", Err: ErrInvalidEdge})
		return
	}
	if _, exists := g.conditionals[from]; exists {
		g.errs = append(g.errs, &ValidationError{Node: from, Message: "node already has a router", Err: ErrInvalidEdge})
		return
	}

	c := &conditional{
		router:  router,
		targets: make(map[string]string, len(targets)),
	}
	for label, target := range targets {
		if label == "" {
			g.errs = append(g.errs, &ValidationError{Node: from, Message: "router label cannot be empty", Err: ErrInvalidEdge})
			return
		}
		c.targets[label] = target
	}
	c.labels = sortedLabels(c.targets)
	g.conditionals[from] = c
}

// SetEntryPoint sets the entry point node name for the graph.
func (g *Graph) SetEntryPoint(name string) {
	g.entryPoint = name
}

func sortedLabels(targets map[string]string) []string {
	labels := make([]string, 0, len(targets))
	for label := range targets {
		labels = append(labels, label)
	}
	// map iteration order is random; keep label listings stable
	for i := 1; i < len(labels); i++ {
		for j := i; j > 0 && labels[j] < labels[j-1]; j-- {
			labels[j], labels[j-1] = labels[j-1], labels[j]
		}
	}
	return labels
}

func (g *Graph) String() string {
	return fmt.Sprintf("graph(nodes=%d, edges=%d, routers=%d, entry=%q)",
		len(g.nodes), len(g.edges), len(g.conditionals), g.entryPoint)
}
