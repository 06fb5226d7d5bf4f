package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Runnable is the executable form of a graph. It is immutable and safe for
// concurrent use; each Invoke builds its own execution frame.
type Runnable struct {
	nodes        map[string]Node
	order        []string
	successors   map[string][]string
	conditionals map[string]*conditional

	// predecessors holds, per node, every node that can reach it in one hop
	// through an unconditional edge or a router label. Used by the engine's
	// convergence join.
	predecessors map[string][]string

	entryPoint string
}

// Compile validates the graph and freezes it into a Runnable. All accumulated
// construction errors and every structural defect found here are reported
// together; a graph that fails any check yields no Runnable at all.
func (g *Graph) Compile() (*Runnable, error) {
	errs := make([]error, len(g.errs))
	copy(errs, g.errs)

	if g.entryPoint == "" {
		errs = append(errs, &ValidationError{Message: "entry point not set", Err: ErrEntryPointNotSet})
	} else if _, ok := g.nodes[g.entryPoint]; !ok {
		errs = append(errs, &ValidationError{Node: g.entryPoint, Message: "entry point is not a declared node", Err: ErrUnknownNode})
	}

	for i := range g.edges {
		e := &g.edges[i]
		if _, ok := g.nodes[e.From]; !ok {
			errs = append(errs, &ValidationError{Edge: e, Message: "source node not declared", Err: ErrUnknownNode})
		}
		if e.To != END {
			if _, ok := g.nodes[e.To]; !ok {
				errs = append(errs, &ValidationError{Edge: e, Message: "target node not declared", Err: ErrUnknownNode})
			}
		}
	}

	for _, from := range g.order {
		c, ok := g.conditionals[from]
		if !ok {
			continue
		}
		for _, label := range c.labels {
			target := c.targets[label]
			if target == END {
				continue
			}
			if _, declared := g.nodes[target]; !declared {
				errs = append(errs, &ValidationError{
					Node:    from,
					Message: fmt.Sprintf("router label %q targets undeclared node %q", label, target),
					Err:     ErrUnknownNode,
				})
			}
		}
	}
	for from := range g.conditionals {
		if _, ok := g.nodes[from]; !ok {
			errs = append(errs, &ValidationError{Node: from, Message: "router source node not declared", Err: ErrUnknownNode})
		}
	}

	// A node that both fans out unconditionally and routes conditionally has
	// no single routing rule. Reject rather than guess.
	for _, e := range g.edges {
		if _, ok := g.conditionals[e.From]; ok {
			errs = append(errs, &ValidationError{
				Node:    e.From,
				Message: "node has both a router and unconditional outgoing edges",
				Err:     ErrMixedEdges,
			})
			break
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	successors := make(map[string][]string, len(g.nodes))
	predecessors := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		successors[e.From] = append(successors[e.From], e.To)
		if e.To != END {
			predecessors[e.To] = append(predecessors[e.To], e.From)
		}
	}
	for _, from := range g.order {
		c, ok := g.conditionals[from]
		if !ok {
			continue
		}
		for _, label := range c.labels {
			target := c.targets[label]
			successors[from] = append(successors[from], target)
			if target != END {
				predecessors[target] = append(predecessors[target], from)
			}
		}
	}

	// Structural checks run on the union of both edge kinds.
	reachable := reachableFrom(g.entryPoint, successors)
	endSeen := false
	for _, name := range g.order {
		if !reachable[name] {
			continue
		}
		outs := successors[name]
		if len(outs) == 0 {
			return nil, &ValidationError{Node: name, Message: "reachable node has no outgoing edge", Err: ErrNoOutgoingEdge}
		}
		for _, to := range outs {
			if to == END {
				endSeen = true
			}
		}
	}
	if !endSeen {
		return nil, &ValidationError{Node: g.entryPoint, Message: "no path from the entry point reaches END", Err: ErrUnreachableEnd}
	}

	if cycle := findCycle(g.order, successors); cycle != nil {
		return nil, &ValidationError{
			Node:    cycle[0],
			Message: "cycle: " + strings.Join(cycle, " -> "),
			Err:     ErrCycle,
		}
	}

	return &Runnable{
		nodes:        g.nodes,
		order:        g.order,
		successors:   successors,
		conditionals: g.conditionals,
		predecessors: predecessors,
		entryPoint:   g.entryPoint,
	}, nil
}

func reachableFrom(start string, successors map[string][]string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, to := range successors[name] {
			if to == END || seen[to] {
				continue
			}
			seen[to] = true
			queue = append(queue, to)
		}
	}
	return seen
}

// findCycle runs a colored depth-first search over the union edge set and
// returns one cycle as a node path (first node repeated at the end), or nil.
func findCycle(order []string, successors map[string][]string) []string {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(order))
	var path []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		color[name] = gray
		path = append(path, name)
		for _, to := range successors[name] {
			if to == END {
				continue
			}
			switch color[to] {
			case gray:
				for i, on := range path {
					if on == to {
						cycle = append(append([]string{}, path[i:]...), to)
						return true
					}
				}
			case white:
				if visit(to) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		return false
	}

	for _, name := range order {
		if color[name] == white && visit(name) {
			return cycle
		}
	}
	return nil
}
