package graph

import (
	"fmt"
	"strings"
)

// Exporter renders a graph definition in diagram formats. It works on the
// builder, so even graphs that would fail Compile can be drawn while
// debugging their structure.
type Exporter struct {
	graph *Graph
}

// NewExporter creates a new graph exporter for the given graph
func NewExporter(graph *Graph) *Exporter {
	return &Exporter{graph: graph}
}

// MermaidOptions defines configuration for Mermaid diagram generation
type MermaidOptions struct {
	// Direction of the flowchart (e.g., "TD", "LR")
	Direction string
}

// DrawMermaid generates a Mermaid diagram representation of the graph.
// Unconditional edges are solid, router edges are dashed and carry their
// label. Nodes appear in registration order.
func (ge *Exporter) DrawMermaid() string {
	return ge.DrawMermaidWithOptions(MermaidOptions{Direction: "TD"})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options
func (ge *Exporter) DrawMermaidWithOptions(opts MermaidOptions) string {
	var sb strings.Builder

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	fmt.Fprintf(&sb, "flowchart %s\n", direction)

	if entry := ge.graph.entryPoint; entry != "" {
		sb.WriteString("    START([\"START\"])\n")
		sb.WriteString("    style START fill:#90EE90\n")
		fmt.Fprintf(&sb, "    START --> %s\n", entry)
	}

	for _, name := range ge.graph.order {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", name, name)
	}
	if ge.referencesEnd() {
		sb.WriteString("    END([\"END\"])\n")
		sb.WriteString("    style END fill:#FFB6C1\n")
	}

	for _, edge := range ge.graph.edges {
		fmt.Fprintf(&sb, "    %s --> %s\n", edge.From, edge.To)
	}
	for _, from := range ge.graph.order {
		c, ok := ge.graph.conditionals[from]
		if !ok {
			continue
		}
		for _, label := range c.labels {
			fmt.Fprintf(&sb, "    %s -. %s .-> %s\n", from, label, c.targets[label])
		}
	}

	if entry := ge.graph.entryPoint; entry != "" {
		fmt.Fprintf(&sb, "    style %s fill:#87CEEB\n", entry)
	}

	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the graph
func (ge *Exporter) DrawDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TD;\n")
	sb.WriteString("    node [shape=box];\n")

	if entry := ge.graph.entryPoint; entry != "" {
		sb.WriteString("    START [label=\"START\", shape=ellipse, style=filled, fillcolor=lightgreen];\n")
		fmt.Fprintf(&sb, "    START -> %s;\n", entry)
		fmt.Fprintf(&sb, "    %s [style=filled, fillcolor=lightblue];\n", entry)
	}
	if ge.referencesEnd() {
		sb.WriteString("    END [label=\"END\", shape=ellipse, style=filled, fillcolor=lightpink];\n")
	}

	for _, edge := range ge.graph.edges {
		fmt.Fprintf(&sb, "    %s -> %s;\n", edge.From, edge.To)
	}
	for _, from := range ge.graph.order {
		c, ok := ge.graph.conditionals[from]
		if !ok {
			continue
		}
		for _, label := range c.labels {
			fmt.Fprintf(&sb, "    %s -> %s [style=dashed, label=\"%s\"];\n", from, c.targets[label], label)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func (ge *Exporter) referencesEnd() bool {
	for _, edge := range ge.graph.edges {
		if edge.To == END {
			return true
		}
	}
	for _, c := range ge.graph.conditionals {
		for _, target := range c.targets {
			if target == END {
				return true
			}
		}
	}
	return false
}
