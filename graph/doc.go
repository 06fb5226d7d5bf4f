// Package graph implements a compiled state-graph workflow engine.
//
// A workflow is declared as named nodes connected by unconditional edges and
// per-node routers, then frozen with Compile, which validates the whole
// definition: every reference must resolve, a node routes either
// conditionally or unconditionally but not both, END must be reachable, and
// the edge structure must be acyclic.
//
// Invoke runs the compiled graph synchronously. Nodes that become ready
// together form a batch and run in parallel against clones of the same
// snapshot; their partial updates merge in registration order before routing
// decides the next batch. A run either returns the final state or an
// ExecutionError naming the node that failed, never both.
//
//	g := graph.New()
//	g.AddNode("classify", classifyStep)
//	g.AddNode("summarize", summarizeStep)
//	g.AddEdge("classify", "summarize")
//	g.AddEdge("summarize", graph.END)
//	g.SetEntryPoint("classify")
//
//	runnable, err := g.Compile()
//	if err != nil {
//		return err
//	}
//	final, err := runnable.Invoke(ctx, graph.State{"text": input})
package graph
