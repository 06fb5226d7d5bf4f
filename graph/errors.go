package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrUnknownNode is returned when an edge, router label or entry point
	// references a node that was never declared.
	ErrUnknownNode = errors.New("unknown node")

	// ErrDuplicateNode is returned when two nodes share a name.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrInvalidNode is returned for an empty, reserved or function-less node.
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidEdge is returned for a malformed edge or router registration.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrMixedEdges is returned when a node has both unconditional outgoing
	// edges and a router. Routing would be ambiguous, so compilation rejects it.
	ErrMixedEdges = errors.New("node mixes conditional and unconditional edges")

	// ErrNoOutgoingEdge is returned when a reachable node has nowhere to go.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrUnreachableEnd is returned when no path from the entry point can
	// reach END. Such a graph could never terminate.
	ErrUnreachableEnd = errors.New("END is not reachable from the entry point")

	// ErrCycle is returned when the edge structure contains a cycle. The
	// engine only runs acyclic graphs, so cycles are rejected at compile time
	// rather than detected mid-run.
	ErrCycle = errors.New("graph contains a cycle")

	// ErrUnmappedLabel is the cause of an ExecutionError raised when a router
	// returns a label absent from its declared mapping.
	ErrUnmappedLabel = errors.New("router returned unmapped label")
)

// ValidationError is returned by Compile when the graph definition is
// invalid. It names the offending node or edge; Compile never returns a
// partially valid graph alongside one.
type ValidationError struct {
	// Node is the offending node name, when one can be named.
	Node string

	// Edge is the offending edge, when the problem is edge-shaped.
	Edge *Edge

	// Message describes what is wrong.
	Message string

	// Err is the sentinel category of the failure.
	Err error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Edge != nil:
		return fmt.Sprintf("invalid graph: edge %s -> %s: %s", e.Edge.From, e.Edge.To, e.Message)
	case e.Node != "":
		return fmt.Sprintf("invalid graph: node %s: %s", e.Node, e.Message)
	default:
		return "invalid graph: " + e.Message
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ExecutionError is returned by Invoke when a run fails: a step returned an
// error, a router returned an unmapped label, or the run was cancelled. The
// failing node is named and the original cause is retained; no partial state
// accompanies it.
type ExecutionError struct {
	// Node is the name of the node whose step or router failed.
	Node string

	// Label is the offending router label, when the failure is a routing one.
	Label string

	// Err is the underlying cause.
	Err error
}

func (e *ExecutionError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("error in node %s: label %q: %v", e.Node, e.Label, e.Err)
	}
	return fmt.Sprintf("error in node %s: %v", e.Node, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
