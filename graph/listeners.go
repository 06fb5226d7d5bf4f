package graph

import (
	"context"
	"time"
)

// StepEvent represents different types of events observed during a run
type StepEvent string

const (
	// StepEventRunStart indicates the run has started
	StepEventRunStart StepEvent = "run_start"

	// StepEventRunEnd indicates the run has completed
	StepEventRunEnd StepEvent = "run_end"

	// StepEventNodeStart indicates a node has started execution
	StepEventNodeStart StepEvent = "node_start"

	// StepEventNodeComplete indicates a node has completed successfully
	StepEventNodeComplete StepEvent = "node_complete"

	// StepEventNodeError indicates a node returned an error
	StepEventNodeError StepEvent = "node_error"

	// StepEventBatchMerged indicates a batch of nodes finished and their
	// updates were merged into the shared state
	StepEventBatchMerged StepEvent = "batch_merged"
)

// StepListener observes a run without influencing it. Node events carry the
// node's name and the state the node saw (start) or produced (complete);
// BatchMerged events carry the merged state after the barrier. Listeners run
// on the engine's goroutine between batches, so they must return promptly.
type StepListener interface {
	OnStepEvent(ctx context.Context, event StepEvent, nodeName string, state State, err error)
}

// StepListenerFunc is a function adapter for StepListener
type StepListenerFunc func(ctx context.Context, event StepEvent, nodeName string, state State, err error)

// OnStepEvent implements the StepListener interface
func (f StepListenerFunc) OnStepEvent(ctx context.Context, event StepEvent, nodeName string, state State, err error) {
	f(ctx, event, nodeName, state, err)
}

// StepRecord is one observed event, as collected by RecordingListener.
type StepRecord struct {
	// Timestamp when the event occurred
	Timestamp time.Time

	// Event is the type of event
	Event StepEvent

	// NodeName is the node the event concerns, empty for run-level events
	NodeName string

	// State is the state snapshot attached to the event
	State State

	// Error is set for node_error events
	Error error
}

// RecordingListener accumulates every event of a single run in order. It is
// meant for tests and debugging and is not safe for use across concurrent
// runs; give each run its own instance.
type RecordingListener struct {
	records []StepRecord
}

// OnStepEvent implements the StepListener interface
func (l *RecordingListener) OnStepEvent(_ context.Context, event StepEvent, nodeName string, state State, err error) {
	l.records = append(l.records, StepRecord{
		Timestamp: time.Now(),
		Event:     event,
		NodeName:  nodeName,
		State:     state,
		Error:     err,
	})
}

// Records returns the collected events in arrival order.
func (l *RecordingListener) Records() []StepRecord {
	return l.records
}

// NodesRan returns the names of nodes that completed, in completion order.
func (l *RecordingListener) NodesRan() []string {
	var names []string
	for _, r := range l.records {
		if r.Event == StepEventNodeComplete {
			names = append(names, r.NodeName)
		}
	}
	return names
}
