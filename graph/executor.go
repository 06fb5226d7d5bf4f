package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smallnest/textflow/log"
)

// Config controls a single run. The zero value runs with no timeout, no
// listener and no tracer.
type Config struct {
	// StepTimeout bounds each node's step function. Zero means no limit.
	StepTimeout time.Duration

	// Listener receives run, node and batch events.
	Listener StepListener

	// Tracer collects spans for the run.
	Tracer *Tracer

	// Logger overrides the package-level logger for this run.
	Logger log.Logger

	// RunID identifies the run in logs and traces. Generated when empty.
	RunID string
}

// Option customizes a run's Config.
type Option func(*Config)

// WithStepTimeout bounds every step function to d.
func WithStepTimeout(d time.Duration) Option {
	return func(c *Config) { c.StepTimeout = d }
}

// WithListener attaches a StepListener to the run.
func WithListener(l StepListener) Option {
	return func(c *Config) { c.Listener = l }
}

// WithTracer attaches a Tracer to the run.
func WithTracer(t *Tracer) Option {
	return func(c *Config) { c.Tracer = t }
}

// WithLogger routes the run's log output through l.
func WithLogger(l log.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithRunID sets the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(c *Config) { c.RunID = id }
}

// Invoke runs the graph to completion and returns the final state.
//
// Execution proceeds in batches. Every node in a batch receives its own clone
// of the same pre-batch state and runs on its own goroutine; after all of
// them finish, their updates merge into the shared state in node registration
// order, and only then do routers evaluate against the merged state to decide
// the next batch. A successor fed by several branches runs once, after all of
// its still-pending predecessors have finished.
//
// Any step error, panic, timeout or unmapped router label aborts the run: the
// remaining nodes of the batch are cancelled through their context and an
// ExecutionError naming the failing node is returned with a nil state. The
// input state is never mutated.
func (r *Runnable) Invoke(ctx context.Context, initial State, opts ...Option) (State, error) {
	cfg := Config{Logger: log.GetDefaultLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	state := initial.Clone()

	var runSpan *TraceSpan
	if cfg.Tracer != nil {
		runSpan = cfg.Tracer.StartSpan(ctx, TraceEventRunStart, "")
		ctx = ContextWithSpan(ctx, runSpan)
	}
	notify(ctx, cfg, StepEventRunStart, "", state, nil)
	cfg.Logger.Debug("run %s: start at %s", cfg.RunID, r.entryPoint)

	final, err := r.run(ctx, cfg, state)

	if cfg.Tracer != nil {
		cfg.Tracer.EndSpan(ctx, runSpan, final, err)
	}
	notify(ctx, cfg, StepEventRunEnd, "", final, err)
	if err != nil {
		cfg.Logger.Error("run %s: failed: %v", cfg.RunID, err)
		return nil, err
	}
	cfg.Logger.Debug("run %s: complete", cfg.RunID)
	return final, nil
}

func (r *Runnable) run(ctx context.Context, cfg Config, state State) (State, error) {
	visited := make(map[string]bool, len(r.order))

	// fired marks nodes with at least one traversed incoming edge. A node
	// stays in fired until it runs.
	fired := make(map[string]bool, len(r.order))

	frontier := []string{r.entryPoint}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, &ExecutionError{Node: frontier[0], Err: err}
		}
		cfg.Logger.Debug("run %s: batch [%s]", cfg.RunID, strings.Join(frontier, ", "))

		updates, err := r.runBatch(ctx, cfg, frontier, state)
		if err != nil {
			return nil, err
		}
		state = mergeBatch(state, updates)
		notify(ctx, cfg, StepEventBatchMerged, "", state, nil)

		for _, name := range frontier {
			visited[name] = true
			delete(fired, name)
		}

		// Traverse outgoing edges of the finished batch. Routers see the
		// merged state and are consulted exactly once per node.
		for _, name := range frontier {
			if c, ok := r.conditionals[name]; ok {
				label := c.router(ctx, state)
				target, mapped := c.targets[label]
				if !mapped {
					return nil, &ExecutionError{Node: name, Label: label, Err: ErrUnmappedLabel}
				}
				traceEdge(ctx, cfg, name, target, label)
				if target != END {
					fired[target] = true
				}
				continue
			}
			for _, to := range r.successors[name] {
				traceEdge(ctx, cfg, name, to, "")
				if to != END {
					fired[to] = true
				}
			}
		}

		frontier = r.nextBatch(fired, visited)
	}

	return state, nil
}

// nextBatch selects, in registration order, every fired node none of whose
// predecessors may still run. A predecessor may still run when it is fired
// itself or remains reachable from a fired node through unvisited nodes, so
// a convergence point waits for the slower branch instead of running early
// with half of its inputs.
func (r *Runnable) nextBatch(fired, visited map[string]bool) []string {
	pending := make(map[string]bool, len(fired))
	queue := make([]string, 0, len(fired))
	for name := range fired {
		pending[name] = true
		queue = append(queue, name)
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, to := range r.successors[name] {
			if to == END || visited[to] || pending[to] {
				continue
			}
			pending[to] = true
			queue = append(queue, to)
		}
	}

	var batch []string
	for _, name := range r.order {
		if !fired[name] {
			continue
		}
		ready := true
		for _, pred := range r.predecessors[name] {
			if pending[pred] {
				ready = false
				break
			}
		}
		if ready {
			batch = append(batch, name)
		}
	}
	return batch
}

// runBatch executes every node of the batch in parallel against clones of the
// same snapshot. The first failure cancels the rest of the batch; updates are
// returned in batch order.
func (r *Runnable) runBatch(ctx context.Context, cfg Config, batch []string, snapshot State) ([]State, error) {
	for _, name := range batch {
		notify(ctx, cfg, StepEventNodeStart, name, snapshot, nil)
	}

	bctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make([]State, len(batch))
	failures := make([]error, len(batch))

	var wg sync.WaitGroup
	for i, name := range batch {
		if r.nodes[name].Step == nil {
			continue
		}
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					failures[i] = &ExecutionError{Node: name, Err: fmt.Errorf("step panicked: %v", rec)}
					cancel()
				}
			}()

			sctx := bctx
			if cfg.StepTimeout > 0 {
				var cancelStep context.CancelFunc
				sctx, cancelStep = context.WithTimeout(bctx, cfg.StepTimeout)
				defer cancelStep()
			}

			var span *TraceSpan
			if cfg.Tracer != nil {
				span = cfg.Tracer.StartSpan(sctx, TraceEventNodeStart, name)
				sctx = ContextWithSpan(sctx, span)
			}

			update, err := r.nodes[name].Step(sctx, snapshot.Clone())

			if cfg.Tracer != nil {
				cfg.Tracer.EndSpan(sctx, span, update, err)
			}
			if err != nil {
				failures[i] = &ExecutionError{Node: name, Err: err}
				cancel()
				return
			}
			updates[i] = update
		}(i, name)
	}
	wg.Wait()

	// Report the originating failure, not a sibling that merely observed the
	// batch cancellation.
	var first error
	for _, err := range failures {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		if !errors.Is(err, context.Canceled) {
			first = err
			break
		}
	}
	if first != nil {
		for i, err := range failures {
			if err != nil {
				notify(ctx, cfg, StepEventNodeError, batch[i], snapshot, err)
			}
		}
		return nil, first
	}

	for i, name := range batch {
		notify(ctx, cfg, StepEventNodeComplete, name, updates[i], nil)
	}
	return updates, nil
}

func notify(ctx context.Context, cfg Config, event StepEvent, nodeName string, state State, err error) {
	if cfg.Listener == nil {
		return
	}
	cfg.Listener.OnStepEvent(ctx, event, nodeName, state, err)
}

func traceEdge(ctx context.Context, cfg Config, from, to, label string) {
	if cfg.Tracer == nil {
		return
	}
	cfg.Tracer.TraceEdgeTraversal(ctx, from, to, label)
}
