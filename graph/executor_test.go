package graph_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/textflow/graph"
)

func setStep(key string, value any) graph.StepFunc {
	return func(_ context.Context, _ graph.State) (graph.State, error) {
		return graph.State{key: value}, nil
	}
}

func TestInvokeLinear(t *testing.T) {
	t.Parallel()

	g := graph.New()
	g.AddNode("first", setStep("first", "done"))
	g.AddNode("second", func(_ context.Context, state graph.State) (graph.State, error) {
		// the second node sees the first node's output
		return graph.State{"second": state.GetString("first") + "+more"}, nil
	})
	g.AddEdge("first", "second")
	g.AddEdge("second", graph.END)
	g.SetEntryPoint("first")

	runnable, err := g.Compile()
	require.NoError(t, err)

	final, err := runnable.Invoke(context.Background(), graph.State{"input": "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", final.GetString("input"))
	assert.Equal(t, "done", final.GetString("first"))
	assert.Equal(t, "done+more", final.GetString("second"))
}

func TestInvokeDoesNotMutateInitialState(t *testing.T) {
	t.Parallel()

	g := graph.New()
	g.AddNode("write", setStep("extra", true))
	g.AddEdge("write", graph.END)
	g.SetEntryPoint("write")

	runnable, err := g.Compile()
	require.NoError(t, err)

	initial := graph.State{"input": "x"}
	final, err := runnable.Invoke(context.Background(), initial)
	require.NoError(t, err)

	assert.True(t, final.Has("extra"))
	assert.False(t, initial.Has("extra"))
}

func TestInvokePassThroughNode(t *testing.T) {
	t.Parallel()

	// a nil step declares a node that exists only for its edges
	g := graph.New()
	g.AddNode("seed", setStep("seed", true))
	g.AddNode("left", setStep("left", true))
	g.AddNode("right", setStep("right", true))
	g.AddNode("join", nil)
	g.AddNode("final", setStep("final", true))
	g.AddEdge("seed", "left")
	g.AddEdge("seed", "right")
	g.AddEdge("left", "join")
	g.AddEdge("right", "join")
	g.AddEdge("join", "final")
	g.AddEdge("final", graph.END)
	g.SetEntryPoint("seed")

	runnable, err := g.Compile()
	require.NoError(t, err)

	final, err := runnable.Invoke(context.Background(), graph.State{})
	require.NoError(t, err)
	assert.True(t, final.Has("left"))
	assert.True(t, final.Has("right"))
	assert.True(t, final.Has("final"))
}

func TestInvokeConditionalRouting(t *testing.T) {
	t.Parallel()

	build := func(t *testing.T) (*graph.Runnable, *[]string) {
		t.Helper()
		var ran []string
		var mu sync.Mutex
		record := func(name string) graph.StepFunc {
			return func(_ context.Context, _ graph.State) (graph.State, error) {
				mu.Lock()
				ran = append(ran, name)
				mu.Unlock()
				return nil, nil
			}
		}

		g := graph.New()
		g.AddNode("gate", record("gate"))
		g.AddNode("left", record("left"))
		g.AddNode("right", record("right"))
		g.AddConditionalEdges("gate", func(_ context.Context, state graph.State) string {
			return state.GetString("direction")
		}, map[string]string{
			"left":  "left",
			"right": "right",
		})
		g.AddEdge("left", graph.END)
		g.AddEdge("right", graph.END)
		g.SetEntryPoint("gate")

		runnable, err := g.Compile()
		require.NoError(t, err)
		return runnable, &ran
	}

	t.Run("exactly one branch runs", func(t *testing.T) {
		t.Parallel()
		runnable, ran := build(t)

		_, err := runnable.Invoke(context.Background(), graph.State{"direction": "left"})
		require.NoError(t, err)
		assert.Equal(t, []string{"gate", "left"}, *ran)
	})

	t.Run("unmapped label fails the run", func(t *testing.T) {
		t.Parallel()
		runnable, ran := build(t)

		final, err := runnable.Invoke(context.Background(), graph.State{"direction": "sideways"})
		require.Error(t, err)
		assert.Nil(t, final)
		assert.Equal(t, []string{"gate"}, *ran)

		var exErr *graph.ExecutionError
		require.True(t, errors.As(err, &exErr))
		assert.Equal(t, "gate", exErr.Node)
		assert.Equal(t, "sideways", exErr.Label)
		assert.ErrorIs(t, err, graph.ErrUnmappedLabel)
	})
}

func TestInvokeParallelFanOut(t *testing.T) {
	t.Parallel()

	// both branches read the same pre-batch snapshot
	g := graph.New()
	g.AddNode("seed", setStep("value", "seed"))
	g.AddNode("branch_a", func(_ context.Context, state graph.State) (graph.State, error) {
		return graph.State{"a_saw": state.GetString("value"), "shared": "a"}, nil
	})
	g.AddNode("branch_b", func(_ context.Context, state graph.State) (graph.State, error) {
		return graph.State{"b_saw": state.GetString("value"), "shared": "b"}, nil
	})
	g.AddNode("join", func(_ context.Context, state graph.State) (graph.State, error) {
		return graph.State{"joined": state.GetString("a_saw") + state.GetString("b_saw")}, nil
	})
	g.AddEdge("seed", "branch_a")
	g.AddEdge("seed", "branch_b")
	g.AddEdge("branch_a", "join")
	g.AddEdge("branch_b", "join")
	g.AddEdge("join", graph.END)
	g.SetEntryPoint("seed")

	runnable, err := g.Compile()
	require.NoError(t, err)

	// repeated runs stay deterministic despite goroutine scheduling
	for range 20 {
		final, err := runnable.Invoke(context.Background(), graph.State{})
		require.NoError(t, err)
		assert.Equal(t, "seed", final.GetString("a_saw"))
		assert.Equal(t, "seed", final.GetString("b_saw"))
		assert.Equal(t, "seedseed", final.GetString("joined"))
		// same-field collision resolves to the later registered node
		assert.Equal(t, "b", final.GetString("shared"))
	}
}

func TestInvokeConvergenceWaitsForSlowerBranch(t *testing.T) {
	t.Parallel()

	// one branch reaches the join in a single hop, the other in two
	var mu sync.Mutex
	var ran []string
	record := func(name string, update graph.State) graph.StepFunc {
		return func(_ context.Context, _ graph.State) (graph.State, error) {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return update, nil
		}
	}

	g := graph.New()
	g.AddNode("start", record("start", nil))
	g.AddNode("short", record("short", graph.State{"short": true}))
	g.AddNode("long1", record("long1", nil))
	g.AddNode("long2", record("long2", graph.State{"long": true}))
	g.AddNode("join", func(_ context.Context, state graph.State) (graph.State, error) {
		mu.Lock()
		ran = append(ran, "join")
		mu.Unlock()
		if !state.Has("short") || !state.Has("long") {
			return nil, errors.New("joined before both branches finished")
		}
		return nil, nil
	})
	g.AddEdge("start", "short")
	g.AddEdge("start", "long1")
	g.AddEdge("long1", "long2")
	g.AddEdge("short", "join")
	g.AddEdge("long2", "join")
	g.AddEdge("join", graph.END)
	g.SetEntryPoint("start")

	runnable, err := g.Compile()
	require.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), graph.State{})
	require.NoError(t, err)

	joins := 0
	for _, name := range ran {
		if name == "join" {
			joins++
		}
	}
	assert.Equal(t, 1, joins, "join must run exactly once")
	assert.Equal(t, "join", ran[len(ran)-1])
}

func TestInvokeConvergenceSkipsUntakenBranch(t *testing.T) {
	t.Parallel()

	// the join has a conditional predecessor that is never routed to; the
	// join must not wait for it
	g := graph.New()
	g.AddNode("gate", setStep("direction", "fast"))
	g.AddNode("fast", setStep("fast", true))
	g.AddNode("slow", setStep("slow", true))
	g.AddNode("join", setStep("joined", true))
	g.AddConditionalEdges("gate", func(_ context.Context, state graph.State) string {
		return state.GetString("direction")
	}, map[string]string{
		"fast": "fast",
		"slow": "slow",
	})
	g.AddEdge("fast", "join")
	g.AddEdge("slow", "join")
	g.AddEdge("join", graph.END)
	g.SetEntryPoint("gate")

	runnable, err := g.Compile()
	require.NoError(t, err)

	done := make(chan struct{})
	var final graph.State
	go func() {
		defer close(done)
		final, err = runnable.Invoke(context.Background(), graph.State{})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run deadlocked waiting for the untaken branch")
	}
	require.NoError(t, err)
	assert.True(t, final.Has("joined"))
	assert.False(t, final.Has("slow"))
}

func TestInvokeAtomicFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("model unavailable")

	g := graph.New()
	g.AddNode("seed", setStep("seed", true))
	g.AddNode("ok_branch", func(ctx context.Context, _ graph.State) (graph.State, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
			return graph.State{"ok": true}, nil
		}
	})
	g.AddNode("bad_branch", func(_ context.Context, _ graph.State) (graph.State, error) {
		return nil, cause
	})
	g.AddNode("join", setStep("joined", true))
	g.AddEdge("seed", "ok_branch")
	g.AddEdge("seed", "bad_branch")
	g.AddEdge("ok_branch", "join")
	g.AddEdge("bad_branch", "join")
	g.AddEdge("join", graph.END)
	g.SetEntryPoint("seed")

	runnable, err := g.Compile()
	require.NoError(t, err)

	start := time.Now()
	final, err := runnable.Invoke(context.Background(), graph.State{})
	require.Error(t, err)

	assert.Nil(t, final, "a failed run returns no state")
	assert.Less(t, time.Since(start), time.Second, "the failure should cancel the sibling")

	var exErr *graph.ExecutionError
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, "bad_branch", exErr.Node)
	assert.ErrorIs(t, err, cause)
}

func TestInvokeStepPanicBecomesError(t *testing.T) {
	t.Parallel()

	g := graph.New()
	g.AddNode("boom", func(_ context.Context, _ graph.State) (graph.State, error) {
		panic("bad slice index")
	})
	g.AddEdge("boom", graph.END)
	g.SetEntryPoint("boom")

	runnable, err := g.Compile()
	require.NoError(t, err)

	final, err := runnable.Invoke(context.Background(), graph.State{})
	require.Error(t, err)
	assert.Nil(t, final)

	var exErr *graph.ExecutionError
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, "boom", exErr.Node)
	assert.Contains(t, exErr.Error(), "panicked")
}

func TestInvokeStepTimeout(t *testing.T) {
	t.Parallel()

	g := graph.New()
	g.AddNode("slow", func(ctx context.Context, _ graph.State) (graph.State, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return nil, nil
		}
	})
	g.AddEdge("slow", graph.END)
	g.SetEntryPoint("slow")

	runnable, err := g.Compile()
	require.NoError(t, err)

	start := time.Now()
	_, err = runnable.Invoke(context.Background(), graph.State{},
		graph.WithStepTimeout(50*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestInvokeNoTimeoutByDefault(t *testing.T) {
	t.Parallel()

	g := graph.New()
	g.AddNode("slowish", func(_ context.Context, _ graph.State) (graph.State, error) {
		time.Sleep(100 * time.Millisecond)
		return graph.State{"done": true}, nil
	})
	g.AddEdge("slowish", graph.END)
	g.SetEntryPoint("slowish")

	runnable, err := g.Compile()
	require.NoError(t, err)

	final, err := runnable.Invoke(context.Background(), graph.State{})
	require.NoError(t, err)
	assert.True(t, final.Has("done"))
}

func TestInvokeCancelledContext(t *testing.T) {
	t.Parallel()

	g := graph.New()
	g.AddNode("a", setStep("a", true))
	g.AddEdge("a", graph.END)
	g.SetEntryPoint("a")

	runnable, err := g.Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	final, err := runnable.Invoke(ctx, graph.State{})
	require.Error(t, err)
	assert.Nil(t, final)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvokeListener(t *testing.T) {
	t.Parallel()

	g := graph.New()
	g.AddNode("first", setStep("first", true))
	g.AddNode("second", setStep("second", true))
	g.AddEdge("first", "second")
	g.AddEdge("second", graph.END)
	g.SetEntryPoint("first")

	runnable, err := g.Compile()
	require.NoError(t, err)

	listener := &graph.RecordingListener{}
	_, err = runnable.Invoke(context.Background(), graph.State{},
		graph.WithListener(listener))
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, listener.NodesRan())

	records := listener.Records()
	require.NotEmpty(t, records)
	assert.Equal(t, graph.StepEventRunStart, records[0].Event)
	assert.Equal(t, graph.StepEventRunEnd, records[len(records)-1].Event)

	merges := 0
	for _, r := range records {
		if r.Event == graph.StepEventBatchMerged {
			merges++
		}
	}
	assert.Equal(t, 2, merges)
}

func TestInvokeTracer(t *testing.T) {
	t.Parallel()

	g := graph.New()
	g.AddNode("gate", setStep("direction", "out"))
	g.AddConditionalEdges("gate", func(_ context.Context, state graph.State) string {
		return state.GetString("direction")
	}, map[string]string{"out": graph.END})
	g.SetEntryPoint("gate")

	runnable, err := g.Compile()
	require.NoError(t, err)

	tracer := graph.NewTracer()
	_, err = runnable.Invoke(context.Background(), graph.State{},
		graph.WithTracer(tracer))
	require.NoError(t, err)

	var sawRun, sawNode, sawEdge bool
	for _, span := range tracer.Spans() {
		switch span.Event {
		case graph.TraceEventRunEnd:
			sawRun = true
		case graph.TraceEventNodeEnd:
			sawNode = span.NodeName == "gate"
		case graph.TraceEventEdgeTraversal:
			sawEdge = span.FromNode == "gate" && span.ToNode == graph.END && span.Label == "out"
		}
	}
	assert.True(t, sawRun)
	assert.True(t, sawNode)
	assert.True(t, sawEdge)
}

func TestRunnableConcurrentInvokes(t *testing.T) {
	t.Parallel()

	g := graph.New()
	g.AddNode("echo", func(_ context.Context, state graph.State) (graph.State, error) {
		return graph.State{"echo": state.GetString("input")}, nil
	})
	g.AddEdge("echo", graph.END)
	g.SetEntryPoint("echo")

	runnable, err := g.Compile()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, input := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(input string) {
			defer wg.Done()
			final, err := runnable.Invoke(context.Background(), graph.State{"input": input})
			assert.NoError(t, err)
			assert.Equal(t, input, final.GetString("echo"))
		}(input)
	}
	wg.Wait()
}
