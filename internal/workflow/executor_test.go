package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/synapseflow-ai/synapse/internal/events"
	"github.com/synapseflow-ai/synapse/internal/llm"
	"github.com/synapseflow-ai/synapse/internal/llm/providers"
	"github.com/synapseflow-ai/synapse/internal/retrieval"
	"github.com/synapseflow-ai/synapse/internal/websearch"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ragPipeline is the canonical four node workflow: trigger feeds a
// retrieval step whose documents ground an llm call, and the answer
// lands in the output variable.
func ragPipeline(t *testing.T) *Workflow {
	t.Helper()
	w, err := NewWorkflow("rag-pipeline").
		AddTriggerNode("start", map[string]any{"question": "what is pgvector"}).
		AddRAGNode("fetch", "{{question}}", 2).
		AddLLMNode("answer", "Answer {{question}} using the retrieved documents").
		AddOutputNode("done", "answer").
		AddEdge("start", "fetch").
		AddEdge("fetch", "answer").
		AddEdge("answer", "done").
		Build()
	require.NoError(t, err)
	return w
}

func seededStore(t *testing.T) *retrieval.MemoryStore {
	t.Helper()
	store := retrieval.NewMemoryStore(nil)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, retrieval.Document{ID: "d1", Content: "pgvector stores embeddings in Postgres"}))
	require.NoError(t, store.Add(ctx, retrieval.Document{ID: "d2", Content: "cosine distance ranks nearest neighbours"}))
	return store
}

func TestEngine_Execute_EndToEnd(t *testing.T) {
	mock := providers.NewMockProvider([]string{"pgvector is a Postgres extension for vector search."})
	store := seededStore(t)
	engine := NewEngine(
		WithLogger(quietLogger()),
		WithCompletionService(mock),
		WithRetriever(store),
	)

	result, err := engine.Execute(context.Background(), ragPipeline(t))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, WorkflowStatusCompleted, result.Status)
	assert.True(t, result.Succeeded())
	assert.Equal(t, 4, result.NodesExecuted)
	assert.Equal(t, 0, result.NodesFailed)
	assert.Equal(t, "pgvector is a Postgres extension for vector search.", result.Output["answer"])

	// The retriever saw exactly one query with the node's top_k.
	queries := store.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, "what is pgvector", queries[0].Query)
	assert.Equal(t, 2, queries[0].TopK)

	// The llm prompt saw the trigger payload interpolated.
	require.Equal(t, 1, mock.CallCount())
	assert.Equal(t, "Answer what is pgvector using the retrieved documents", mock.Calls()[0].Request.Prompt)

	// Every node has a result.
	for _, id := range []string{"start", "fetch", "answer", "done"} {
		r, ok := result.NodeResults[id]
		require.True(t, ok, "missing result for %s", id)
		assert.Equal(t, NodeStatusCompleted, r.Status)
	}
}

func TestEngine_Execute_ErrorIsolation(t *testing.T) {
	mock := providers.NewMockProvider(nil)
	mock.FailWith(errors.New("provider down"))

	// Two independent branches off the trigger. The llm branch fails,
	// the input branch still completes.
	w, err := NewWorkflow("isolation").
		AddTriggerNode("start", nil).
		AddLLMNode("flaky", "summarize").
		AddInputNode("steady", "note", "still here").
		AddOutputNode("out-a", "summary").
		AddOutputNode("out-b", "note_out").
		AddEdge("start", "flaky").
		AddEdge("start", "steady").
		AddEdge("flaky", "out-a").
		AddEdge("steady", "out-b").
		Build()
	require.NoError(t, err)

	engine := NewEngine(WithLogger(quietLogger()), WithCompletionService(mock))
	result, execErr := engine.Execute(context.Background(), w)

	// Node failures do not surface as a run error.
	require.NoError(t, execErr)
	assert.Equal(t, WorkflowStatusFailed, result.Status)
	assert.Equal(t, 1, result.NodesFailed)

	assert.Equal(t, NodeStatusFailed, result.NodeResults["flaky"].Status)
	assert.Equal(t, NodeStatusCompleted, result.NodeResults["steady"].Status)

	// The output downstream of the failure ran but saw nothing staged.
	outA := result.NodeResults["out-a"]
	assert.Equal(t, NodeStatusCompleted, outA.Status)
	assert.Nil(t, outA.Output)

	assert.Equal(t, "still here", result.Output["note_out"])
}

func TestEngine_Execute_WithInput(t *testing.T) {
	mock := providers.NewMockProvider([]string{"greetings, ada"})
	w, err := NewWorkflow("greeter").
		AddTriggerNode("start", nil).
		AddLLMNode("greet", "Say hello to {{name}}").
		AddOutputNode("done", "greeting").
		AddEdge("start", "greet").
		AddEdge("greet", "done").
		Build()
	require.NoError(t, err)

	engine := NewEngine(WithLogger(quietLogger()), WithCompletionService(mock))
	result, err := engine.Execute(context.Background(), w, WithInput(map[string]any{"name": "ada"}))
	require.NoError(t, err)

	assert.Equal(t, WorkflowStatusCompleted, result.Status)
	assert.Equal(t, "Say hello to ada", mock.Calls()[0].Request.Prompt)
}

func TestEngine_Execute_CrossRunIsolation(t *testing.T) {
	mock := providers.NewMockProvider([]string{"first", "second"})
	w, err := NewWorkflow("isolated-runs").
		AddTriggerNode("start", nil).
		AddLLMNode("ask", "Question: {{q}}").
		AddOutputNode("done", "answer").
		AddEdge("start", "ask").
		AddEdge("ask", "done").
		Build()
	require.NoError(t, err)

	engine := NewEngine(WithLogger(quietLogger()), WithCompletionService(mock))

	r1, err := engine.Execute(context.Background(), w, WithInput(map[string]any{"q": "one"}))
	require.NoError(t, err)
	r2, err := engine.Execute(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, "first", r1.Output["answer"])
	assert.Equal(t, "second", r2.Output["answer"])

	// The second run started from a fresh context; the first run's
	// input variable did not leak into it.
	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Question: one", calls[0].Request.Prompt)
	assert.Equal(t, "Question: {{q}}", calls[1].Request.Prompt)
}

func TestEngine_Execute_ValidationFailure(t *testing.T) {
	w := &Workflow{Name: "broken", Nodes: []*Node{
		{ID: "only", Type: NodeTypeInput},
	}}

	var started []string
	hooks := &Hooks{OnNodeStart: func(id string, _ NodeType) { started = append(started, id) }}

	engine := NewEngine(WithLogger(quietLogger()))
	result, err := engine.Execute(context.Background(), w, WithHooks(hooks))

	require.Error(t, err)
	var we *WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, WorkflowErrorMissingTrigger, we.Code)

	require.NotNil(t, result)
	assert.Equal(t, WorkflowStatusFailed, result.Status)
	assert.Equal(t, we, result.Error)
	assert.Empty(t, result.NodeResults)

	// No node ever started.
	assert.Empty(t, started)
}

func TestEngine_Execute_Cancellation(t *testing.T) {
	w := ragPipeline(t)
	engine := NewEngine(
		WithLogger(quietLogger()),
		WithCompletionService(providers.NewMockProvider([]string{"x"})),
		WithRetriever(seededStore(t)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Execute(ctx, w)
	require.Error(t, err)
	var we *WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, WorkflowErrorCancelled, we.Code)

	assert.Equal(t, WorkflowStatusCancelled, result.Status)
	assert.Equal(t, 0, result.NodesExecuted)
	assert.Equal(t, 4, result.NodesSkipped)
	for _, r := range result.NodeResults {
		assert.Equal(t, NodeStatusSkipped, r.Status)
	}
}

func TestEngine_Execute_PanicRecovery(t *testing.T) {
	engine := NewEngine(WithLogger(quietLogger()))
	engine.Evaluator().RegisterFunction("boom", func(args []any) (any, error) {
		panic("function exploded")
	})

	w, err := NewWorkflow("panicky").
		AddTriggerNode("start", nil).
		AddFunctionNode("calc", "boom(1)").
		AddOutputNode("done", "value").
		AddEdge("start", "calc").
		AddEdge("calc", "done").
		Build()
	require.NoError(t, err)

	var completed *WorkflowResult
	hooks := &Hooks{OnWorkflowComplete: func(r *WorkflowResult) { completed = r }}

	result, execErr := engine.Execute(context.Background(), w, WithHooks(hooks))
	require.NoError(t, execErr)
	require.NotNil(t, result)

	assert.Equal(t, WorkflowStatusFailed, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, WorkflowErrorInternal, result.Error.Code)
	assert.Contains(t, result.Error.Message, "function exploded")

	// The completion hook still fired.
	assert.Same(t, result, completed)
}

type slowCompletion struct {
	delay time.Duration
}

func (s *slowCompletion) Name() string { return "slow" }

func (s *slowCompletion) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
		return &llm.CompletionResponse{Text: "too late"}, nil
	}
}

func TestEngine_Execute_NodeTimeout(t *testing.T) {
	w, err := NewWorkflow("slow").
		AddTriggerNode("start", nil).
		AddLLMNode("stall", "take your time").
		AddOutputNode("done", "answer").
		AddEdge("start", "stall").
		AddEdge("stall", "done").
		Build()
	require.NoError(t, err)
	w.NodeByID("stall").Timeout = 20 * time.Millisecond

	engine := NewEngine(
		WithLogger(quietLogger()),
		WithCompletionService(&slowCompletion{delay: 5 * time.Second}),
	)

	result, execErr := engine.Execute(context.Background(), w)
	require.NoError(t, execErr)

	assert.Equal(t, WorkflowStatusFailed, result.Status)
	stall := result.NodeResults["stall"]
	require.NotNil(t, stall)
	assert.Equal(t, NodeStatusFailed, stall.Status)
	require.NotNil(t, stall.Error)
	assert.Equal(t, string(WorkflowErrorNodeTimeout), stall.Error.Code)
}

func TestEngine_Execute_RetryExhaustion(t *testing.T) {
	mock := providers.NewMockProvider(nil)
	mock.FailWith(errors.New("still down"))

	w, err := NewWorkflow("retrying").
		AddTriggerNode("start", nil).
		AddLLMNode("flaky", "try me").
		AddOutputNode("done", "answer").
		AddEdge("start", "flaky").
		AddEdge("flaky", "done").
		Build()
	require.NoError(t, err)
	w.NodeByID("flaky").RetryPolicy = &RetryPolicy{
		MaxRetries:      2,
		BackoffStrategy: BackoffConstant,
		InitialDelay:    time.Millisecond,
	}

	engine := NewEngine(WithLogger(quietLogger()), WithCompletionService(mock))
	result, execErr := engine.Execute(context.Background(), w)
	require.NoError(t, execErr)

	assert.Equal(t, 3, mock.CallCount())

	flaky := result.NodeResults["flaky"]
	assert.Equal(t, NodeStatusFailed, flaky.Status)
	require.NotNil(t, flaky.Error)
	assert.Equal(t, "MAX_RETRIES_EXCEEDED", flaky.Error.Code)
}

func TestEngine_Execute_RetrySucceedsEventually(t *testing.T) {
	// transientCompletion fails a fixed number of times before
	// succeeding, exercising the retry happy path.
	calls := 0
	transient := completionFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return &llm.CompletionResponse{Text: "recovered"}, nil
	})

	w, err := NewWorkflow("recovering").
		AddTriggerNode("start", nil).
		AddLLMNode("flaky", "try me").
		AddOutputNode("done", "answer").
		AddEdge("start", "flaky").
		AddEdge("flaky", "done").
		Build()
	require.NoError(t, err)
	w.NodeByID("flaky").RetryPolicy = &RetryPolicy{
		MaxRetries:      3,
		BackoffStrategy: BackoffConstant,
		InitialDelay:    time.Millisecond,
	}

	engine := NewEngine(WithLogger(quietLogger()), WithCompletionService(transient))
	result, execErr := engine.Execute(context.Background(), w)
	require.NoError(t, execErr)

	assert.Equal(t, WorkflowStatusCompleted, result.Status)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, result.NodeResults["flaky"].RetryCount)
	assert.Equal(t, "recovered", result.Output["answer"])
}

type completionFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

func (f completionFunc) Name() string { return "func" }

func (f completionFunc) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return f(ctx, req)
}

func TestEngine_Execute_Hooks(t *testing.T) {
	var (
		started   []string
		completed []string
		failures  []string
		logLines  []string
		final     *WorkflowResult
	)
	hooks := &Hooks{
		OnNodeStart:        func(id string, _ NodeType) { started = append(started, id) },
		OnNodeComplete:     func(id string, _ *NodeResult) { completed = append(completed, id) },
		OnNodeError:        func(id string, _ *NodeResult) { failures = append(failures, id) },
		OnLogUpdate:        func(line string) { logLines = append(logLines, line) },
		OnWorkflowComplete: func(r *WorkflowResult) { final = r },
	}

	engine := NewEngine(
		WithLogger(quietLogger()),
		WithCompletionService(providers.NewMockProvider([]string{"done"})),
		WithRetriever(seededStore(t)),
	)

	result, err := engine.Execute(context.Background(), ragPipeline(t), WithHooks(hooks))
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "fetch", "answer", "done"}, started)
	assert.Equal(t, []string{"start", "fetch", "answer", "done"}, completed)
	assert.Empty(t, failures)
	assert.NotEmpty(t, logLines)
	assert.Same(t, result, final)
}

func TestEngine_Execute_PublishesEvents(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()

	ch, unsubscribe := bus.Subscribe(context.Background(), events.Filter{
		Types: []events.EventType{
			events.EventRunStarted, events.EventRunCompleted, events.EventRunFailed,
			events.EventNodeStarted, events.EventNodeCompleted, events.EventNodeFailed,
		},
	}, 64)
	defer unsubscribe()

	engine := NewEngine(
		WithLogger(quietLogger()),
		WithEventBus(bus),
		WithCompletionService(providers.NewMockProvider([]string{"done"})),
		WithRetriever(seededStore(t)),
	)

	result, err := engine.Execute(context.Background(), ragPipeline(t))
	require.NoError(t, err)
	require.Equal(t, WorkflowStatusCompleted, result.Status)

	// Synchronous publish: everything is buffered by the time Execute
	// returns. Drain without blocking.
	var got []events.EventType
drain:
	for {
		select {
		case ev := <-ch:
			got = append(got, ev.Type)
		default:
			break drain
		}
	}

	require.NotEmpty(t, got)
	assert.Equal(t, events.EventRunStarted, got[0])
	assert.Equal(t, events.EventRunCompleted, got[len(got)-1])

	counts := make(map[events.EventType]int)
	for _, typ := range got {
		counts[typ]++
	}
	assert.Equal(t, 4, counts[events.EventNodeStarted])
	assert.Equal(t, 4, counts[events.EventNodeCompleted])
	assert.Equal(t, 0, counts[events.EventNodeFailed])
}

func TestEngine_Execute_PublishesRunLog(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()

	ch, unsubscribe := bus.Subscribe(context.Background(), events.Filter{
		Types: []events.EventType{events.EventRunLog},
	}, 64)
	defer unsubscribe()

	var hookLines []string
	engine := NewEngine(
		WithLogger(quietLogger()),
		WithEventBus(bus),
		WithCompletionService(providers.NewMockProvider([]string{"done"})),
		WithRetriever(seededStore(t)),
	)

	result, err := engine.Execute(context.Background(), ragPipeline(t),
		WithHooks(&Hooks{OnLogUpdate: func(line string) { hookLines = append(hookLines, line) }}),
	)
	require.NoError(t, err)
	require.Equal(t, WorkflowStatusCompleted, result.Status)

	var payloads []events.LogPayload
drain:
	for {
		select {
		case ev := <-ch:
			p, ok := ev.Payload.(events.LogPayload)
			require.True(t, ok)
			payloads = append(payloads, p)
		default:
			break drain
		}
	}

	// Every hook line is mirrored onto the bus, in the same order.
	require.Len(t, payloads, len(hookLines))
	for i, p := range payloads {
		assert.Equal(t, hookLines[i], p.Message)
	}

	assert.Contains(t, payloads[0].Message, "Starting workflow")
	assert.Contains(t, payloads[len(payloads)-1].Message, "Workflow finished")

	nodeIDs := make(map[string]bool)
	for _, p := range payloads {
		assert.NotEmpty(t, p.Level)
		if p.NodeID != "" {
			nodeIDs[p.NodeID] = true
		}
	}
	for _, id := range []string{"start", "fetch", "answer", "done"} {
		assert.True(t, nodeIDs[id], "no trace line for node %s", id)
	}
}

// recordingTracer captures span names while delegating to the noop
// implementation.
type recordingTracer struct {
	noop.Tracer
	mu    sync.Mutex
	spans []string
}

func (rt *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	rt.mu.Lock()
	rt.spans = append(rt.spans, name)
	rt.mu.Unlock()
	return rt.Tracer.Start(ctx, name, opts...)
}

func TestEngine_Execute_EmitsSpans(t *testing.T) {
	tracer := &recordingTracer{}
	engine := NewEngine(
		WithLogger(quietLogger()),
		WithTracer(tracer),
		WithCompletionService(providers.NewMockProvider([]string{"done"})),
		WithRetriever(seededStore(t)),
	)

	result, err := engine.Execute(context.Background(), ragPipeline(t))
	require.NoError(t, err)
	require.Equal(t, WorkflowStatusCompleted, result.Status)

	require.NotEmpty(t, tracer.spans)
	assert.Equal(t, "workflow.execute", tracer.spans[0])

	nodeSpans := 0
	for _, name := range tracer.spans[1:] {
		if name == "workflow.execute_node" {
			nodeSpans++
		}
	}
	assert.Equal(t, 4, nodeSpans)
}

func TestEngine_Execute_WebSearchPipeline(t *testing.T) {
	searcher := websearch.NewMockSearcher()
	mock := providers.NewMockProvider([]string{"summary of findings"})

	w, err := NewWorkflow("research").
		AddTriggerNode("start", map[string]any{"topic": "vector databases"}).
		AddWebSearchNode("search", "{{topic}} benchmarks", 3).
		AddLLMNode("summarize", "Summarize results about {{topic}}").
		AddOutputNode("done", "summary").
		AddEdge("start", "search").
		AddEdge("search", "summarize").
		AddEdge("summarize", "done").
		Build()
	require.NoError(t, err)

	engine := NewEngine(
		WithLogger(quietLogger()),
		WithCompletionService(mock),
		WithSearcher(searcher),
	)

	result, err := engine.Execute(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, WorkflowStatusCompleted, result.Status)
	assert.Equal(t, "summary of findings", result.Output["summary"])

	queries := searcher.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, "vector databases benchmarks", queries[0].Text)
}

func TestEngine_Execute_ConditionalBranch(t *testing.T) {
	w, err := NewWorkflow("gate").
		AddTriggerNode("start", map[string]any{"score": 0.9}).
		AddConditionalNode("check", &NodeCondition{Expression: "score > 0.5"}).
		AddOutputNode("done", "verdict").
		AddEdge("start", "check").
		AddEdge("check", "done").
		Build()
	require.NoError(t, err)

	engine := NewEngine(WithLogger(quietLogger()))
	result, err := engine.Execute(context.Background(), w)
	require.NoError(t, err)

	assert.Equal(t, WorkflowStatusCompleted, result.Status)
	verdict, ok := result.Output["verdict"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, verdict["result"])
}

func TestEngine_Schedule(t *testing.T) {
	engine := NewEngine(WithLogger(quietLogger()))

	order, err := engine.Schedule(ragPipeline(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "fetch", "answer", "done"}, order)

	_, err = engine.Schedule(&Workflow{Name: "empty"})
	require.Error(t, err)
}
