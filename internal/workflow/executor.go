package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/synapseflow-ai/synapse/internal/events"
	"github.com/synapseflow-ai/synapse/internal/llm"
	"github.com/synapseflow-ai/synapse/internal/retrieval"
	"github.com/synapseflow-ai/synapse/internal/types"
	"github.com/synapseflow-ai/synapse/internal/websearch"
)

// Engine orchestrates workflow runs. It validates the graph, computes
// the execution order, and drives nodes through the dispatcher with
// per-node error isolation: a failing node is recorded and the run
// continues with the remaining nodes.
//
// An Engine is safe for concurrent use; every run owns its own context,
// result map, and log trace.
type Engine struct {
	logger             *slog.Logger
	tracer             trace.Tracer
	bus                events.EventBus
	completion         llm.CompletionService
	retriever          retrieval.Retriever
	searcher           websearch.Searcher
	defaultNodeTimeout time.Duration

	validator  *GraphValidator
	scheduler  *Scheduler
	dispatcher *Dispatcher
}

// EngineOption is a functional option for configuring an Engine.
type EngineOption func(*Engine)

// WithLogger configures the engine's structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer configures an OpenTelemetry tracer. Each run becomes a
// span with one child span per node.
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithEventBus configures the bus run and node lifecycle events are
// published to.
func WithEventBus(bus events.EventBus) EngineOption {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithCompletionService configures the collaborator backing llm nodes.
func WithCompletionService(svc llm.CompletionService) EngineOption {
	return func(e *Engine) {
		e.completion = svc
	}
}

// WithRetriever configures the collaborator backing rag nodes.
func WithRetriever(r retrieval.Retriever) EngineOption {
	return func(e *Engine) {
		e.retriever = r
	}
}

// WithSearcher configures the collaborator backing websearch nodes.
func WithSearcher(s websearch.Searcher) EngineOption {
	return func(e *Engine) {
		e.searcher = s
	}
}

// WithDefaultNodeTimeout bounds every node that does not declare its
// own timeout. Zero means unbounded.
func WithDefaultNodeTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.defaultNodeTimeout = d
		}
	}
}

// NewEngine creates an Engine with the given options. Defaults: the
// process logger, no tracer, no event bus, no collaborators, unbounded
// nodes.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:    slog.Default(),
		validator: NewGraphValidator(),
		scheduler: NewScheduler(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.dispatcher = NewDispatcher(e.completion, e.retriever, e.searcher)
	return e
}

// Evaluator exposes the expression evaluator so callers can register
// custom functions before running workflows.
func (e *Engine) Evaluator() *ExpressionEvaluator {
	return e.dispatcher.Evaluator()
}

// Validate runs structural validation only, without executing anything.
func (e *Engine) Validate(w *Workflow) error {
	return e.validator.Validate(w)
}

// Schedule returns the execution order the engine would use, without
// executing anything.
func (e *Engine) Schedule(w *Workflow) ([]string, error) {
	if err := e.validator.Validate(w); err != nil {
		return nil, err
	}
	return e.scheduler.Schedule(w)
}

// RunOption configures a single run.
type RunOption func(*runConfig)

type runConfig struct {
	hooks *Hooks
	input map[string]any
}

// WithHooks attaches lifecycle callbacks to the run.
func WithHooks(h *Hooks) RunOption {
	return func(rc *runConfig) {
		rc.hooks = h
	}
}

// WithInput binds the given keys as context variables before the first
// node executes. Trigger payload keys override colliding input keys
// when the trigger runs.
func WithInput(input map[string]any) RunOption {
	return func(rc *runConfig) {
		rc.input = input
	}
}

// Execute drives exactly one run of the workflow. It never panics: a
// panic anywhere inside the run is recovered and reported as a failed
// result. The returned error is non-nil only for run-level failures
// (validation, scheduling, cancellation); individual node failures are
// recorded in the result and leave the error nil.
func (e *Engine) Execute(ctx context.Context, w *Workflow, opts ...RunOption) (result *WorkflowResult, err error) {
	cfg := &runConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	runID := types.NewID()
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic during workflow execution",
				"workflow_id", w.ID,
				"run_id", runID,
				"panic", r,
			)
			result = &WorkflowResult{
				WorkflowID:  w.ID,
				Status:      WorkflowStatusFailed,
				NodeResults: make(map[string]*NodeResult),
				Error: &WorkflowError{
					Code:    WorkflowErrorInternal,
					Message: fmt.Sprintf("panic during execution: %v", r),
				},
				TotalDuration: time.Since(startTime),
			}
			err = nil
			cfg.hooks.workflowComplete(result)
			e.publishRunFailed(ctx, runID, w, result, startTime)
		}
	}()

	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "workflow.execute",
			trace.WithAttributes(
				attribute.String("workflow.id", w.ID.String()),
				attribute.String("workflow.name", w.Name),
				attribute.Int("workflow.node_count", len(w.Nodes)),
			),
		)
		defer span.End()
	}

	e.logger.InfoContext(ctx, "starting workflow execution",
		"workflow_id", w.ID,
		"run_id", runID,
		"workflow_name", w.Name,
		"node_count", len(w.Nodes),
	)
	e.publish(ctx, events.Event{
		Type:       events.EventRunStarted,
		Timestamp:  time.Now(),
		RunID:      runID,
		WorkflowID: w.ID,
		Payload:    events.RunStartedPayload{WorkflowName: w.Name, NodeCount: len(w.Nodes)},
	})
	e.traceLog(ctx, cfg, runID, w, "info", "", fmt.Sprintf("Starting workflow: %s", w.Name))

	// Structural validation gates the whole run.
	if verr := e.validator.Validate(w); verr != nil {
		we := asWorkflowError(verr)
		e.logger.ErrorContext(ctx, "workflow validation failed",
			"workflow_id", w.ID,
			"run_id", runID,
			"error", we,
		)
		e.traceLog(ctx, cfg, runID, w, "error", "", fmt.Sprintf("Validation failed: %s", we.Message))
		result = e.terminalResult(ctx, runID, w, nil, nil, startTime, WorkflowStatusFailed, we)
		cfg.hooks.workflowComplete(result)
		if span != nil {
			span.SetStatus(codes.Error, we.Error())
		}
		return result, we
	}

	order, serr := e.scheduler.Schedule(w)
	if serr != nil {
		we := asWorkflowError(serr)
		e.logger.ErrorContext(ctx, "workflow scheduling failed",
			"workflow_id", w.ID,
			"run_id", runID,
			"error", we,
		)
		e.traceLog(ctx, cfg, runID, w, "error", "", fmt.Sprintf("Scheduling failed: %s", we.Message))
		result = e.terminalResult(ctx, runID, w, nil, nil, startTime, WorkflowStatusFailed, we)
		cfg.hooks.workflowComplete(result)
		if span != nil {
			span.SetStatus(codes.Error, we.Error())
		}
		return result, we
	}
	e.traceLog(ctx, cfg, runID, w, "info", "", fmt.Sprintf("Execution order: %v", order))

	// Fresh per-run state.
	ec := NewExecutionContext()
	if cfg.input != nil {
		ec.BindMap(cfg.input)
	}
	results := make(map[string]*NodeResult, len(order))

	for i, nodeID := range order {
		// Cancellation is honored between nodes; a node already running
		// sees it through its own context.
		select {
		case <-ctx.Done():
			e.logger.WarnContext(ctx, "workflow execution cancelled",
				"workflow_id", w.ID,
				"run_id", runID,
				"reason", ctx.Err(),
			)
			e.traceLog(ctx, cfg, runID, w, "warn", "", "Workflow cancelled")
			e.skipRemaining(order[i:], results)
			we := &WorkflowError{
				Code:    WorkflowErrorCancelled,
				Message: "workflow execution was cancelled",
				Cause:   ctx.Err(),
			}
			result = e.terminalResult(ctx, runID, w, ec, results, startTime, WorkflowStatusCancelled, we)
			cfg.hooks.workflowComplete(result)
			return result, we
		default:
		}

		node := w.NodeByID(nodeID)
		e.stageInputs(w, node, ec, results)

		cfg.hooks.nodeStart(node.ID, node.Type)
		e.traceLog(ctx, cfg, runID, w, "info", node.ID, fmt.Sprintf("Executing node: %s (%s)", node.ID, node.Type))
		e.publish(ctx, events.Event{
			Type:       events.EventNodeStarted,
			Timestamp:  time.Now(),
			RunID:      runID,
			WorkflowID: w.ID,
			Payload:    events.NodePayload{NodeID: node.ID, NodeType: string(node.Type)},
		})

		nodeResult := e.executeNode(ctx, node, ec, results)
		results[node.ID] = nodeResult

		if nodeResult.Success() {
			ec.Set(node.ID, nodeResult.Output)
			cfg.hooks.nodeComplete(node.ID, nodeResult)
			e.traceLog(ctx, cfg, runID, w, "info", node.ID, fmt.Sprintf("Node completed: %s (%s)", node.ID, nodeResult.Duration))
			e.publish(ctx, events.Event{
				Type:       events.EventNodeCompleted,
				Timestamp:  time.Now(),
				RunID:      runID,
				WorkflowID: w.ID,
				Payload: events.NodePayload{
					NodeID:   node.ID,
					NodeType: string(node.Type),
					Status:   string(nodeResult.Status),
					Duration: nodeResult.Duration,
				},
			})
		} else {
			cfg.hooks.nodeError(node.ID, nodeResult)
			e.traceLog(ctx, cfg, runID, w, "error", node.ID, fmt.Sprintf("Node failed: %s: %s", node.ID, nodeResult.Error.Message))
			e.publish(ctx, events.Event{
				Type:       events.EventNodeFailed,
				Timestamp:  time.Now(),
				RunID:      runID,
				WorkflowID: w.ID,
				Payload: events.NodePayload{
					NodeID:   node.ID,
					NodeType: string(node.Type),
					Status:   string(nodeResult.Status),
					Duration: nodeResult.Duration,
					Error:    nodeResult.Error.Message,
				},
			})
		}
	}

	status := WorkflowStatusCompleted
	for _, r := range results {
		if r.Status == NodeStatusFailed {
			status = WorkflowStatusFailed
			break
		}
	}

	result = e.terminalResult(ctx, runID, w, ec, results, startTime, status, nil)
	e.logger.InfoContext(ctx, "workflow execution finished",
		"workflow_id", w.ID,
		"run_id", runID,
		"status", status,
		"duration", result.TotalDuration,
		"nodes_executed", result.NodesExecuted,
		"nodes_failed", result.NodesFailed,
	)
	e.traceLog(ctx, cfg, runID, w, "info", "", fmt.Sprintf("Workflow finished: %s (%s)", status, result.TotalDuration))
	cfg.hooks.workflowComplete(result)
	if span != nil {
		if status == WorkflowStatusCompleted {
			span.SetStatus(codes.Ok, "workflow completed")
		} else {
			span.SetStatus(codes.Error, "workflow failed")
		}
	}
	return result, nil
}

// stageInputs binds the node's inbound value from its succeeded
// predecessors. Failed predecessors stage nothing, so the node sees the
// binding absent rather than a poisoned value. With multiple inbound
// edges the last succeeded one in declaration order wins.
func (e *Engine) stageInputs(w *Workflow, node *Node, ec *ExecutionContext, results map[string]*NodeResult) {
	for _, edge := range w.IncomingEdges(node.ID) {
		source := results[edge.From]
		if !source.Success() {
			continue
		}
		ec.Set(InputKey(node.ID), source.Output)
		if edge.Handle != "" {
			ec.Set(edge.Handle, source.Output)
		}
	}
}

// executeNode runs one node with timeout and retry support and always
// returns a NodeResult; dispatch errors become a failed result.
func (e *Engine) executeNode(ctx context.Context, node *Node, ec *ExecutionContext, results map[string]*NodeResult) *NodeResult {
	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "workflow.execute_node",
			trace.WithAttributes(
				attribute.String("node.id", node.ID),
				attribute.String("node.type", string(node.Type)),
			),
		)
		defer span.End()
	}

	timeout := node.Timeout
	if timeout <= 0 {
		timeout = e.defaultNodeTimeout
	}

	executeFn := func() (*NodeResult, error) {
		execCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			execCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		result, err := e.dispatcher.Dispatch(execCtx, node, ec, results)

		if execCtx.Err() == context.DeadlineExceeded {
			return nil, &WorkflowError{
				Code:    WorkflowErrorNodeTimeout,
				Message: fmt.Sprintf("node execution timed out after %v", timeout),
				NodeID:  node.ID,
			}
		}
		return result, err
	}

	var result *NodeResult
	var err error
	if node.RetryPolicy != nil {
		result, err = e.executeWithRetry(ctx, node, executeFn)
	} else {
		result, err = executeFn()
	}

	if err != nil {
		if span != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}
		e.logger.ErrorContext(ctx, "node execution failed",
			"node_id", node.ID,
			"node_type", node.Type,
			"error", err,
		)
		return failedResult(node.ID, err, result)
	}

	if span != nil {
		span.SetStatus(codes.Ok, "node executed successfully")
	}
	return result
}

// executeWithRetry retries node execution per the node's retry policy,
// waiting the policy's backoff delay between attempts.
func (e *Engine) executeWithRetry(ctx context.Context, node *Node, fn func() (*NodeResult, error)) (*NodeResult, error) {
	var lastErr error
	var result *NodeResult

	for attempt := 0; attempt <= node.RetryPolicy.MaxRetries; attempt++ {
		result, lastErr = fn()

		if lastErr == nil && result.Success() {
			result.RetryCount = attempt
			return result, nil
		}

		if attempt == node.RetryPolicy.MaxRetries {
			break
		}

		delay := node.RetryPolicy.CalculateDelay(attempt)
		e.logger.Info("retrying node execution",
			"node_id", node.ID,
			"attempt", attempt+1,
			"max_retries", node.RetryPolicy.MaxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, &WorkflowError{
				Code:    WorkflowErrorCancelled,
				Message: "workflow cancelled during retry delay",
				NodeID:  node.ID,
				Cause:   ctx.Err(),
			}
		case <-time.After(delay):
		}
	}

	if result != nil {
		result.RetryCount = node.RetryPolicy.MaxRetries
	}
	return result, &NodeError{
		Code:    "MAX_RETRIES_EXCEEDED",
		Message: fmt.Sprintf("node execution failed after %d retries", node.RetryPolicy.MaxRetries),
		Cause:   lastErr,
	}
}

// skipRemaining records skipped results for nodes that never ran.
func (e *Engine) skipRemaining(nodeIDs []string, results map[string]*NodeResult) {
	now := time.Now()
	for _, id := range nodeIDs {
		if _, done := results[id]; done {
			continue
		}
		results[id] = &NodeResult{
			NodeID:      id,
			Status:      NodeStatusSkipped,
			StartedAt:   now,
			CompletedAt: now,
		}
	}
}

// terminalResult builds the final WorkflowResult, aggregating the
// declared output variables from the run context, and publishes the
// terminal run event.
func (e *Engine) terminalResult(
	ctx context.Context,
	runID types.ID,
	w *Workflow,
	ec *ExecutionContext,
	results map[string]*NodeResult,
	startTime time.Time,
	status WorkflowStatus,
	workflowErr *WorkflowError,
) *WorkflowResult {
	if results == nil {
		results = make(map[string]*NodeResult)
	}

	nodesExecuted := 0
	nodesFailed := 0
	nodesSkipped := 0
	for _, r := range results {
		switch r.Status {
		case NodeStatusCompleted:
			nodesExecuted++
		case NodeStatusFailed:
			nodesFailed++
		case NodeStatusSkipped:
			nodesSkipped++
		}
	}

	var output map[string]any
	if ec != nil {
		output = make(map[string]any)
		for _, n := range w.NodesOfType(NodeTypeOutput) {
			if n.Variable == "" {
				continue
			}
			output[n.Variable] = ec.Get(n.Variable)
		}
	}

	result := &WorkflowResult{
		WorkflowID:    w.ID,
		Status:        status,
		Output:        output,
		NodeResults:   results,
		TotalDuration: time.Since(startTime),
		NodesExecuted: nodesExecuted,
		NodesFailed:   nodesFailed,
		NodesSkipped:  nodesSkipped,
		Error:         workflowErr,
	}

	if status == WorkflowStatusCompleted {
		e.publish(ctx, events.Event{
			Type:       events.EventRunCompleted,
			Timestamp:  time.Now(),
			RunID:      runID,
			WorkflowID: w.ID,
			Payload: events.RunCompletedPayload{
				Duration:      result.TotalDuration,
				NodesExecuted: result.NodesExecuted,
				NodesFailed:   result.NodesFailed,
				Success:       true,
			},
		})
	} else {
		e.publishRunFailed(ctx, runID, w, result, startTime)
	}
	return result
}

func (e *Engine) publishRunFailed(ctx context.Context, runID types.ID, w *Workflow, result *WorkflowResult, startTime time.Time) {
	errMsg := string(result.Status)
	if result.Error != nil {
		errMsg = result.Error.Error()
	}
	e.publish(ctx, events.Event{
		Type:       events.EventRunFailed,
		Timestamp:  time.Now(),
		RunID:      runID,
		WorkflowID: w.ID,
		Payload: events.RunFailedPayload{
			Error:         errMsg,
			Duration:      time.Since(startTime),
			NodesExecuted: result.NodesExecuted,
		},
	})
}

// traceLog delivers one human-readable trace line to the run's log hook
// and mirrors it onto the bus as a run.log event, so subscribers see the
// same trace a hook consumer does.
func (e *Engine) traceLog(ctx context.Context, cfg *runConfig, runID types.ID, w *Workflow, level, nodeID, line string) {
	cfg.hooks.logUpdate(line)
	e.publish(ctx, events.Event{
		Type:       events.EventRunLog,
		Timestamp:  time.Now(),
		RunID:      runID,
		WorkflowID: w.ID,
		Payload:    events.LogPayload{Level: level, Message: line, NodeID: nodeID},
	})
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.bus == nil {
		return
	}
	_ = e.bus.Publish(ctx, event)
}

// failedResult builds a failed NodeResult from a dispatch error,
// reusing timing from a partial result when the dispatcher produced one.
func failedResult(nodeID string, err error, partial *NodeResult) *NodeResult {
	now := time.Now()
	result := &NodeResult{
		NodeID:      nodeID,
		Status:      NodeStatusFailed,
		StartedAt:   now,
		CompletedAt: now,
	}
	if partial != nil {
		result.Output = partial.Output
		result.Duration = partial.Duration
		result.RetryCount = partial.RetryCount
		result.StartedAt = partial.StartedAt
		result.CompletedAt = partial.CompletedAt
		result.Metadata = partial.Metadata
	}

	switch typed := err.(type) {
	case *NodeError:
		result.Error = typed
	case *WorkflowError:
		result.Error = &NodeError{
			Code:    string(typed.Code),
			Message: typed.Message,
			Cause:   typed.Cause,
		}
	default:
		result.Error = &NodeError{
			Code:    "NODE_EXECUTION_FAILED",
			Message: err.Error(),
			Cause:   err,
		}
	}
	return result
}

// asWorkflowError wraps an arbitrary error as a WorkflowError, passing
// typed ones through.
func asWorkflowError(err error) *WorkflowError {
	if we, ok := err.(*WorkflowError); ok {
		return we
	}
	return &WorkflowError{
		Code:    WorkflowErrorInternal,
		Message: err.Error(),
		Cause:   err,
	}
}
