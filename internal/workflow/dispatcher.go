package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/synapseflow-ai/synapse/internal/llm"
	"github.com/synapseflow-ai/synapse/internal/retrieval"
	"github.com/synapseflow-ai/synapse/internal/websearch"
)

// Dispatcher routes a single node to its type-specific execution path.
// Collaborator-backed types (llm, rag, websearch) delegate to the
// injected services; the remaining types execute locally against the
// run context.
type Dispatcher struct {
	completion llm.CompletionService
	retriever  retrieval.Retriever
	searcher   websearch.Searcher
	evaluator  *ExpressionEvaluator
}

// NewDispatcher creates a dispatcher over the given collaborators. Any
// collaborator may be nil; dispatching a node that needs a missing one
// fails with a configuration error.
func NewDispatcher(completion llm.CompletionService, retriever retrieval.Retriever, searcher websearch.Searcher) *Dispatcher {
	return &Dispatcher{
		completion: completion,
		retriever:  retriever,
		searcher:   searcher,
		evaluator:  NewExpressionEvaluator(),
	}
}

// Evaluator returns the expression evaluator used by conditional and
// function nodes, so callers can register custom functions.
func (d *Dispatcher) Evaluator() *ExpressionEvaluator {
	return d.evaluator
}

// Dispatch executes one node and returns its result. The result's
// Output is the node's handoff value; side effects on the run context
// (variable bindings) happen here. Results map lookups feed the
// expression paths (nodes.<id>.output).
func (d *Dispatcher) Dispatch(ctx context.Context, node *Node, ec *ExecutionContext, results map[string]*NodeResult) (*NodeResult, error) {
	switch node.Type {
	case NodeTypeTrigger:
		return d.executeTriggerNode(node, ec)
	case NodeTypeInput:
		return d.executeInputNode(node, ec)
	case NodeTypeOutput:
		return d.executeOutputNode(node, ec)
	case NodeTypeLLM:
		return d.executeLLMNode(ctx, node, ec)
	case NodeTypeRAG:
		return d.executeRAGNode(ctx, node, ec)
	case NodeTypeWebSearch:
		return d.executeWebSearchNode(ctx, node, ec)
	case NodeTypeConditional:
		return d.executeConditionalNode(node, ec, results)
	case NodeTypeFunction:
		return d.executeFunctionNode(node, ec, results)
	default:
		return nil, &NodeError{
			Code:    "INVALID_NODE_TYPE",
			Message: fmt.Sprintf("unknown node type: %s", node.Type),
		}
	}
}

// executeTriggerNode returns the node's payload and binds every payload
// key as a named context variable. The payload is the run's injection
// point for external input.
func (d *Dispatcher) executeTriggerNode(node *Node, ec *ExecutionContext) (*NodeResult, error) {
	startTime := time.Now()

	payload := node.Payload
	if payload == nil {
		payload = make(map[string]any)
	}
	ec.BindMap(payload)

	return completedResult(node.ID, payload, startTime, map[string]any{
		"payload_keys": len(payload),
	}), nil
}

// executeInputNode supplies a value: the explicit Value when set,
// otherwise the context value bound to Variable, otherwise the empty
// string.
func (d *Dispatcher) executeInputNode(node *Node, ec *ExecutionContext) (*NodeResult, error) {
	startTime := time.Now()

	var value any = ""
	switch {
	case node.Value != nil:
		value = node.Value
	case node.Variable != "":
		if v, ok := ec.Lookup(node.Variable); ok {
			value = v
		}
	}

	if node.Variable != "" {
		ec.Set(node.Variable, value)
	}

	return completedResult(node.ID, value, startTime, nil), nil
}

// executeOutputNode stages its inbound value as the workflow output
// variable it declares.
func (d *Dispatcher) executeOutputNode(node *Node, ec *ExecutionContext) (*NodeResult, error) {
	startTime := time.Now()

	if node.Variable == "" {
		return nil, &NodeError{
			Code:    "INVALID_OUTPUT_NODE",
			Message: "variable is required for output nodes",
		}
	}

	value := ec.Get(InputKey(node.ID))
	ec.Set(node.Variable, value)

	return completedResult(node.ID, value, startTime, map[string]any{
		"variable": node.Variable,
	}), nil
}

// executeLLMNode interpolates the prompt against the run context and
// delegates to the completion service. The handoff value is the
// completion text; model and token usage land in the result metadata.
func (d *Dispatcher) executeLLMNode(ctx context.Context, node *Node, ec *ExecutionContext) (*NodeResult, error) {
	startTime := time.Now()

	if d.completion == nil {
		return nil, &NodeError{
			Code:    "INVALID_LLM_NODE",
			Message: "no completion service configured",
		}
	}
	if node.Prompt == "" {
		return nil, &NodeError{
			Code:    "INVALID_LLM_NODE",
			Message: "prompt is required for llm nodes",
		}
	}

	vars := ec.Snapshot()
	req := llm.CompletionRequest{
		Prompt:      Interpolate(node.Prompt, vars),
		System:      Interpolate(node.System, vars),
		Model:       node.Model,
		Temperature: node.Temperature,
		MaxTokens:   node.MaxTokens,
	}

	resp, err := d.completion.Complete(ctx, req)
	if err != nil {
		return nil, &NodeError{
			Code:    "LLM_EXECUTION_FAILED",
			Message: fmt.Sprintf("completion request failed: %v", err),
			Cause:   err,
		}
	}

	return completedResult(node.ID, resp.Text, startTime, map[string]any{
		"provider":          d.completion.Name(),
		"model":             resp.Model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	}), nil
}

// executeRAGNode interpolates the query and delegates to the retriever.
func (d *Dispatcher) executeRAGNode(ctx context.Context, node *Node, ec *ExecutionContext) (*NodeResult, error) {
	startTime := time.Now()

	if d.retriever == nil {
		return nil, &NodeError{
			Code:    "INVALID_RAG_NODE",
			Message: "no retriever configured",
		}
	}
	if node.Query == "" {
		return nil, &NodeError{
			Code:    "INVALID_RAG_NODE",
			Message: "query is required for rag nodes",
		}
	}

	query := Interpolate(node.Query, ec.Snapshot())
	result, err := d.retriever.Retrieve(ctx, query, node.TopK)
	if err != nil {
		return nil, &NodeError{
			Code:    "RAG_EXECUTION_FAILED",
			Message: fmt.Sprintf("retrieval failed: %v", err),
			Cause:   err,
		}
	}

	return completedResult(node.ID, result.Map(), startTime, map[string]any{
		"method":         result.Method,
		"document_count": len(result.Documents),
		"query":          query,
	}), nil
}

// executeWebSearchNode interpolates the query and delegates to the
// searcher.
func (d *Dispatcher) executeWebSearchNode(ctx context.Context, node *Node, ec *ExecutionContext) (*NodeResult, error) {
	startTime := time.Now()

	if d.searcher == nil {
		return nil, &NodeError{
			Code:    "INVALID_WEBSEARCH_NODE",
			Message: "no searcher configured",
		}
	}
	if node.Query == "" {
		return nil, &NodeError{
			Code:    "INVALID_WEBSEARCH_NODE",
			Message: "query is required for websearch nodes",
		}
	}

	query := Interpolate(node.Query, ec.Snapshot())
	resp, err := d.searcher.Search(ctx, websearch.Query{
		Text:     query,
		Count:    node.ResultCount,
		Provider: node.SearchProvider,
	})
	if err != nil {
		return nil, &NodeError{
			Code:    "WEBSEARCH_EXECUTION_FAILED",
			Message: fmt.Sprintf("search failed: %v", err),
			Cause:   err,
		}
	}

	return completedResult(node.ID, resp.Map(), startTime, map[string]any{
		"provider":     d.searcher.Name(),
		"result_count": len(resp.Results),
		"query":        query,
	}), nil
}

// executeConditionalNode evaluates the node's condition in expression
// mode when an expression is present, otherwise in comparison mode.
func (d *Dispatcher) executeConditionalNode(node *Node, ec *ExecutionContext, results map[string]*NodeResult) (*NodeResult, error) {
	startTime := time.Now()

	if node.Condition == nil {
		return nil, &NodeError{
			Code:    "INVALID_CONDITIONAL_NODE",
			Message: "condition is required for conditional nodes",
		}
	}

	vars := ec.Snapshot()

	var (
		result    bool
		condition string
		err       error
	)
	if node.Condition.Expression != "" {
		condition = Interpolate(node.Condition.Expression, vars)
		evalCtx := &EvaluationContext{NodeResults: results, Variables: vars}
		result, err = d.evaluator.Evaluate(condition, evalCtx)
		if err != nil {
			return nil, &NodeError{
				Code:    "CONDITION_EVALUATION_FAILED",
				Message: fmt.Sprintf("failed to evaluate condition: %v", err),
				Cause:   err,
			}
		}
	} else {
		left := resolveOperand(node.Condition.Left, ec)
		right := resolveOperand(node.Condition.Right, ec)
		result, err = compareOperands(left, right, node.Condition.Operator)
		if err != nil {
			return nil, &NodeError{
				Code:    "CONDITION_EVALUATION_FAILED",
				Message: fmt.Sprintf("failed to compare operands: %v", err),
				Cause:   err,
			}
		}
		condition = fmt.Sprintf("%v %s %v", node.Condition.Left, node.Condition.Operator, node.Condition.Right)
	}

	output := map[string]any{
		"result":    result,
		"condition": condition,
	}
	return completedResult(node.ID, output, startTime, map[string]any{
		"result": result,
	}), nil
}

// executeFunctionNode evaluates the author-supplied expression with the
// run context's variables in scope and hands off whatever it produces.
func (d *Dispatcher) executeFunctionNode(node *Node, ec *ExecutionContext, results map[string]*NodeResult) (*NodeResult, error) {
	startTime := time.Now()

	if node.Expression == "" {
		return nil, &NodeError{
			Code:    "INVALID_FUNCTION_NODE",
			Message: "expression is required for function nodes",
		}
	}

	evalCtx := &EvaluationContext{NodeResults: results, Variables: ec.Snapshot()}
	value, err := d.evaluator.EvaluateValue(node.Expression, evalCtx)
	if err != nil {
		return nil, &NodeError{
			Code:    "FUNCTION_EVALUATION_FAILED",
			Message: fmt.Sprintf("failed to evaluate expression: %v", err),
			Cause:   err,
		}
	}

	return completedResult(node.ID, value, startTime, map[string]any{
		"expression": node.Expression,
	}), nil
}

// resolveOperand treats a string operand as a context variable name
// when it is bound, and as a literal otherwise.
func resolveOperand(operand any, ec *ExecutionContext) any {
	if name, ok := operand.(string); ok {
		if v, bound := ec.Lookup(name); bound {
			return v
		}
	}
	return operand
}

// compareOperands applies a comparison-mode operator. == and != use
// loose equality (numeric coercion); === and !== require matching
// dynamic types.
func compareOperands(left, right any, operator string) (bool, error) {
	switch operator {
	case "==":
		return looseEquals(left, right), nil
	case "===":
		return strictEquals(left, right), nil
	case "!=":
		return !looseEquals(left, right), nil
	case "!==":
		return !strictEquals(left, right), nil
	case ">":
		return compareOrdered(left, right, tokenGT)
	case ">=":
		return compareOrdered(left, right, tokenGE)
	case "<":
		return compareOrdered(left, right, tokenLT)
	case "<=":
		return compareOrdered(left, right, tokenLE)
	default:
		return false, fmt.Errorf("unknown comparison operator: %q", operator)
	}
}

// completedResult builds a successful NodeResult with timing filled in.
func completedResult(nodeID string, output any, startTime time.Time, metadata map[string]any) *NodeResult {
	now := time.Now()
	return &NodeResult{
		NodeID:      nodeID,
		Status:      NodeStatusCompleted,
		Output:      output,
		Duration:    now.Sub(startTime),
		StartedAt:   startTime,
		CompletedAt: now,
		Metadata:    metadata,
	}
}
