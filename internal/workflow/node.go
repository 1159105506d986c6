package workflow

import (
	"math"
	"time"
)

// BackoffStrategy defines the strategy for calculating retry delays
type BackoffStrategy string

const (
	// BackoffConstant returns a constant delay for all retry attempts
	BackoffConstant BackoffStrategy = "constant"
	// BackoffLinear increases the delay linearly with each retry attempt
	BackoffLinear BackoffStrategy = "linear"
	// BackoffExponential increases the delay exponentially with each retry attempt
	BackoffExponential BackoffStrategy = "exponential"
)

// NodeType defines the type of workflow node
type NodeType string

const (
	// NodeTypeTrigger marks the workflow's start anchor; it returns the
	// run's injected start data.
	NodeTypeTrigger NodeType = "trigger"
	// NodeTypeInput supplies an explicit value or a named variable.
	NodeTypeInput NodeType = "input"
	// NodeTypeOutput stages an inbound value as a declared output variable.
	NodeTypeOutput NodeType = "output"
	// NodeTypeLLM delegates to the model-completion collaborator.
	NodeTypeLLM NodeType = "llm"
	// NodeTypeRAG delegates to the retrieval collaborator.
	NodeTypeRAG NodeType = "rag"
	// NodeTypeWebSearch delegates to the web-search collaborator.
	NodeTypeWebSearch NodeType = "websearch"
	// NodeTypeConditional evaluates an expression or comparison.
	NodeTypeConditional NodeType = "conditional"
	// NodeTypeFunction evaluates an author-supplied expression against
	// the run context's variables.
	NodeTypeFunction NodeType = "function"
)

// IsValid reports whether t is one of the known node type tags.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeTypeTrigger, NodeTypeInput, NodeTypeOutput, NodeTypeLLM,
		NodeTypeRAG, NodeTypeWebSearch, NodeTypeConditional, NodeTypeFunction:
		return true
	default:
		return false
	}
}

// NodeStatus represents the execution status of a workflow node
type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusSkipped   NodeStatus = "skipped"
)

// Node represents a single typed unit of work in a workflow graph.
// The populated payload fields depend on Type.
type Node struct {
	// Core identity fields
	ID          string   `json:"id"`
	Type        NodeType `json:"type"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`

	// Trigger node fields
	Payload map[string]any `json:"payload,omitempty"`

	// Input node fields
	Value    any    `json:"value,omitempty"`
	Variable string `json:"variable,omitempty"` // also the output node's declared variable

	// LLM node fields
	Prompt      string  `json:"prompt,omitempty"`
	System      string  `json:"system,omitempty"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// RAG / web-search node fields
	Query          string `json:"query,omitempty"`
	TopK           int    `json:"top_k,omitempty"`
	ResultCount    int    `json:"result_count,omitempty"`
	SearchProvider string `json:"search_provider,omitempty"`

	// Conditional node fields
	Condition *NodeCondition `json:"condition,omitempty"`

	// Function node fields
	Expression string `json:"expression,omitempty"`

	// Execution control fields
	Timeout     time.Duration `json:"timeout,omitempty"`
	RetryPolicy *RetryPolicy  `json:"retry_policy,omitempty"`

	// Additional metadata
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NodeCondition defines the logic of a conditional node. Expression mode
// is used when Expression is non-empty; otherwise the node compares Left
// and Right with Operator.
type NodeCondition struct {
	// Expression is a boolean-valued expression evaluated against the
	// run context (e.g. `nodes.score.output > 0.5 && approved`).
	Expression string `json:"expression,omitempty"`

	// Left and Right are comparison operands: context variable names when
	// they resolve in the run context, literals otherwise.
	Left  any `json:"left,omitempty"`
	Right any `json:"right,omitempty"`

	// Operator is one of == === != !== > >= < <=.
	Operator string `json:"operator,omitempty"`
}

// RetryPolicy defines the retry behavior for a workflow node
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts
	MaxRetries int `json:"max_retries"`
	// BackoffStrategy determines how delays are calculated between retries
	BackoffStrategy BackoffStrategy `json:"backoff_strategy"`
	// InitialDelay is the delay before the first retry attempt
	InitialDelay time.Duration `json:"initial_delay"`
	// MaxDelay is the maximum delay between retry attempts (used for exponential backoff)
	MaxDelay time.Duration `json:"max_delay"`
	// Multiplier is the factor by which the delay increases (used for exponential backoff)
	Multiplier float64 `json:"multiplier"`
}

// CalculateDelay calculates the delay duration for a given retry attempt
// based on the configured backoff strategy
func (rp *RetryPolicy) CalculateDelay(attempt int) time.Duration {
	switch rp.BackoffStrategy {
	case BackoffConstant:
		return rp.InitialDelay
	case BackoffLinear:
		return rp.InitialDelay + (rp.InitialDelay * time.Duration(attempt))
	case BackoffExponential:
		delay := time.Duration(float64(rp.InitialDelay) * math.Pow(rp.Multiplier, float64(attempt)))
		if delay > rp.MaxDelay {
			return rp.MaxDelay
		}
		return delay
	default:
		return rp.InitialDelay
	}
}
