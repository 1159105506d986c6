package workflow

import (
	"fmt"
	"time"

	"github.com/synapseflow-ai/synapse/internal/types"
)

// NodeError represents an error that occurred during node execution
type NodeError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

// Error implements the error interface for NodeError
func (e *NodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *NodeError) Unwrap() error {
	return e.Cause
}

// NodeResult represents the execution result of a single workflow node.
// It is created once per node per run and never mutated afterwards.
type NodeResult struct {
	NodeID      string        `json:"node_id"`
	Status      NodeStatus    `json:"status"`
	Output      any           `json:"output,omitempty"`
	Error       *NodeError    `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	RetryCount  int           `json:"retry_count,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Success reports whether the node completed without error.
func (r *NodeResult) Success() bool {
	return r != nil && r.Status == NodeStatusCompleted
}

// WorkflowErrorCode represents specific error types that can occur during
// workflow validation, scheduling, and execution.
type WorkflowErrorCode string

const (
	WorkflowErrorEmptyWorkflow     WorkflowErrorCode = "empty_workflow"
	WorkflowErrorMissingTrigger    WorkflowErrorCode = "missing_trigger"
	WorkflowErrorMissingOutput     WorkflowErrorCode = "missing_output"
	WorkflowErrorUnknownNodeType   WorkflowErrorCode = "unknown_node_type"
	WorkflowErrorDuplicateNodeID   WorkflowErrorCode = "duplicate_node_id"
	WorkflowErrorMissingDependency WorkflowErrorCode = "missing_dependency"
	WorkflowErrorDisconnectedNodes WorkflowErrorCode = "disconnected_nodes"
	WorkflowErrorCycleDetected     WorkflowErrorCode = "cycle_detected"
	WorkflowErrorUnreachableNodes  WorkflowErrorCode = "unreachable_nodes"
	WorkflowErrorExpressionInvalid WorkflowErrorCode = "expression_invalid"
	WorkflowErrorNodeTimeout       WorkflowErrorCode = "node_timeout"
	WorkflowErrorCancelled         WorkflowErrorCode = "workflow_cancelled"
	WorkflowErrorInternal          WorkflowErrorCode = "internal_error"
)

// WorkflowError represents an error that occurred during workflow
// validation, scheduling, or execution.
type WorkflowError struct {
	Code    WorkflowErrorCode `json:"code"`
	Message string            `json:"message"`
	NodeID  string            `json:"node_id,omitempty"`
	Cause   error             `json:"-"`
}

// Error implements the error interface for WorkflowError
func (e *WorkflowError) Error() string {
	if e.NodeID != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s [node: %s]: %s (caused by: %v)", e.Code, e.NodeID, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s [node: %s]: %s", e.Code, e.NodeID, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface for WorkflowError
func (e *WorkflowError) Unwrap() error {
	return e.Cause
}

// WorkflowResult represents the complete result of one workflow run.
// Status is Completed only when validation passed and every executed
// node succeeded.
type WorkflowResult struct {
	WorkflowID    types.ID               `json:"workflow_id"`
	Status        WorkflowStatus         `json:"status"`
	Output        map[string]any         `json:"output,omitempty"`
	NodeResults   map[string]*NodeResult `json:"node_results"`
	TotalDuration time.Duration          `json:"total_duration"`
	NodesExecuted int                    `json:"nodes_executed"`
	NodesFailed   int                    `json:"nodes_failed"`
	NodesSkipped  int                    `json:"nodes_skipped"`
	Error         *WorkflowError         `json:"error,omitempty"`
}

// Succeeded reports whether the run completed with every node succeeding.
func (r *WorkflowResult) Succeeded() bool {
	return r != nil && r.Status == WorkflowStatusCompleted
}
