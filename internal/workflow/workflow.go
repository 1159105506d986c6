package workflow

import (
	"time"

	"github.com/synapseflow-ai/synapse/internal/types"
)

// WorkflowStatus represents the current status of a workflow run.
type WorkflowStatus string

const (
	// WorkflowStatusPending indicates the workflow is ready but not yet started.
	WorkflowStatusPending WorkflowStatus = "pending"

	// WorkflowStatusRunning indicates the workflow is currently executing.
	WorkflowStatusRunning WorkflowStatus = "running"

	// WorkflowStatusCompleted indicates the workflow completed and every node succeeded.
	WorkflowStatusCompleted WorkflowStatus = "completed"

	// WorkflowStatusFailed indicates validation, scheduling, or at least one node failed.
	WorkflowStatusFailed WorkflowStatus = "failed"

	// WorkflowStatusCancelled indicates the run was abandoned between node executions.
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
)

// String returns the string representation of the workflow status.
func (s WorkflowStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status represents a terminal state.
func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusCancelled:
		return true
	default:
		return false
	}
}

// Workflow is a user-authored directed graph of typed processing nodes.
// The engine consumes it read-only for the duration of one run.
//
// Nodes is an ordered slice rather than a map: the scheduler breaks
// ties between ready nodes by declaration order, which keeps execution
// order reproducible for identical input.
type Workflow struct {
	// ID is the unique identifier for this workflow.
	ID types.ID `json:"id"`

	// Name is a human-readable name for the workflow.
	Name string `json:"name"`

	// Description provides additional context about what this workflow does.
	Description string `json:"description,omitempty"`

	// Nodes contains all nodes in the workflow, in declaration order.
	Nodes []*Node `json:"nodes"`

	// Edges contains all directed data-flow links between nodes.
	Edges []Edge `json:"edges"`

	// Metadata contains additional custom metadata for the workflow.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is the timestamp when the workflow was created.
	CreatedAt time.Time `json:"created_at"`
}

// NodeByID retrieves a node by its ID. Returns nil if not found.
func (w *Workflow) NodeByID(id string) *Node {
	for _, n := range w.Nodes {
		if n != nil && n.ID == id {
			return n
		}
	}
	return nil
}

// NodesOfType returns all nodes carrying the given type tag, in
// declaration order.
func (w *Workflow) NodesOfType(t NodeType) []*Node {
	var out []*Node
	for _, n := range w.Nodes {
		if n != nil && n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// IncomingEdges returns every edge whose target is the given node ID,
// preserving edge declaration order.
func (w *Workflow) IncomingEdges(nodeID string) []Edge {
	var out []Edge
	for _, e := range w.Edges {
		if e.To == nodeID {
			out = append(out, e)
		}
	}
	return out
}
