package events

import (
	"time"

	"github.com/synapseflow-ai/synapse/internal/types"
)

// EventType identifies the category and nature of an event.
type EventType string

// Run lifecycle events track one workflow run end to end.
const (
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunFailed    EventType = "run.failed"
	EventRunLog       EventType = "run.log"
)

// Node execution events track individual node execution within a run.
const (
	EventNodeStarted   EventType = "node.started"
	EventNodeCompleted EventType = "node.completed"
	EventNodeFailed    EventType = "node.failed"
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// Event is one observability event. Events are JSON-serializable and
// carry trace correlation so CLI output and log sinks can join them.
type Event struct {
	// Type identifies the category and nature of the event
	Type EventType `json:"type"`

	// Timestamp records when the event occurred
	Timestamp time.Time `json:"timestamp"`

	// RunID associates the event with a workflow run
	RunID types.ID `json:"run_id,omitempty"`

	// WorkflowID identifies the workflow being run
	WorkflowID types.ID `json:"workflow_id,omitempty"`

	// TraceID is the OpenTelemetry trace ID for correlation
	TraceID string `json:"trace_id,omitempty"`

	// SpanID is the OpenTelemetry span ID for the specific operation
	SpanID string `json:"span_id,omitempty"`

	// Payload contains event-specific typed data
	Payload any `json:"payload,omitempty"`

	// Attrs contains additional key-value attributes
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Filter defines criteria for filtering events in subscriptions.
// All fields use AND logic; empty fields act as wildcards.
type Filter struct {
	// Types filters by event types (empty = all types)
	Types []EventType `json:"types,omitempty"`

	// RunID filters by run (empty = all runs)
	RunID types.ID `json:"run_id,omitempty"`

	// WorkflowID filters by workflow (empty = all workflows)
	WorkflowID types.ID `json:"workflow_id,omitempty"`
}

// Matches determines whether the event satisfies all non-empty criteria.
func (f *Filter) Matches(event Event) bool {
	if len(f.Types) > 0 {
		matched := false
		for _, t := range f.Types {
			if event.Type == t {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.RunID != "" && event.RunID != f.RunID {
		return false
	}
	if f.WorkflowID != "" && event.WorkflowID != f.WorkflowID {
		return false
	}
	return true
}

// RunStartedPayload contains data for run.started events.
type RunStartedPayload struct {
	WorkflowName string `json:"workflow_name,omitempty"`
	NodeCount    int    `json:"node_count"`
}

// RunCompletedPayload contains data for run.completed events.
type RunCompletedPayload struct {
	Duration      time.Duration `json:"duration"`
	NodesExecuted int           `json:"nodes_executed"`
	NodesFailed   int           `json:"nodes_failed"`
	Success       bool          `json:"success"`
}

// RunFailedPayload contains data for run.failed events.
type RunFailedPayload struct {
	Error         string        `json:"error"`
	Duration      time.Duration `json:"duration"`
	NodesExecuted int           `json:"nodes_executed"`
}

// NodePayload contains data for node.started/completed/failed events.
type NodePayload struct {
	NodeID   string        `json:"node_id"`
	NodeType string        `json:"node_type,omitempty"`
	Status   string        `json:"status,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// LogPayload contains data for run.log events.
type LogPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	NodeID  string `json:"node_id,omitempty"`
}
