package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowBuilder_Valid(t *testing.T) {
	w, err := NewWorkflow("pipeline").
		WithDescription("retrieval pipeline").
		WithMetadata("owner", "platform").
		AddTriggerNode("start", map[string]any{"q": "hello"}).
		AddRAGNode("fetch", "{{q}}", 3).
		AddLLMNode("answer", "Answer {{q}}").
		AddOutputNode("done", "answer").
		AddEdge("start", "fetch").
		AddEdge("fetch", "answer").
		AddEdge("answer", "done").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "pipeline", w.Name)
	assert.Equal(t, "retrieval pipeline", w.Description)
	assert.Equal(t, "platform", w.Metadata["owner"])
	assert.Len(t, w.Nodes, 4)
	assert.Len(t, w.Edges, 3)
	assert.NotEmpty(t, w.ID)

	// Declaration order is preserved.
	ids := make([]string, len(w.Nodes))
	for i, n := range w.Nodes {
		ids[i] = n.ID
	}
	assert.Equal(t, []string{"start", "fetch", "answer", "done"}, ids)
}

func TestWorkflowBuilder_NodeHelpers(t *testing.T) {
	w, err := NewWorkflow("all-types").
		AddTriggerNode("start", nil).
		AddInputNode("in", "topic", "databases").
		AddWebSearchNode("search", "{{topic}}", 3).
		AddConditionalNode("gate", &NodeCondition{Expression: "topic == databases"}).
		AddFunctionNode("calc", "len(topic)").
		AddOutputNode("done", "result").
		AddEdge("start", "in").
		AddEdge("in", "search").
		AddEdge("search", "gate").
		AddEdge("gate", "calc").
		AddEdge("calc", "done").
		Build()
	require.NoError(t, err)

	in := w.NodeByID("in")
	assert.Equal(t, NodeTypeInput, in.Type)
	assert.Equal(t, "topic", in.Variable)
	assert.Equal(t, "databases", in.Value)

	search := w.NodeByID("search")
	assert.Equal(t, NodeTypeWebSearch, search.Type)
	assert.Equal(t, 3, search.ResultCount)

	gate := w.NodeByID("gate")
	require.NotNil(t, gate.Condition)
	assert.Equal(t, "topic == databases", gate.Condition.Expression)

	assert.Equal(t, "len(topic)", w.NodeByID("calc").Expression)
}

func TestWorkflowBuilder_HandleEdge(t *testing.T) {
	w, err := NewWorkflow("handles").
		AddTriggerNode("start", nil).
		AddInputNode("in", "x", 1).
		AddOutputNode("done", "out").
		AddEdge("start", "in").
		AddHandleEdge("in", "done", "staged").
		Build()
	require.NoError(t, err)

	require.Len(t, w.Edges, 2)
	assert.Equal(t, "staged", w.Edges[1].Handle)
}

func TestWorkflowBuilder_AccumulatesErrors(t *testing.T) {
	_, err := NewWorkflow("broken").
		AddNode(nil).
		AddNode(&Node{Type: NodeTypeInput}).
		AddTriggerNode("start", nil).
		AddTriggerNode("start", nil).
		AddLLMNode("ask", "").
		AddOutputNode("done", "").
		AddEdge("", "done").
		Build()

	require.Error(t, err)
	// Every construction problem is reported at once.
	assert.Contains(t, err.Error(), "6 error(s)")
}

func TestWorkflowBuilder_BuildValidates(t *testing.T) {
	// Construction succeeds but the graph is missing its output anchor.
	_, err := NewWorkflow("no-output").
		AddTriggerNode("start", nil).
		AddInputNode("in", "x", 1).
		AddEdge("start", "in").
		Build()

	require.Error(t, err)
	var we *WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, WorkflowErrorMissingOutput, we.Code)
}

func TestWorkflowBuilder_ConditionalRequiresShape(t *testing.T) {
	_, err := NewWorkflow("bad-gate").
		AddTriggerNode("start", nil).
		AddConditionalNode("gate", &NodeCondition{Left: 1, Right: 2}).
		AddOutputNode("done", "out").
		AddEdge("start", "gate").
		AddEdge("gate", "done").
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expression or an operator")
}
