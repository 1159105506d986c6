package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapseflow-ai/synapse/internal/types"
)

// minimalWorkflow returns a valid trigger -> output workflow.
func minimalWorkflow() *Workflow {
	return &Workflow{
		ID:   types.NewID(),
		Name: "minimal",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeTrigger},
			{ID: "done", Type: NodeTypeOutput, Variable: "result"},
		},
		Edges: []Edge{
			{From: "start", To: "done"},
		},
	}
}

func requireWorkflowError(t *testing.T, err error, code WorkflowErrorCode) *WorkflowError {
	t.Helper()
	require.Error(t, err)
	we, ok := err.(*WorkflowError)
	require.True(t, ok, "expected *WorkflowError, got %T", err)
	assert.Equal(t, code, we.Code)
	return we
}

func TestGraphValidator_Validate_Valid(t *testing.T) {
	validator := NewGraphValidator()
	require.NoError(t, validator.Validate(minimalWorkflow()))
}

func TestGraphValidator_Validate_EmptyWorkflow(t *testing.T) {
	validator := NewGraphValidator()

	tests := []struct {
		name     string
		workflow *Workflow
	}{
		{name: "nil workflow", workflow: nil},
		{name: "no nodes", workflow: &Workflow{ID: types.NewID(), Nodes: []*Node{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.workflow)
			requireWorkflowError(t, err, WorkflowErrorEmptyWorkflow)
		})
	}
}

func TestGraphValidator_Validate_Anchors(t *testing.T) {
	validator := NewGraphValidator()

	t.Run("missing trigger", func(t *testing.T) {
		w := minimalWorkflow()
		w.Nodes[0].Type = NodeTypeInput
		err := validator.Validate(w)
		requireWorkflowError(t, err, WorkflowErrorMissingTrigger)
	})

	t.Run("missing output", func(t *testing.T) {
		w := minimalWorkflow()
		w.Nodes[1].Type = NodeTypeFunction
		w.Nodes[1].Expression = "1"
		err := validator.Validate(w)
		requireWorkflowError(t, err, WorkflowErrorMissingOutput)
	})
}

func TestGraphValidator_Validate_NodeIdentity(t *testing.T) {
	validator := NewGraphValidator()

	t.Run("duplicate node ID", func(t *testing.T) {
		w := minimalWorkflow()
		w.Nodes = append(w.Nodes, &Node{ID: "start", Type: NodeTypeInput})
		err := validator.Validate(w)
		requireWorkflowError(t, err, WorkflowErrorDuplicateNodeID)
	})

	t.Run("empty node ID", func(t *testing.T) {
		w := minimalWorkflow()
		w.Nodes = append(w.Nodes, &Node{ID: "", Type: NodeTypeInput})
		err := validator.Validate(w)
		requireWorkflowError(t, err, WorkflowErrorDuplicateNodeID)
	})

	t.Run("unknown node type", func(t *testing.T) {
		w := minimalWorkflow()
		w.Nodes = append(w.Nodes, &Node{ID: "weird", Type: NodeType("teleport")})
		err := validator.Validate(w)
		we := requireWorkflowError(t, err, WorkflowErrorUnknownNodeType)
		assert.Equal(t, "weird", we.NodeID)
	})
}

func TestGraphValidator_Validate_Edges(t *testing.T) {
	validator := NewGraphValidator()

	tests := []struct {
		name string
		edge Edge
	}{
		{name: "missing source", edge: Edge{From: "ghost", To: "done"}},
		{name: "missing target", edge: Edge{From: "start", To: "ghost"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := minimalWorkflow()
			w.Edges = append(w.Edges, tt.edge)
			err := validator.Validate(w)
			requireWorkflowError(t, err, WorkflowErrorMissingDependency)
		})
	}
}

func TestGraphValidator_Validate_Connectivity(t *testing.T) {
	validator := NewGraphValidator()

	w := minimalWorkflow()
	w.Nodes = append(w.Nodes, &Node{ID: "island", Type: NodeTypeInput})

	err := validator.Validate(w)
	we := requireWorkflowError(t, err, WorkflowErrorDisconnectedNodes)
	assert.Contains(t, we.Message, "island")
}

func TestGraphValidator_Validate_Cycle(t *testing.T) {
	validator := NewGraphValidator()

	w := minimalWorkflow()
	w.Nodes = append(w.Nodes,
		&Node{ID: "a", Type: NodeTypeFunction, Expression: "1"},
		&Node{ID: "b", Type: NodeTypeFunction, Expression: "2"},
	)
	w.Edges = append(w.Edges,
		Edge{From: "start", To: "a"},
		Edge{From: "a", To: "b"},
		Edge{From: "b", To: "a"},
	)

	err := validator.Validate(w)
	we := requireWorkflowError(t, err, WorkflowErrorCycleDetected)
	assert.Contains(t, we.Message, "a")
	assert.Contains(t, we.Message, "b")
}

func TestGraphValidator_Validate_SelfLoop(t *testing.T) {
	validator := NewGraphValidator()

	w := minimalWorkflow()
	w.Nodes = append(w.Nodes, &Node{ID: "loop", Type: NodeTypeFunction, Expression: "1"})
	w.Edges = append(w.Edges,
		Edge{From: "start", To: "loop"},
		Edge{From: "loop", To: "loop"},
	)

	err := validator.Validate(w)
	requireWorkflowError(t, err, WorkflowErrorCycleDetected)
}

func TestGraphValidator_DetectCycles_Acyclic(t *testing.T) {
	validator := NewGraphValidator()
	assert.Empty(t, validator.DetectCycles(minimalWorkflow()))
}

func TestGraphValidator_DetectCycles_DisconnectedComponent(t *testing.T) {
	// The cycle lives in a component not reachable from the first node.
	w := &Workflow{
		ID:   types.NewID(),
		Name: "two components",
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeTrigger},
			{ID: "done", Type: NodeTypeOutput, Variable: "x"},
			{ID: "c1", Type: NodeTypeFunction, Expression: "1"},
			{ID: "c2", Type: NodeTypeFunction, Expression: "2"},
		},
		Edges: []Edge{
			{From: "start", To: "done"},
			{From: "c1", To: "c2"},
			{From: "c2", To: "c1"},
		},
	}

	cycle := NewGraphValidator().DetectCycles(w)
	assert.NotEmpty(t, cycle)
}
