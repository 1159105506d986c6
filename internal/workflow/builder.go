package workflow

import (
	"fmt"
	"time"

	"github.com/synapseflow-ai/synapse/internal/types"
)

// WorkflowBuilder provides a fluent API for constructing workflows.
// It accumulates errors during building and reports them all at Build() time.
type WorkflowBuilder struct {
	workflow *Workflow
	errors   []error
	seen     map[string]bool
}

// NewWorkflow creates a new WorkflowBuilder with an initialized workflow.
func NewWorkflow(name string) *WorkflowBuilder {
	return &WorkflowBuilder{
		workflow: &Workflow{
			ID:        types.NewID(),
			Name:      name,
			Nodes:     []*Node{},
			Edges:     []Edge{},
			Metadata:  make(map[string]any),
			CreatedAt: time.Now(),
		},
		errors: []error{},
		seen:   make(map[string]bool),
	}
}

// WithDescription sets the description for the workflow.
func (wb *WorkflowBuilder) WithDescription(desc string) *WorkflowBuilder {
	wb.workflow.Description = desc
	return wb
}

// WithMetadata sets a metadata key on the workflow.
func (wb *WorkflowBuilder) WithMetadata(key string, value any) *WorkflowBuilder {
	wb.workflow.Metadata[key] = value
	return wb
}

// AddNode appends a node to the workflow in declaration order.
// If a node with the same ID already exists, an error is accumulated.
func (wb *WorkflowBuilder) AddNode(node *Node) *WorkflowBuilder {
	if node == nil {
		wb.errors = append(wb.errors, fmt.Errorf("cannot add nil node"))
		return wb
	}
	if node.ID == "" {
		wb.errors = append(wb.errors, fmt.Errorf("node must have an ID"))
		return wb
	}
	if wb.seen[node.ID] {
		wb.errors = append(wb.errors, fmt.Errorf("node with ID %q already exists", node.ID))
		return wb
	}
	wb.seen[node.ID] = true
	wb.workflow.Nodes = append(wb.workflow.Nodes, node)
	return wb
}

// AddTriggerNode is a helper that creates and adds a trigger node.
func (wb *WorkflowBuilder) AddTriggerNode(id string, payload map[string]any) *WorkflowBuilder {
	if id == "" {
		wb.errors = append(wb.errors, fmt.Errorf("trigger node must have an ID"))
		return wb
	}
	return wb.AddNode(&Node{
		ID:      id,
		Type:    NodeTypeTrigger,
		Name:    fmt.Sprintf("trigger:%s", id),
		Payload: payload,
	})
}

// AddInputNode is a helper that creates and adds an input node carrying
// an explicit value bound under the given variable name.
func (wb *WorkflowBuilder) AddInputNode(id, variable string, value any) *WorkflowBuilder {
	if id == "" {
		wb.errors = append(wb.errors, fmt.Errorf("input node must have an ID"))
		return wb
	}
	return wb.AddNode(&Node{
		ID:       id,
		Type:     NodeTypeInput,
		Name:     fmt.Sprintf("input:%s", id),
		Variable: variable,
		Value:    value,
	})
}

// AddOutputNode is a helper that creates and adds an output node
// declaring the given workflow output variable.
func (wb *WorkflowBuilder) AddOutputNode(id, variable string) *WorkflowBuilder {
	if id == "" {
		wb.errors = append(wb.errors, fmt.Errorf("output node must have an ID"))
		return wb
	}
	if variable == "" {
		wb.errors = append(wb.errors, fmt.Errorf("output node %q must declare a variable", id))
		return wb
	}
	return wb.AddNode(&Node{
		ID:       id,
		Type:     NodeTypeOutput,
		Name:     fmt.Sprintf("output:%s", id),
		Variable: variable,
	})
}

// AddLLMNode is a helper that creates and adds an llm node.
func (wb *WorkflowBuilder) AddLLMNode(id, prompt string) *WorkflowBuilder {
	if id == "" {
		wb.errors = append(wb.errors, fmt.Errorf("llm node must have an ID"))
		return wb
	}
	if prompt == "" {
		wb.errors = append(wb.errors, fmt.Errorf("llm node %q must have a prompt", id))
		return wb
	}
	return wb.AddNode(&Node{
		ID:     id,
		Type:   NodeTypeLLM,
		Name:   fmt.Sprintf("llm:%s", id),
		Prompt: prompt,
	})
}

// AddRAGNode is a helper that creates and adds a rag node.
func (wb *WorkflowBuilder) AddRAGNode(id, query string, topK int) *WorkflowBuilder {
	if id == "" {
		wb.errors = append(wb.errors, fmt.Errorf("rag node must have an ID"))
		return wb
	}
	if query == "" {
		wb.errors = append(wb.errors, fmt.Errorf("rag node %q must have a query", id))
		return wb
	}
	return wb.AddNode(&Node{
		ID:    id,
		Type:  NodeTypeRAG,
		Name:  fmt.Sprintf("rag:%s", id),
		Query: query,
		TopK:  topK,
	})
}

// AddWebSearchNode is a helper that creates and adds a websearch node.
func (wb *WorkflowBuilder) AddWebSearchNode(id, query string, resultCount int) *WorkflowBuilder {
	if id == "" {
		wb.errors = append(wb.errors, fmt.Errorf("websearch node must have an ID"))
		return wb
	}
	if query == "" {
		wb.errors = append(wb.errors, fmt.Errorf("websearch node %q must have a query", id))
		return wb
	}
	return wb.AddNode(&Node{
		ID:          id,
		Type:        NodeTypeWebSearch,
		Name:        fmt.Sprintf("websearch:%s", id),
		Query:       query,
		ResultCount: resultCount,
	})
}

// AddConditionalNode is a helper that creates and adds a conditional node.
func (wb *WorkflowBuilder) AddConditionalNode(id string, condition *NodeCondition) *WorkflowBuilder {
	if id == "" {
		wb.errors = append(wb.errors, fmt.Errorf("conditional node must have an ID"))
		return wb
	}
	if condition == nil {
		wb.errors = append(wb.errors, fmt.Errorf("conditional node %q must have a condition", id))
		return wb
	}
	if condition.Expression == "" && condition.Operator == "" {
		wb.errors = append(wb.errors, fmt.Errorf("conditional node %q must have an expression or an operator", id))
		return wb
	}
	return wb.AddNode(&Node{
		ID:        id,
		Type:      NodeTypeConditional,
		Name:      fmt.Sprintf("conditional:%s", id),
		Condition: condition,
	})
}

// AddFunctionNode is a helper that creates and adds a function node.
func (wb *WorkflowBuilder) AddFunctionNode(id, expression string) *WorkflowBuilder {
	if id == "" {
		wb.errors = append(wb.errors, fmt.Errorf("function node must have an ID"))
		return wb
	}
	if expression == "" {
		wb.errors = append(wb.errors, fmt.Errorf("function node %q must have an expression", id))
		return wb
	}
	return wb.AddNode(&Node{
		ID:         id,
		Type:       NodeTypeFunction,
		Name:       fmt.Sprintf("function:%s", id),
		Expression: expression,
	})
}

// AddEdge adds a directed edge from one node to another.
func (wb *WorkflowBuilder) AddEdge(from, to string) *WorkflowBuilder {
	return wb.addEdge(from, to, "")
}

// AddHandleEdge adds a directed edge whose value is additionally bound
// under the handle name in the run context.
func (wb *WorkflowBuilder) AddHandleEdge(from, to, handle string) *WorkflowBuilder {
	if handle == "" {
		wb.errors = append(wb.errors, fmt.Errorf("handle edge must have a non-empty handle"))
		return wb
	}
	return wb.addEdge(from, to, handle)
}

func (wb *WorkflowBuilder) addEdge(from, to, handle string) *WorkflowBuilder {
	if from == "" {
		wb.errors = append(wb.errors, fmt.Errorf("edge must have a non-empty 'from' node"))
		return wb
	}
	if to == "" {
		wb.errors = append(wb.errors, fmt.Errorf("edge must have a non-empty 'to' node"))
		return wb
	}
	wb.workflow.Edges = append(wb.workflow.Edges, Edge{From: from, To: to, Handle: handle})
	return wb
}

// Build runs structural validation and returns the constructed workflow
// or the accumulated errors.
func (wb *WorkflowBuilder) Build() (*Workflow, error) {
	if len(wb.errors) > 0 {
		return nil, fmt.Errorf("workflow construction failed with %d error(s): %v", len(wb.errors), wb.errors)
	}
	if err := NewGraphValidator().Validate(wb.workflow); err != nil {
		return nil, err
	}
	return wb.workflow, nil
}
