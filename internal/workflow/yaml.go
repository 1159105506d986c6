package workflow

// YAML-based workflow definitions for the CLI harness. Definitions are
// written in human-readable YAML and converted into Workflow values; the
// engine itself only ever consumes the parsed form.
//
// # YAML Structure Example
//
//	name: Answer questions
//	description: Retrieval-augmented question answering
//	nodes:
//	  - id: start
//	    type: trigger
//	  - id: fetch
//	    type: rag
//	    query: "{{question}}"
//	    top_k: 3
//	  - id: answer
//	    type: llm
//	    prompt: "Context: {{fetch_input}}\nQuestion: {{question}}"
//	    timeout: 30s
//	    retry:
//	      max_retries: 2
//	      backoff: exponential
//	      initial_delay: 1s
//	      max_delay: 10s
//	      multiplier: 2.0
//	  - id: done
//	    type: output
//	    variable: answer
//	edges:
//	  - from: start
//	    to: fetch
//	  - from: fetch
//	    to: answer
//	  - from: answer
//	    to: done
//
// Timeout and retry delays use Go duration format ("300ms", "1s", "5m").

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/synapseflow-ai/synapse/internal/types"
)

// YAMLWorkflow represents the top-level structure of a workflow YAML file.
type YAMLWorkflow struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Nodes       []YAMLNode `yaml:"nodes"`
	Edges       []YAMLEdge `yaml:"edges,omitempty"`
}

// YAMLNode represents a node definition in YAML format. It supports all
// node types; which fields are meaningful depends on type.
type YAMLNode struct {
	ID          string     `yaml:"id"`
	Type        string     `yaml:"type"`
	Name        string     `yaml:"name,omitempty"`
	Description string     `yaml:"description,omitempty"`
	Timeout     string     `yaml:"timeout,omitempty"`
	Retry       *YAMLRetry `yaml:"retry,omitempty"`

	// Trigger node fields
	Payload map[string]any `yaml:"payload,omitempty"`

	// Input / output node fields
	Value    any    `yaml:"value,omitempty"`
	Variable string `yaml:"variable,omitempty"`

	// LLM node fields
	Prompt      string  `yaml:"prompt,omitempty"`
	System      string  `yaml:"system,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`

	// RAG / websearch node fields
	Query          string `yaml:"query,omitempty"`
	TopK           int    `yaml:"top_k,omitempty"`
	ResultCount    int    `yaml:"result_count,omitempty"`
	SearchProvider string `yaml:"search_provider,omitempty"`

	// Conditional node fields
	Condition *YAMLCondition `yaml:"condition,omitempty"`

	// Function node fields
	Expression string `yaml:"expression,omitempty"`
}

// YAMLCondition represents a conditional node's condition in YAML.
type YAMLCondition struct {
	Expression string `yaml:"expression,omitempty"`
	Left       any    `yaml:"left,omitempty"`
	Right      any    `yaml:"right,omitempty"`
	Operator   string `yaml:"operator,omitempty"`
}

// YAMLEdge represents a directed edge in YAML format.
type YAMLEdge struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Handle string `yaml:"handle,omitempty"`
}

// YAMLRetry represents a retry policy in YAML format.
type YAMLRetry struct {
	MaxRetries   int     `yaml:"max_retries"`
	Backoff      string  `yaml:"backoff,omitempty"`
	InitialDelay string  `yaml:"initial_delay,omitempty"`
	MaxDelay     string  `yaml:"max_delay,omitempty"`
	Multiplier   float64 `yaml:"multiplier,omitempty"`
}

// LoadWorkflowFromFile reads a YAML workflow definition from disk and
// converts it into a Workflow.
func LoadWorkflowFromFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}
	return ParseWorkflowYAML(data)
}

// ParseWorkflowYAML converts YAML bytes into a Workflow. The result is
// structurally complete but not validated; callers run the validator
// (or the engine does, at the start of a run).
func ParseWorkflowYAML(data []byte) (*Workflow, error) {
	var def YAMLWorkflow
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse workflow YAML: %w", err)
	}

	if def.Name == "" {
		return nil, fmt.Errorf("workflow must have a name")
	}

	w := &Workflow{
		ID:          types.NewID(),
		Name:        def.Name,
		Description: def.Description,
		Nodes:       make([]*Node, 0, len(def.Nodes)),
		Edges:       make([]Edge, 0, len(def.Edges)),
		CreatedAt:   time.Now(),
	}

	for i, yn := range def.Nodes {
		node, err := convertYAMLNode(yn)
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, yn.ID, err)
		}
		w.Nodes = append(w.Nodes, node)
	}

	for i, ye := range def.Edges {
		if ye.From == "" || ye.To == "" {
			return nil, fmt.Errorf("edge %d: from and to are required", i)
		}
		w.Edges = append(w.Edges, Edge{From: ye.From, To: ye.To, Handle: ye.Handle})
	}

	return w, nil
}

func convertYAMLNode(yn YAMLNode) (*Node, error) {
	if yn.ID == "" {
		return nil, fmt.Errorf("node must have an id")
	}
	nodeType := NodeType(yn.Type)
	if !nodeType.IsValid() {
		return nil, fmt.Errorf("unknown node type: %q", yn.Type)
	}

	node := &Node{
		ID:             yn.ID,
		Type:           nodeType,
		Name:           yn.Name,
		Description:    yn.Description,
		Payload:        yn.Payload,
		Value:          yn.Value,
		Variable:       yn.Variable,
		Prompt:         yn.Prompt,
		System:         yn.System,
		Model:          yn.Model,
		Temperature:    yn.Temperature,
		MaxTokens:      yn.MaxTokens,
		Query:          yn.Query,
		TopK:           yn.TopK,
		ResultCount:    yn.ResultCount,
		SearchProvider: yn.SearchProvider,
		Expression:     yn.Expression,
	}

	if yn.Condition != nil {
		node.Condition = &NodeCondition{
			Expression: yn.Condition.Expression,
			Left:       yn.Condition.Left,
			Right:      yn.Condition.Right,
			Operator:   yn.Condition.Operator,
		}
	}

	if yn.Timeout != "" {
		timeout, err := time.ParseDuration(yn.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", yn.Timeout, err)
		}
		node.Timeout = timeout
	}

	if yn.Retry != nil {
		policy, err := convertYAMLRetry(yn.Retry)
		if err != nil {
			return nil, err
		}
		node.RetryPolicy = policy
	}

	return node, nil
}

func convertYAMLRetry(yr *YAMLRetry) (*RetryPolicy, error) {
	if yr.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be non-negative, got %d", yr.MaxRetries)
	}

	policy := &RetryPolicy{
		MaxRetries: yr.MaxRetries,
		Multiplier: yr.Multiplier,
	}

	switch yr.Backoff {
	case "", "constant":
		policy.BackoffStrategy = BackoffConstant
	case "linear":
		policy.BackoffStrategy = BackoffLinear
	case "exponential":
		policy.BackoffStrategy = BackoffExponential
	default:
		return nil, fmt.Errorf("unknown backoff strategy: %q", yr.Backoff)
	}

	if yr.InitialDelay != "" {
		d, err := time.ParseDuration(yr.InitialDelay)
		if err != nil {
			return nil, fmt.Errorf("invalid initial_delay %q: %w", yr.InitialDelay, err)
		}
		policy.InitialDelay = d
	}
	if yr.MaxDelay != "" {
		d, err := time.ParseDuration(yr.MaxDelay)
		if err != nil {
			return nil, fmt.Errorf("invalid max_delay %q: %w", yr.MaxDelay, err)
		}
		policy.MaxDelay = d
	}
	if policy.BackoffStrategy == BackoffExponential && policy.Multiplier == 0 {
		policy.Multiplier = 2.0
	}

	return policy, nil
}
