package workflow

// Hooks are per-run lifecycle callbacks. Every field is optional; nil
// callbacks are skipped. Callbacks run synchronously on the run's
// goroutine, so slow hooks slow the run.
type Hooks struct {
	// OnNodeStart fires before a node is dispatched.
	OnNodeStart func(nodeID string, nodeType NodeType)

	// OnNodeComplete fires after a node completes successfully.
	OnNodeComplete func(nodeID string, result *NodeResult)

	// OnNodeError fires after a node fails. The run continues; the
	// failure is isolated to the node's result.
	OnNodeError func(nodeID string, result *NodeResult)

	// OnLogUpdate receives the run's human-readable trace lines.
	OnLogUpdate func(line string)

	// OnWorkflowComplete fires exactly once per run with the final
	// result, whatever the terminal status.
	OnWorkflowComplete func(result *WorkflowResult)
}

func (h *Hooks) nodeStart(nodeID string, nodeType NodeType) {
	if h != nil && h.OnNodeStart != nil {
		h.OnNodeStart(nodeID, nodeType)
	}
}

func (h *Hooks) nodeComplete(nodeID string, result *NodeResult) {
	if h != nil && h.OnNodeComplete != nil {
		h.OnNodeComplete(nodeID, result)
	}
}

func (h *Hooks) nodeError(nodeID string, result *NodeResult) {
	if h != nil && h.OnNodeError != nil {
		h.OnNodeError(nodeID, result)
	}
}

func (h *Hooks) logUpdate(line string) {
	if h != nil && h.OnLogUpdate != nil {
		h.OnLogUpdate(line)
	}
}

func (h *Hooks) workflowComplete(result *WorkflowResult) {
	if h != nil && h.OnWorkflowComplete != nil {
		h.OnWorkflowComplete(result)
	}
}
