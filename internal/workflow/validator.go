package workflow

import (
	"fmt"
	"strings"
)

// GraphValidator performs the structural checks that run strictly before
// scheduling: anchor presence, identifier uniqueness, edge endpoint
// integrity, connectivity, and cycle detection. It is stateless and
// never mutates the graph.
type GraphValidator struct{}

// NewGraphValidator creates a new GraphValidator instance.
func NewGraphValidator() *GraphValidator {
	return &GraphValidator{}
}

// Validate runs all structural checks on a workflow and returns the
// first violation encountered. Order: empty graph, node identity and
// type tags, trigger/output anchors, edge endpoints, connectivity,
// cycles.
func (v *GraphValidator) Validate(w *Workflow) error {
	if w == nil || len(w.Nodes) == 0 {
		return &WorkflowError{
			Code:    WorkflowErrorEmptyWorkflow,
			Message: "workflow must contain at least one node",
		}
	}

	if err := v.validateNodes(w); err != nil {
		return err
	}

	if len(w.NodesOfType(NodeTypeTrigger)) == 0 {
		return &WorkflowError{
			Code:    WorkflowErrorMissingTrigger,
			Message: "workflow must contain a trigger node",
		}
	}

	if len(w.NodesOfType(NodeTypeOutput)) == 0 {
		return &WorkflowError{
			Code:    WorkflowErrorMissingOutput,
			Message: "workflow must contain an output node",
		}
	}

	if err := v.validateEdges(w); err != nil {
		return err
	}

	if err := v.validateConnectivity(w); err != nil {
		return err
	}

	cycle := v.DetectCycles(w)
	if len(cycle) > 0 {
		return &WorkflowError{
			Code:    WorkflowErrorCycleDetected,
			Message: fmt.Sprintf("cycle detected in workflow: %s", strings.Join(cycle, " -> ")),
		}
	}

	return nil
}

// validateNodes checks identifier uniqueness and that every type tag is
// a known variant. Unknown tags fail fast here so no node executes.
func (v *GraphValidator) validateNodes(w *Workflow) error {
	seen := make(map[string]bool, len(w.Nodes))
	for _, node := range w.Nodes {
		if node == nil || node.ID == "" {
			return &WorkflowError{
				Code:    WorkflowErrorDuplicateNodeID,
				Message: "every node must have a non-empty identifier",
			}
		}
		if seen[node.ID] {
			return &WorkflowError{
				Code:    WorkflowErrorDuplicateNodeID,
				Message: fmt.Sprintf("duplicate node identifier %q", node.ID),
				NodeID:  node.ID,
			}
		}
		seen[node.ID] = true

		if !node.Type.IsValid() {
			return &WorkflowError{
				Code:    WorkflowErrorUnknownNodeType,
				Message: fmt.Sprintf("node %q has unknown type %q", node.ID, node.Type),
				NodeID:  node.ID,
			}
		}
	}
	return nil
}

// validateEdges checks that both endpoints of every edge reference
// existing node identifiers.
func (v *GraphValidator) validateEdges(w *Workflow) error {
	for _, edge := range w.Edges {
		if w.NodeByID(edge.From) == nil {
			return &WorkflowError{
				Code:    WorkflowErrorMissingDependency,
				Message: fmt.Sprintf("edge references non-existent source node %q", edge.From),
			}
		}
		if w.NodeByID(edge.To) == nil {
			return &WorkflowError{
				Code:    WorkflowErrorMissingDependency,
				Message: fmt.Sprintf("edge references non-existent target node %q", edge.To),
			}
		}
	}
	return nil
}

// validateConnectivity requires that, in a multi-node graph, every node
// appears in at least one edge as source or target. The error names the
// offending nodes.
func (v *GraphValidator) validateConnectivity(w *Workflow) error {
	if len(w.Nodes) < 2 {
		return nil
	}

	referenced := make(map[string]bool, len(w.Nodes))
	for _, edge := range w.Edges {
		referenced[edge.From] = true
		referenced[edge.To] = true
	}

	var disconnected []string
	for _, node := range w.Nodes {
		if !referenced[node.ID] {
			disconnected = append(disconnected, node.ID)
		}
	}

	if len(disconnected) > 0 {
		return &WorkflowError{
			Code:    WorkflowErrorDisconnectedNodes,
			Message: fmt.Sprintf("nodes not connected to the graph: %s", strings.Join(disconnected, ", ")),
		}
	}
	return nil
}

// DetectCycles uses depth-first search with color marking to detect
// cycles. Colors: white (0) = unvisited, gray (1) = on the recursion
// stack, black (2) = done. Every unvisited node is taken as a fresh DFS
// root so cycles in disconnected components are caught. Returns the
// nodes involved in a cycle if found, otherwise an empty slice.
func (v *GraphValidator) DetectCycles(w *Workflow) []string {
	if w == nil || len(w.Nodes) == 0 {
		return nil
	}

	color := make(map[string]int, len(w.Nodes))
	parent := make(map[string]string, len(w.Nodes))
	adjList := buildAdjacencyList(w)

	var dfs func(nodeID string) []string
	dfs = func(nodeID string) []string {
		color[nodeID] = 1

		for _, neighbor := range adjList[nodeID] {
			if color[neighbor] == 0 {
				parent[neighbor] = nodeID
				if cycle := dfs(neighbor); cycle != nil {
					return cycle
				}
			} else if color[neighbor] == 1 {
				// Back edge: reconstruct the cycle path.
				cycle := []string{neighbor}
				current := nodeID
				for current != neighbor {
					cycle = append([]string{current}, cycle...)
					current = parent[current]
				}
				cycle = append([]string{neighbor}, cycle...)
				return cycle
			}
		}

		color[nodeID] = 2
		return nil
	}

	for _, node := range w.Nodes {
		if color[node.ID] == 0 {
			if cycle := dfs(node.ID); cycle != nil {
				return cycle
			}
		}
	}

	return []string{}
}

// buildAdjacencyList constructs an adjacency list over the workflow's
// edges, with successor lists in edge declaration order.
func buildAdjacencyList(w *Workflow) map[string][]string {
	adjList := make(map[string][]string, len(w.Nodes))
	for _, node := range w.Nodes {
		adjList[node.ID] = nil
	}
	for _, edge := range w.Edges {
		adjList[edge.From] = append(adjList[edge.From], edge.To)
	}
	return adjList
}
