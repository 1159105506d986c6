package workflow

import "fmt"

// Scheduler computes a total execution order over a validated workflow
// using Kahn's algorithm (in-degree tracking). The order guarantees
// that every edge's source precedes its target.
type Scheduler struct{}

// NewScheduler creates a new Scheduler instance.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule returns node IDs in topological order. Among simultaneously
// ready nodes, declaration order wins, so the result is deterministic
// for identical input.
//
// If the order covers fewer nodes than the workflow contains, the graph
// holds a residual cycle or unreachable subgraph that validation did not
// catch; this is a hard error rather than a silent partial order.
func (s *Scheduler) Schedule(w *Workflow) ([]string, error) {
	if w == nil || len(w.Nodes) == 0 {
		return []string{}, nil
	}

	adjList := buildAdjacencyList(w)
	inDegree := make(map[string]int, len(w.Nodes))
	for _, node := range w.Nodes {
		inDegree[node.ID] = 0
	}
	for _, neighbors := range adjList {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	// Seed the ready queue in declaration order.
	var queue []string
	for _, node := range w.Nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	order := make([]string, 0, len(w.Nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, neighbor := range adjList[current] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(order) != len(w.Nodes) {
		var residual []string
		scheduled := make(map[string]bool, len(order))
		for _, id := range order {
			scheduled[id] = true
		}
		for _, node := range w.Nodes {
			if !scheduled[node.ID] {
				residual = append(residual, node.ID)
			}
		}
		return nil, &WorkflowError{
			Code:    WorkflowErrorUnreachableNodes,
			Message: fmt.Sprintf("%d nodes could not be ordered (cycle or unreachable subgraph): %v", len(residual), residual),
		}
	}

	return order, nil
}
