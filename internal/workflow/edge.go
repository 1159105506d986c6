package workflow

// Edge represents a directed data-flow link between two nodes.
type Edge struct {
	// From is the source node ID
	From string `json:"from"`
	// To is the target node ID
	To string `json:"to"`
	// Handle optionally names the binding for the value in the target's
	// context; when set, the source's output is also bound under this name.
	Handle string `json:"handle,omitempty"`
}
