package workflow

import (
	"fmt"
	"sync"
)

// ExecutionContext is the run-scoped key/value store used to pass data
// between nodes. Keys include `<nodeId>_input` (the value staged for a
// node by its predecessors), `<nodeId>` (the node's own output once it
// succeeds), and named variables bound by trigger payloads, input nodes,
// and edge handles.
//
// A fresh context is created for every run and discarded at the end;
// nothing survives across runs. The orchestrator is the only writer, but
// access is mutex-guarded so lifecycle hooks can snapshot it safely.
type ExecutionContext struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewExecutionContext creates an empty run context.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{values: make(map[string]any)}
}

// InputKey returns the context key at which a node's inbound value is
// staged by the orchestrator.
func InputKey(nodeID string) string {
	return nodeID + "_input"
}

// Set binds key to value.
func (ec *ExecutionContext) Set(key string, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.values[key] = value
}

// Get returns the value bound to key, or nil when absent.
func (ec *ExecutionContext) Get(key string) any {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.values[key]
}

// Lookup returns the value bound to key and whether it exists.
func (ec *ExecutionContext) Lookup(key string) (any, bool) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	v, ok := ec.values[key]
	return v, ok
}

// Has reports whether key is bound.
func (ec *ExecutionContext) Has(key string) bool {
	_, ok := ec.Lookup(key)
	return ok
}

// Delete removes a binding.
func (ec *ExecutionContext) Delete(key string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	delete(ec.values, key)
}

// Snapshot returns a shallow copy of all current bindings. The copy is
// safe to hand to expression evaluation and interpolation while the run
// continues mutating the context.
func (ec *ExecutionContext) Snapshot() map[string]any {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	out := make(map[string]any, len(ec.values))
	for k, v := range ec.values {
		out[k] = v
	}
	return out
}

// Len returns the number of bindings.
func (ec *ExecutionContext) Len() int {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return len(ec.values)
}

// BindMap binds every key of m as a named variable.
func (ec *ExecutionContext) BindMap(m map[string]any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	for k, v := range m {
		ec.values[k] = v
	}
}

// String describes the context size; values are deliberately not
// printed, they may hold entire documents.
func (ec *ExecutionContext) String() string {
	return fmt.Sprintf("ExecutionContext(%d keys)", ec.Len())
}
