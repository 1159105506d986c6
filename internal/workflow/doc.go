// Package workflow implements the workflow execution engine: a directed
// acyclic graph of typed nodes validated, topologically ordered, and
// executed sequentially with per-node error isolation.
//
// The engine's pipeline for one run:
//
//  1. GraphValidator checks structure (anchors, edges, connectivity,
//     acyclicity) and reports the first violation.
//  2. Scheduler computes a deterministic total order (Kahn's algorithm,
//     declaration order breaking ties).
//  3. Engine drives each node through the Dispatcher against a fresh
//     ExecutionContext, recording a NodeResult per node. A failing node
//     does not abort the run.
//  4. Declared output variables are aggregated into the WorkflowResult.
//
// Collaborator-backed node types (llm, rag, websearch) delegate to the
// services in internal/llm, internal/retrieval, and internal/websearch.
// Conditional and function nodes run author-supplied expressions in a
// restricted interpreter rather than host code.
package workflow
