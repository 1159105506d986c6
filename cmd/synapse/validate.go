package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/synapseflow-ai/synapse/internal/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.yaml>",
	Short: "Validate a workflow without executing it",
	Long: `Validate loads a YAML workflow definition, checks its structure
(anchors, edges, connectivity, acyclicity), and prints the order nodes
would execute in.`,
	Args: cobra.ExactArgs(1),
	RunE: validateWorkflow,
}

func validateWorkflow(cmd *cobra.Command, args []string) error {
	w, err := workflow.LoadWorkflowFromFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Workflow: %s (%d nodes, %d edges)\n", w.Name, len(w.Nodes), len(w.Edges))

	if err := workflow.NewGraphValidator().Validate(w); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	fmt.Fprintln(out, "Structure: OK")

	order, err := workflow.NewScheduler().Schedule(w)
	if err != nil {
		return fmt.Errorf("scheduling failed: %w", err)
	}
	fmt.Fprintln(out, "Execution order:")
	for i, nodeID := range order {
		node := w.NodeByID(nodeID)
		fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, nodeID, node.Type)
	}
	return nil
}
