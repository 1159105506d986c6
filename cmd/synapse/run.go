package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/synapseflow-ai/synapse/internal/config"
	"github.com/synapseflow-ai/synapse/internal/events"
	"github.com/synapseflow-ai/synapse/internal/llm"
	"github.com/synapseflow-ai/synapse/internal/llm/providers"
	"github.com/synapseflow-ai/synapse/internal/retrieval"
	"github.com/synapseflow-ai/synapse/internal/websearch"
	"github.com/synapseflow-ai/synapse/internal/workflow"
)

var runInputs []string

var runCmd = &cobra.Command{
	Use:   "run <workflow.yaml>",
	Short: "Execute a workflow",
	Long: `Run loads a YAML workflow definition, executes it, and prints the
result as JSON. Node lifecycle events stream to stderr while the run is
in progress. Input variables are bound before the first node executes:

  synapse run pipeline.yaml --input question="What is pgvector?"`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runInputs, "input", "i", nil, "Input variable as key=value (repeatable)")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	w, err := workflow.LoadWorkflowFromFile(args[0])
	if err != nil {
		return err
	}

	input, err := parseInputs(runInputs)
	if err != nil {
		return err
	}

	engine, cleanup, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	result, execErr := engine.Execute(ctx, w, workflow.WithInput(input))
	if execErr != nil && result == nil {
		return execErr
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if !result.Succeeded() {
		return fmt.Errorf("workflow finished with status %s", result.Status)
	}
	return nil
}

// buildEngine wires the engine from the process config. The returned
// cleanup stops the event printer and closes the bus.
func buildEngine(ctx context.Context, cfg *config.Config) (*workflow.Engine, func(), error) {
	completion, err := buildCompletionService(cfg.LLM)
	if err != nil {
		return nil, nil, err
	}

	retriever, err := buildRetriever(cfg.Retrieval)
	if err != nil {
		return nil, nil, err
	}

	searcher, err := buildSearcher(cfg.WebSearch)
	if err != nil {
		return nil, nil, err
	}

	bus := events.NewEventBus()
	eventCh, unsubscribe := bus.Subscribe(ctx, events.Filter{}, 0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		printEvents(eventCh)
	}()

	engineOpts := []workflow.EngineOption{
		workflow.WithLogger(slog.Default()),
		workflow.WithEventBus(bus),
		workflow.WithCompletionService(completion),
		workflow.WithRetriever(retriever),
		workflow.WithSearcher(searcher),
		workflow.WithDefaultNodeTimeout(cfg.Core.NodeTimeout),
	}
	if cfg.Tracing.Enabled {
		engineOpts = append(engineOpts, workflow.WithTracer(otel.Tracer("synapse")))
	}
	engine := workflow.NewEngine(engineOpts...)

	cleanup := func() {
		unsubscribe()
		_ = bus.Close()
		wg.Wait()
	}
	return engine, cleanup, nil
}

func buildCompletionService(lc config.LLMConfig) (llm.CompletionService, error) {
	if lc.Provider == "" {
		return nil, nil
	}
	svc, err := providers.NewProvider(llm.ProviderConfig{
		Type:         llm.ProviderType(lc.Provider),
		APIKey:       lc.APIKey,
		BaseURL:      lc.BaseURL,
		DefaultModel: lc.DefaultModel,
	})
	if err != nil {
		return nil, err
	}
	if lc.Cache.Enabled {
		svc = llm.NewCachedCompletionService(svc, llm.CacheConfig{
			Enabled: true,
			Addr:    lc.Cache.Addr,
			DB:      lc.Cache.DB,
			TTL:     lc.Cache.TTL,
		})
	}
	return svc, nil
}

func buildRetriever(rc config.RetrievalConfig) (retrieval.Retriever, error) {
	if rc.DSN == "" {
		return retrieval.NewMemoryStore(nil), nil
	}
	return retrieval.NewPGVectorStore(retrieval.PGVectorConfig{
		DSN:   rc.DSN,
		Table: rc.Table,
	}, retrieval.HashEmbedder{})
}

func buildSearcher(wc config.WebSearchConfig) (websearch.Searcher, error) {
	if wc.Endpoint == "" {
		return nil, nil
	}
	return websearch.NewHTTPClient(websearch.HTTPClientConfig{
		BaseURL: wc.Endpoint,
		APIKey:  wc.APIKey,
	})
}

// printEvents streams run and node lifecycle events to stderr until the
// channel closes.
func printEvents(ch <-chan events.Event) {
	for ev := range ch {
		switch p := ev.Payload.(type) {
		case events.RunStartedPayload:
			fmt.Fprintf(os.Stderr, "▶ run started: %s (%d nodes)\n", p.WorkflowName, p.NodeCount)
		case events.NodePayload:
			switch ev.Type {
			case events.EventNodeStarted:
				fmt.Fprintf(os.Stderr, "  • %s (%s)\n", p.NodeID, p.NodeType)
			case events.EventNodeCompleted:
				fmt.Fprintf(os.Stderr, "  ✓ %s (%s)\n", p.NodeID, p.Duration)
			case events.EventNodeFailed:
				fmt.Fprintf(os.Stderr, "  ✗ %s: %s\n", p.NodeID, p.Error)
			}
		case events.RunCompletedPayload:
			fmt.Fprintf(os.Stderr, "■ run completed in %s (%d nodes)\n", p.Duration, p.NodesExecuted)
		case events.RunFailedPayload:
			fmt.Fprintf(os.Stderr, "■ run failed: %s\n", p.Error)
		}
	}
}

// parseInputs converts repeated key=value flags into an input map.
func parseInputs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	input := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid input %q: expected key=value", pair)
		}
		input[key] = value
	}
	return input, nil
}
