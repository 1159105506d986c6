package retrieval

import (
	"context"

	"github.com/synapseflow-ai/synapse/internal/types"
)

// Retriever is the retrieval-augmented-search contract the workflow
// engine calls into. Implementations rank stored documents against a
// query and return the top-k matches with relevance scores.
type Retriever interface {
	// Retrieve returns the topK most relevant documents for query.
	Retrieve(ctx context.Context, query string, topK int) (*Result, error)
}

// Embedder converts text into a vector for similarity search.
type Embedder interface {
	// Embed returns the embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Document is one retrieved chunk with its relevance score. Higher
// scores are more relevant.
type Document struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score"`
}

// Result is the structured retrieval response handed back to the engine.
type Result struct {
	Documents []Document `json:"documents"`
	// Method names the retrieval strategy used (e.g. "pgvector", "memory").
	Method string `json:"method"`
}

// DefaultTopK is used when a rag node does not specify top_k.
const DefaultTopK = 5

// Map renders the result as the generic value the execution context
// carries between nodes.
func (r *Result) Map() map[string]any {
	docs := make([]any, len(r.Documents))
	for i, d := range r.Documents {
		docs[i] = map[string]any{
			"id":      d.ID,
			"content": d.Content,
			"source":  d.Source,
			"score":   d.Score,
		}
	}
	return map[string]any{
		"documents": docs,
		"method":    r.Method,
	}
}

func queryError(cause error) error {
	return types.WrapError(types.RETRIEVAL_QUERY_FAILED, "similarity query failed", cause)
}

func embeddingError(cause error) error {
	return types.WrapError(types.RETRIEVAL_EMBEDDING_FAILED, "query embedding failed", cause)
}
