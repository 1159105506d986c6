package retrieval

import (
	"context"
	"crypto/sha256"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Retriever backed by cosine similarity.
// It serves tests and small deployments that have no Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	embedder Embedder
	docs     []memoryDoc
	calls    []RecordedQuery
}

type memoryDoc struct {
	doc       Document
	embedding []float32
}

// RecordedQuery is one Retrieve invocation, kept for test assertions.
type RecordedQuery struct {
	Query string
	TopK  int
}

// NewMemoryStore creates an empty in-memory store. A nil embedder
// defaults to the deterministic hash embedder.
func NewMemoryStore(embedder Embedder) *MemoryStore {
	if embedder == nil {
		embedder = HashEmbedder{}
	}
	return &MemoryStore{embedder: embedder}
}

// Add embeds and stores a document.
func (s *MemoryStore) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return embeddingError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, memoryDoc{doc: doc, embedding: embedding})
	return nil
}

// Retrieve returns the topK documents ranked by cosine similarity.
func (s *MemoryStore) Retrieve(ctx context.Context, query string, topK int) (*Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, embeddingError(err)
	}

	s.mu.Lock()
	s.calls = append(s.calls, RecordedQuery{Query: query, TopK: topK})
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		doc := d.doc
		doc.Score = cosineSimilarity(embedding, d.embedding)
		scored = append(scored, doc)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	return &Result{Documents: scored, Method: "memory"}, nil
}

// Queries returns all recorded Retrieve invocations.
func (s *MemoryStore) Queries() []RecordedQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RecordedQuery, len(s.calls))
	copy(out, s.calls)
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// HashEmbedder is a deterministic, dependency-free Embedder: it folds a
// SHA-256 of the text into a fixed-width vector. It carries no semantic
// signal and exists so stores can be exercised without a model.
type HashEmbedder struct{}

// Embed returns a 32-dimensional deterministic vector for text.
func (HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, len(sum))
	for i, b := range sum {
		vec[i] = float32(b)/255.0 - 0.5
	}
	return vec, nil
}
