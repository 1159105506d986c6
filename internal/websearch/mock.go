package websearch

import (
	"context"
	"fmt"
	"sync"
)

// MockSearcher is a Searcher for tests. It replays canned responses in
// order and records every query it receives.
type MockSearcher struct {
	mu        sync.Mutex
	responses []*Response
	index     int
	failErr   error
	queries   []Query
}

// NewMockSearcher creates a mock that replays the given responses in
// order, repeating the last one once exhausted.
func NewMockSearcher(responses ...*Response) *MockSearcher {
	return &MockSearcher{responses: responses}
}

// Name identifies the searcher implementation.
func (m *MockSearcher) Name() string { return "mock" }

// FailWith makes every subsequent Search return err.
func (m *MockSearcher) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Search records the query and replays the next canned response.
func (m *MockSearcher) Search(_ context.Context, query Query) (*Response, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)

	if m.failErr != nil {
		return nil, m.failErr
	}
	if len(m.responses) == 0 {
		return m.generate(query), nil
	}
	resp := m.responses[m.index]
	if m.index < len(m.responses)-1 {
		m.index++
	}
	return resp, nil
}

// Queries returns all recorded search queries.
func (m *MockSearcher) Queries() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Query, len(m.queries))
	copy(out, m.queries)
	return out
}

// Reset clears recorded queries and replay position.
func (m *MockSearcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = nil
	m.index = 0
	m.failErr = nil
}

func (m *MockSearcher) generate(query Query) *Response {
	count := query.Count
	if count <= 0 {
		count = DefaultResultCount
	}
	results := make([]SearchResult, count)
	for i := range results {
		results[i] = SearchResult{
			Title:    fmt.Sprintf("Result %d for %q", i+1, query.Text),
			URL:      fmt.Sprintf("https://example.com/%d", i+1),
			Snippet:  fmt.Sprintf("Snippet %d for %q", i+1, query.Text),
			Position: i + 1,
		}
	}
	return &Response{Results: results, TotalResults: count}
}
