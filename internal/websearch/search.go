// Package websearch provides web search for websearch nodes. It defines
// the Searcher contract, an HTTP JSON client, and a recording mock.
package websearch

import (
	"context"
	"strings"

	"github.com/synapseflow-ai/synapse/internal/types"
)

// DefaultResultCount is used when a query does not set Count.
const DefaultResultCount = 5

// Searcher executes a web search query.
type Searcher interface {
	// Name identifies the searcher implementation.
	Name() string

	// Search runs the query and returns ranked results.
	Search(ctx context.Context, query Query) (*Response, error)
}

// Query is a single search request.
type Query struct {
	Text     string
	Count    int
	Provider string
}

// Validate checks the query before dispatch.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return types.NewError(types.SEARCH_INVALID_REQUEST, "search query text is empty")
	}
	return nil
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

// Response holds the ranked results for one query.
type Response struct {
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

// Map renders the response for handoff into an execution context.
func (r *Response) Map() map[string]any {
	results := make([]any, 0, len(r.Results))
	for _, sr := range r.Results {
		results = append(results, map[string]any{
			"title":    sr.Title,
			"url":      sr.URL,
			"snippet":  sr.Snippet,
			"position": sr.Position,
		})
	}
	return map[string]any{
		"results":       results,
		"total_results": r.TotalResults,
	}
}
