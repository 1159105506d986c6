package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/synapseflow-ai/synapse/internal/types"
)

const defaultHTTPTimeout = 15 * time.Second

// HTTPClientConfig configures the HTTP search client.
type HTTPClientConfig struct {
	// BaseURL is the search endpoint. The query is sent as ?q=...&count=N.
	BaseURL string
	// APIKey, when set, is sent as a bearer token.
	APIKey string
	// Timeout bounds each request. Zero means defaultHTTPTimeout.
	Timeout time.Duration
}

// HTTPClient is a Searcher over a JSON search API.
type HTTPClient struct {
	config HTTPClientConfig
	client *http.Client
}

// NewHTTPClient creates an HTTP search client.
func NewHTTPClient(cfg HTTPClientConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, types.NewError(types.SEARCH_INVALID_REQUEST, "search base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, types.WrapError(types.SEARCH_INVALID_REQUEST, "invalid search base URL", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPClient{
		config: cfg,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Name identifies the searcher implementation.
func (c *HTTPClient) Name() string { return "http" }

// Search runs the query against the configured endpoint.
func (c *HTTPClient) Search(ctx context.Context, query Query) (*Response, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	count := query.Count
	if count <= 0 {
		count = DefaultResultCount
	}

	endpoint, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, types.WrapError(types.SEARCH_INVALID_REQUEST, "invalid search base URL", err)
	}
	params := endpoint.Query()
	params.Set("q", query.Text)
	params.Set("count", strconv.Itoa(count))
	if query.Provider != "" {
		params.Set("provider", query.Provider)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, types.WrapError(types.SEARCH_REQUEST_FAILED, "failed to build search request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, types.NewRetryableError(types.SEARCH_REQUEST_FAILED, "search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("search provider returned status %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, types.NewRetryableError(types.SEARCH_PROVIDER_ERROR, msg, nil)
		}
		return nil, types.NewError(types.SEARCH_PROVIDER_ERROR, msg)
	}

	var parsed Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, types.WrapError(types.SEARCH_BAD_RESPONSE, "failed to decode search response", err)
	}
	if parsed.TotalResults == 0 {
		parsed.TotalResults = len(parsed.Results)
	}
	if len(parsed.Results) > count {
		parsed.Results = parsed.Results[:count]
	}
	return &parsed, nil
}
