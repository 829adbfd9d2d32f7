package adapter

import (
	"context"
	"net/http"
	"time"

	tavilygo "github.com/diverged/tavily-go"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultSearchMaxResults is how many results are requested from the provider
const DefaultSearchMaxResults = 3

// ErrUpstreamSearch is returned when the web search provider fails
var ErrUpstreamSearch = goerr.New("search provider failed")

// Search is the interface for the web search provider
type Search interface {
	Search(ctx context.Context, query string) ([]model.SearchResult, error)
}

type tavilyClient struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

type SearchOption func(*tavilyClient)

func WithSearchBaseURL(baseURL string) SearchOption {
	return func(c *tavilyClient) {
		c.baseURL = baseURL
	}
}

func WithSearchMaxResults(n int) SearchOption {
	return func(c *tavilyClient) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

func WithSearchHTTPClient(client *http.Client) SearchOption {
	return func(c *tavilyClient) {
		c.httpClient = client
	}
}

// NewTavily creates a web search client backed by Tavily
func NewTavily(apiKey string, opts ...SearchOption) Search {
	c := &tavilyClient{
		apiKey:     apiKey,
		maxResults: DefaultSearchMaxResults,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchOutcome struct {
	results []model.SearchResult
	err     error
}

func (c *tavilyClient) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	if c.apiKey == "" {
		return nil, goerr.Wrap(ErrUpstreamSearch, "search API key is not configured")
	}

	client := tavilygo.NewClient(c.apiKey)
	if c.baseURL != "" {
		client.BaseURL = c.baseURL
	}
	client.HTTPClient = c.httpClient

	req := tavilyModels.SearchRequest{
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  c.maxResults,
	}

	// tavily-go does not take a context, so the call is raced against ctx
	done := make(chan searchOutcome, 1)
	go func() {
		resp, err := tavilygo.Search(client, req)
		if err != nil {
			done <- searchOutcome{err: err}
			return
		}

		results := make([]model.SearchResult, 0, len(resp.Results))
		for _, r := range resp.Results {
			results = append(results, model.SearchResult{
				Title:   r.Title,
				Content: r.Content,
				URL:     r.URL,
			})
		}
		done <- searchOutcome{results: results}
	}()

	var out searchOutcome
	select {
	case <-ctx.Done():
		return nil, goerr.Wrap(ErrUpstreamSearch, "search canceled",
			goerr.V("query", query),
			goerr.V("cause", ctx.Err().Error()))
	case out = <-done:
	}

	if out.err != nil {
		return nil, goerr.Wrap(ErrUpstreamSearch, "failed to perform search",
			goerr.V("query", query),
			goerr.V("cause", out.err.Error()))
	}

	return out.results, nil
}
