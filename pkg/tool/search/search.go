package search

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/farmassist/pkg/adapter"
	"github.com/m-mizutani/farmassist/pkg/tool"
	"github.com/m-mizutani/farmassist/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

const ToolName = "general_queries"

type generalQueryInput struct {
	Query string `json:"query" jsonschema:"The question in English"`
}

type searchTool struct {
	apiKey  string
	baseURL string
	timeout time.Duration

	client adapter.Search
}

type Option func(*searchTool)

// WithClient sets the web search client. Flags are ignored when it is set.
func WithClient(client adapter.Search) Option {
	return func(x *searchTool) {
		x.client = client
	}
}

// New creates the general query tool backed by web search
func New(opts ...Option) *searchTool {
	x := &searchTool{
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *searchTool) Name() string {
	return ToolName
}

// Flags returns CLI flags for this tool
func (x *searchTool) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "tavily-api-key",
			Sources:     cli.EnvVars("TAVILY_API_KEY"),
			Usage:       "Tavily API key",
			Destination: &x.apiKey,
		},
		&cli.StringFlag{
			Name:        "tavily-base-url",
			Sources:     cli.EnvVars("FARMASSIST_TAVILY_BASE_URL"),
			Usage:       "Tavily API base URL (default: library default)",
			Destination: &x.baseURL,
		},
		&cli.DurationFlag{
			Name:        "search-timeout",
			Sources:     cli.EnvVars("FARMASSIST_SEARCH_TIMEOUT"),
			Usage:       "Timeout of web search requests",
			Value:       15 * time.Second,
			Destination: &x.timeout,
		},
	}
}

// Init initializes the tool
func (x *searchTool) Init(ctx context.Context) error {
	if x.client != nil {
		return nil
	}

	if x.apiKey == "" {
		logging.From(ctx).Warn("Tavily API key is not set, general_queries will report search as unavailable")
	}

	opts := []adapter.SearchOption{
		adapter.WithSearchHTTPClient(&http.Client{Timeout: x.timeout}),
		adapter.WithSearchMaxResults(DefaultTopN),
	}
	if x.baseURL != "" {
		opts = append(opts, adapter.WithSearchBaseURL(x.baseURL))
	}
	x.client = adapter.NewTavily(x.apiKey, opts...)
	return nil
}

// Register adds general_queries to the MCP server
func (x *searchTool) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: "Answer general queries related to agriculture and farming. Returns the top 3 web results with title, summary and link.",
	}, x.handle)
}

func (x *searchTool) handle(ctx context.Context, req *mcp.CallToolRequest, input generalQueryInput) (*mcp.CallToolResult, any, error) {
	return tool.TextResult(x.Run(ctx, input.Query)), nil, nil
}

// Run searches the web for query and returns the formatted results.
// Provider failures are reported as text.
func (x *searchTool) Run(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return "Please provide a question to search for."
	}

	results, err := x.client.Search(ctx, query)
	if err != nil {
		logging.From(ctx).Warn("failed to search the web", "query", query, logging.ErrAttr(err))
		return "Web search is currently unavailable. Please try again later."
	}

	return Format(results, DefaultTopN)
}
