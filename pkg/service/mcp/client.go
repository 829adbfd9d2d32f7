package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/m-mizutani/farmassist/pkg/interfaces"
	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/farmassist/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	// ErrToolServerUnreachable is returned when a tool server can not be connected or listed
	ErrToolServerUnreachable = goerr.New("tool server unreachable")

	// ErrToolFailed is returned when a tool call fails or the tool reports an error
	ErrToolFailed = goerr.New("tool call failed")
)

const (
	clientName    = "farmassist"
	clientVersion = "0.1.0"

	DefaultConnectTimeout = 10 * time.Second
	DefaultCallTimeout    = 30 * time.Second
)

// Client opens sessions to the configured MCP servers
type Client struct {
	servers        []ServerConfig
	connectTimeout time.Duration
	callTimeout    time.Duration
	httpClient     *http.Client
}

var _ interfaces.ToolCatalog = (*Client)(nil)

type Option func(*Client)

// WithConnectTimeout bounds the handshake and tool listing of Open
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.connectTimeout = d
		}
	}
}

// WithCallTimeout is the longest a tool server may take before answering a
// request. It bounds every HTTP round trip of a session.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithHTTPClient sets the HTTP client used by http transports
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a new MCP client for the given servers
func NewClient(servers []ServerConfig, opts ...Option) *Client {
	c := &Client{
		servers:        servers,
		connectTimeout: DefaultConnectTimeout,
		callTimeout:    DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		// No http.Client.Timeout: it would also cut the long lived SSE stream of the session
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = c.connectTimeout + c.callTimeout
		c.httpClient = &http.Client{Transport: transport}
	}

	return c
}

// Open connects to every configured server and retrieves its tools. Sessions
// are not shared between calls, so each chat turn sees the current catalog.
// Sessions live until the Toolset is closed or ctx is canceled; only the
// handshake is bounded by the connect timeout.
func (c *Client) Open(ctx context.Context) (interfaces.Toolset, error) {
	sessCtx, cancel := context.WithCancel(ctx)

	ts := &Toolset{
		sessions: make(map[string]*mcp.ClientSession),
		owner:    make(map[string]string),
		cancel:   cancel,
	}

	done := make(chan error, 1)
	go func() {
		for _, cfg := range c.servers {
			if err := ts.connect(sessCtx, c.newTransport, cfg); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	timer := time.NewTimer(c.connectTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			_ = ts.Close()
			return nil, err
		}
		return ts, nil

	case <-timer.C:
		cancel()
		go closeWhenDone(ts, done)
		return nil, goerr.Wrap(ErrToolServerUnreachable, "timed out connecting to tool servers",
			goerr.V("timeout", c.connectTimeout.String()))

	case <-ctx.Done():
		cancel()
		go closeWhenDone(ts, done)
		return nil, goerr.Wrap(ctx.Err(), "canceled while connecting to tool servers")
	}
}

// closeWhenDone releases sessions of an abandoned Open once its handshake returns
func closeWhenDone(ts *Toolset, done <-chan error) {
	<-done
	_ = ts.Close()
}

func (c *Client) newTransport(cfg ServerConfig) (mcp.Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Transport {
	case TransportStdio:
		cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
		if len(cfg.Env) > 0 {
			env := os.Environ()
			for k, v := range cfg.Env {
				env = append(env, k+"="+v)
			}
			cmd.Env = env
		}
		return &mcp.CommandTransport{Command: cmd}, nil

	default:
		return &mcp.StreamableClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: c.httpClient,
			MaxRetries: -1,
		}, nil
	}
}

// Toolset is an open session with every configured server
type Toolset struct {
	sessions map[string]*mcp.ClientSession
	tools    []model.ToolDescriptor
	// owner maps tool name to server name
	owner map[string]string

	cancel context.CancelFunc
}

func (x *Toolset) connect(ctx context.Context, newTransport func(ServerConfig) (mcp.Transport, error), cfg ServerConfig) error {
	transport, err := newTransport(cfg)
	if err != nil {
		return goerr.Wrap(ErrToolServerUnreachable, "failed to create transport",
			goerr.V("server", cfg.Name),
			goerr.V("cause", err.Error()))
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return goerr.Wrap(ErrToolServerUnreachable, "failed to connect to MCP server",
			goerr.V("server", cfg.Name),
			goerr.V("cause", err.Error()))
	}
	x.sessions[cfg.Name] = session

	resp, err := session.ListTools(ctx, nil)
	if err != nil {
		return goerr.Wrap(ErrToolServerUnreachable, "failed to list tools",
			goerr.V("server", cfg.Name),
			goerr.V("cause", err.Error()))
	}

	for _, t := range resp.Tools {
		if prev, ok := x.owner[t.Name]; ok {
			logging.From(ctx).Warn("duplicated tool name, keeping the first one",
				"tool", t.Name,
				"server", cfg.Name,
				"kept", prev)
			continue
		}

		schema, err := schemaToMap(t.InputSchema)
		if err != nil {
			return goerr.Wrap(err, "failed to read tool input schema",
				goerr.V("server", cfg.Name),
				goerr.V("tool", t.Name))
		}

		x.owner[t.Name] = cfg.Name
		x.tools = append(x.tools, model.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
			Server:      cfg.Name,
		})
	}

	return nil
}

// Tools returns all tools discovered when the toolset was opened
func (x *Toolset) Tools() []model.ToolDescriptor {
	return x.tools
}

// Call invokes a tool and joins its text content. When the tool reports an
// error, its text is returned together with ErrToolFailed.
func (x *Toolset) Call(ctx context.Context, call model.ToolCall) (string, error) {
	serverName, ok := x.owner[call.Name]
	if !ok {
		return "", goerr.Wrap(ErrToolFailed, "tool not found", goerr.V("tool", call.Name))
	}

	session, ok := x.sessions[serverName]
	if !ok {
		return "", goerr.Wrap(ErrToolFailed, "toolset is closed", goerr.V("tool", call.Name))
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      call.Name,
		Arguments: call.Arguments,
	})
	if err != nil {
		return "", goerr.Wrap(ErrToolFailed, "failed to call tool",
			goerr.V("server", serverName),
			goerr.V("tool", call.Name),
			goerr.V("cause", err.Error()))
	}

	text := joinText(result.Content)
	if result.IsError {
		return text, goerr.Wrap(ErrToolFailed, "tool returned error",
			goerr.V("server", serverName),
			goerr.V("tool", call.Name),
			goerr.V("result", text))
	}

	return text, nil
}

// Close closes all MCP server sessions
func (x *Toolset) Close() error {
	var firstErr error
	for name, session := range x.sessions {
		if err := session.Close(); err != nil && firstErr == nil {
			firstErr = goerr.Wrap(err, "failed to close session", goerr.V("server", name))
		}
	}
	x.sessions = map[string]*mcp.ClientSession{}
	if x.cancel != nil {
		x.cancel()
	}
	return firstErr
}

func joinText(contents []mcp.Content) string {
	var texts []string
	for _, c := range contents {
		if t, ok := c.(*mcp.TextContent); ok {
			texts = append(texts, t.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func schemaToMap(schema any) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "object"}, nil
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal schema")
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal schema")
	}
	return out, nil
}
