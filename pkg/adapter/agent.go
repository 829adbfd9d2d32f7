package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// AgentAPIError is returned when the agent API answers with a non-2xx status
type AgentAPIError struct {
	StatusCode int
	Message    string
}

func (e *AgentAPIError) Error() string {
	return e.Message
}

// Agent is the client of the agent API used by the terminal chat
type Agent interface {
	Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error)
}

type agentClient struct {
	endpoint   string
	httpClient *http.Client
}

type AgentOption func(*agentClient)

func WithAgentTimeout(timeout time.Duration) AgentOption {
	return func(c *agentClient) {
		c.httpClient.Timeout = timeout
	}
}

// NewAgent creates a client of the agent API served at endpoint
func NewAgent(endpoint string, opts ...AgentOption) Agent {
	c := &agentClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *agentClient) Chat(ctx context.Context, chatReq model.ChatRequest) (*model.ChatResponse, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send chat request", goerr.V("endpoint", c.endpoint))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &AgentAPIError{StatusCode: resp.StatusCode, Message: string(raw)}

		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
		}
		return nil, goerr.Wrap(apiErr, "agent API returned error", goerr.V("status", resp.StatusCode))
	}

	var chatResp model.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, goerr.Wrap(err, "failed to decode chat response")
	}

	return &chatResp, nil
}
