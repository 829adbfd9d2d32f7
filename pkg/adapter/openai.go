package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// GroqBaseURL is the OpenAI compatible endpoint of Groq
const GroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAI is the interface for OpenAI compatible chat completion APIs
type OpenAI interface {
	Complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type openAIClient struct {
	client openai.Client
	model  string
}

type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL string
	model   string
}

func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(c *openAIConfig) {
		c.baseURL = baseURL
	}
}

func WithOpenAIModel(model string) OpenAIOption {
	return func(c *openAIConfig) {
		c.model = model
	}
}

// NewOpenAI creates a chat completion client. Use WithOpenAIBaseURL(GroqBaseURL) for Groq.
func NewOpenAI(apiKey string, opts ...OpenAIOption) OpenAI {
	cfg := &openAIConfig{
		model: "gpt-4o-mini",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &openAIClient{
		client: openai.NewClient(reqOpts...),
		model:  cfg.model,
	}
}

func (c *openAIClient) Complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	params.Model = openai.ChatModel(c.model)
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create chat completion", goerr.V("model", c.model))
	}
	return resp, nil
}
