package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

type Gemini interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiClient struct {
	client          *genai.Client
	generativeModel string

	apiKey    string
	projectID string
	location  string
}

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = model
	}
}

// WithGeminiAPIKey selects the Gemini API backend
func WithGeminiAPIKey(apiKey string) GeminiOption {
	return func(g *GeminiClient) {
		g.apiKey = apiKey
	}
}

// WithVertexAI selects the Vertex AI backend. It is ignored when an API key is set.
func WithVertexAI(projectID, location string) GeminiOption {
	return func(g *GeminiClient) {
		g.projectID = projectID
		g.location = location
	}
}

func NewGemini(ctx context.Context, opts ...GeminiOption) (*GeminiClient, error) {
	g := &GeminiClient{
		generativeModel: "gemini-2.5-flash",
		location:        "us-central1",
	}
	for _, opt := range opts {
		opt(g)
	}

	cfg := &genai.ClientConfig{}
	switch {
	case g.apiKey != "":
		cfg.APIKey = g.apiKey
		cfg.Backend = genai.BackendGeminiAPI
	case g.projectID != "":
		cfg.Project = g.projectID
		cfg.Location = g.location
		cfg.Backend = genai.BackendVertexAI
	default:
		return nil, goerr.New("either Gemini API key or Vertex AI project is required")
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}
	g.client = client

	return g, nil
}

func (g *GeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", g.generativeModel))
	}
	return resp, nil
}
