package cli

import (
	"context"
	"time"

	"github.com/m-mizutani/farmassist/pkg/adapter"
	"github.com/m-mizutani/farmassist/pkg/interfaces"
	"github.com/m-mizutani/farmassist/pkg/llm"
	"github.com/m-mizutani/farmassist/pkg/repository"
	"github.com/m-mizutani/farmassist/pkg/service/mcp"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	providerGemini = "gemini"
	providerClaude = "claude"
	providerGroq   = "groq"
	providerOpenAI = "openai"

	defaultGroqModel = "llama-3.1-8b-instant"
)

type logConfig struct {
	level  string
	format string
}

func logFlags(cfg *logConfig) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Aliases:     []string{"l"},
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("FARMASSIST_LOG_LEVEL"),
			Destination: &cfg.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("FARMASSIST_LOG_FORMAT"),
			Destination: &cfg.format,
		},
	}
}

// agentConfig holds configuration of the agent API server
type agentConfig struct {
	addr string

	// Tool servers
	toolServerURL      string
	mcpConfig          string
	toolConnectTimeout time.Duration

	// Agent loop
	maxIterations  int64
	llmTimeout     time.Duration
	toolTimeout    time.Duration
	requestTimeout time.Duration

	// Thread memory
	maxThreads int64
	threadTTL  time.Duration
}

func agentFlags(cfg *agentConfig) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address of the agent API",
			Value:       ":8080",
			Sources:     cli.EnvVars("FARMASSIST_ADDR"),
			Destination: &cfg.addr,
		},
		&cli.StringFlag{
			Name:        "tool-server-url",
			Usage:       "Streamable HTTP endpoint of the tool server",
			Value:       "http://localhost:8000/mcp",
			Sources:     cli.EnvVars("FARMASSIST_TOOL_SERVER_URL"),
			Destination: &cfg.toolServerURL,
		},
		&cli.StringFlag{
			Name:        "mcp-config",
			Usage:       "Path to YAML file listing tool servers. Overrides --tool-server-url",
			Sources:     cli.EnvVars("FARMASSIST_MCP_CONFIG"),
			Destination: &cfg.mcpConfig,
		},
		&cli.DurationFlag{
			Name:        "tool-connect-timeout",
			Usage:       "Timeout to connect to tool servers and list tools",
			Value:       mcp.DefaultConnectTimeout,
			Sources:     cli.EnvVars("FARMASSIST_TOOL_CONNECT_TIMEOUT"),
			Destination: &cfg.toolConnectTimeout,
		},
		&cli.IntFlag{
			Name:        "max-iterations",
			Usage:       "Max LLM steps in a single chat turn",
			Value:       10,
			Sources:     cli.EnvVars("FARMASSIST_MAX_ITERATIONS"),
			Destination: &cfg.maxIterations,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Usage:       "Timeout of a single LLM request",
			Value:       60 * time.Second,
			Sources:     cli.EnvVars("FARMASSIST_LLM_TIMEOUT"),
			Destination: &cfg.llmTimeout,
		},
		&cli.DurationFlag{
			Name:        "tool-timeout",
			Usage:       "Timeout of a single tool call",
			Value:       30 * time.Second,
			Sources:     cli.EnvVars("FARMASSIST_TOOL_TIMEOUT"),
			Destination: &cfg.toolTimeout,
		},
		&cli.DurationFlag{
			Name:        "request-timeout",
			Usage:       "Timeout of a whole chat request. 0 means no limit",
			Sources:     cli.EnvVars("FARMASSIST_REQUEST_TIMEOUT"),
			Destination: &cfg.requestTimeout,
		},
		&cli.IntFlag{
			Name:        "max-threads",
			Usage:       "Max threads kept in memory, least recently used are evicted. 0 means unbounded",
			Sources:     cli.EnvVars("FARMASSIST_MAX_THREADS"),
			Destination: &cfg.maxThreads,
		},
		&cli.DurationFlag{
			Name:        "thread-ttl",
			Usage:       "Idle time after which a thread is dropped. 0 means never",
			Sources:     cli.EnvVars("FARMASSIST_THREAD_TTL"),
			Destination: &cfg.threadTTL,
		},
	}
}

func (cfg *agentConfig) newRepository() interfaces.Repository {
	return repository.NewMemory(
		repository.WithMaxThreads(int(cfg.maxThreads)),
		repository.WithThreadTTL(cfg.threadTTL),
	)
}

func (cfg *agentConfig) newToolCatalog() (interfaces.ToolCatalog, error) {
	servers := []mcp.ServerConfig{mcp.HTTPServer("farm-tools", cfg.toolServerURL)}

	if cfg.mcpConfig != "" {
		mcpCfg, err := mcp.LoadConfig(cfg.mcpConfig)
		if err != nil {
			return nil, err
		}
		servers = mcpCfg.Servers
	} else if cfg.toolServerURL == "" {
		return nil, goerr.New("tool-server-url or mcp-config is required")
	}

	return mcp.NewClient(servers,
		mcp.WithConnectTimeout(cfg.toolConnectTimeout),
		mcp.WithCallTimeout(cfg.toolTimeout),
	), nil
}

// llmConfig holds configuration of the LLM provider
type llmConfig struct {
	provider  string
	model     string
	maxTokens int64

	geminiAPIKey   string
	geminiProject  string
	geminiLocation string

	anthropicAPIKey string

	groqAPIKey    string
	openAIAPIKey  string
	openAIBaseURL string
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *llmConfig) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Usage:       "LLM provider (gemini, claude, groq, openai)",
			Value:       providerGroq,
			Sources:     cli.EnvVars("FARMASSIST_LLM_PROVIDER"),
			Destination: &cfg.provider,
		},
		&cli.StringFlag{
			Name:        "llm-model",
			Usage:       "Model name. Empty means the provider default",
			Sources:     cli.EnvVars("FARMASSIST_LLM_MODEL"),
			Destination: &cfg.model,
		},
		&cli.IntFlag{
			Name:        "llm-max-tokens",
			Usage:       "Max tokens of a single Claude response. 0 means the adapter default",
			Sources:     cli.EnvVars("FARMASSIST_LLM_MAX_TOKENS"),
			Destination: &cfg.maxTokens,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini on Vertex AI",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
			Destination: &cfg.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "groq-api-key",
			Usage:       "Groq API key",
			Sources:     cli.EnvVars("GROQ_API_KEY"),
			Destination: &cfg.groqAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openAIAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-base-url",
			Usage:       "Base URL of an OpenAI compatible API",
			Sources:     cli.EnvVars("OPENAI_BASE_URL"),
			Destination: &cfg.openAIBaseURL,
		},
	}
}

// newDecider creates the LLM decision function of the configured provider
func (cfg *llmConfig) newDecider(ctx context.Context) (interfaces.Decider, error) {
	switch cfg.provider {
	case providerGemini:
		var opts []adapter.GeminiOption
		if cfg.model != "" {
			opts = append(opts, adapter.WithGenerativeModel(cfg.model))
		}
		if cfg.geminiAPIKey != "" {
			opts = append(opts, adapter.WithGeminiAPIKey(cfg.geminiAPIKey))
		} else {
			opts = append(opts, adapter.WithVertexAI(cfg.geminiProject, cfg.geminiLocation))
		}
		client, err := adapter.NewGemini(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return llm.NewGemini(client), nil

	case providerClaude:
		if cfg.anthropicAPIKey == "" {
			return nil, goerr.New("anthropic-api-key is required")
		}
		var opts []adapter.ClaudeOption
		if cfg.model != "" {
			opts = append(opts, adapter.WithClaudeModel(cfg.model))
		}
		if cfg.maxTokens > 0 {
			opts = append(opts, adapter.WithClaudeMaxTokens(cfg.maxTokens))
		}
		return llm.NewClaude(adapter.NewClaude(cfg.anthropicAPIKey, opts...)), nil

	case providerGroq:
		if cfg.groqAPIKey == "" {
			return nil, goerr.New("groq-api-key is required")
		}
		model := cfg.model
		if model == "" {
			model = defaultGroqModel
		}
		return llm.NewOpenAI(adapter.NewOpenAI(cfg.groqAPIKey,
			adapter.WithOpenAIBaseURL(adapter.GroqBaseURL),
			adapter.WithOpenAIModel(model),
		)), nil

	case providerOpenAI:
		if cfg.openAIAPIKey == "" {
			return nil, goerr.New("openai-api-key is required")
		}
		var opts []adapter.OpenAIOption
		if cfg.openAIBaseURL != "" {
			opts = append(opts, adapter.WithOpenAIBaseURL(cfg.openAIBaseURL))
		}
		if cfg.model != "" {
			opts = append(opts, adapter.WithOpenAIModel(cfg.model))
		}
		return llm.NewOpenAI(adapter.NewOpenAI(cfg.openAIAPIKey, opts...)), nil

	default:
		return nil, goerr.New("unknown LLM provider", goerr.V("provider", cfg.provider))
	}
}
