package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/farmassist/pkg/adapter"
	"github.com/m-mizutani/farmassist/pkg/tool"
	"github.com/m-mizutani/farmassist/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

const (
	ToolName = "get_weather"

	// forecastDays is how many days are requested from the provider
	forecastDays = 7
)

type getWeatherInput struct {
	City string `json:"city" jsonschema:"The city name as a plain string in English, e.g. Bhatinda"`
}

type weatherTool struct {
	apiKey  string
	baseURL string
	timeout time.Duration

	client adapter.Weather
}

type Option func(*weatherTool)

// WithClient sets the weather provider client. Flags are ignored when it is set.
func WithClient(client adapter.Weather) Option {
	return func(x *weatherTool) {
		x.client = client
	}
}

// New creates a new weather tool
func New(opts ...Option) *weatherTool {
	x := &weatherTool{
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *weatherTool) Name() string {
	return ToolName
}

// Flags returns CLI flags for this tool
func (x *weatherTool) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "weather-api-key",
			Sources:     cli.EnvVars("WEATHER_API_KEY"),
			Usage:       "weatherapi.com API key",
			Destination: &x.apiKey,
		},
		&cli.StringFlag{
			Name:        "weather-base-url",
			Sources:     cli.EnvVars("FARMASSIST_WEATHER_BASE_URL"),
			Usage:       "weatherapi.com base URL",
			Value:       "https://api.weatherapi.com/v1",
			Destination: &x.baseURL,
		},
		&cli.DurationFlag{
			Name:        "weather-timeout",
			Sources:     cli.EnvVars("FARMASSIST_WEATHER_TIMEOUT"),
			Usage:       "Timeout of weather API requests",
			Value:       15 * time.Second,
			Destination: &x.timeout,
		},
	}
}

// Init initializes the tool
func (x *weatherTool) Init(ctx context.Context) error {
	if x.client != nil {
		return nil
	}

	if x.apiKey == "" {
		logging.From(ctx).Warn("weather API key is not set, get_weather will report the forecast as unavailable")
	}

	var opts []adapter.WeatherOption
	if x.baseURL != "" {
		opts = append(opts, adapter.WithWeatherBaseURL(x.baseURL))
	}
	if x.timeout > 0 {
		opts = append(opts, adapter.WithWeatherTimeout(x.timeout))
	}
	x.client = adapter.NewWeather(x.apiKey, opts...)
	return nil
}

// Register adds get_weather to the MCP server
func (x *weatherTool) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: "Get the weather forecast for a given city. The city name must be in English.",
	}, x.handle)
}

func (x *weatherTool) handle(ctx context.Context, req *mcp.CallToolRequest, input getWeatherInput) (*mcp.CallToolResult, any, error) {
	return tool.TextResult(x.Run(ctx, input.City)), nil, nil
}

// Run returns the formatted forecast for city. Provider failures are reported as text.
func (x *weatherTool) Run(ctx context.Context, city string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return "Please provide a city name to get the weather forecast."
	}

	forecast, err := x.client.Forecast(ctx, city, forecastDays)
	if err != nil {
		logging.From(ctx).Warn("failed to get weather forecast", "city", city, logging.ErrAttr(err))
		if errors.Is(err, adapter.ErrUpstreamWeather) {
			return fmt.Sprintf("Weather forecast for %s is currently unavailable. The weather service could not be reached or did not recognize the city.", city)
		}
		return fmt.Sprintf("Weather forecast for %s is currently unavailable.", city)
	}

	return Format(forecast, city, DefaultDays)
}
