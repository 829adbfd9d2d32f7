package adapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

const weatherAPIBaseURL = "https://api.weatherapi.com/v1"

// ErrUpstreamWeather is returned when the weather provider can not serve a forecast
var ErrUpstreamWeather = goerr.New("weather provider failed")

// Weather is the interface for the weather forecast provider
type Weather interface {
	// Forecast returns a multi-day forecast for city
	Forecast(ctx context.Context, city string, days int) (*model.WeatherForecast, error)
}

type weatherClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type WeatherOption func(*weatherClient)

func WithWeatherBaseURL(baseURL string) WeatherOption {
	return func(c *weatherClient) {
		c.baseURL = baseURL
	}
}

func WithWeatherTimeout(timeout time.Duration) WeatherOption {
	return func(c *weatherClient) {
		c.httpClient.Timeout = timeout
	}
}

// NewWeather creates a weatherapi.com client
func NewWeather(apiKey string, opts ...WeatherOption) Weather {
	c := &weatherClient{
		apiKey:  apiKey,
		baseURL: weatherAPIBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *weatherClient) Forecast(ctx context.Context, city string, days int) (*model.WeatherForecast, error) {
	if c.apiKey == "" {
		return nil, goerr.Wrap(ErrUpstreamWeather, "weather API key is not configured")
	}

	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("q", city)
	query.Set("days", strconv.Itoa(days))
	query.Set("aqi", "yes")
	query.Set("alerts", "yes")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast.json?"+query.Encode(), nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(ErrUpstreamWeather, "failed to send request",
			goerr.V("city", city),
			goerr.V("cause", err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, goerr.Wrap(ErrUpstreamWeather, "weather API returned error",
			goerr.V("city", city),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)))
	}

	var forecast model.WeatherForecast
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, goerr.Wrap(ErrUpstreamWeather, "failed to decode response",
			goerr.V("city", city),
			goerr.V("cause", err.Error()))
	}

	return &forecast, nil
}
