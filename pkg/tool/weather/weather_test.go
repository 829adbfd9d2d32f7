package weather_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/farmassist/pkg/adapter"
	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/farmassist/pkg/tool/weather"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type weatherMock struct {
	forecast *model.WeatherForecast
	err      error

	city string
	days int
}

func (m *weatherMock) Forecast(ctx context.Context, city string, days int) (*model.WeatherForecast, error) {
	m.city = city
	m.days = days
	return m.forecast, m.err
}

func TestRun(t *testing.T) {
	mock := &weatherMock{forecast: loadForecast(t, sevenDays)}
	x := weather.New(weather.WithClient(mock))
	gt.NoError(t, x.Init(context.Background()))

	out := x.Run(context.Background(), " Bathinda ")
	gt.Equal(t, mock.city, "Bathinda")
	gt.Equal(t, mock.days, 7)
	gt.S(t, out).Contains("Weather forecast for Bathinda:")
}

func TestRunProviderFailure(t *testing.T) {
	mock := &weatherMock{err: goerr.Wrap(adapter.ErrUpstreamWeather, "weather API returned error")}
	x := weather.New(weather.WithClient(mock))

	out := x.Run(context.Background(), "Atlantis")
	gt.S(t, out).Contains("Weather forecast for Atlantis is currently unavailable")
	gt.S(t, out).NotContains("weather API returned error")
}

func TestRunEmptyCity(t *testing.T) {
	mock := &weatherMock{}
	x := weather.New(weather.WithClient(mock))

	out := x.Run(context.Background(), "  ")
	gt.S(t, out).Contains("Please provide a city name")
	gt.Equal(t, mock.city, "")
}
