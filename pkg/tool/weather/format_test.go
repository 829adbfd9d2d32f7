package weather_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/farmassist/pkg/tool/weather"
	"github.com/m-mizutani/gt"
)

func loadForecast(t *testing.T, raw string) *model.WeatherForecast {
	t.Helper()
	var forecast model.WeatherForecast
	gt.NoError(t, json.Unmarshal([]byte(raw), &forecast))
	return &forecast
}

const sevenDays = `{
  "location": {"name": "Bathinda"},
  "forecast": {"forecastday": [
    {"date": "2025-07-01", "day": {"avgtemp_c": 31.2, "mintemp_c": 27.5, "maxtemp_c": 36.8, "daily_chance_of_rain": 20, "condition": {"text": "Sunny"}}},
    {"date": "2025-07-02", "day": {"avgtemp_c": 30.0, "mintemp_c": 26, "maxtemp_c": 35, "daily_chance_of_rain": 87, "condition": {"text": "Patchy rain nearby"}}},
    {"date": "2025-07-03", "day": {"avgtemp_c": 29.1, "mintemp_c": 25.9, "maxtemp_c": 33.4, "condition": {"text": "Moderate rain"}}},
    {"date": "2025-07-04", "day": {"avgtemp_c": 29, "mintemp_c": 25, "maxtemp_c": 33, "daily_chance_of_rain": 10, "condition": {"text": "Cloudy"}}},
    {"date": "2025-07-05", "day": {"avgtemp_c": 29, "mintemp_c": 25, "maxtemp_c": 33, "daily_chance_of_rain": 10, "condition": {"text": "Cloudy"}}},
    {"date": "2025-07-06", "day": {"avgtemp_c": 29, "mintemp_c": 25, "maxtemp_c": 33, "daily_chance_of_rain": 10, "condition": {"text": "Cloudy"}}},
    {"date": "2025-07-07", "day": {"avgtemp_c": 29, "mintemp_c": 25, "maxtemp_c": 33, "daily_chance_of_rain": 10, "condition": {"text": "Cloudy"}}}
  ]}
}`

func TestFormatLimitsToDefaultDays(t *testing.T) {
	out := weather.Format(loadForecast(t, sevenDays), "bathinda", weather.DefaultDays)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	gt.A(t, lines).Length(4)
	gt.Equal(t, lines[0], "Weather forecast for Bathinda:")
	gt.Equal(t, lines[1], "- 2025-07-01: Sunny, Avg Temp: 31.2°C (Min: 27.5°C, Max: 36.8°C), Rain chance: 20%")
	gt.Equal(t, lines[2], "- 2025-07-02: Patchy rain nearby, Avg Temp: 30.0°C (Min: 26°C, Max: 35°C), Rain chance: 87%")
	gt.S(t, out).NotContains("2025-07-04")
}

func TestFormatMissingRainChance(t *testing.T) {
	out := weather.Format(loadForecast(t, sevenDays), "bathinda", weather.DefaultDays)

	gt.S(t, out).Contains("- 2025-07-03: Moderate rain, Avg Temp: 29.1°C (Min: 25.9°C, Max: 33.4°C), Rain chance: N/A\n")
	gt.S(t, out).NotContains("N/A%")
}

func TestFormatFewerDaysThanRequested(t *testing.T) {
	forecast := loadForecast(t, `{"location": {"name": "Pune"}, "forecast": {"forecastday": [
		{"date": "2025-07-01", "day": {"avgtemp_c": 25, "mintemp_c": 21, "maxtemp_c": 29, "daily_chance_of_rain": 5, "condition": {"text": "Clear"}}}
	]}}`)

	out := weather.Format(forecast, "Pune", weather.DefaultDays)
	gt.Equal(t, out, "Weather forecast for Pune:\n- 2025-07-01: Clear, Avg Temp: 25°C (Min: 21°C, Max: 29°C), Rain chance: 5%\n")
}

func TestFormatMalformedForecast(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		forecast := loadForecast(t, `{"forecast": {"forecastday": [{"date": "2025-07-01", "day": {}}]}}`)
		out := weather.Format(forecast, "Ludhiana", weather.DefaultDays)
		gt.Equal(t, out, "Weather forecast for Ludhiana:\n- 2025-07-01: N/A, Avg Temp: N/A°C (Min: N/A°C, Max: N/A°C), Rain chance: N/A\n")
	})

	t.Run("no forecast", func(t *testing.T) {
		out := weather.Format(nil, "Ludhiana", weather.DefaultDays)
		gt.Equal(t, out, "Weather forecast for Ludhiana:\n")
	})
}
