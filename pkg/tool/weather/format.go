package weather

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/farmassist/pkg/model"
)

// DefaultDays is the number of forecast days rendered for the assistant
const DefaultDays = 3

const notAvailable = "N/A"

// Format renders at most days entries of the forecast. Missing fields become N/A
// and a missing location name falls back to city.
func Format(forecast *model.WeatherForecast, city string, days int) string {
	name := city
	var forecastDays []model.ForecastDay
	if forecast != nil {
		if forecast.Location.Name != "" {
			name = forecast.Location.Name
		}
		forecastDays = forecast.Forecast.ForecastDay
	}

	if days < 0 {
		days = 0
	}
	if len(forecastDays) > days {
		forecastDays = forecastDays[:days]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weather forecast for %s:\n", name)

	for _, d := range forecastDays {
		rain := notAvailable
		if d.Day.DailyChanceOfRain != "" {
			rain = d.Day.DailyChanceOfRain.String() + "%"
		}

		fmt.Fprintf(&b, "- %s: %s, Avg Temp: %s°C (Min: %s°C, Max: %s°C), Rain chance: %s\n",
			orNA(d.Date),
			orNA(d.Day.Condition.Text),
			number(d.Day.AvgTempC),
			number(d.Day.MinTempC),
			number(d.Day.MaxTempC),
			rain,
		)
	}

	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func number(n json.Number) string {
	return orNA(n.String())
}
