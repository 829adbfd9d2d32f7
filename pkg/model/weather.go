package model

import "encoding/json"

// WeatherForecast is the part of the weatherapi.com forecast response the assistant uses.
// Numbers are kept as json.Number so they are rendered exactly as the provider sent them.
type WeatherForecast struct {
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
	Forecast struct {
		ForecastDay []ForecastDay `json:"forecastday"`
	} `json:"forecast"`
}

type ForecastDay struct {
	Date string     `json:"date"`
	Day  DayWeather `json:"day"`
}

type DayWeather struct {
	Condition struct {
		Text string `json:"text"`
	} `json:"condition"`
	AvgTempC          json.Number `json:"avgtemp_c"`
	MinTempC          json.Number `json:"mintemp_c"`
	MaxTempC          json.Number `json:"maxtemp_c"`
	DailyChanceOfRain json.Number `json:"daily_chance_of_rain"`
}

// SearchResult is a single web search hit
type SearchResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}
