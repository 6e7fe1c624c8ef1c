package std

import (
	"context"
	"errors"

	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/tools"
	"github.com/ilkoid/bellhop/pkg/weather"
)

// defaultDaysBack — глубина сравнения по умолчанию: тот же день год назад.
const defaultDaysBack = 365

// GetWeatherTool — погода у отеля с опциональным сравнением с прошлым периодом.
type GetWeatherTool struct {
	store   hotel.Store
	weather WeatherSource
	today   func() string
}

// NewGetWeatherTool создаёт инструмент getWeather.
func NewGetWeatherTool(deps Deps) *GetWeatherTool {
	return &GetWeatherTool{store: deps.Store, weather: deps.Weather, today: deps.today}
}

// Definition возвращает определение инструмента для function calling.
func (t *GetWeatherTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "getWeather",
		Description: "Get current weather conditions at the hotel location, optionally compared with the same day in a past period",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"includeHistorical": map[string]any{
					"type":        "boolean",
					"description": "Include historical weather for comparison",
					"default":     true,
				},
				"daysBack": map[string]any{
					"type":        "integer",
					"minimum":     1,
					"maximum":     3650,
					"description": "How many days back to compare against (defaults to 365)",
				},
			},
			"additionalProperties": false,
		},
	}
}

type weatherLocation struct {
	Address     string              `json:"address"`
	Coordinates weather.Coordinates `json:"coordinates"`
}

type currentWeather struct {
	Date           string   `json:"date"`
	Temperature    *float64 `json:"temperature"`
	TemperatureMax *float64 `json:"temperatureMax"`
	TemperatureMin *float64 `json:"temperatureMin"`
	WeatherCode    *int     `json:"weatherCode"`
	WindSpeed      *float64 `json:"windSpeed"`
}

type historicalWeather struct {
	Date           *string  `json:"date"`
	TemperatureMax *float64 `json:"temperatureMax"`
	TemperatureMin *float64 `json:"temperatureMin"`
	WeatherCode    *int     `json:"weatherCode"`
}

// weatherComparison — разница "сейчас минус год назад"; null, если нет одного из значений.
type weatherComparison struct {
	TemperatureMaxChange *float64 `json:"temperatureMaxChange"`
	TemperatureMinChange *float64 `json:"temperatureMinChange"`
}

type weatherResult struct {
	Location   weatherLocation    `json:"location"`
	Current    currentWeather     `json:"current"`
	Historical *historicalWeather `json:"historical"`
	Comparison *weatherComparison `json:"comparison"`
}

// Execute запрашивает текущую погоду и, если нужно, архив за дату daysBack дней назад.
func (t *GetWeatherTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		IncludeHistorical *bool `json:"includeHistorical"`
		DaysBack          *int  `json:"daysBack"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return "", err
	}
	includeHistorical := args.IncludeHistorical == nil || *args.IncludeHistorical
	daysBack := defaultDaysBack
	if args.DaysBack != nil {
		daysBack = *args.DaysBack
	}

	settings, err := t.store.Settings(ctx)
	if errors.Is(err, hotel.ErrNotFound) {
		return toJSON(errorPayload{
			Error:   "Hotel settings not found",
			Details: "Cannot determine hotel location for weather data",
		})
	}
	if err != nil {
		return toJSON(errorPayload{Error: "Failed to fetch weather data", Details: errDetails(err)})
	}

	today := t.today()
	cur, err := t.weather.Current(ctx)
	if err != nil {
		return toJSON(errorPayload{Error: "Failed to fetch weather data", Details: errDetails(err)})
	}

	result := weatherResult{
		Location: weatherLocation{
			Address:     settings.Address,
			Coordinates: t.weather.Coordinates(),
		},
		Current: currentWeather{
			Date:           today,
			Temperature:    cur.Temperature,
			TemperatureMax: cur.TemperatureMax,
			TemperatureMin: cur.TemperatureMin,
			WeatherCode:    cur.WeatherCode,
			WindSpeed:      cur.WindSpeed,
		},
	}

	if includeHistorical {
		todayTime, err := hotel.ParseDate(today)
		if err != nil {
			return toJSON(errorPayload{Error: "Failed to fetch weather data", Details: errDetails(err)})
		}
		past := todayTime.AddDate(0, 0, -daysBack).Format(hotel.DateLayout)
		day, err := t.weather.Historical(ctx, past)
		if err != nil {
			return toJSON(errorPayload{Error: "Failed to fetch weather data", Details: errDetails(err)})
		}
		result.Historical = &historicalWeather{
			Date:           day.Date,
			TemperatureMax: day.TemperatureMax,
			TemperatureMin: day.TemperatureMin,
			WeatherCode:    day.WeatherCode,
		}
		result.Comparison = &weatherComparison{
			TemperatureMaxChange: delta(cur.TemperatureMax, day.TemperatureMax),
			TemperatureMinChange: delta(cur.TemperatureMin, day.TemperatureMin),
		}
	}

	return toJSON(result)
}

func delta(now, before *float64) *float64 {
	if now == nil || before == nil {
		return nil
	}
	d := *now - *before
	return &d
}
