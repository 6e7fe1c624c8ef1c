package std

import (
	"context"

	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/pricing"
	"github.com/ilkoid/bellhop/pkg/tools"
)

// GetRoomRatesTool — ставки по дням за период.
type GetRoomRatesTool struct {
	store hotel.Store
}

// NewGetRoomRatesTool создаёт инструмент getRoomRates.
func NewGetRoomRatesTool(deps Deps) *GetRoomRatesTool {
	return &GetRoomRatesTool{store: deps.Store}
}

// Definition возвращает определение инструмента для function calling.
func (t *GetRoomRatesTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "getRoomRates",
		Description: "Get current room rates for specified date range",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"startDate": dateProperty("Start date in YYYY-MM-DD format"),
				"endDate":   dateProperty("End date in YYYY-MM-DD format"),
			},
			"required":             []string{"startDate", "endDate"},
			"additionalProperties": false,
		},
	}
}

type dateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type dayRate struct {
	Date        string  `json:"date"`
	AverageRate float64 `json:"averageRate"`
	MinRate     float64 `json:"minRate"`
	MaxRate     float64 `json:"maxRate"`
	TotalRooms  int     `json:"totalRooms"`
}

type roomRatesResult struct {
	Rates   []dayRate `json:"rates"`
	Summary struct {
		OverallAverageRate float64   `json:"overallAverageRate"`
		DateRange          dateRange `json:"dateRange"`
	} `json:"summary"`
}

// Execute возвращает средние, минимальные и максимальные ставки по дням.
// Общая средняя — среднее дневных средних (округлённых), а не всех строк.
func (t *GetRoomRatesTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return "", err
	}

	if _, _, err := parseRange(args.StartDate, args.EndDate); err != nil {
		return toJSON(errorPayload{Error: "Failed to fetch room rates", Details: err.Error()})
	}

	daily, err := t.store.DailyRates(ctx, args.StartDate, args.EndDate)
	if err != nil {
		return toJSON(errorPayload{Error: "Failed to fetch room rates", Details: errDetails(err)})
	}

	result := roomRatesResult{Rates: make([]dayRate, 0, len(daily))}
	averages := make([]float64, 0, len(daily))
	for _, d := range daily {
		avg := pricing.Round2(d.Average)
		averages = append(averages, avg)
		result.Rates = append(result.Rates, dayRate{
			Date:        d.Day,
			AverageRate: avg,
			MinRate:     d.Min,
			MaxRate:     d.Max,
			TotalRooms:  d.Count,
		})
	}
	result.Summary.OverallAverageRate = pricing.Average(averages)
	result.Summary.DateRange = dateRange{Start: args.StartDate, End: args.EndDate}

	return toJSON(result)
}
