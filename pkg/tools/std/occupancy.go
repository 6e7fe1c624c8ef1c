package std

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/pricing"
	"github.com/ilkoid/bellhop/pkg/tools"
)

// Цвета серий графика.
const (
	currentSeriesColor    = "#2563eb"
	comparisonSeriesColor = "#f97316"
)

// GetOccupancyDataTool — загрузка за период с опциональным сравнением год к году.
type GetOccupancyDataTool struct {
	store hotel.Store
	today func() string
}

// NewGetOccupancyDataTool создаёт инструмент getOccupancyData.
func NewGetOccupancyDataTool(deps Deps) *GetOccupancyDataTool {
	return &GetOccupancyDataTool{store: deps.Store, today: deps.today}
}

// Definition возвращает определение инструмента для function calling.
func (t *GetOccupancyDataTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: "getOccupancyData",
		Description: fmt.Sprintf("Get hotel occupancy rates for date range with year-over-year comparison 'as of' today. "+
			"DATA AVAILABLE: %s to %s only. Use dates within this range.", hotel.DataWindowStart, hotel.DataWindowEnd),
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"startDate": dateProperty("Start date in YYYY-MM-DD format (must be " + hotel.DataWindowStart + " or later)"),
				"endDate":   dateProperty("End date in YYYY-MM-DD format (must be " + hotel.DataWindowEnd + " or earlier)"),
				"includeYoYComparison": map[string]any{
					"type":        "boolean",
					"description": "Include same period last year comparison",
					"default":     true,
				},
				"asOfDate": dateProperty("Only count bookings made before this date (defaults to today)"),
			},
			"required":             []string{"startDate", "endDate"},
			"additionalProperties": false,
		},
	}
}

type occupancyRangeError struct {
	Error          string    `json:"error"`
	Details        string    `json:"details"`
	AvailableRange dateRange `json:"availableRange"`
}

type occupancySummary struct {
	AvgOccupancy         float64  `json:"avgOccupancy"`
	AvgOccupancyLastYear *float64 `json:"avgOccupancyLastYear"`
	Change               *float64 `json:"change"`
	AsOfDate             string   `json:"asOfDate"`
	DateRange            string   `json:"dateRange"`
}

// ChartSeries — серия сгруппированной гистограммы.
type ChartSeries struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Values []*float64 `json:"values"`
	Color  string     `json:"color"`
}

// GroupedBarChart — спецификация графика для UI.
type GroupedBarChart struct {
	Kind           string        `json:"kind"`
	Title          string        `json:"title"`
	Subtitle       string        `json:"subtitle"`
	Categories     []string      `json:"categories"`
	Series         []ChartSeries `json:"series"`
	YAxisLabel     string        `json:"yAxisLabel"`
	ValueFormatter string        `json:"valueFormatter"`
	MaxValue       float64       `json:"maxValue"`
	Insight        string        `json:"insight,omitempty"`
	Footnote       string        `json:"footnote,omitempty"`
}

type occupancyResult struct {
	Current    []hotel.OccupancyDay `json:"current"`
	Comparison []hotel.OccupancyDay `json:"comparison"`
	Summary    occupancySummary     `json:"summary"`
	Chart      *GroupedBarChart     `json:"chart,omitempty"`
}

// Execute считает загрузку за период и тот же период годом ранее.
func (t *GetOccupancyDataTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		StartDate            string `json:"startDate"`
		EndDate              string `json:"endDate"`
		IncludeYoYComparison *bool  `json:"includeYoYComparison"`
		AsOfDate             string `json:"asOfDate"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return "", err
	}

	includeYoY := args.IncludeYoYComparison == nil || *args.IncludeYoYComparison
	asOf := args.AsOfDate
	if asOf == "" {
		asOf = t.today()
	}

	start, end, err := parseRange(args.StartDate, args.EndDate)
	if err != nil {
		return toJSON(errorPayload{Error: "Failed to fetch occupancy data", Details: err.Error()})
	}
	asOfTime, err := hotel.ParseDate(asOf)
	if err != nil {
		return toJSON(errorPayload{Error: "Failed to fetch occupancy data", Details: err.Error()})
	}

	if !hotel.InDataWindow(start, end) {
		return toJSON(occupancyRangeError{
			Error: "Date range outside available data",
			Details: fmt.Sprintf("Requested dates %s to %s are outside our data range (%s to %s).",
				args.StartDate, args.EndDate, hotel.DataWindowStart, hotel.DataWindowEnd),
			AvailableRange: dateRange{Start: hotel.DataWindowStart, End: hotel.DataWindowEnd},
		})
	}

	current, err := t.store.Occupancy(ctx, args.StartDate, args.EndDate, asOf)
	if err != nil {
		return toJSON(errorPayload{Error: "Failed to fetch occupancy data", Details: errDetails(err)})
	}
	if current == nil {
		current = []hotel.OccupancyDay{}
	}

	var comparison []hotel.OccupancyDay
	if includeYoY {
		lyStart, lyEnd := start.AddDate(-1, 0, 0), end.AddDate(-1, 0, 0)
		// Прошлый год вне окна данных — сравнение пропускается
		if hotel.InDataWindow(lyStart, lyEnd) {
			comparison, err = t.store.Occupancy(ctx,
				lyStart.Format(hotel.DateLayout),
				lyEnd.Format(hotel.DateLayout),
				asOfTime.AddDate(-1, 0, 0).Format(hotel.DateLayout))
			if err != nil {
				return toJSON(errorPayload{Error: "Failed to fetch occupancy data", Details: errDetails(err)})
			}
			if comparison == nil {
				comparison = []hotel.OccupancyDay{}
			}
		}
	}

	summary := occupancySummary{
		AvgOccupancy: averageOccupancy(current),
		AsOfDate:     asOf,
		DateRange:    args.StartDate + " to " + args.EndDate,
	}
	if len(comparison) > 0 {
		last := averageOccupancy(comparison)
		change := pricing.Round2(summary.AvgOccupancy - last)
		summary.AvgOccupancyLastYear = &last
		summary.Change = &change
	}

	result := occupancyResult{
		Current:    current,
		Comparison: comparison,
		Summary:    summary,
	}
	if len(current) > 0 {
		result.Chart = buildOccupancyChart(current, comparison, asOfTime, summary.Change)
	}

	return toJSON(result)
}

func averageOccupancy(days []hotel.OccupancyDay) float64 {
	rates := make([]float64, len(days))
	for i, d := range days {
		rates[i] = d.OccupancyRate
	}
	return pricing.Average(rates)
}

// buildOccupancyChart строит гистограмму: категории — дни текущего периода,
// значения прошлого года сопоставляются по месяцу и дню.
func buildOccupancyChart(current, comparison []hotel.OccupancyDay, asOf time.Time, change *float64) *GroupedBarChart {
	byMonthDay := make(map[string]float64, len(comparison))
	for _, d := range comparison {
		if t, err := hotel.ParseDate(d.Date); err == nil {
			byMonthDay[t.Format("01-02")] = d.OccupancyRate
		}
	}

	categories := make([]string, len(current))
	currentValues := make([]*float64, len(current))
	comparisonValues := make([]*float64, len(current))
	currentYear := 0
	for i, d := range current {
		day, err := hotel.ParseDate(d.Date)
		if err != nil {
			categories[i] = d.Date
			continue
		}
		if currentYear == 0 {
			currentYear = day.Year()
		}
		categories[i] = day.Format("Mon Jan 2")
		rate := d.OccupancyRate
		currentValues[i] = &rate
		if v, ok := byMonthDay[day.Format("01-02")]; ok {
			comparisonValues[i] = &v
		}
	}

	chart := &GroupedBarChart{
		Kind:       "grouped-bar",
		Title:      "Upcoming occupancy vs last year",
		Subtitle:   "As of " + asOf.Format("Jan 2, 2006"),
		Categories: categories,
		Series: []ChartSeries{{
			ID:     fmt.Sprintf("current-%d", currentYear),
			Label:  fmt.Sprintf("%d occupancy", currentYear),
			Values: currentValues,
			Color:  currentSeriesColor,
		}},
		YAxisLabel:     "Occupancy (%)",
		ValueFormatter: "percentage",
		MaxValue:       100,
		Insight:        occupancyInsight(change),
	}

	if len(comparison) > 0 {
		comparisonYear := currentYear - 1
		if t, err := hotel.ParseDate(comparison[0].Date); err == nil {
			comparisonYear = t.Year()
		}
		chart.Series = append(chart.Series, ChartSeries{
			ID:     fmt.Sprintf("comparison-%d", comparisonYear),
			Label:  fmt.Sprintf("%d occupancy", comparisonYear),
			Values: comparisonValues,
			Color:  comparisonSeriesColor,
		})
	} else {
		chart.Footnote = "Year-over-year comparison unavailable for this range."
	}
	return chart
}

func occupancyInsight(change *float64) string {
	if change == nil {
		return ""
	}
	if *change == 0 {
		return "Occupancy is flat versus last year."
	}
	magnitude := *change
	direction := "up"
	if magnitude < 0 {
		magnitude = -magnitude
		direction = "down"
	}
	return fmt.Sprintf("Occupancy is %s %s pts vs last year.", direction, formatPoints(magnitude))
}

// formatPoints — не больше одного знака после запятой, без хвостового нуля.
func formatPoints(v float64) string {
	return strconv.FormatFloat(float64(int64(v*10+0.5))/10, 'f', -1, 64)
}
