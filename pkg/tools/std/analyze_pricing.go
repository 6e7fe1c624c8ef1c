package std

import (
	"context"
	"time"

	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/pricing"
	"github.com/ilkoid/bellhop/pkg/tools"
)

// analyzeRateLimit — сколько строк ставок попадает в анализ.
const analyzeRateLimit = 100

// AnalyzePricingOpportunitiesTool — ставки периода, рыночный срез и рекомендации.
type AnalyzePricingOpportunitiesTool struct {
	store hotel.Store
	now   func() time.Time
}

// NewAnalyzePricingOpportunitiesTool создаёт инструмент analyzePricingOpportunities.
func NewAnalyzePricingOpportunitiesTool(deps Deps) *AnalyzePricingOpportunitiesTool {
	return &AnalyzePricingOpportunitiesTool{store: deps.Store, now: deps.now}
}

// Definition возвращает определение инструмента для function calling.
func (t *AnalyzePricingOpportunitiesTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: "analyzePricingOpportunities",
		Description: "Analyze current pricing and market conditions to generate executable pricing recommendations. " +
			"Returns specific recommendations that can be executed with user approval.",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"dateRange": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"startDate": dateProperty("Start date for analysis (YYYY-MM-DD)"),
						"endDate":   dateProperty("End date for analysis (YYYY-MM-DD)"),
					},
					"required":             []string{"startDate", "endDate"},
					"additionalProperties": false,
				},
				"focusArea": map[string]any{
					"type":        "string",
					"enum":        pricing.FocusAreas,
					"description": "Specific area to focus pricing analysis on",
				},
			},
			"required":             []string{"dateRange"},
			"additionalProperties": false,
		},
	}
}

type analyzedRate struct {
	Day         string    `json:"day"`
	PriceUSD    float64   `json:"priceUsd"`
	RoomID      string    `json:"roomId"`
	ServiceID   string    `json:"serviceId"`
	Status      string    `json:"status"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type analysisMetadata struct {
	AnalysisDate    string `json:"analysisDate"`
	FocusArea       string `json:"focusArea"`
	ConfidenceLevel string `json:"confidenceLevel"`
}

type analyzePricingResult struct {
	Success         bool                     `json:"success"`
	CurrentRates    []analyzedRate           `json:"currentRates"`
	MarketAnalysis  pricing.MarketAnalysis   `json:"marketAnalysis"`
	Recommendations []pricing.Recommendation `json:"recommendations"`
	ExecutionReady  bool                     `json:"executionReady"`
	Metadata        analysisMetadata         `json:"metadata"`
}

type analyzePricingFailure struct {
	Success         bool                     `json:"success"`
	Error           string                   `json:"error"`
	Recommendations []pricing.Recommendation `json:"recommendations"`
}

// Execute собирает ставки периода и прикладывает к ним рыночный срез и рекомендации.
func (t *AnalyzePricingOpportunitiesTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		DateRange struct {
			StartDate string `json:"startDate"`
			EndDate   string `json:"endDate"`
		} `json:"dateRange"`
		FocusArea string `json:"focusArea"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return "", err
	}

	fail := func(err error) (string, error) {
		return toJSON(analyzePricingFailure{
			Success:         false,
			Error:           "Failed to analyze pricing opportunities: " + errDetails(err),
			Recommendations: []pricing.Recommendation{},
		})
	}

	if _, _, err := parseRange(args.DateRange.StartDate, args.DateRange.EndDate); err != nil {
		return fail(err)
	}
	rows, err := t.store.RateRows(ctx, args.DateRange.StartDate, args.DateRange.EndDate, analyzeRateLimit)
	if err != nil {
		return fail(err)
	}

	rates := make([]analyzedRate, 0, len(rows))
	for _, r := range rows {
		rates = append(rates, analyzedRate{
			Day:         r.Day,
			PriceUSD:    r.PriceUSD,
			RoomID:      r.RoomID,
			ServiceID:   r.ServiceID,
			Status:      r.Status,
			LastUpdated: r.UpdatedAt,
		})
	}

	focus := args.FocusArea
	if focus == "" {
		focus = pricing.DefaultFocusArea
	}

	return toJSON(analyzePricingResult{
		Success:         true,
		CurrentRates:    rates,
		MarketAnalysis:  pricing.Market(focus),
		Recommendations: pricing.Recommendations(),
		ExecutionReady:  true,
		Metadata: analysisMetadata{
			AnalysisDate:    t.now().UTC().Format(time.RFC3339),
			FocusArea:       focus,
			ConfidenceLevel: "high",
		},
	})
}
