package pricing

// Фокусы анализа ценовых возможностей.
var FocusAreas = []string{
	"weekend_rates",
	"weekday_rates",
	"event_driven",
	"competitor_response",
	"occupancy_optimization",
}

// DefaultFocusArea используется, когда фокус не задан.
const DefaultFocusArea = "comprehensive"

// OccupancyTrend — текущая, прогнозная и прошлогодняя загрузка, %.
type OccupancyTrend struct {
	Current   int `json:"current"`
	Projected int `json:"projected"`
	LastYear  int `json:"lastYear"`
}

// RateBand — диапазон ставок конкурентов для типа номера.
type RateBand struct {
	Min int `json:"min"`
	Max int `json:"max"`
	Avg int `json:"avg"`
}

// MarketEvent — событие, влияющее на спрос.
type MarketEvent struct {
	Event             string `json:"event"`
	Dates             string `json:"dates"`
	Impact            string `json:"impact"`
	RecommendedAction string `json:"recommendedAction"`
}

// DemandIndicators — индикаторы спроса.
type DemandIndicators struct {
	BookingPace     string `json:"bookingPace"`
	PriceElasticity string `json:"priceElasticity"`
	SeasonalTrend   string `json:"seasonalTrend"`
}

// MarketAnalysis — рыночный контекст для рекомендаций.
type MarketAnalysis struct {
	OccupancyTrend   OccupancyTrend      `json:"occupancyTrend"`
	CompetitorRates  map[string]RateBand `json:"competitorRates"`
	MarketEvents     []MarketEvent       `json:"marketEvents"`
	DemandIndicators DemandIndicators    `json:"demandIndicators"`
}

const baseOccupancy = 72

// Market возвращает рыночный срез. Источник рыночных данных пока не подключён,
// значения фиксированы; прогноз выше при фокусе на загрузке.
func Market(focusArea string) MarketAnalysis {
	uplift := 4
	if focusArea == "occupancy_optimization" {
		uplift = 8
	}

	return MarketAnalysis{
		OccupancyTrend: OccupancyTrend{
			Current:   baseOccupancy,
			Projected: baseOccupancy + uplift,
			LastYear:  baseOccupancy - 6,
		},
		CompetitorRates: map[string]RateBand{
			"standard": {Min: 180, Max: 320, Avg: 250},
			"deluxe":   {Min: 220, Max: 380, Avg: 300},
			"suite":    {Min: 350, Max: 650, Avg: 485},
		},
		MarketEvents: []MarketEvent{
			{
				Event:             "Tech Conference Downtown",
				Dates:             "2024-11-15 to 2024-11-17",
				Impact:            "high",
				RecommendedAction: "increase_rates",
			},
			{
				Event:             "Holiday Weekend",
				Dates:             "2024-11-28 to 2024-12-01",
				Impact:            "medium",
				RecommendedAction: "optimize_length_of_stay",
			},
		},
		DemandIndicators: DemandIndicators{
			BookingPace:     "+12% vs last year",
			PriceElasticity: "moderate",
			SeasonalTrend:   "increasing",
		},
	}
}

// ExecutionPlan — как внедрять рекомендацию.
type ExecutionPlan struct {
	Implementation string `json:"implementation"`
	Duration       string `json:"duration"`
	Monitoring     string `json:"monitoring"`
}

// CompetitorComparison — позиция относительно рынка.
type CompetitorComparison struct {
	BelowMarket         bool   `json:"belowMarket"`
	MarketAverage       int    `json:"marketAverage"`
	PositionAfterChange string `json:"positionAfterChange"`
}

// Recommendation — конкретное предложение по ставке.
type Recommendation struct {
	ID                   string               `json:"id"`
	Priority             string               `json:"priority"`
	RoomType             string               `json:"roomType"`
	Action               string               `json:"action"`
	CurrentRate          int                  `json:"currentRate"`
	RecommendedRate      int                  `json:"recommendedRate"`
	Increase             int                  `json:"increase"`
	IncreasePercentage   float64              `json:"increasePercentage"`
	Reasoning            string               `json:"reasoning"`
	ProjectedRevenue     map[string]string    `json:"projectedRevenue"`
	Confidence           float64              `json:"confidence"`
	RiskLevel            string               `json:"riskLevel"`
	ExecutionPlan        ExecutionPlan        `json:"executionPlan"`
	CompetitorComparison CompetitorComparison `json:"competitorComparison"`
}

// Recommendations возвращает три стандартные рекомендации.
// TODO: считать рекомендации из фактических ставок и MarketAnalysis, когда появится источник рыночных данных.
func Recommendations() []Recommendation {
	return []Recommendation{
		{
			ID:                 "weekend_optimization",
			Priority:           "high",
			RoomType:           "Standard King",
			Action:             "increase_weekend_rate",
			CurrentRate:        245,
			RecommendedRate:    275,
			Increase:           30,
			IncreasePercentage: 12.2,
			Reasoning:          "Weekend demand up 18% vs last year, competitors averaging $285",
			ProjectedRevenue:   map[string]string{"weekly": "+$2,640", "monthly": "+$10,560"},
			Confidence:         0.87,
			RiskLevel:          "low",
			ExecutionPlan: ExecutionPlan{
				Implementation: "immediate",
				Duration:       "next_30_days",
				Monitoring:     "daily_pickup_rates",
			},
			CompetitorComparison: CompetitorComparison{
				BelowMarket:         true,
				MarketAverage:       285,
				PositionAfterChange: "competitive",
			},
		},
		{
			ID:                 "event_surge_pricing",
			Priority:           "medium",
			RoomType:           "Deluxe Suite",
			Action:             "implement_event_pricing",
			CurrentRate:        385,
			RecommendedRate:    450,
			Increase:           65,
			IncreasePercentage: 16.9,
			Reasoning:          "Tech conference driving high demand, limited competitor inventory",
			ProjectedRevenue:   map[string]string{"event": "+$5,200", "monthly": "+$8,800"},
			Confidence:         0.92,
			RiskLevel:          "low",
			ExecutionPlan: ExecutionPlan{
				Implementation: "schedule_for_event",
				Duration:       "event_period_only",
				Monitoring:     "hourly_availability",
			},
			CompetitorComparison: CompetitorComparison{
				BelowMarket:         true,
				MarketAverage:       465,
				PositionAfterChange: "slightly_below_market",
			},
		},
		{
			ID:                 "weekday_adjustment",
			Priority:           "medium",
			RoomType:           "Standard Queen",
			Action:             "optimize_weekday_rate",
			CurrentRate:        195,
			RecommendedRate:    215,
			Increase:           20,
			IncreasePercentage: 10.3,
			Reasoning:          "Corporate demand recovering, opportunity to close rate gap",
			ProjectedRevenue:   map[string]string{"weekly": "+$1,400", "monthly": "+$5,600"},
			Confidence:         0.78,
			RiskLevel:          "medium",
			ExecutionPlan: ExecutionPlan{
				Implementation: "gradual_rollout",
				Duration:       "ongoing",
				Monitoring:     "weekly_booking_pace",
			},
			CompetitorComparison: CompetitorComparison{
				BelowMarket:         true,
				MarketAverage:       225,
				PositionAfterChange: "approaching_market",
			},
		},
	}
}
