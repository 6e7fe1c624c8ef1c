package std

import (
	"context"
	"errors"

	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/pricing"
	"github.com/ilkoid/bellhop/pkg/tools"
)

// maxReportedViolations ограничивает список нарушений в ответе модели.
const maxReportedViolations = 20

func adjustmentSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type": map[string]any{
				"type":        "string",
				"enum":        []string{pricing.TypePercentage, pricing.TypeFixedAmount},
				"description": "Type of price adjustment",
			},
			"value": map[string]any{
				"type":        "number",
				"description": "Adjustment value (e.g., 10 for 10% or 50 for $50)",
			},
			"operation": map[string]any{
				"type":        "string",
				"enum":        []string{pricing.OpIncrease, pricing.OpDecrease, pricing.OpSetTo},
				"description": "How to apply the adjustment",
			},
		},
		"required":             []string{"type", "value", "operation"},
		"additionalProperties": false,
	}
}

type rateChangeArgs struct {
	StartDate  string             `json:"startDate"`
	EndDate    string             `json:"endDate"`
	Adjustment pricing.Adjustment `json:"adjustment"`
	Reason     string             `json:"reason"`
}

// rateChangeOutcome — результат applyRateChange.
type rateChangeOutcome struct {
	result   hotel.RateAdjustResult
	warnings []pricing.Violation
	clampErr *pricing.ClampError
}

// applyRateChange проверяет аргументы и применяет корректировку в одной транзакции.
// Нарушение clamp-границ при политике block возвращается в clampErr, а не как error.
func applyRateChange(ctx context.Context, store hotel.Store, policy pricing.Policy, args rateChangeArgs) (rateChangeOutcome, error) {
	if _, _, err := parseRange(args.StartDate, args.EndDate); err != nil {
		return rateChangeOutcome{}, err
	}
	if err := args.Adjustment.Validate(); err != nil {
		return rateChangeOutcome{}, err
	}

	var out rateChangeOutcome
	res, err := store.AdjustRates(ctx, args.StartDate, args.EndDate, pricing.Plan(args.Adjustment, policy, &out.warnings))
	if err != nil {
		var clampErr *pricing.ClampError
		if errors.As(err, &clampErr) {
			out.clampErr = clampErr
			return out, nil
		}
		return rateChangeOutcome{}, err
	}
	out.result = res
	return out, nil
}

type clampViolationPayload struct {
	Success        bool                `json:"success"`
	Error          string              `json:"error"`
	Details        string              `json:"details"`
	Violations     []pricing.Violation `json:"violations"`
	ViolationCount int                 `json:"violationCount"`
}

func clampViolationJSON(e *pricing.ClampError) (string, error) {
	return toJSON(clampViolationPayload{
		Success:        false,
		Error:          "Rate change violates rate clamps",
		Details:        "No rates were changed. Adjust the change or update the rate clamps first.",
		Violations:     truncateViolations(e.Violations),
		ViolationCount: len(e.Violations),
	})
}

func truncateViolations(v []pricing.Violation) []pricing.Violation {
	if len(v) > maxReportedViolations {
		return v[:maxReportedViolations]
	}
	return v
}

// UpdateRoomRatesTool — изменение ставок за период.
type UpdateRoomRatesTool struct {
	store  hotel.Store
	policy pricing.Policy
}

// NewUpdateRoomRatesTool создаёт инструмент updateRoomRates.
func NewUpdateRoomRatesTool(deps Deps) *UpdateRoomRatesTool {
	return &UpdateRoomRatesTool{store: deps.Store, policy: deps.ClampPolicy}
}

// Definition возвращает определение инструмента для function calling.
func (t *UpdateRoomRatesTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "updateRoomRates",
		Description: "Update room rates for specified date range using percentage or dollar adjustments",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"startDate":  dateProperty("Start date in YYYY-MM-DD format"),
				"endDate":    dateProperty("End date in YYYY-MM-DD format"),
				"adjustment": adjustmentSchema(),
				"reason": map[string]any{
					"type":        "string",
					"description": "Reason for rate change (for audit trail)",
				},
			},
			"required":             []string{"startDate", "endDate", "adjustment"},
			"additionalProperties": false,
		},
		Mutating: true,
	}
}

type rateChangeSummary struct {
	DateRange           dateRange `json:"dateRange"`
	Adjustment          string    `json:"adjustment"`
	NewAverageRate      float64   `json:"newAverageRate"`
	PreviousAverageRate float64   `json:"previousAverageRate"`
	AffectedRooms       *int      `json:"affectedRooms,omitempty"`
	Reason              string    `json:"reason"`
}

type updateRoomRatesResult struct {
	Success       bool                `json:"success"`
	AffectedDates int                 `json:"affectedDates"`
	AffectedRooms int                 `json:"affectedRooms"`
	Summary       rateChangeSummary   `json:"summary"`
	ClampWarnings []pricing.Violation `json:"clampWarnings,omitempty"`
}

// Execute применяет корректировку ко всем ставкам периода.
func (t *UpdateRoomRatesTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args rateChangeArgs
	if err := decodeArgs(argsJSON, &args); err != nil {
		return "", err
	}

	out, err := applyRateChange(ctx, t.store, t.policy, args)
	if err != nil {
		return toJSON(tools.Failure{Success: false, Error: "Failed to update room rates", Details: errDetails(err)})
	}
	if out.clampErr != nil {
		return clampViolationJSON(out.clampErr)
	}

	reason := args.Reason
	if reason == "" {
		reason = "No reason provided"
	}

	return toJSON(updateRoomRatesResult{
		Success:       true,
		AffectedDates: out.result.AffectedDates,
		AffectedRooms: out.result.AffectedRooms,
		Summary: rateChangeSummary{
			DateRange:           dateRange{Start: args.StartDate, End: args.EndDate},
			Adjustment:          args.Adjustment.Describe(),
			NewAverageRate:      pricing.Round2(out.result.NewAverage),
			PreviousAverageRate: pricing.Round2(out.result.PreviousAverage),
			Reason:              reason,
		},
		ClampWarnings: truncateViolations(out.warnings),
	})
}
