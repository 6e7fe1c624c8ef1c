package std

import (
	"context"
	"fmt"
	"time"

	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/pricing"
	"github.com/ilkoid/bellhop/pkg/tools"
)

// ExecutePricingActionTool применяет согласованное с пользователем изменение ставок.
//
// Без userApproval=true ничего не меняет.
type ExecutePricingActionTool struct {
	store  hotel.Store
	policy pricing.Policy
	now    func() time.Time
}

// NewExecutePricingActionTool создаёт инструмент executePricingAction.
func NewExecutePricingActionTool(deps Deps) *ExecutePricingActionTool {
	return &ExecutePricingActionTool{store: deps.Store, policy: deps.ClampPolicy, now: deps.now}
}

// Definition возвращает определение инструмента для function calling.
func (t *ExecutePricingActionTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: "executePricingAction",
		Description: "Execute a specific pricing recommendation after user approval. " +
			"Updates room rates for the specified dates with the approved adjustment.",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"startDate":  dateProperty("Start date in YYYY-MM-DD format"),
				"endDate":    dateProperty("End date in YYYY-MM-DD format"),
				"adjustment": adjustmentSchema(),
				"reason": map[string]any{
					"type":        "string",
					"description": "Business reason for the pricing change",
				},
				"userApproval": map[string]any{
					"type":        "boolean",
					"description": "Must be true: the user explicitly approved this change",
				},
			},
			"required":             []string{"startDate", "endDate", "adjustment", "userApproval"},
			"additionalProperties": false,
		},
		Mutating: true,
	}
}

type actionFailure struct {
	Success        bool   `json:"success"`
	Error          string `json:"error"`
	ActionRequired string `json:"actionRequired"`
}

type executePricingResult struct {
	Success       bool                `json:"success"`
	Message       string              `json:"message"`
	Summary       rateChangeSummary   `json:"summary"`
	ExecutedAt    string              `json:"executedAt"`
	ClampWarnings []pricing.Violation `json:"clampWarnings,omitempty"`
}

// Execute проверяет согласие пользователя и применяет изменение.
func (t *ExecutePricingActionTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		rateChangeArgs
		UserApproval bool `json:"userApproval"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return "", err
	}

	if !args.UserApproval {
		return toJSON(actionFailure{
			Success:        false,
			Error:          "User approval required before executing pricing changes",
			ActionRequired: "user_confirmation",
		})
	}

	out, err := applyRateChange(ctx, t.store, t.policy, args.rateChangeArgs)
	if err != nil {
		return toJSON(actionFailure{
			Success:        false,
			Error:          fmt.Sprintf("Failed to execute pricing action: %v", err),
			ActionRequired: "retry_or_manual_intervention",
		})
	}
	if out.clampErr != nil {
		return clampViolationJSON(out.clampErr)
	}

	reason := args.Reason
	if reason == "" {
		reason = "Pricing optimization"
	}
	description := args.Adjustment.Describe()
	affected := out.result.AffectedRooms

	return toJSON(executePricingResult{
		Success: true,
		Message: "Successfully executed pricing change: " + description,
		Summary: rateChangeSummary{
			DateRange:           dateRange{Start: args.StartDate, End: args.EndDate},
			Adjustment:          description,
			NewAverageRate:      pricing.Round2(out.result.NewAverage),
			PreviousAverageRate: pricing.Round2(out.result.PreviousAverage),
			AffectedRooms:       &affected,
			Reason:              reason,
		},
		ExecutedAt:    t.now().UTC().Format(time.RFC3339Nano),
		ClampWarnings: truncateViolations(out.warnings),
	})
}
