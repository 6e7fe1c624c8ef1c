package std

import (
	"context"

	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/tools"
)

// UpdateServiceClampTool — замена clamp-метаданных услуги (сегмент дней и направление).
type UpdateServiceClampTool struct {
	store hotel.Store
}

// NewUpdateServiceClampTool создаёт инструмент updateServiceClamp.
func NewUpdateServiceClampTool(deps Deps) *UpdateServiceClampTool {
	return &UpdateServiceClampTool{store: deps.Store}
}

// Definition возвращает определение инструмента для function calling.
func (t *UpdateServiceClampTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: "updateServiceClamp",
		Description: "Update the clamp metadata (weekend/weekday floors and ceilings) stored on a service. " +
			"Use for requests like 'tighten weekend clamps' or 'set a weekday floor of $180'.",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"serviceName": map[string]any{
					"type":        "string",
					"description": "Name of the service whose clamp should change",
				},
				"clamp": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"target": map[string]any{
							"type":        "string",
							"enum":        []string{"weekend", "weekday", "all"},
							"description": "Which days the clamp applies to",
						},
						"minRate": map[string]any{
							"type":        "number",
							"minimum":     0,
							"description": "Rate floor for the targeted days",
						},
						"maxRate": map[string]any{
							"type":        "number",
							"minimum":     0,
							"description": "Rate ceiling for the targeted days",
						},
						"direction": map[string]any{
							"type":        "string",
							"enum":        []string{"tighten", "loosen"},
							"description": "Whether the change tightens or loosens the clamp",
						},
						"notes": map[string]any{"type": "string"},
					},
					"required":             []string{"target", "direction"},
					"additionalProperties": false,
				},
				"reason": map[string]any{
					"type":        "string",
					"description": "Reason for the clamp change",
				},
			},
			"required":             []string{"serviceName", "clamp"},
			"additionalProperties": false,
		},
		Mutating: true,
	}
}

type updateServiceClampResult struct {
	Success       bool         `json:"success"`
	ServiceID     string       `json:"serviceId"`
	PreviousClamp *hotel.Clamp `json:"previousClamp"`
	NewClamp      hotel.Clamp  `json:"newClamp"`
	Reason        string       `json:"reason"`
}

// Execute валидирует clamp (min <= max) и сохраняет его целиком.
func (t *UpdateServiceClampTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		ServiceName string      `json:"serviceName"`
		Clamp       hotel.Clamp `json:"clamp"`
		Reason      string      `json:"reason"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return "", err
	}

	change, err := t.store.UpdateServiceClamp(ctx, args.ServiceName, args.Clamp)
	if err != nil {
		return toJSON(tools.Failure{Success: false, Error: "Failed to update service clamp", Details: errDetails(err)})
	}

	reason := args.Reason
	if reason == "" {
		reason = "No reason supplied"
	}
	return toJSON(updateServiceClampResult{
		Success:       true,
		ServiceID:     change.ServiceID,
		PreviousClamp: change.Previous,
		NewClamp:      change.Current,
		Reason:        reason,
	})
}
