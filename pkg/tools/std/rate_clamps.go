package std

import (
	"context"

	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/tools"
)

// GetRateClampsTool — границы ставок по услугам.
type GetRateClampsTool struct {
	store hotel.Store
}

// NewGetRateClampsTool создаёт инструмент getRateClamps.
func NewGetRateClampsTool(deps Deps) *GetRateClampsTool {
	return &GetRateClampsTool{store: deps.Store}
}

// Definition возвращает определение инструмента для function calling.
func (t *GetRateClampsTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "getRateClamps",
		Description: "Get current rate clamps (minimum and maximum rates) for hotel services",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"serviceNames": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Optional list of service names to filter by",
				},
			},
			"additionalProperties": false,
		},
	}
}

type rateClamp struct {
	ServiceName string  `json:"serviceName"`
	ServiceID   string  `json:"serviceId"`
	MinRate     float64 `json:"minRate"`
	MaxRate     float64 `json:"maxRate"`
}

// Execute возвращает границы всех услуг или только перечисленных.
func (t *GetRateClampsTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		ServiceNames []string `json:"serviceNames"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return "", err
	}

	services, err := t.store.Services(ctx, args.ServiceNames)
	if err != nil {
		return toJSON(errorPayload{Error: "Failed to fetch rate clamps", Details: errDetails(err)})
	}

	clamps := make([]rateClamp, 0, len(services))
	for _, s := range services {
		clamps = append(clamps, rateClamp{
			ServiceName: s.Name,
			ServiceID:   s.ID,
			MinRate:     s.RateLowerUSD,
			MaxRate:     s.RateUpperUSD,
		})
	}
	return toJSON(struct {
		RateClamps []rateClamp `json:"rateClamps"`
	}{clamps})
}

// UpdateRateClampsTool — изменение границ ставок нескольких услуг.
type UpdateRateClampsTool struct {
	store hotel.Store
}

// NewUpdateRateClampsTool создаёт инструмент updateRateClamps.
func NewUpdateRateClampsTool(deps Deps) *UpdateRateClampsTool {
	return &UpdateRateClampsTool{store: deps.Store}
}

// Definition возвращает определение инструмента для function calling.
func (t *UpdateRateClampsTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "updateRateClamps",
		Description: "Update rate clamps (minimum and maximum rates) for hotel services",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"updates": map[string]any{
					"type":     "array",
					"minItems": 1,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"serviceName": map[string]any{
								"type":        "string",
								"description": "Name of the service to update",
							},
							"minRate": map[string]any{
								"type":        "number",
								"minimum":     0,
								"description": "New minimum rate",
							},
							"maxRate": map[string]any{
								"type":        "number",
								"minimum":     0,
								"description": "New maximum rate",
							},
						},
						"required":             []string{"serviceName"},
						"additionalProperties": false,
					},
				},
				"reason": map[string]any{
					"type":        "string",
					"description": "Reason for updating rate clamps",
				},
			},
			"required":             []string{"updates"},
			"additionalProperties": false,
		},
		Mutating: true,
	}
}

type minMax struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type updatedService struct {
	ServiceName string `json:"serviceName"`
	OldClamps   minMax `json:"oldClamps"`
	NewClamps   minMax `json:"newClamps"`
}

type updateRateClampsResult struct {
	Success         bool             `json:"success"`
	UpdatedServices []updatedService `json:"updatedServices"`
	Reason          string           `json:"reason"`
}

// Execute применяет все обновления в одной транзакции: неизвестная услуга
// откатывает и уже применённые изменения.
func (t *UpdateRateClampsTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Updates []struct {
			ServiceName string   `json:"serviceName"`
			MinRate     *float64 `json:"minRate"`
			MaxRate     *float64 `json:"maxRate"`
		} `json:"updates"`
		Reason string `json:"reason"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return "", err
	}

	updates := make([]hotel.ServiceRateUpdate, 0, len(args.Updates))
	for _, u := range args.Updates {
		updates = append(updates, hotel.ServiceRateUpdate{
			ServiceName: u.ServiceName,
			MinRate:     u.MinRate,
			MaxRate:     u.MaxRate,
		})
	}

	changes, err := t.store.UpdateServiceRates(ctx, updates)
	if err != nil {
		return toJSON(tools.Failure{Success: false, Error: "Failed to update rate clamps", Details: errDetails(err)})
	}

	reason := args.Reason
	if reason == "" {
		reason = "No reason provided"
	}
	result := updateRateClampsResult{
		Success:         true,
		UpdatedServices: make([]updatedService, 0, len(changes)),
		Reason:          reason,
	}
	for _, c := range changes {
		result.UpdatedServices = append(result.UpdatedServices, updatedService{
			ServiceName: c.ServiceName,
			OldClamps:   minMax{Min: c.OldMin, Max: c.OldMax},
			NewClamps:   minMax{Min: c.NewMin, Max: c.NewMax},
		})
	}
	return toJSON(result)
}
