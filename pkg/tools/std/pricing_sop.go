package std

import (
	"context"

	"github.com/ilkoid/bellhop/pkg/pricing"
	"github.com/ilkoid/bellhop/pkg/tools"
)

// GetPricingSopTool — регламент ценообразования отеля в markdown.
type GetPricingSopTool struct {
	sop SOPProvider
}

// NewGetPricingSopTool создаёт инструмент getPricingSop.
func NewGetPricingSopTool(deps Deps) *GetPricingSopTool {
	if deps.SOP == nil {
		return &GetPricingSopTool{sop: StaticSOP(pricing.DefaultSOP)}
	}
	return &GetPricingSopTool{sop: deps.SOP}
}

// Definition возвращает определение инструмента для function calling.
func (t *GetPricingSopTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: "getPricingSop",
		Description: "Get the hotel's pricing standard operating procedure. " +
			"Consult it before recommending or executing rate changes.",
		Parameters: tools.JSONSchema{
			"type":                 "object",
			"properties":           map[string]any{},
			"additionalProperties": false,
		},
	}
}

// Execute возвращает {markdown}.
func (t *GetPricingSopTool) Execute(ctx context.Context, _ string) (string, error) {
	return toJSON(struct {
		Markdown string `json:"markdown"`
	}{t.sop.PricingSOP(ctx)})
}
