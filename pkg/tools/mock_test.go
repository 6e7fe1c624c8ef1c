package tools

import (
	"context"
)

// mockTool — настраиваемый инструмент для тестов.
type mockTool struct {
	def         ToolDefinition
	executeFunc func(ctx context.Context, argsJSON string) (string, error)
}

func (m *mockTool) Definition() ToolDefinition { return m.def }

func (m *mockTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	if m.executeFunc == nil {
		return `{"ok":true}`, nil
	}
	return m.executeFunc(ctx, argsJSON)
}

func newMockTool(name string, fn func(ctx context.Context, argsJSON string) (string, error)) *mockTool {
	return &mockTool{
		def: ToolDefinition{
			Name:        name,
			Description: "mock " + name,
			Parameters: JSONSchema{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		executeFunc: fn,
	}
}

// adjustmentSchema повторяет форму аргументов изменения цен.
func adjustmentSchema() JSONSchema {
	return JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"startDate": map[string]any{"type": "string"},
			"endDate":   map[string]any{"type": "string"},
			"adjustment": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type":      map[string]any{"type": "string", "enum": []string{"percentage", "fixed_amount"}},
					"value":     map[string]any{"type": "number"},
					"operation": map[string]any{"type": "string", "enum": []string{"increase", "decrease", "set_to"}},
				},
				"required": []string{"type", "value", "operation"},
			},
		},
		"required": []string{"startDate", "endDate", "adjustment"},
	}
}
