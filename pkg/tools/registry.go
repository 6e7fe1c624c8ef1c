// Реестр для хранения и поиска инструментов.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrToolNotFound возвращается Registry.Get для неизвестного имени.
var ErrToolNotFound = errors.New("tool not found")

// Registry — фиксированный каталог инструментов.
//
// Собирается один раз при старте через NewRegistry и после этого не меняется,
// поэтому безопасен для конкурентного чтения без блокировок.
type Registry struct {
	entries map[string]entry
	order   []string
}

type entry struct {
	tool   Tool
	def    ToolDefinition
	schema *Schema
}

// NewRegistry проверяет определения, компилирует схемы и строит каталог.
//
// Порядок Definitions() совпадает с порядком аргументов.
// Дубликат имени или невалидная схема — ошибка.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		entries: make(map[string]entry, len(tools)),
		order:   make([]string, 0, len(tools)),
	}

	for _, t := range tools {
		def := t.Definition()

		if err := validateToolDefinition(def); err != nil {
			return nil, err
		}
		if _, exists := r.entries[def.Name]; exists {
			return nil, fmt.Errorf("tool '%s' registered twice", def.Name)
		}

		schema, err := CompileSchema(def.Parameters)
		if err != nil {
			return nil, fmt.Errorf("tool '%s': %w", def.Name, err)
		}

		r.entries[def.Name] = entry{tool: t, def: def, schema: schema}
		r.order = append(r.order, def.Name)
	}

	return r, nil
}

// validateToolDefinition проверяет что ToolDefinition пригоден для Function Calling:
// непустое имя, parameters с type == "object" и required из строк.
func validateToolDefinition(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Parameters == nil {
		return fmt.Errorf("tool '%s': parameters cannot be nil", def.Name)
	}

	// Через JSON, чтобы одинаково обработать []string и []any
	paramsJSON, err := json.Marshal(def.Parameters)
	if err != nil {
		return fmt.Errorf("tool '%s': failed to marshal parameters: %w", def.Name, err)
	}
	var params map[string]any
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return fmt.Errorf("tool '%s': parameters must be a JSON object, got: %s", def.Name, string(paramsJSON))
	}

	typeStr, ok := params["type"].(string)
	if !ok || typeStr != "object" {
		return fmt.Errorf("tool '%s': parameters.type must be 'object'", def.Name)
	}

	if requiredVal, exists := params["required"]; exists {
		required, ok := requiredVal.([]any)
		if !ok {
			return fmt.Errorf("tool '%s': parameters.required must be an array", def.Name)
		}
		for i, item := range required {
			if _, ok := item.(string); !ok {
				return fmt.Errorf("tool '%s': parameters.required[%d] must be a string, got: %T", def.Name, i, item)
			}
		}
	}

	return nil
}

// Get ищет инструмент по имени.
func (r *Registry) Get(name string) (Tool, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrToolNotFound, name)
	}
	return e.tool, nil
}

// Definition возвращает определение инструмента по имени.
func (r *Registry) Definition(name string) (ToolDefinition, bool) {
	e, ok := r.entries[name]
	return e.def, ok
}

func (r *Registry) schemaFor(name string) *Schema {
	return r.entries[name].schema
}

// Definitions возвращает каталог для отправки в LLM.
func (r *Registry) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].def)
	}
	return defs
}

// Names возвращает имена инструментов в порядке регистрации.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len возвращает число инструментов.
func (r *Registry) Len() int {
	return len(r.order)
}

// Filter возвращает новый реестр только с инструментами, для которых keep == true.
// Скомпилированные схемы переиспользуются.
func (r *Registry) Filter(keep func(ToolDefinition) bool) *Registry {
	out := &Registry{entries: make(map[string]entry)}
	for _, name := range r.order {
		e := r.entries[name]
		if keep(e.def) {
			out.entries[name] = e
			out.order = append(out.order, name)
		}
	}
	return out
}

// ReadOnly возвращает реестр без изменяющих инструментов.
func (r *Registry) ReadOnly() *Registry {
	return r.Filter(func(def ToolDefinition) bool { return !def.Mutating })
}
