package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// rootField — путь ошибки, относящейся ко всему объекту аргументов.
const rootField = "(root)"

// Schema — скомпилированная JSON Schema аргументов инструмента.
type Schema struct {
	compiled *gojsonschema.Schema
}

// CompileSchema компилирует схему один раз при сборке реестра.
func CompileSchema(s JSONSchema) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(map[string]any(s)))
	if err != nil {
		return nil, fmt.Errorf("invalid parameters schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// FieldError — одна причина отказа с путём до поля (например adjustment.value).
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError — аргументы не прошли проверку схемы.
type ValidationError struct {
	Tool   string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return fmt.Sprintf("invalid arguments for tool '%s': %s", e.Tool, strings.Join(parts, "; "))
}

// Validate проверяет JSON-документ. Пустой срез — документ валиден.
//
// Значения не приводятся к типам схемы: строка "10" для number — ошибка.
func (s *Schema) Validate(doc []byte) []FieldError {
	if !json.Valid(doc) {
		return []FieldError{{Field: rootField, Reason: "arguments are not valid JSON"}}
	}

	result, err := s.compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return []FieldError{{Field: rootField, Reason: err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	fields := make([]FieldError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		fields = append(fields, FieldError{
			Field:  fieldPath(e),
			Reason: e.Description(),
		})
	}

	// gojsonschema обходит properties в порядке map
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Field != fields[j].Field {
			return fields[i].Field < fields[j].Field
		}
		return fields[i].Reason < fields[j].Reason
	})
	return fields
}

// fieldPath для "required" указывает на отсутствующее поле, а не на родителя.
func fieldPath(e gojsonschema.ResultError) string {
	field := e.Field()
	if e.Type() != "required" {
		return field
	}
	prop, ok := e.Details()["property"].(string)
	if !ok || prop == "" {
		return field
	}
	if field == rootField || field == "" {
		return prop
	}
	return field + "." + prop
}
