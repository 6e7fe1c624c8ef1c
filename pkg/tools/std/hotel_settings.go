package std

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/tools"
)

// GetHotelSettingsTool — чтение настроек отеля.
type GetHotelSettingsTool struct {
	store hotel.Store
}

// NewGetHotelSettingsTool создаёт инструмент getHotelSettings.
func NewGetHotelSettingsTool(deps Deps) *GetHotelSettingsTool {
	return &GetHotelSettingsTool{store: deps.Store}
}

// readableSettingsFields — поля, которые можно запросить через fields.
var readableSettingsFields = []string{"id", "name", "address", "url", "contact", "phoneNumber", "createdAt", "updatedAt"}

// Definition возвращает определение инструмента для function calling.
func (t *GetHotelSettingsTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "getHotelSettings",
		Description: "Get hotel company settings including name, address, URL, contact info, and phone number",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"fields": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "string",
						"enum": readableSettingsFields,
					},
					"description": "Specific fields to retrieve (optional - returns all if not specified)",
				},
			},
			"additionalProperties": false,
		},
	}
}

// Execute возвращает все настройки или только запрошенные поля.
func (t *GetHotelSettingsTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Fields []string `json:"fields"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return "", err
	}

	settings, err := t.store.Settings(ctx)
	if errors.Is(err, hotel.ErrNotFound) {
		return toJSON(errorPayload{
			Error:   "No hotel settings found",
			Details: "Company settings have not been configured yet",
		})
	}
	if err != nil {
		return toJSON(errorPayload{Error: "Failed to fetch hotel settings", Details: errDetails(err)})
	}

	if len(args.Fields) == 0 {
		return toJSON(settings)
	}

	all, err := settingsMap(settings)
	if err != nil {
		return toJSON(errorPayload{Error: "Failed to fetch hotel settings", Details: errDetails(err)})
	}
	selected := make(map[string]any, len(args.Fields))
	for _, f := range args.Fields {
		if v, ok := all[f]; ok {
			selected[f] = v
		}
	}
	return toJSON(selected)
}

// settingsMap раскладывает настройки по JSON-именам полей.
func settingsMap(s hotel.Settings) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateHotelSettingsTool — изменение настроек отеля.
type UpdateHotelSettingsTool struct {
	store hotel.Store
}

// NewUpdateHotelSettingsTool создаёт инструмент updateHotelSettings.
func NewUpdateHotelSettingsTool(deps Deps) *UpdateHotelSettingsTool {
	return &UpdateHotelSettingsTool{store: deps.Store}
}

// Definition возвращает определение инструмента для function calling.
func (t *UpdateHotelSettingsTool) Definition() tools.ToolDefinition {
	nullableString := func(description string) map[string]any {
		return map[string]any{
			"type":        []string{"string", "null"},
			"description": description,
		}
	}
	return tools.ToolDefinition{
		Name:        "updateHotelSettings",
		Description: "Update hotel company settings such as name, address, URL, contact information, or phone number",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"updates": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":        nullableString("Hotel name"),
						"address":     nullableString("Hotel address"),
						"url":         nullableString("Hotel website URL"),
						"contact":     nullableString("Contact person or email"),
						"phoneNumber": nullableString("Hotel phone number"),
					},
					"description": "Fields to update with their new values",
				},
				"reason": map[string]any{
					"type":        "string",
					"description": "Reason for the update",
				},
			},
			"required":             []string{"updates"},
			"additionalProperties": false,
		},
		Mutating: true,
	}
}

type currentSettings struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	URL         *string   `json:"url"`
	Contact     *string   `json:"contact"`
	PhoneNumber *string   `json:"phoneNumber"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type updateHotelSettingsResult struct {
	Success         bool            `json:"success"`
	UpdatedFields   []string        `json:"updatedFields"`
	CurrentSettings currentSettings `json:"currentSettings"`
	Reason          string          `json:"reason"`
}

// Execute меняет только разрешённые поля; остальные ключи updates игнорируются.
func (t *UpdateHotelSettingsTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Updates map[string]json.RawMessage `json:"updates"`
		Reason  string                     `json:"reason"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return "", err
	}

	updates := make(map[string]*string)
	var fields []string
	for _, field := range hotel.SettingsFields {
		raw, ok := args.Updates[field]
		if !ok {
			continue
		}
		var value *string
		if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}
		updates[field] = value
		fields = append(fields, field)
	}

	if len(updates) == 0 {
		return toJSON(tools.Failure{
			Success: false,
			Error:   "No valid fields provided for update",
			Details: "Valid fields are: " + strings.Join(hotel.SettingsFields, ", "),
		})
	}

	settings, err := t.store.UpdateSettings(ctx, updates)
	if errors.Is(err, hotel.ErrNotFound) {
		return toJSON(tools.Failure{
			Success: false,
			Error:   "No hotel settings found to update",
			Details: "Company settings have not been configured yet",
		})
	}
	if err != nil {
		return toJSON(tools.Failure{Success: false, Error: "Failed to update hotel settings", Details: errDetails(err)})
	}

	reason := args.Reason
	if reason == "" {
		reason = "No reason provided"
	}
	return toJSON(updateHotelSettingsResult{
		Success:       true,
		UpdatedFields: fields,
		CurrentSettings: currentSettings{
			ID:          settings.ID,
			Name:        settings.Name,
			Address:     settings.Address,
			URL:         settings.URL,
			Contact:     settings.Contact,
			PhoneNumber: settings.PhoneNumber,
			UpdatedAt:   settings.UpdatedAt,
		},
		Reason: reason,
	})
}
