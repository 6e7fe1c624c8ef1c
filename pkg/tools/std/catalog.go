// Package std — каталог инструментов Bellhop: ставки, загрузка, clamp-границы,
// настройки отеля, анализ ценовых возможностей, погода и регламент.
//
// Каждый инструмент — отдельный файл. Аргументы приходят уже проверенными
// по JSON Schema из Definition(); инструмент декодирует их в типизированную структуру.
package std

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/pricing"
	"github.com/ilkoid/bellhop/pkg/tools"
	"github.com/ilkoid/bellhop/pkg/weather"
)

// WeatherSource — источник погоды (weather.Client или мок).
type WeatherSource interface {
	Coordinates() weather.Coordinates
	Current(ctx context.Context) (weather.Current, error)
	Historical(ctx context.Context, date string) (weather.Day, error)
}

// SOPProvider отдаёт markdown регламента ценообразования.
type SOPProvider interface {
	PricingSOP(ctx context.Context) string
}

// StaticSOP — регламент из строки.
type StaticSOP string

// PricingSOP возвращает строку как есть.
func (s StaticSOP) PricingSOP(context.Context) string { return string(s) }

// Deps — зависимости инструментов.
type Deps struct {
	Store       hotel.Store
	Weather     WeatherSource
	SOP         SOPProvider
	ClampPolicy pricing.Policy

	// Now по умолчанию time.Now. Определяет "сегодня" для asOfDate и погоды.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) today() string {
	return d.now().Format(hotel.DateLayout)
}

// NewCatalog создаёт все инструменты в порядке, в котором они показываются модели.
func NewCatalog(deps Deps) []tools.Tool {
	if deps.SOP == nil {
		deps.SOP = StaticSOP(pricing.DefaultSOP)
	}
	if deps.ClampPolicy == "" {
		deps.ClampPolicy = pricing.PolicyBlock
	}

	catalog := []tools.Tool{
		NewGetOccupancyDataTool(deps),
		NewGetRoomRatesTool(deps),
		NewUpdateRoomRatesTool(deps),
		NewExecutePricingActionTool(deps),
		NewGetRateClampsTool(deps),
		NewUpdateRateClampsTool(deps),
		NewUpdateServiceClampTool(deps),
		NewGetHotelSettingsTool(deps),
		NewUpdateHotelSettingsTool(deps),
		NewAnalyzePricingOpportunitiesTool(deps),
	}
	if deps.Weather != nil {
		catalog = append(catalog, NewGetWeatherTool(deps))
	}
	return append(catalog, NewGetPricingSopTool(deps))
}

// errorPayload — ответ read-only инструментов при сбое.
type errorPayload struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

func decodeArgs(argsJSON string, dest any) error {
	if err := json.Unmarshal([]byte(argsJSON), dest); err != nil {
		return fmt.Errorf("invalid arguments json: %w", err)
	}
	return nil
}

// dateProperty — фрагмент схемы для даты YYYY-MM-DD.
func dateProperty(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
		"pattern":     `^\d{4}-\d{2}-\d{2}$`,
	}
}

// parseRange проверяет даты и порядок start <= end.
func parseRange(start, end string) (time.Time, time.Time, error) {
	s, err := hotel.ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := hotel.ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("endDate %s is before startDate %s", end, start)
	}
	return s, e, nil
}

func errDetails(err error) string {
	if err == nil {
		return "Unknown error"
	}
	return err.Error()
}
