package std

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/pricing"
	"github.com/ilkoid/bellhop/pkg/store/sqlite"
	"github.com/ilkoid/bellhop/pkg/tools"
	"github.com/ilkoid/bellhop/pkg/weather"
)

func ptr[T any](v T) *T { return &v }

var fixedNow = time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store *sqlite.Store
	deps  Deps
	rooms []string
	svc   hotel.Service
}

// newFixture: "Base Rate" 100..750 и три номера с ценами [250, 250, 300] на 2025-09-29.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	s, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.InsertSettings(ctx, hotel.Settings{Name: "The Ned", Address: "1170 Broadway, New York, NY 10001"})
	require.NoError(t, err)

	svc, err := s.InsertService(ctx, hotel.Service{Name: "Base Rate", RateLowerUSD: 100, RateUpperUSD: 750})
	require.NoError(t, err)

	f := &fixture{store: s, svc: svc}
	for i, price := range []float64{250, 250, 300} {
		roomID, err := s.InsertRoom(ctx, svc.ID, []string{"0101", "0102", "0103"}[i])
		require.NoError(t, err)
		f.rooms = append(f.rooms, roomID)
		f.addRate(t, hotel.RoomRate{Day: "2025-09-29", RoomID: roomID, PriceUSD: price})
	}
	f.deps = Deps{Store: s, Now: func() time.Time { return fixedNow }}
	return f
}

func (f *fixture) addRate(t *testing.T, r hotel.RoomRate) {
	t.Helper()
	r.ServiceID = f.svc.ID
	_, err := f.store.InsertRate(context.Background(), r)
	require.NoError(t, err)
}

func run(t *testing.T, tool tools.Tool, args string) map[string]any {
	t.Helper()
	out, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m), out)
	return m
}

func TestNewCatalog(t *testing.T) {
	f := newFixture(t)

	withoutWeather, err := tools.NewRegistry(NewCatalog(f.deps)...)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"getOccupancyData", "getRoomRates", "updateRoomRates", "executePricingAction",
		"getRateClamps", "updateRateClamps", "updateServiceClamp",
		"getHotelSettings", "updateHotelSettings", "analyzePricingOpportunities", "getPricingSop",
	}, withoutWeather.Names())

	f.deps.Weather = &fakeWeather{}
	withWeather, err := tools.NewRegistry(NewCatalog(f.deps)...)
	require.NoError(t, err)
	assert.Contains(t, withWeather.Names(), "getWeather")

	assert.ElementsMatch(t, []string{
		"getOccupancyData", "getRoomRates", "getRateClamps", "getHotelSettings",
		"analyzePricingOpportunities", "getWeather", "getPricingSop",
	}, withWeather.ReadOnly().Names())
}

func TestGetRoomRates(t *testing.T) {
	f := newFixture(t)
	f.addRate(t, hotel.RoomRate{Day: "2025-09-30", RoomID: f.rooms[0], PriceUSD: 200.33})

	res := run(t, NewGetRoomRatesTool(f.deps), `{"startDate":"2025-09-29","endDate":"2025-09-30"}`)

	rates := res["rates"].([]any)
	require.Len(t, rates, 2)
	first := rates[0].(map[string]any)
	assert.Equal(t, "2025-09-29", first["date"])
	assert.Equal(t, 266.67, first["averageRate"])
	assert.Equal(t, 250.0, first["minRate"])
	assert.Equal(t, 300.0, first["maxRate"])
	assert.Equal(t, 3.0, first["totalRooms"])

	summary := res["summary"].(map[string]any)
	// (266.67 + 200.33) / 2
	assert.Equal(t, 233.5, summary["overallAverageRate"])
}

func TestGetRoomRates_Empty(t *testing.T) {
	f := newFixture(t)

	res := run(t, NewGetRoomRatesTool(f.deps), `{"startDate":"2025-10-01","endDate":"2025-10-31"}`)
	assert.Empty(t, res["rates"])
	assert.Equal(t, 0.0, res["summary"].(map[string]any)["overallAverageRate"])
}

func TestUpdateRoomRates(t *testing.T) {
	tests := []struct {
		name        string
		adjustment  string
		wantAverage float64
	}{
		{"percentage increase", `{"type":"percentage","value":10,"operation":"increase"}`, 293.33},
		{"fixed decrease", `{"type":"fixed_amount","value":50,"operation":"decrease"}`, 216.67},
		{"set to", `{"type":"fixed_amount","value":199,"operation":"set_to"}`, 199},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			res := run(t, NewUpdateRoomRatesTool(f.deps),
				`{"startDate":"2025-09-29","endDate":"2025-09-29","adjustment":`+tt.adjustment+`,"reason":"event"}`)

			assert.Equal(t, true, res["success"])
			assert.Equal(t, 1.0, res["affectedDates"])
			assert.Equal(t, 3.0, res["affectedRooms"])
			summary := res["summary"].(map[string]any)
			assert.Equal(t, 266.67, summary["previousAverageRate"])
			assert.Equal(t, tt.wantAverage, summary["newAverageRate"])
			assert.Equal(t, "event", summary["reason"])
			assert.NotContains(t, res, "clampWarnings")
		})
	}
}

func TestUpdateRoomRates_ClampBlockLeavesRatesUntouched(t *testing.T) {
	f := newFixture(t)

	res := run(t, NewUpdateRoomRatesTool(f.deps),
		`{"startDate":"2025-09-29","endDate":"2025-09-29","adjustment":{"type":"fixed_amount","value":50,"operation":"set_to"}}`)

	assert.Equal(t, false, res["success"])
	assert.Equal(t, "Rate change violates rate clamps", res["error"])
	assert.Equal(t, 3.0, res["violationCount"])
	violation := res["violations"].([]any)[0].(map[string]any)
	assert.Equal(t, 50.0, violation["proposedRate"])
	assert.Equal(t, 100.0, violation["minRate"])

	rates, err := f.store.DailyRates(context.Background(), "2025-09-29", "2025-09-29")
	require.NoError(t, err)
	assert.Equal(t, 250.0, rates[0].Min)
	assert.Equal(t, 300.0, rates[0].Max)
}

func TestUpdateRoomRates_ClampAdvisoryApplies(t *testing.T) {
	f := newFixture(t)
	f.deps.ClampPolicy = pricing.PolicyAdvisory

	res := run(t, NewUpdateRoomRatesTool(f.deps),
		`{"startDate":"2025-09-29","endDate":"2025-09-29","adjustment":{"type":"fixed_amount","value":50,"operation":"set_to"}}`)

	assert.Equal(t, true, res["success"])
	assert.Len(t, res["clampWarnings"], 3)
	assert.Equal(t, 50.0, res["summary"].(map[string]any)["newAverageRate"])
}

func TestUpdateRoomRates_InvalidRange(t *testing.T) {
	f := newFixture(t)

	res := run(t, NewUpdateRoomRatesTool(f.deps),
		`{"startDate":"2025-09-30","endDate":"2025-09-29","adjustment":{"type":"percentage","value":5,"operation":"increase"}}`)
	assert.Equal(t, false, res["success"])
	assert.Equal(t, "Failed to update room rates", res["error"])
}

func TestExecutePricingAction(t *testing.T) {
	f := newFixture(t)
	tool := NewExecutePricingActionTool(f.deps)

	t.Run("requires approval", func(t *testing.T) {
		res := run(t, tool, `{"startDate":"2025-09-29","endDate":"2025-09-29",
			"adjustment":{"type":"percentage","value":10,"operation":"increase"},"userApproval":false}`)
		assert.Equal(t, false, res["success"])
		assert.Equal(t, "user_confirmation", res["actionRequired"])

		rates, err := f.store.DailyRates(context.Background(), "2025-09-29", "2025-09-29")
		require.NoError(t, err)
		assert.Equal(t, 250.0, rates[0].Min)
	})

	t.Run("approved", func(t *testing.T) {
		res := run(t, tool, `{"startDate":"2025-09-29","endDate":"2025-09-29",
			"adjustment":{"type":"percentage","value":10,"operation":"increase"},"userApproval":true}`)
		assert.Equal(t, true, res["success"])
		assert.Equal(t, "Successfully executed pricing change: increase by 10%", res["message"])
		assert.Equal(t, "2025-09-15T10:00:00Z", res["executedAt"])

		summary := res["summary"].(map[string]any)
		assert.Equal(t, 3.0, summary["affectedRooms"])
		assert.Equal(t, "Pricing optimization", summary["reason"])
	})

	t.Run("store failure", func(t *testing.T) {
		res := run(t, tool, `{"startDate":"bad","endDate":"2025-09-29",
			"adjustment":{"type":"percentage","value":10,"operation":"increase"},"userApproval":true}`)
		assert.Equal(t, false, res["success"])
		assert.Equal(t, "retry_or_manual_intervention", res["actionRequired"])
	})
}

func TestGetOccupancyData(t *testing.T) {
	f := newFixture(t)
	// Прошлый год: один из двух номеров занят
	f.addRate(t, hotel.RoomRate{Day: "2024-09-30", RoomID: f.rooms[0], Status: hotel.StatusConfirmed, PriceUSD: 240, DateBooked: ptr("2024-09-01")})
	f.addRate(t, hotel.RoomRate{Day: "2024-09-30", RoomID: f.rooms[1], PriceUSD: 240})
	// Текущий год: три брони, одна сделана после asOf
	f.addRate(t, hotel.RoomRate{Day: "2025-09-30", RoomID: f.rooms[0], Status: hotel.StatusConfirmed, PriceUSD: 250, DateBooked: ptr("2025-09-01")})
	f.addRate(t, hotel.RoomRate{Day: "2025-09-30", RoomID: f.rooms[1], Status: hotel.StatusConfirmed, PriceUSD: 250, DateBooked: ptr("2025-09-10")})
	f.addRate(t, hotel.RoomRate{Day: "2025-09-30", RoomID: f.rooms[2], Status: hotel.StatusConfirmed, PriceUSD: 250, DateBooked: ptr("2025-09-20")})

	res := run(t, NewGetOccupancyDataTool(f.deps), `{"startDate":"2025-09-30","endDate":"2025-09-30"}`)

	summary := res["summary"].(map[string]any)
	assert.Equal(t, "2025-09-15", summary["asOfDate"])
	assert.Equal(t, "2025-09-30 to 2025-09-30", summary["dateRange"])
	assert.Equal(t, 66.67, summary["avgOccupancy"])
	assert.Equal(t, 50.0, summary["avgOccupancyLastYear"])
	assert.Equal(t, 16.67, summary["change"])

	chart := res["chart"].(map[string]any)
	assert.Equal(t, "grouped-bar", chart["kind"])
	assert.Equal(t, "As of Sep 15, 2025", chart["subtitle"])
	assert.Equal(t, []any{"Tue Sep 30"}, chart["categories"])
	assert.Equal(t, "Occupancy is up 16.7 pts vs last year.", chart["insight"])

	series := chart["series"].([]any)
	require.Len(t, series, 2)
	assert.Equal(t, "current-2025", series[0].(map[string]any)["id"])
	assert.Equal(t, []any{66.67}, series[0].(map[string]any)["values"])
	comparison := series[1].(map[string]any)
	assert.Equal(t, "comparison-2024", comparison["id"])
	assert.Equal(t, "2024 occupancy", comparison["label"])
	assert.Equal(t, []any{50.0}, comparison["values"])
}

func TestBuildOccupancyChart_UnmatchedDaysAreNull(t *testing.T) {
	current := []hotel.OccupancyDay{{Date: "2025-09-29", OccupancyRate: 40}, {Date: "2025-09-30", OccupancyRate: 60}}
	comparison := []hotel.OccupancyDay{{Date: "2024-09-29", OccupancyRate: 30}}

	chart := buildOccupancyChart(current, comparison, fixedNow, ptr(0.0))
	assert.Equal(t, []string{"Mon Sep 29", "Tue Sep 30"}, chart.Categories)
	require.Len(t, chart.Series, 2)
	require.NotNil(t, chart.Series[1].Values[0])
	assert.Equal(t, 30.0, *chart.Series[1].Values[0])
	assert.Nil(t, chart.Series[1].Values[1])
	assert.Equal(t, "Occupancy is flat versus last year.", chart.Insight)
}

func TestGetOccupancyData_OutsideWindow(t *testing.T) {
	f := newFixture(t)

	res := run(t, NewGetOccupancyDataTool(f.deps), `{"startDate":"2023-12-31","endDate":"2024-01-05"}`)
	assert.Equal(t, "Date range outside available data", res["error"])
	assert.Equal(t, "Requested dates 2023-12-31 to 2024-01-05 are outside our data range (2024-01-01 to 2026-03-12).", res["details"])
	assert.Equal(t, map[string]any{"start": "2024-01-01", "end": "2026-03-12"}, res["availableRange"])
}

func TestGetOccupancyData_NoComparisonBeforeWindow(t *testing.T) {
	f := newFixture(t)
	f.addRate(t, hotel.RoomRate{Day: "2024-06-01", RoomID: f.rooms[0], PriceUSD: 200})

	res := run(t, NewGetOccupancyDataTool(f.deps), `{"startDate":"2024-06-01","endDate":"2024-06-01","asOfDate":"2024-05-01"}`)

	summary := res["summary"].(map[string]any)
	assert.Nil(t, summary["avgOccupancyLastYear"])
	assert.Nil(t, summary["change"])

	chart := res["chart"].(map[string]any)
	assert.Len(t, chart["series"], 1)
	assert.Equal(t, "Year-over-year comparison unavailable for this range.", chart["footnote"])
	assert.NotContains(t, chart, "insight")
}

func TestOccupancyInsight(t *testing.T) {
	assert.Equal(t, "", occupancyInsight(nil))
	assert.Equal(t, "Occupancy is flat versus last year.", occupancyInsight(ptr(0.0)))
	assert.Equal(t, "Occupancy is up 5 pts vs last year.", occupancyInsight(ptr(5.0)))
	assert.Equal(t, "Occupancy is up 3.5 pts vs last year.", occupancyInsight(ptr(3.46)))
}

func TestRateClamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.InsertService(ctx, hotel.Service{Name: "Suite", RateLowerUSD: 300, RateUpperUSD: 1200})
	require.NoError(t, err)

	res := run(t, NewGetRateClampsTool(f.deps), `{"serviceNames":["Suite"]}`)
	clamps := res["rateClamps"].([]any)
	require.Len(t, clamps, 1)
	assert.Equal(t, "Suite", clamps[0].(map[string]any)["serviceName"])
	assert.Equal(t, 300.0, clamps[0].(map[string]any)["minRate"])

	res = run(t, NewUpdateRateClampsTool(f.deps), `{"updates":[{"serviceName":"Base Rate","minRate":150}]}`)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "No reason provided", res["reason"])
	updated := res["updatedServices"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"min": 100.0, "max": 750.0}, updated["oldClamps"])
	assert.Equal(t, map[string]any{"min": 150.0, "max": 750.0}, updated["newClamps"])
}

func TestUpdateRateClamps_UnknownServiceRollsBack(t *testing.T) {
	f := newFixture(t)

	res := run(t, NewUpdateRateClampsTool(f.deps),
		`{"updates":[{"serviceName":"Base Rate","minRate":150},{"serviceName":"Penthouse","maxRate":2000}]}`)
	assert.Equal(t, false, res["success"])
	assert.Equal(t, "Failed to update rate clamps", res["error"])
	assert.Equal(t, "Service 'Penthouse' not found", res["details"])

	services, err := f.store.Services(context.Background(), []string{"Base Rate"})
	require.NoError(t, err)
	assert.Equal(t, 100.0, services[0].RateLowerUSD)
}

func TestUpdateServiceClamp(t *testing.T) {
	f := newFixture(t)
	tool := NewUpdateServiceClampTool(f.deps)

	res := run(t, tool, `{"serviceName":"Base Rate","clamp":{"target":"weekend","minRate":260,"direction":"tighten"}}`)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, f.svc.ID, res["serviceId"])
	assert.Nil(t, res["previousClamp"])
	assert.Equal(t, "No reason supplied", res["reason"])

	// 2025-10-03 — пятница: минимальная ставка теперь 260
	f.addRate(t, hotel.RoomRate{Day: "2025-10-03", RoomID: f.rooms[0], PriceUSD: 280})
	blocked := run(t, NewUpdateRoomRatesTool(f.deps),
		`{"startDate":"2025-10-03","endDate":"2025-10-03","adjustment":{"type":"fixed_amount","value":250,"operation":"set_to"}}`)
	assert.Equal(t, false, blocked["success"])

	res = run(t, tool, `{"serviceName":"Base Rate","clamp":{"target":"all","minRate":300,"maxRate":200,"direction":"loosen"}}`)
	assert.Equal(t, false, res["success"])
	assert.Equal(t, "Failed to update service clamp", res["error"])
}

func TestHotelSettings(t *testing.T) {
	f := newFixture(t)

	res := run(t, NewGetHotelSettingsTool(f.deps), `{}`)
	assert.Equal(t, "The Ned", res["name"])
	assert.Contains(t, res, "createdAt")
	assert.Nil(t, res["url"])

	res = run(t, NewGetHotelSettingsTool(f.deps), `{"fields":["name","phoneNumber"]}`)
	assert.Equal(t, map[string]any{"name": "The Ned", "phoneNumber": nil}, res)

	res = run(t, NewUpdateHotelSettingsTool(f.deps),
		`{"updates":{"phoneNumber":"+1 212 555 0100","url":null,"stars":5},"reason":"front desk"}`)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, []any{"url", "phoneNumber"}, res["updatedFields"])
	assert.Equal(t, "+1 212 555 0100", res["currentSettings"].(map[string]any)["phoneNumber"])
	assert.Equal(t, "front desk", res["reason"])

	res = run(t, NewUpdateHotelSettingsTool(f.deps), `{"updates":{"stars":5}}`)
	assert.Equal(t, false, res["success"])
	assert.Equal(t, "No valid fields provided for update", res["error"])
	assert.Equal(t, "Valid fields are: name, address, url, contact, phoneNumber", res["details"])
}

func TestHotelSettings_NotConfigured(t *testing.T) {
	s, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	deps := Deps{Store: s, Weather: &fakeWeather{}}

	res := run(t, NewGetHotelSettingsTool(deps), `{}`)
	assert.Equal(t, "No hotel settings found", res["error"])

	res = run(t, NewUpdateHotelSettingsTool(deps), `{"updates":{"name":"X"}}`)
	assert.Equal(t, "No hotel settings found to update", res["error"])

	res = run(t, NewGetWeatherTool(deps), `{}`)
	assert.Equal(t, "Hotel settings not found", res["error"])
	assert.Equal(t, "Cannot determine hotel location for weather data", res["details"])
}

func TestAnalyzePricingOpportunities(t *testing.T) {
	f := newFixture(t)

	res := run(t, NewAnalyzePricingOpportunitiesTool(f.deps),
		`{"dateRange":{"startDate":"2025-09-01","endDate":"2025-09-30"}}`)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, true, res["executionReady"])
	assert.Len(t, res["currentRates"], 3)
	assert.Len(t, res["recommendations"], 3)

	meta := res["metadata"].(map[string]any)
	assert.Equal(t, "comprehensive", meta["focusArea"])
	assert.Equal(t, "2025-09-15T10:00:00Z", meta["analysisDate"])

	res = run(t, NewAnalyzePricingOpportunitiesTool(f.deps),
		`{"dateRange":{"startDate":"2025-09-30","endDate":"2025-09-01"}}`)
	assert.Equal(t, false, res["success"])
	assert.Equal(t, []any{}, res["recommendations"])
}

type fakeWeather struct {
	current    weather.Current
	historical weather.Day
	err        error
	askedDate  string
}

func (w *fakeWeather) Coordinates() weather.Coordinates {
	return weather.Coordinates{Latitude: 40.7128, Longitude: -74.006}
}

func (w *fakeWeather) Current(context.Context) (weather.Current, error) {
	return w.current, w.err
}

func (w *fakeWeather) Historical(_ context.Context, date string) (weather.Day, error) {
	w.askedDate = date
	return w.historical, w.err
}

func TestGetWeather(t *testing.T) {
	f := newFixture(t)
	fw := &fakeWeather{
		current:    weather.Current{Temperature: ptr(18.5), TemperatureMax: ptr(21.0), TemperatureMin: ptr(14.0), WeatherCode: ptr(3)},
		historical: weather.Day{Date: ptr("2024-09-15"), TemperatureMax: ptr(24.0)},
	}
	f.deps.Weather = fw

	res := run(t, NewGetWeatherTool(f.deps), `{}`)
	assert.Equal(t, "2024-09-15", fw.askedDate)
	assert.Equal(t, "1170 Broadway, New York, NY 10001", res["location"].(map[string]any)["address"])
	assert.Equal(t, "2025-09-15", res["current"].(map[string]any)["date"])
	// Минимума за прошлый год нет: разница неизвестна, а не равна 14
	assert.Equal(t, map[string]any{"temperatureMaxChange": -3.0, "temperatureMinChange": nil}, res["comparison"])

	res = run(t, NewGetWeatherTool(f.deps), `{"includeHistorical":false}`)
	assert.Nil(t, res["historical"])
	assert.Nil(t, res["comparison"])

	fw.err = errors.New("upstream down")
	res = run(t, NewGetWeatherTool(f.deps), `{"daysBack":7}`)
	assert.Equal(t, "Failed to fetch weather data", res["error"])
}

func TestGetPricingSop(t *testing.T) {
	res := run(t, NewGetPricingSopTool(Deps{}), `{}`)
	assert.Equal(t, pricing.DefaultSOP, res["markdown"])

	res = run(t, NewGetPricingSopTool(Deps{SOP: StaticSOP("# Custom")}), `{}`)
	assert.Equal(t, "# Custom", res["markdown"])
}

func TestCatalog_RejectsWrongArgumentTypes(t *testing.T) {
	f := newFixture(t)
	f.deps.Weather = &fakeWeather{}
	reg, err := tools.NewRegistry(NewCatalog(f.deps)...)
	require.NoError(t, err)
	e := tools.NewExecutor(reg)

	tests := []struct {
		tool  string
		args  string
		field string
	}{
		{"getOccupancyData", `{"startDate":"2025-09-01","endDate":"2025-09-07","includeYoYComparison":"yes"}`, "includeYoYComparison"},
		{"getRoomRates", `{"startDate":20250901,"endDate":"2025-09-07"}`, "startDate"},
		{"updateRoomRates", `{"startDate":"2025-09-29","endDate":"2025-09-29","adjustment":{"type":"percentage","value":"ten","operation":"increase"}}`, "adjustment.value"},
		{"executePricingAction", `{"startDate":"2025-09-29","endDate":"2025-09-29","adjustment":{"type":"percentage","value":10,"operation":"increase"},"userApproval":"true"}`, "userApproval"},
		{"getRateClamps", `{"serviceNames":"Base Rate"}`, "serviceNames"},
		{"updateRateClamps", `{"updates":[{"serviceName":"Base Rate","minRate":"100"}]}`, "updates.0.minRate"},
		{"updateServiceClamp", `{"serviceName":"Base Rate","clamp":{"target":"all","direction":"tighten","minRate":"low"}}`, "clamp.minRate"},
		{"getHotelSettings", `{"fields":"name"}`, "fields"},
		{"updateHotelSettings", `{"updates":{"name":42}}`, "updates.name"},
		{"analyzePricingOpportunities", `{"dateRange":{"startDate":"2025-09-01","endDate":false}}`, "dateRange.endDate"},
		{"getWeather", `{"daysBack":"7"}`, "daysBack"},
		{"getPricingSop", `[]`, "(root)"},
	}
	require.Len(t, tests, reg.Len(), "one case per catalog tool")

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			res := e.Execute(context.Background(), tools.CallRequest{CallID: "call_1", ToolName: tt.tool, Arguments: tt.args})
			require.True(t, res.IsError, res.Output)

			var payload struct {
				Error            string             `json:"error"`
				ValidationErrors []tools.FieldError `json:"validationErrors"`
			}
			require.NoError(t, json.Unmarshal([]byte(res.Output), &payload))
			assert.Equal(t, "Invalid arguments for tool "+tt.tool, payload.Error)

			fields := make([]string, len(payload.ValidationErrors))
			for i, fe := range payload.ValidationErrors {
				fields[i] = fe.Field
			}
			assert.Contains(t, fields, tt.field)
		})
	}

	// Отклонённые вызовы ничего не меняют
	res := run(t, NewGetRoomRatesTool(f.deps), `{"startDate":"2025-09-29","endDate":"2025-09-29"}`)
	assert.Equal(t, 266.67, res["rates"].([]any)[0].(map[string]any)["averageRate"])
}
