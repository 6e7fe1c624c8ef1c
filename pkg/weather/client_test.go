package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/bellhop/pkg/config"
)

func newServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var queries []string

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		fmt.Fprint(w, `{
			"current": {"temperature_2m": 18.4, "weather_code": 3, "wind_speed_10m": 11.2},
			"daily": {"time": ["2025-10-15"], "temperature_2m_max": [21.0], "temperature_2m_min": [12.5]}
		}`)
	})
	mux.HandleFunc("/v1/archive", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		fmt.Fprint(w, `{"daily": {"time": ["2024-10-15"], "temperature_2m_max": [19.0], "temperature_2m_min": [10.0], "weather_code": [61]}}`)
	})
	mux.HandleFunc("/broken/forecast", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &queries
}

func testConfig(base string) config.WeatherConfig {
	return config.WeatherConfig{
		ForecastURL: base + "/v1/forecast",
		ArchiveURL:  base + "/v1/archive",
		RateLimit:   600,
		BurstLimit:  5,
	}
}

func TestClient_Current(t *testing.T) {
	srv, queries := newServer(t)
	c := New(testConfig(srv.URL), srv.Client())

	cur, err := c.Current(context.Background())
	require.NoError(t, err)

	require.NotNil(t, cur.Temperature)
	assert.Equal(t, 18.4, *cur.Temperature)
	assert.Equal(t, 21.0, *cur.TemperatureMax)
	assert.Equal(t, 12.5, *cur.TemperatureMin)
	assert.Equal(t, 3, *cur.WeatherCode)
	assert.Equal(t, 11.2, *cur.WindSpeed)

	require.Len(t, *queries, 1)
	q := (*queries)[0]
	assert.Contains(t, q, "latitude=40.7455")
	assert.Contains(t, q, "longitude=-73.9883")
	assert.Contains(t, q, "timezone=auto")
	assert.Contains(t, q, "current=temperature_2m%2Cweather_code%2Cwind_speed_10m")
}

func TestClient_Historical(t *testing.T) {
	srv, queries := newServer(t)
	c := New(testConfig(srv.URL), srv.Client())

	day, err := c.Historical(context.Background(), "2024-10-15")
	require.NoError(t, err)

	assert.Equal(t, "2024-10-15", *day.Date)
	assert.Equal(t, 19.0, *day.TemperatureMax)
	assert.Equal(t, 61, *day.WeatherCode)
	assert.Contains(t, (*queries)[0], "start_date=2024-10-15")
	assert.Contains(t, (*queries)[0], "end_date=2024-10-15")
}

func TestClient_UpstreamError(t *testing.T) {
	srv, _ := newServer(t)
	cfg := testConfig(srv.URL)
	cfg.ForecastURL = srv.URL + "/broken/forecast"
	c := New(cfg, srv.Client())

	_, err := c.Current(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestClient_CancelledContext(t *testing.T) {
	srv, _ := newServer(t)
	c := New(testConfig(srv.URL), srv.Client())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Current(ctx)
	assert.Error(t, err)
}

func TestFirst(t *testing.T) {
	assert.Nil(t, first([]int{}))
	assert.Equal(t, 7, *first([]int{7, 8}))
}
