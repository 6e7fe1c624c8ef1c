// Package weather — клиент open-meteo: текущая погода и архив за прошлые даты.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/ilkoid/bellhop/pkg/config"
)

// HTTPClient позволяет подменить транспорт в тестах.
// *http.Client реализует этот интерфейс.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Coordinates — координаты отеля.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Current — текущая погода и дневной диапазон температур.
type Current struct {
	Temperature    *float64
	TemperatureMax *float64
	TemperatureMin *float64
	WeatherCode    *int
	WindSpeed      *float64
}

// Day — архивные данные за один день.
type Day struct {
	Date           *string
	TemperatureMax *float64
	TemperatureMin *float64
	WeatherCode    *int
}

// Client — клиент open-meteo с rate limiter.
type Client struct {
	httpClient  HTTPClient
	forecastURL string
	archiveURL  string
	coords      Coordinates
	limiter     *rate.Limiter
}

// NewFromConfig создаёт клиент; нулевые поля заполняются GetDefaults.
func NewFromConfig(cfg config.WeatherConfig) *Client {
	cfg = cfg.GetDefaults()
	return New(cfg, &http.Client{Timeout: cfg.Timeout})
}

// New создаёт клиент с заданным транспортом.
func New(cfg config.WeatherConfig, httpClient HTTPClient) *Client {
	cfg = cfg.GetDefaults()
	// rate_limit в запросах/минуту → rate.Limit в запросах/секунду
	perSec := float64(cfg.RateLimit) / 60.0
	return &Client{
		httpClient:  httpClient,
		forecastURL: cfg.ForecastURL,
		archiveURL:  cfg.ArchiveURL,
		coords:      Coordinates{Latitude: cfg.Latitude, Longitude: cfg.Longitude},
		limiter:     rate.NewLimiter(rate.Limit(perSec), cfg.BurstLimit),
	}
}

// Coordinates возвращает координаты, для которых запрашивается погода.
func (c *Client) Coordinates() Coordinates {
	return c.coords
}

type forecastResponse struct {
	Current struct {
		Temperature2m *float64 `json:"temperature_2m"`
		WeatherCode   *int     `json:"weather_code"`
		WindSpeed10m  *float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily dailyBlock `json:"daily"`
}

type dailyBlock struct {
	Time             []string  `json:"time"`
	Temperature2mMax []float64 `json:"temperature_2m_max"`
	Temperature2mMin []float64 `json:"temperature_2m_min"`
	WeatherCode      []int     `json:"weather_code"`
}

// Current запрашивает текущую погоду.
func (c *Client) Current(ctx context.Context) (Current, error) {
	params := c.baseParams()
	params.Set("current", "temperature_2m,weather_code,wind_speed_10m")
	params.Set("daily", "temperature_2m_max,temperature_2m_min")

	var resp forecastResponse
	if err := c.get(ctx, c.forecastURL, params, &resp); err != nil {
		return Current{}, err
	}

	return Current{
		Temperature:    resp.Current.Temperature2m,
		TemperatureMax: first(resp.Daily.Temperature2mMax),
		TemperatureMin: first(resp.Daily.Temperature2mMin),
		WeatherCode:    resp.Current.WeatherCode,
		WindSpeed:      resp.Current.WindSpeed10m,
	}, nil
}

// Historical запрашивает архив за дату YYYY-MM-DD.
func (c *Client) Historical(ctx context.Context, date string) (Day, error) {
	params := c.baseParams()
	params.Set("start_date", date)
	params.Set("end_date", date)
	params.Set("daily", "temperature_2m_max,temperature_2m_min,weather_code")

	var resp struct {
		Daily dailyBlock `json:"daily"`
	}
	if err := c.get(ctx, c.archiveURL, params, &resp); err != nil {
		return Day{}, err
	}

	return Day{
		Date:           first(resp.Daily.Time),
		TemperatureMax: first(resp.Daily.Temperature2mMax),
		TemperatureMin: first(resp.Daily.Temperature2mMin),
		WeatherCode:    first(resp.Daily.WeatherCode),
	}, nil
}

func (c *Client) baseParams() url.Values {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(c.coords.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(c.coords.Longitude, 'f', -1, 64))
	params.Set("timezone", "auto")
	return params
}

func (c *Client) get(ctx context.Context, baseURL string, params url.Values, dest any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weather api error: status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("unmarshal error: %w", err)
	}
	return nil
}

func first[T any](values []T) *T {
	if len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}
