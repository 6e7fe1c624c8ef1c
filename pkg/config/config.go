// Package config загружает YAML-конфигурацию Bellhop.
//
// Значения вида ${VAR} подставляются из окружения до парсинга.
// Незаполненные поля получают значения по умолчанию через GetDefaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig — корневая структура конфигурации (зеркалит config.yaml).
type AppConfig struct {
	Models  ModelsConfig          `yaml:"models"`
	Agent   AgentConfig           `yaml:"agent"`
	Tools   map[string]ToolConfig `yaml:"tools"`
	Pricing PricingConfig         `yaml:"pricing"`
	Store   StoreConfig           `yaml:"store"`
	Weather WeatherConfig         `yaml:"weather"`
	S3      S3Config              `yaml:"s3"`
	Server  ServerConfig          `yaml:"server"`
	Usage   UsageConfig           `yaml:"usage"`
	App     AppSpecific           `yaml:"app"`
}

// ModelsConfig — настройки AI моделей.
type ModelsConfig struct {
	DefaultChat     string              `yaml:"default_chat"`     // Модель для агента
	DefaultEvaluate string              `yaml:"default_evaluate"` // Модель для /api/todos/evaluate (по умолчанию = default_chat)
	Definitions     map[string]ModelDef `yaml:"definitions"`
}

// ModelDef — параметры конкретной модели.
type ModelDef struct {
	Provider    string        `yaml:"provider"`   // "openai" или любой OpenAI-совместимый
	ModelName   string        `yaml:"model_name"` // Реальное имя в API
	APIKey      string        `yaml:"api_key"`    // Поддерживает ${VAR}
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	Stream      bool          `yaml:"stream"` // Стриминг ответа с include_usage
	Pricing     ModelPricing  `yaml:"pricing"`
}

// ModelPricing — стоимость токенов в долларах за миллион.
type ModelPricing struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// AgentConfig — параметры цикла агента.
type AgentConfig struct {
	MaxRounds    int           `yaml:"max_rounds"`    // Лимит раундов tool calling за один ход
	ToolTimeout  time.Duration `yaml:"tool_timeout"`  // Таймаут по умолчанию для инструментов
	ReadOnly     bool          `yaml:"read_only"`     // Не отдавать модели изменяющие инструменты
	SystemPrompt string        `yaml:"system_prompt"` // Переопределение системного промпта
	Today        string        `yaml:"today"`         // Фиксированная "сегодняшняя" дата для демо-данных
	SessionTTL   time.Duration `yaml:"session_ttl"`   // Простаивающие разговоры выгружаются из памяти
}

// ToolConfig — настройки отдельного инструмента.
type ToolConfig struct {
	Enabled *bool         `yaml:"enabled"` // nil = включён
	Timeout time.Duration `yaml:"timeout"`
}

// IsEnabled сообщает, включён ли инструмент.
func (t ToolConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// PricingConfig — политика ценовых ограничений.
type PricingConfig struct {
	ClampPolicy string `yaml:"clamp_policy"` // "block" (default) или "advisory"
}

// StoreConfig — настройки SQLite хранилища.
type StoreConfig struct {
	Path     string `yaml:"path"`
	SeedDemo bool   `yaml:"seed_demo"`
}

// WeatherConfig — настройки клиента open-meteo.
type WeatherConfig struct {
	ForecastURL string        `yaml:"forecast_url"`
	ArchiveURL  string        `yaml:"archive_url"`
	Latitude    float64       `yaml:"latitude"`
	Longitude   float64       `yaml:"longitude"`
	RateLimit   int           `yaml:"rate_limit"`  // Запросов в минуту
	BurstLimit  int           `yaml:"burst_limit"` // Burst для rate limiter
	Timeout     time.Duration `yaml:"timeout"`
}

// S3Config — объектное хранилище с документом SOP.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL    bool   `yaml:"use_ssl"`
	SOPObject string `yaml:"sop_object"` // Ключ markdown-документа с SOP
}

// Enabled сообщает, настроено ли хранилище.
func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// ServerConfig — HTTP сервер.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// UsageConfig — ограничения по токенам.
type UsageConfig struct {
	MaxTokensPerConversation int `yaml:"max_tokens_per_conversation"` // 0 = без лимита
}

// AppSpecific — общие настройки приложения.
type AppSpecific struct {
	Debug      bool   `yaml:"debug"`
	LogDir     string `yaml:"log_dir"`
	LogLevel   string `yaml:"log_level"`
	PromptsDir string `yaml:"prompts_dir"` // YAML-промпты, переопределяющие встроенные
}

// GetDefaults возвращает копию с заполненными значениями по умолчанию.
func (c *AgentConfig) GetDefaults() AgentConfig {
	result := *c
	if result.MaxRounds <= 0 {
		result.MaxRounds = 5
	}
	if result.ToolTimeout <= 0 {
		result.ToolTimeout = 30 * time.Second
	}
	if result.SessionTTL <= 0 {
		result.SessionTTL = 24 * time.Hour
	}
	return result
}

// GetDefaults возвращает копию с заполненными значениями по умолчанию.
func (c *WeatherConfig) GetDefaults() WeatherConfig {
	result := *c
	if result.ForecastURL == "" {
		result.ForecastURL = "https://api.open-meteo.com/v1/forecast"
	}
	if result.ArchiveURL == "" {
		result.ArchiveURL = "https://archive-api.open-meteo.com/v1/archive"
	}
	// The Ned NoMad, 1170 Broadway
	if result.Latitude == 0 && result.Longitude == 0 {
		result.Latitude = 40.7455
		result.Longitude = -73.9883
	}
	if result.RateLimit == 0 {
		result.RateLimit = 60
	}
	if result.BurstLimit == 0 {
		result.BurstLimit = 2
	}
	if result.Timeout == 0 {
		result.Timeout = 10 * time.Second
	}
	return result
}

// GetDefaults возвращает копию с заполненными значениями по умолчанию.
func (c *ServerConfig) GetDefaults() ServerConfig {
	result := *c
	if result.Addr == "" {
		result.Addr = ":8080"
	}
	if result.ReadTimeout == 0 {
		result.ReadTimeout = 15 * time.Second
	}
	// Ход агента с несколькими раундами может длиться долго
	if result.WriteTimeout == 0 {
		result.WriteTimeout = 3 * time.Minute
	}
	return result
}

// GetDefaults возвращает копию с заполненными значениями по умолчанию.
func (c *StoreConfig) GetDefaults() StoreConfig {
	result := *c
	if result.Path == "" {
		result.Path = "bellhop.db"
	}
	return result
}

// GetDefaults возвращает копию с заполненными значениями по умолчанию.
func (c *S3Config) GetDefaults() S3Config {
	result := *c
	if result.SOPObject == "" {
		result.SOPObject = "sop/pricing.md"
	}
	return result
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
func Load(path string) (*AppConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(rawBytes)
}

// Parse разбирает YAML из памяти. Используется Load и тестами.
func Parse(raw []byte) (*AppConfig, error) {
	contentWithEnv := os.ExpandEnv(string(raw))

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	c.Agent = c.Agent.GetDefaults()
	c.Weather = c.Weather.GetDefaults()
	c.Server = c.Server.GetDefaults()
	c.Store = c.Store.GetDefaults()
	c.S3 = c.S3.GetDefaults()
	if c.Pricing.ClampPolicy == "" {
		c.Pricing.ClampPolicy = "block"
	}
	if c.Models.DefaultEvaluate == "" {
		c.Models.DefaultEvaluate = c.Models.DefaultChat
	}
}

// validate проверяет обязательные поля.
func (c *AppConfig) validate() error {
	if c.Models.DefaultChat == "" {
		return fmt.Errorf("models.default_chat is required")
	}
	for _, name := range []string{c.Models.DefaultChat, c.Models.DefaultEvaluate} {
		if _, ok := c.Models.Definitions[name]; !ok {
			return fmt.Errorf("model '%s' is not defined in definitions", name)
		}
	}
	if c.Agent.MaxRounds > 10 {
		return fmt.Errorf("agent.max_rounds must be between 1 and 10, got %d", c.Agent.MaxRounds)
	}
	switch c.Pricing.ClampPolicy {
	case "block", "advisory":
	default:
		return fmt.Errorf("pricing.clamp_policy must be 'block' or 'advisory', got '%s'", c.Pricing.ClampPolicy)
	}
	if c.Agent.Today != "" {
		if _, err := time.Parse("2006-01-02", c.Agent.Today); err != nil {
			return fmt.Errorf("agent.today must be YYYY-MM-DD, got '%s'", c.Agent.Today)
		}
	}
	if c.Usage.MaxTokensPerConversation < 0 {
		return fmt.Errorf("usage.max_tokens_per_conversation must not be negative")
	}
	return nil
}

// GetChatModel возвращает определение модели по имени или модель чата по умолчанию.
func (c *AppConfig) GetChatModel(name string) (ModelDef, bool) {
	if name == "" {
		name = c.Models.DefaultChat
	}
	m, ok := c.Models.Definitions[name]
	return m, ok
}

// ToolTimeouts возвращает индивидуальные таймауты инструментов.
func (c *AppConfig) ToolTimeouts() map[string]time.Duration {
	result := make(map[string]time.Duration)
	for name, tc := range c.Tools {
		if tc.Timeout > 0 {
			result[name] = tc.Timeout
		}
	}
	return result
}

// DisabledTools возвращает имена выключенных в конфиге инструментов.
func (c *AppConfig) DisabledTools() map[string]bool {
	result := make(map[string]bool)
	for name, tc := range c.Tools {
		if !tc.IsEnabled() {
			result[name] = true
		}
	}
	return result
}
