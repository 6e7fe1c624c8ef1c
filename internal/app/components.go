// Package app собирает компоненты Bellhop из конфигурации.
//
// Команды cmd/bellhop (serve, chat, tools, seed) получают готовые
// Components и только запускают нужную поверхность.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ilkoid/bellhop/internal/server"
	"github.com/ilkoid/bellhop/pkg/agent"
	"github.com/ilkoid/bellhop/pkg/chain"
	"github.com/ilkoid/bellhop/pkg/config"
	"github.com/ilkoid/bellhop/pkg/debug"
	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/models"
	"github.com/ilkoid/bellhop/pkg/pricing"
	"github.com/ilkoid/bellhop/pkg/prompts"
	"github.com/ilkoid/bellhop/pkg/s3storage"
	"github.com/ilkoid/bellhop/pkg/state"
	"github.com/ilkoid/bellhop/pkg/store/sqlite"
	"github.com/ilkoid/bellhop/pkg/taskeval"
	"github.com/ilkoid/bellhop/pkg/tools"
	"github.com/ilkoid/bellhop/pkg/tools/std"
	"github.com/ilkoid/bellhop/pkg/utils"
	"github.com/ilkoid/bellhop/pkg/weather"
)

// Components — всё, что нужно поверхностям приложения.
type Components struct {
	Config     *config.AppConfig
	Store      *sqlite.Store
	Tools      *tools.Registry
	Models     *models.Registry
	Prompts    *prompts.Builder
	Agent      *agent.Agent
	Evaluator  *taskeval.Evaluator
	Recognizer *taskeval.Recognizer

	// ChatModel — имя модели агента для заголовка чата.
	ChatModel string
	HotelName string
	Now       func() time.Time
}

// Clock возвращает "сегодня": фиксированную agent.today или time.Now.
func Clock(cfg *config.AppConfig) (func() time.Time, error) {
	if cfg.Agent.Today == "" {
		return time.Now, nil
	}
	day, err := hotel.ParseDate(cfg.Agent.Today)
	if err != nil {
		return nil, fmt.Errorf("agent.today: %w", err)
	}
	return func() time.Time { return day }, nil
}

// OpenStore открывает базу и, если включён seed_demo и база пуста,
// заполняет её демо-данными.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (*sqlite.Store, error) {
	store, err := sqlite.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Path, err)
	}
	if !cfg.SeedDemo {
		return store, nil
	}

	_, err = store.Settings(ctx)
	switch {
	case err == nil:
		return store, nil
	case !errors.Is(err, hotel.ErrNotFound):
		store.Close()
		return nil, fmt.Errorf("check store: %w", err)
	}

	stats, err := store.Seed(ctx, sqlite.DefaultSeedOptions())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("seed demo data: %w", err)
	}
	utils.Info("Demo data seeded", "rooms", stats.Rooms, "rates", stats.Rates)
	return store, nil
}

// NewSOPSource возвращает регламент из S3 или встроенный, если S3 не настроен.
func NewSOPSource(cfg config.S3Config) (std.SOPProvider, error) {
	if !cfg.Enabled() {
		return std.StaticSOP(pricing.DefaultSOP), nil
	}
	client, err := s3storage.New(cfg)
	if err != nil {
		return nil, err
	}
	utils.Info("Pricing SOP from object storage", "bucket", client.Bucket(), "key", cfg.SOPObject)
	return s3storage.NewSOPSource(client, cfg.SOPObject, pricing.DefaultSOP), nil
}

// NewToolRegistry создаёт каталог инструментов с учётом tools.*.enabled и agent.read_only.
func NewToolRegistry(cfg *config.AppConfig, deps std.Deps) (*tools.Registry, error) {
	registry, err := tools.NewRegistry(std.NewCatalog(deps)...)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	if disabled := cfg.DisabledTools(); len(disabled) > 0 {
		registry = registry.Filter(func(d tools.ToolDefinition) bool { return !disabled[d.Name] })
	}
	if cfg.Agent.ReadOnly {
		registry = registry.ReadOnly()
	}
	return registry, nil
}

// Initialize создаёт все компоненты. Закрывать через Close.
func Initialize(ctx context.Context, cfg *config.AppConfig) (*Components, error) {
	now, err := Clock(cfg)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	c := &Components{Config: cfg, Store: store, Now: now, Recognizer: taskeval.NewRecognizer()}

	if err := c.init(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Components) init(ctx context.Context) error {
	cfg := c.Config

	sop, err := NewSOPSource(cfg.S3)
	if err != nil {
		return fmt.Errorf("init s3: %w", err)
	}
	wx := weather.NewFromConfig(cfg.Weather)

	c.Tools, err = NewToolRegistry(cfg, std.Deps{
		Store:       c.Store,
		Weather:     wx,
		SOP:         sop,
		ClampPolicy: pricing.ParsePolicy(cfg.Pricing.ClampPolicy),
		Now:         c.Now,
	})
	if err != nil {
		return err
	}
	utils.Info("Tools registered", "count", c.Tools.Len(), "read_only", cfg.Agent.ReadOnly)

	c.Models, err = models.NewRegistryFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init models: %w", err)
	}
	chatModel, chatDef, err := c.Models.Get(cfg.Models.DefaultChat)
	if err != nil {
		return err
	}
	c.ChatModel = chatDef.ModelName

	c.HotelName = prompts.DefaultHotelName
	if st, err := c.Store.Settings(ctx); err == nil && st.Name != "" {
		c.HotelName = st.Name
	}
	coords := wx.Coordinates()
	c.Prompts = prompts.NewBuilder(cfg.App.PromptsDir,
		prompts.WithHotelName(c.HotelName),
		prompts.WithLocation(coords.Latitude, coords.Longitude),
		prompts.WithOverride(cfg.Agent.SystemPrompt),
		prompts.WithClock(c.Now),
	)
	systemPrompt, err := c.Prompts.System()
	if err != nil {
		return fmt.Errorf("render system prompt: %w", err)
	}

	executor := tools.NewExecutor(c.Tools,
		tools.WithDefaultTimeout(cfg.Agent.ToolTimeout),
		tools.WithToolTimeouts(cfg.ToolTimeouts()),
	)
	turn, err := chain.NewTurn(chatModel, executor, chain.WithConfig(chain.Config{
		MaxRounds: cfg.Agent.MaxRounds,
		Stream:    chatDef.Stream,
	}))
	if err != nil {
		return fmt.Errorf("init turn: %w", err)
	}

	agentOpts := []agent.Option{
		agent.WithSessions(state.NewManager()),
		agent.WithChatStore(c.Store),
		agent.WithSystemPrompt(systemPrompt),
		agent.WithUsageLimit(cfg.Usage.MaxTokensPerConversation),
	}
	if cfg.App.Debug {
		dir := filepath.Join(cfg.App.LogDir, "traces")
		agentOpts = append(agentOpts, agent.WithTurnObserver(debug.Factory(debug.DefaultRecorderConfig(dir))))
		utils.Info("Turn traces enabled", "dir", dir)
	}
	c.Agent, err = agent.New(turn, agentOpts...)
	if err != nil {
		return fmt.Errorf("init agent: %w", err)
	}

	evalModel, _, err := c.Models.Get(cfg.Models.DefaultEvaluate)
	if err != nil {
		return err
	}
	c.Evaluator = taskeval.NewEvaluator(evalModel, c.Prompts, c.Tools.Definitions())
	return nil
}

// NewServer создаёт HTTP API поверх компонентов.
func (c *Components) NewServer() *server.Server {
	return server.New(c.Config.Server, server.Deps{
		Agent:     c.Agent,
		Evaluator: c.Evaluator,
		Tools:     c.Tools.Definitions(),
		Overview:  c.Store,
		Now:       c.Now,
	})
}

// EvictIdleSessions раз в interval выгружает разговоры, простаивающие дольше ttl.
// Накопленный расход остаётся в хранилище. Возвращается при отмене ctx.
func (c *Components) EvictIdleSessions(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Agent.Sessions().EvictIdle(ttl); n > 0 {
				utils.Debug("Idle conversations evicted", "count", n)
			}
		}
	}
}

// Close освобождает ресурсы.
func (c *Components) Close() {
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			utils.Warn("Failed to close store", "error", err)
		}
	}
}
