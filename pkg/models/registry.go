// Package models — реестр языковых моделей из config.yaml.
//
// Все модели из models.definitions создаются при старте; агент берёт
// модель чата, оценка задач — модель default_evaluate.
package models

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ilkoid/bellhop/pkg/config"
	"github.com/ilkoid/bellhop/pkg/llm"
	"github.com/ilkoid/bellhop/pkg/llm/openai"
)

// Registry — потокобезопасное хранилище моделей.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Entry
}

// Entry — модель с её конфигурацией.
type Entry struct {
	Model  llm.Model
	Config config.ModelDef
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]Entry)}
}

// CreateProvider создаёт модель по описанию из конфигурации.
// Все поддерживаемые провайдеры говорят на OpenAI-совместимом API.
func CreateProvider(def config.ModelDef) (llm.Model, error) {
	switch def.Provider {
	case "openai", "openrouter", "deepseek", "zai", "":
		return openai.NewClient(def), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", def.Provider)
	}
}

// Register добавляет модель. Повторное имя — ошибка.
func (r *Registry) Register(name string, def config.ModelDef, model llm.Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[name]; exists {
		return fmt.Errorf("model '%s' already registered", name)
	}
	r.models[name] = Entry{Model: model, Config: def}
	return nil
}

// Get возвращает модель по имени.
func (r *Registry) Get(name string) (llm.Model, config.ModelDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.models[name]
	if !ok {
		return nil, config.ModelDef{}, fmt.Errorf("model '%s' not found in registry", name)
	}
	return entry.Model, entry.Config, nil
}

// GetWithFallback возвращает запрошенную модель, иначе модель по умолчанию.
// Третье значение — имя фактически выбранной модели.
func (r *Registry) GetWithFallback(requested, defaultModel string) (llm.Model, config.ModelDef, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.models[requested]; ok {
		return entry.Model, entry.Config, requested, nil
	}
	if entry, ok := r.models[defaultModel]; ok {
		return entry.Model, entry.Config, defaultModel, nil
	}
	return nil, config.ModelDef{}, "", fmt.Errorf("neither requested model '%s' nor default '%s' found in registry", requested, defaultModel)
}

// ListNames возвращает имена моделей по алфавиту.
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig создаёт все модели из cfg.Models.Definitions.
func NewRegistryFromConfig(cfg *config.AppConfig) (*Registry, error) {
	registry := NewRegistry()

	for name, def := range cfg.Models.Definitions {
		model, err := CreateProvider(def)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider for model '%s': %w", name, err)
		}
		if err := registry.Register(name, def, model); err != nil {
			return nil, fmt.Errorf("failed to register model '%s': %w", name, err)
		}
	}

	return registry, nil
}
