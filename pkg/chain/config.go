package chain

import (
	"fmt"

	"github.com/ilkoid/bellhop/pkg/llm"
)

// Лимиты раундов хода.
const (
	DefaultMaxRounds = 5
	MinRounds        = 1
	MaxRounds        = 10
)

// Config — настройки хода.
type Config struct {
	// MaxRounds — сколько раз модель может запросить инструменты за ход.
	// По умолчанию DefaultMaxRounds.
	MaxRounds int

	// GenerateOptions передаются в каждый вызов модели (модель, температура).
	GenerateOptions []llm.GenerateOption

	// Stream включает потоковую генерацию: порции текста уходят в EventChunk.
	Stream bool
}

// NewConfig возвращает конфигурацию с лимитом раундов по умолчанию.
func NewConfig() Config {
	return Config{MaxRounds: DefaultMaxRounds}
}

// Validate проверяет MaxRounds в диапазоне 1..10.
func (c Config) Validate() error {
	if c.MaxRounds < MinRounds || c.MaxRounds > MaxRounds {
		return fmt.Errorf("max_rounds must be between %d and %d, got %d", MinRounds, MaxRounds, c.MaxRounds)
	}
	return nil
}

// Option — функциональная опция Turn.
type Option func(*Turn)

// WithConfig задаёт конфигурацию хода.
func WithConfig(cfg Config) Option {
	return func(t *Turn) {
		t.cfg = cfg
	}
}

// WithObserver добавляет наблюдателя.
func WithObserver(o Observer) Option {
	return func(t *Turn) {
		if o != nil {
			t.observers = append(t.observers, o)
		}
	}
}
