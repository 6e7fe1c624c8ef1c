package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilkoid/bellhop/pkg/config"
)

// ConfigEnv — переменная окружения с путём к config.yaml.
const ConfigEnv = "BELLHOP_CONFIG"

// ConfigPathFinder определяет стратегию поиска config.yaml.
type ConfigPathFinder interface {
	FindConfigPath() string
}

// DefaultConfigPathFinder ищет config.yaml в порядке:
//  1. флаг --config
//  2. переменная BELLHOP_CONFIG
//  3. текущая директория
//  4. директория бинарника
type DefaultConfigPathFinder struct {
	ConfigFlag string
}

// FindConfigPath возвращает найденный путь или ./config.yaml, даже если его нет.
func (f *DefaultConfigPathFinder) FindConfigPath() string {
	if f.ConfigFlag != "" {
		return resolveAbsPath(f.ConfigFlag)
	}
	if p := os.Getenv(ConfigEnv); p != "" {
		return resolveAbsPath(p)
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return resolveAbsPath("config.yaml")
	}
	if execPath, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(execPath), "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return resolveAbsPath("config.yaml")
}

// InitializeConfig находит и загружает конфигурацию.
func InitializeConfig(finder ConfigPathFinder) (*config.AppConfig, string, error) {
	cfgPath := finder.FindConfigPath()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config from %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}

func resolveAbsPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
