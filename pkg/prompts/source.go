// Package prompts — системные промпты Bellhop.
//
// Промпт ищется по цепочке источников: сначала YAML-файлы из app.prompts_dir,
// затем встроенные значения. Тексты — шаблоны text/template, в которые
// подставляются окно данных и сегодняшняя дата.
package prompts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNotFound — источник не содержит промпт.
var ErrNotFound = errors.New("prompt not found in source")

// PromptFile — загруженный промпт.
type PromptFile struct {
	Config PromptConfig `yaml:"config"`
	System string       `yaml:"system"` // Шаблон с {{.Today}}, {{.DataStart}} и т.д.
}

// PromptConfig — параметры модели для конкретного промпта.
type PromptConfig struct {
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	Format      string   `yaml:"format"` // "json_object" или пусто
}

// Source загружает промпт по идентификатору.
type Source interface {
	Load(id string) (*PromptFile, error)
}

// Chain пробует источники по порядку и возвращает первый найденный промпт.
type Chain []Source

// Load возвращает промпт из первого источника, который его содержит.
func (c Chain) Load(id string) (*PromptFile, error) {
	var lastErr error
	for i, src := range c {
		file, err := src.Load(id)
		if err == nil {
			return file, nil
		}
		lastErr = fmt.Errorf("source %d: %w", i, err)
	}
	if lastErr == nil {
		return nil, fmt.Errorf("no sources configured for prompt '%s'", id)
	}
	return nil, fmt.Errorf("all sources failed for '%s': %w", id, lastErr)
}

// FileSource читает <dir>/<id>.yaml.
type FileSource struct {
	dir string
}

// NewFileSource создаёт источник для каталога dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Load читает и разбирает YAML-файл промпта.
func (s *FileSource) Load(id string) (*PromptFile, error) {
	path := filepath.Join(s.dir, id+".yaml")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}

	var file PromptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse prompt YAML %s: %w", path, err)
	}
	return &file, nil
}

// MapSource — промпты в памяти.
type MapSource map[string]*PromptFile

// Load возвращает промпт или ErrNotFound.
func (m MapSource) Load(id string) (*PromptFile, error) {
	if file, ok := m[id]; ok {
		return file, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}
