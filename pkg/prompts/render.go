package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/tools"
)

// DefaultHotelName подставляется, если имя отеля не задано.
const DefaultHotelName = "The Ned"

// humanDate — формат дат внутри промпта.
const humanDate = "January 2, 2006"

// Location — координаты отеля для блока "Request origin".
type Location struct {
	Latitude  float64
	Longitude float64
}

// Data — переменные шаблона.
type Data struct {
	HotelName    string
	Today        string
	DataStart    string
	DataEnd      string
	Location     *Location
	ToolsSummary string
}

// Builder рендерит системные промпты из цепочки источников.
type Builder struct {
	source    Source
	hotelName string
	location  *Location
	override  string
	now       func() time.Time
}

// BuilderOption настраивает Builder.
type BuilderOption func(*Builder)

// WithHotelName задаёт имя отеля в промпте.
func WithHotelName(name string) BuilderOption {
	return func(b *Builder) {
		if name != "" {
			b.hotelName = name
		}
	}
}

// WithLocation добавляет координаты отеля.
func WithLocation(lat, lon float64) BuilderOption {
	return func(b *Builder) { b.location = &Location{Latitude: lat, Longitude: lon} }
}

// WithOverride заменяет системный промпт чата целиком (agent.system_prompt).
// Значение тоже является шаблоном.
func WithOverride(text string) BuilderOption {
	return func(b *Builder) { b.override = strings.TrimSpace(text) }
}

// WithClock фиксирует "сегодня".
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder создаёт Builder. Если dir не пуст, YAML-файлы из него
// имеют приоритет над встроенными промптами.
func NewBuilder(dir string, opts ...BuilderOption) *Builder {
	chain := Chain{}
	if dir != "" {
		chain = append(chain, NewFileSource(dir))
	}
	chain = append(chain, Builtin())

	b := &Builder{source: chain, hotelName: DefaultHotelName, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) data() Data {
	return Data{
		HotelName: b.hotelName,
		Today:     b.now().Format(humanDate),
		DataStart: longDate(hotel.DataWindowStart),
		DataEnd:   longDate(hotel.DataWindowEnd),
		Location:  b.location,
	}
}

// System возвращает системный промпт чата.
func (b *Builder) System() (string, error) {
	if b.override != "" {
		return render("override", b.override, b.data())
	}
	file, err := b.source.Load(SystemID)
	if err != nil {
		return "", err
	}
	return render(SystemID, file.System, b.data())
}

// Evaluate возвращает системный промпт оценки задач и его параметры модели.
func (b *Builder) Evaluate(defs []tools.ToolDefinition) (string, PromptConfig, error) {
	file, err := b.source.Load(EvaluateID)
	if err != nil {
		return "", PromptConfig{}, err
	}
	data := b.data()
	data.ToolsSummary = ToolsSummary(defs)
	text, err := render(EvaluateID, file.System, data)
	if err != nil {
		return "", PromptConfig{}, err
	}
	return text, file.Config, nil
}

// ToolsSummary перечисляет инструменты строками "- name: description".
func ToolsSummary(defs []tools.ToolDefinition) string {
	lines := make([]string, 0, len(defs))
	for _, d := range defs {
		lines = append(lines, fmt.Sprintf("- %s: %s", d.Name, d.Description))
	}
	return strings.Join(lines, "\n")
}

// EvaluationPrompt — пользовательская часть запроса оценки задачи.
func EvaluationPrompt(text string) string {
	return fmt.Sprintf("To-do item: \"\"\"%s\"\"\"", text)
}

func render(name, text string, data Data) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("template parse error in prompt %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template execute error in prompt %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func longDate(s string) string {
	t, err := hotel.ParseDate(s)
	if err != nil {
		return s
	}
	return t.Format(humanDate)
}
