// Package llm определяет контракт языковой модели для агента Bellhop.
//
// Агент не знает о конкретном провайдере: он работает через Model,
// а адаптеры (pkg/llm/openai) переводят вызовы в API провайдера.
package llm

import (
	"strings"

	"github.com/ilkoid/bellhop/pkg/usage"
)

// Role — роль автора сообщения.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message — одно сообщение транскрипта.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
}

// ToolCall — запрос модели на вызов инструмента.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"` // Сырой JSON, как его прислала модель
}

// ToolOutput — результат инструмента, возвращаемый модели.
type ToolOutput struct {
	CallID  string
	Output  string
	IsError bool
}

// Conversation — состояние разговора на входе хода.
//
// PreviousResponseID связывает новый ход с предыдущим ответом модели;
// пустое значение означает новый разговор.
type Conversation struct {
	ID                 string
	PreviousResponseID string
	SystemPrompt       string
	Input              string
}

// Response — ответ модели.
type Response struct {
	// ID идентифицирует ответ для Continue и следующего хода.
	ID string

	// TextBlocks — текстовые блоки ответа в порядке получения.
	TextBlocks []string

	// ToolCalls — запрошенные вызовы инструментов (пусто — финальный ответ).
	ToolCalls []ToolCall

	// Usage — расход токенов этого вызова.
	Usage usage.Usage
}

// HasToolCalls сообщает, что модель запросила инструменты.
func (r Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Text объединяет текстовые блоки через перевод строки.
// Возвращает nil, если текста нет совсем.
func (r Response) Text() *string {
	parts := make([]string, 0, len(r.TextBlocks))
	for _, b := range r.TextBlocks {
		if b != "" {
			parts = append(parts, b)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	text := strings.Join(parts, "\n")
	return &text
}
