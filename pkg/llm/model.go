package llm

import (
	"context"

	"github.com/ilkoid/bellhop/pkg/tools"
)

// Model — контракт языковой модели.
//
// Реализации должны быть безопасны для конкурентного использования
// разными разговорами.
type Model interface {
	// Invoke отправляет ввод пользователя вместе с каталогом инструментов.
	Invoke(ctx context.Context, conv Conversation, defs []tools.ToolDefinition, opts ...GenerateOption) (Response, error)

	// Continue продолжает ответ previousResponseID результатами инструментов.
	Continue(ctx context.Context, previousResponseID string, outputs []ToolOutput, defs []tools.ToolDefinition, opts ...GenerateOption) (Response, error)

	// Complete выполняет разовый запрос без инструментов и без истории.
	Complete(ctx context.Context, system, prompt string, opts ...GenerateOption) (Response, error)
}
