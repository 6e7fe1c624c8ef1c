// Package events — порт для подписки на ход агента.
//
// Библиотека (pkg/chain, pkg/agent) отправляет события через Emitter,
// а адаптеры (SSE-обработчик internal/server, чат internal/ui) их читают.
// Так ядро не зависит от конкретного UI.
//
//	em := events.NewChanEmitter(32)
//	go func() {
//	    for ev := range em.Subscribe().Events() {
//	        switch ev.Type {
//	        case events.EventToolCall:
//	            ui.showToolCall(ev.Data.(events.ToolCallData))
//	        case events.EventMessage:
//	            ui.showMessage(ev.Data.(events.MessageData))
//	        }
//	    }
//	}()
//
// Все реализации должны быть потокобезопасны: инструменты одного раунда
// выполняются параллельно и сообщают о себе одновременно.
package events

import (
	"context"
	"time"

	"github.com/ilkoid/bellhop/pkg/usage"
)

// EventType — тип события хода.
type EventType string

const (
	// EventToolCall — модель запросила инструмент.
	EventToolCall EventType = "tool_call"

	// EventToolResult — инструмент вернул результат.
	EventToolResult EventType = "tool_result"

	// EventChunk — порция текста потокового ответа.
	EventChunk EventType = "chunk"

	// EventMessage — итоговое сообщение хода.
	EventMessage EventType = "message"

	// EventUsage — расход токенов хода и разговора.
	EventUsage EventType = "usage"

	// EventError — ход завершился ошибкой.
	EventError EventType = "error"

	// EventDone — ход завершён (последнее событие).
	EventDone EventType = "done"
)

// EventData — закрытый интерфейс данных события: реализуют только типы пакета.
type EventData interface {
	eventData()
}

// ToolCallData — вызов инструмента.
type ToolCallData struct {
	CallID   string `json:"callId"`
	ToolName string `json:"toolName"`
	Args     string `json:"args"`
	Round    int    `json:"round"`
}

func (ToolCallData) eventData() {}

// ToolResultData — результат инструмента.
type ToolResultData struct {
	CallID   string        `json:"callId"`
	ToolName string        `json:"toolName"`
	Result   string        `json:"result"`
	IsError  bool          `json:"isError"`
	Duration time.Duration `json:"-"`
}

func (ToolResultData) eventData() {}

// ChunkData — порция потокового текста.
type ChunkData struct {
	Delta       string `json:"delta"`
	Accumulated string `json:"accumulated"`
}

func (ChunkData) eventData() {}

// MessageData — итоговое сообщение. Content == nil, если модель не вернула текст.
type MessageData struct {
	Content           *string `json:"content"`
	RoundLimitReached bool    `json:"roundLimitReached,omitempty"`
}

func (MessageData) eventData() {}

// UsageData — расход хода и накопленный расход разговора.
type UsageData struct {
	Turn         usage.Usage `json:"turn"`
	Conversation usage.Usage `json:"conversation"`
}

func (UsageData) eventData() {}

// ErrorData — ошибка хода.
type ErrorData struct {
	Err error `json:"-"`
}

func (ErrorData) eventData() {}

// DoneData — завершение хода.
type DoneData struct {
	ConversationID string `json:"conversationId"`
	Rounds         int    `json:"rounds"`
}

func (DoneData) eventData() {}

// Event — событие хода.
//
// Соответствие типов и данных:
//   - EventToolCall: ToolCallData
//   - EventToolResult: ToolResultData
//   - EventChunk: ChunkData
//   - EventMessage: MessageData
//   - EventUsage: UsageData
//   - EventError: ErrorData
//   - EventDone: DoneData
type Event struct {
	Type      EventType
	Data      EventData
	Timestamp time.Time
}

// New создаёт событие с текущим временем.
func New(t EventType, data EventData) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now()}
}

// Emitter отправляет события. Emit не должен блокироваться дольше,
// чем живёт ctx.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Subscriber читает события из канала.
type Subscriber interface {
	// Events возвращает канал событий; он закрывается вместе с эмиттером.
	Events() <-chan Event

	Close()
}

// Nop — эмиттер, который ничего не делает.
type Nop struct{}

// Emit ничего не делает.
func (Nop) Emit(context.Context, Event) {}
