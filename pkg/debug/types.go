// Package debug записывает трейсы ходов агента в JSON-файлы.
//
// Трейс нужен для разбора конкретного хода: какие инструменты модель
// вызвала, с какими аргументами, что они вернули и сколько это заняло.
// Включается флагом app.debug.
package debug

import (
	"time"

	"github.com/ilkoid/bellhop/pkg/usage"
)

// TurnTrace — трейс одного хода.
type TurnTrace struct {
	// RunID — идентификатор трейса, он же имя файла
	RunID string `json:"run_id"`

	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
	Input          string    `json:"input"`

	// Duration — длительность хода в миллисекундах
	Duration int64 `json:"duration_ms"`

	Rounds  []Round `json:"rounds"`
	Summary Summary `json:"summary"`

	FinalMessage      string      `json:"final_message,omitempty"`
	RoundLimitReached bool        `json:"round_limit_reached,omitempty"`
	Usage             usage.Usage `json:"usage"`
	Error             string      `json:"error,omitempty"`
}

// Round — один раунд вызова инструментов.
type Round struct {
	Number        int             `json:"round"`
	ToolCalls     []ToolCallInfo  `json:"tool_calls,omitempty"`
	ToolsExecuted []ToolExecution `json:"tools_executed,omitempty"`
}

// ToolCallInfo — вызов инструмента, запрошенный моделью.
type ToolCallInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args,omitempty"`
}

// ToolExecution — выполнение одного инструмента.
type ToolExecution struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`

	// Result может быть обрезан по MaxResultSize
	Result          string `json:"result,omitempty"`
	ResultTruncated bool   `json:"result_truncated,omitempty"`

	Duration int64 `json:"duration_ms"`
	Success  bool  `json:"success"`
}

// Summary — агрегаты по ходу.
type Summary struct {
	TotalToolsExecuted int      `json:"total_tools_executed"`
	TotalToolDuration  int64    `json:"total_tool_duration_ms"`
	Errors             []string `json:"errors,omitempty"`

	// VisitedTools — уникальные инструменты в алфавитном порядке
	VisitedTools []string `json:"visited_tools,omitempty"`
}
