// Package chain — оркестратор одного хода агента.
//
// Ход — машина состояний:
//
//	Start → ModelResponded → (ExecutingTools → ModelResponded)* → Done
//
// Start отправляет ввод пользователя и каталог инструментов модели.
// Если ответ содержит вызовы инструментов, они выполняются параллельно
// (tools.Executor.ExecuteAll, барьер), результаты уходят в Model.Continue.
// Цикл повторяется, пока модель не ответит текстом или не исчерпан лимит раундов.
package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ilkoid/bellhop/pkg/llm"
	"github.com/ilkoid/bellhop/pkg/tools"
	"github.com/ilkoid/bellhop/pkg/usage"
)

// Phase — состояние хода.
type Phase string

const (
	PhaseStart          Phase = "start"
	PhaseModelResponded Phase = "model_responded"
	PhaseExecutingTools Phase = "executing_tools"
	PhaseDone           Phase = "done"
)

// RoundLimitOutput — результат вызовов, на которые не хватило раундов.
const RoundLimitOutput = `{"error":"Tool round limit reached"}`

// ErrEmptyInput — ввод пустой или из одних пробелов. Модель не вызывается.
var ErrEmptyInput = errors.New("input is empty")

// Input — вход хода.
type Input struct {
	Conversation llm.Conversation
}

// Output — результат хода.
type Output struct {
	// Message — текст финального ответа (блоки через "\n"); nil, если текста нет.
	Message *string

	// ResponseID — ID последнего ответа модели, продолжает разговор в следующем ходе.
	ResponseID string

	// Rounds — сколько раз выполнялись инструменты.
	Rounds int

	// RoundLimitReached — ход остановлен лимитом раундов, модель всё ещё просила инструменты.
	RoundLimitReached bool

	// ToolResults — все результаты инструментов хода в порядке выполнения.
	ToolResults []tools.CallResult

	// Usage — сумма расхода всех вызовов модели за ход.
	Usage usage.Usage

	Duration time.Duration
}

// Executor выполняет вызовы инструментов одного раунда.
// *tools.Executor реализует этот интерфейс.
type Executor interface {
	Registry() *tools.Registry
	ExecuteAll(ctx context.Context, reqs []tools.CallRequest) []tools.CallResult
}

// ModelError — сбой вызова модели в определённой фазе.
type ModelError struct {
	Phase Phase
	Round int
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model call failed (phase %s, round %d): %v", e.Phase, e.Round, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }
