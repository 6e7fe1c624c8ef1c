// Package agent — фасад разговоров поверх pkg/chain.
//
// Agent отвечает за то, чего нет в отдельном ходе: разговоры и их
// последовательность, продолжение по ID ответа модели, учёт и сохранение
// расхода токенов, лимит расхода на разговор.
//
// Basic usage:
//
//	turn, _ := chain.NewTurn(model, executor)
//	a, _ := agent.New(turn, agent.WithSystemPrompt(prompt), agent.WithChatStore(store))
//	reply, _ := a.Run(ctx, agent.Request{ConversationID: "c1", Input: "How are rates next weekend?"})
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ilkoid/bellhop/pkg/chain"
	"github.com/ilkoid/bellhop/pkg/events"
	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/llm"
	"github.com/ilkoid/bellhop/pkg/state"
	"github.com/ilkoid/bellhop/pkg/tools"
	"github.com/ilkoid/bellhop/pkg/usage"
	"github.com/ilkoid/bellhop/pkg/utils"
)

var (
	// ErrInvalidInput — пустой ввод. HTTP 400 {"error":"Invalid input"}.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUsageLimit — разговор исчерпал usage.max_tokens_per_conversation. HTTP 429.
	ErrUsageLimit = errors.New("conversation usage limit reached")
)

// Request — ход пользователя. Пустой ConversationID начинает новый разговор.
type Request struct {
	ConversationID string
	Input          string
}

// Reply — результат хода.
type Reply struct {
	ConversationID    string
	Message           *string
	Rounds            int
	RoundLimitReached bool
	ToolResults       []tools.CallResult

	// Usage — расход этого хода, Conversation — накопленный расход разговора.
	Usage        usage.Usage
	Conversation usage.Usage
}

// UsageReport — расход разговора для /api/conversations/{id}/usage.
type UsageReport struct {
	ConversationID string      `json:"conversationId"`
	Usage          usage.Usage `json:"usage"`
	Turns          int         `json:"turns"`
}

// Agent — потокобезопасный фасад. Ходы одного разговора выполняются
// строго по очереди, разные разговоры идут параллельно.
type Agent struct {
	turn         *chain.Turn
	sessions     *state.Manager
	chats        hotel.ChatStore
	systemPrompt string
	maxTokens    int
	observers    []ObserverFactory
}

// ObserverFactory создаёт наблюдателя для одного хода (например, запись трейса).
type ObserverFactory func(conversationID, input string) chain.Observer

// Option настраивает Agent.
type Option func(*Agent)

// WithSessions задаёт реестр разговоров (по умолчанию новый).
func WithSessions(m *state.Manager) Option {
	return func(a *Agent) {
		if m != nil {
			a.sessions = m
		}
	}
}

// WithChatStore включает сохранение расхода разговоров.
func WithChatStore(s hotel.ChatStore) Option {
	return func(a *Agent) { a.chats = s }
}

// WithSystemPrompt задаёт системный промпт новых разговоров.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithUsageLimit задаёт лимит токенов на разговор; 0 — без лимита.
func WithUsageLimit(maxTokens int) Option {
	return func(a *Agent) { a.maxTokens = maxTokens }
}

// WithTurnObserver добавляет наблюдателя, создаваемого на каждый ход.
func WithTurnObserver(f ObserverFactory) Option {
	return func(a *Agent) {
		if f != nil {
			a.observers = append(a.observers, f)
		}
	}
}

// New создаёт агента.
func New(turn *chain.Turn, opts ...Option) (*Agent, error) {
	if turn == nil {
		return nil, fmt.Errorf("turn is required")
	}
	a := &Agent{turn: turn, sessions: state.NewManager()}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxTokens < 0 {
		return nil, fmt.Errorf("usage limit must be >= 0, got %d", a.maxTokens)
	}
	return a, nil
}

// Sessions возвращает реестр разговоров.
func (a *Agent) Sessions() *state.Manager {
	return a.sessions
}

// Run выполняет ход.
func (a *Agent) Run(ctx context.Context, req Request) (Reply, error) {
	return a.run(ctx, req, events.Nop{})
}

// RunStream выполняет ход, отправляя события в emitter:
// tool_call, tool_result, chunk, затем message, usage, done или error, done.
func (a *Agent) RunStream(ctx context.Context, req Request, emitter events.Emitter) (Reply, error) {
	if emitter == nil {
		emitter = events.Nop{}
	}
	reply, err := a.run(ctx, req, emitter)
	if err == nil {
		emitter.Emit(ctx, events.New(events.EventUsage, events.UsageData{
			Turn:         reply.Usage,
			Conversation: reply.Conversation,
		}))
	}
	emitter.Emit(ctx, events.New(events.EventDone, events.DoneData{
		ConversationID: reply.ConversationID,
		Rounds:         reply.Rounds,
	}))
	return reply, err
}

func (a *Agent) run(ctx context.Context, req Request, emitter events.Emitter) (Reply, error) {
	input := strings.TrimSpace(req.Input)
	reply := Reply{ConversationID: req.ConversationID}

	// 1. Ввод проверяется до модели и до сессии
	if input == "" {
		emitter.Emit(ctx, events.New(events.EventError, events.ErrorData{Err: ErrInvalidInput}))
		return reply, ErrInvalidInput
	}
	if reply.ConversationID == "" {
		reply.ConversationID = uuid.NewString()
	}

	// 2. Сессия и очередь ходов
	sess, release, err := a.acquire(ctx, reply.ConversationID)
	if err != nil {
		emitter.Emit(ctx, events.New(events.EventError, events.ErrorData{Err: err}))
		return reply, err
	}
	defer release()

	// 3. Лимит расхода
	if a.maxTokens > 0 {
		if total, _ := sess.Usage(); total.TotalTokens >= a.maxTokens {
			utils.Warn("Conversation usage limit reached",
				"conversation_id", reply.ConversationID,
				"total_tokens", total.TotalTokens,
				"limit", a.maxTokens)
			emitter.Emit(ctx, events.New(events.EventError, events.ErrorData{Err: ErrUsageLimit}))
			return reply, ErrUsageLimit
		}
	}

	// 4. Ход
	conv := llm.Conversation{
		ID:                 reply.ConversationID,
		PreviousResponseID: sess.LastResponseID(),
		SystemPrompt:       a.systemPrompt,
		Input:              input,
	}
	observers := []chain.Observer{
		chain.NewLogObserver(reply.ConversationID),
		chain.NewEmitterObserver(emitter),
	}
	for _, f := range a.observers {
		if o := f(reply.ConversationID, input); o != nil {
			observers = append(observers, o)
		}
	}
	out, err := a.turn.Run(ctx, chain.Input{Conversation: conv}, observers...)
	reply.Rounds = out.Rounds
	if err != nil {
		if errors.Is(err, chain.ErrEmptyInput) {
			return reply, ErrInvalidInput
		}
		// Раунды до сбоя уже оплачены, инструменты уже выполнены
		if !out.Usage.IsZero() {
			total := sess.AddUsage(out.Usage)
			a.persist(ctx, reply.ConversationID, total)
			reply.ToolResults = out.ToolResults
			reply.Usage = out.Usage
			reply.Conversation = total
		}
		return reply, err
	}

	// 5. Учёт расхода; стоимость уже посчитана адаптером модели
	total := sess.CompleteTurn(out.ResponseID, input, out.Message, out.Usage)
	a.persist(ctx, reply.ConversationID, total)

	reply.Message = out.Message
	reply.RoundLimitReached = out.RoundLimitReached
	reply.ToolResults = out.ToolResults
	reply.Usage = out.Usage
	reply.Conversation = total
	return reply, nil
}

// acquire занимает слот хода разговора; новый разговор подтягивает сохранённый расход.
func (a *Agent) acquire(ctx context.Context, id string) (*state.Session, func(), error) {
	sess, created, release, err := a.sessions.Acquire(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !created || a.chats == nil {
		return sess, release, nil
	}
	saved, ok, err := a.chats.ChatContext(ctx, id)
	if err != nil {
		utils.Warn("Failed to load chat usage", "conversation_id", id, "error", err)
		return sess, release, nil
	}
	if ok {
		sess.RestoreUsage(saved)
	}
	return sess, release, nil
}

func (a *Agent) persist(ctx context.Context, id string, total usage.Usage) {
	if a.chats == nil {
		return
	}
	// Сбой сохранения не отменяет ответ пользователю
	if err := a.chats.SaveChatContext(ctx, id, total); err != nil {
		utils.Error("Failed to save chat usage", "conversation_id", id, "error", err)
	}
}

// Reset начинает разговор заново: продолжение и расход обнуляются.
// Ждёт окончания текущего хода. Неоткрытый разговор с сохранённым
// расходом тоже сбрасывается.
func (a *Agent) Reset(ctx context.Context, conversationID string) error {
	sess, created, release, err := a.sessions.Acquire(ctx, conversationID)
	if err != nil {
		return err
	}
	defer release()

	if created && !a.hasSavedChat(ctx, conversationID) {
		a.sessions.Remove(conversationID, sess)
		return state.ErrSessionNotFound
	}
	sess.Reset()
	if a.chats != nil {
		if err := a.chats.SaveChatContext(ctx, conversationID, usage.Usage{}); err != nil {
			return fmt.Errorf("reset chat usage: %w", err)
		}
	}
	utils.Info("Conversation reset", "conversation_id", conversationID)
	return nil
}

func (a *Agent) hasSavedChat(ctx context.Context, id string) bool {
	if a.chats == nil {
		return false
	}
	_, ok, err := a.chats.ChatContext(ctx, id)
	return err == nil && ok
}

// Usage возвращает расход разговора. Для неоткрытого разговора
// берётся сохранённое значение; если его нет — state.ErrSessionNotFound.
func (a *Agent) Usage(ctx context.Context, conversationID string) (UsageReport, error) {
	if sess, ok := a.sessions.Get(conversationID); ok {
		u, turns := sess.Usage()
		return UsageReport{ConversationID: conversationID, Usage: u, Turns: turns}, nil
	}
	if a.chats != nil {
		u, ok, err := a.chats.ChatContext(ctx, conversationID)
		if err != nil {
			return UsageReport{}, fmt.Errorf("load chat usage: %w", err)
		}
		if ok {
			return UsageReport{ConversationID: conversationID, Usage: u}, nil
		}
	}
	return UsageReport{}, state.ErrSessionNotFound
}
