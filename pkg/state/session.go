// Package state хранит состояние разговоров: последний ID ответа модели,
// расход токенов и короткую историю для UI.
//
// Ходы одного разговора выполняются строго последовательно: Session.Acquire
// выдаёт единственный "слот" хода. Разные разговоры независимы.
package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ilkoid/bellhop/pkg/llm"
	"github.com/ilkoid/bellhop/pkg/usage"
)

// ErrSessionNotFound — разговор с таким ID не открыт.
var ErrSessionNotFound = errors.New("session not found")

// Session — состояние одного разговора.
type Session struct {
	id string

	// slot — семафор хода ёмкостью 1
	slot chan struct{}

	mu             sync.RWMutex
	lastResponseID string
	history        []llm.Message
	updatedAt      time.Time

	usage usage.Accumulator
}

func newSession(id string, now time.Time) *Session {
	return &Session{id: id, slot: make(chan struct{}, 1), updatedAt: now}
}

// ID возвращает идентификатор разговора.
func (s *Session) ID() string { return s.id }

// Acquire ждёт окончания предыдущего хода разговора.
// Возвращает функцию освобождения; ошибка — только при отмене ctx.
func (s *Session) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case s.slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-s.slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LastResponseID — ID последнего ответа модели; пусто для нового разговора.
func (s *Session) LastResponseID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastResponseID
}

// CompleteTurn фиксирует результат хода: продолжение, реплики и расход.
// Возвращает накопленный расход разговора.
func (s *Session) CompleteTurn(responseID, input string, reply *string, turnUsage usage.Usage) usage.Usage {
	s.mu.Lock()
	s.lastResponseID = responseID
	s.history = append(s.history, llm.Message{Role: llm.RoleUser, Content: input})
	if reply != nil {
		s.history = append(s.history, llm.Message{Role: llm.RoleAssistant, Content: *reply})
	}
	s.updatedAt = time.Now()
	s.mu.Unlock()

	return s.usage.Add(turnUsage)
}

// AddUsage учитывает расход хода, завершившегося ошибкой. Продолжение
// разговора остаётся прежним.
func (s *Session) AddUsage(turnUsage usage.Usage) usage.Usage {
	s.mu.Lock()
	s.updatedAt = time.Now()
	s.mu.Unlock()

	return s.usage.Add(turnUsage)
}

// History возвращает копию реплик разговора.
func (s *Session) History() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]llm.Message(nil), s.history...)
}

// Usage возвращает накопленный расход и число ходов.
func (s *Session) Usage() (usage.Usage, int) {
	return s.usage.Snapshot()
}

// RestoreUsage подставляет расход, сохранённый до рестарта процесса.
func (s *Session) RestoreUsage(u usage.Usage) {
	s.usage.Restore(u)
}

// UpdatedAt — время последнего хода.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Reset начинает разговор заново: продолжение и расход обнуляются.
// Вызывать, удерживая слот хода.
func (s *Session) Reset() {
	s.mu.Lock()
	s.lastResponseID = ""
	s.history = nil
	s.updatedAt = time.Now()
	s.mu.Unlock()
	s.usage.Reset()
}
