package events

import (
	"context"
	"sync"
)

// ChanEmitter — Emitter поверх буферизованного канала.
//
// Один эмиттер обслуживает один ход: SSE-обработчик или чат создают его,
// читают Subscribe().Events() и закрывают после завершения хода.
type ChanEmitter struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
}

// NewChanEmitter создаёт эмиттер с буфером buffer (0 — без буфера).
func NewChanEmitter(buffer int) *ChanEmitter {
	return &ChanEmitter{ch: make(chan Event, buffer)}
}

// Emit отправляет событие, пока канал открыт и ctx не отменён.
//
// Блокировка на чтение держится на время отправки: Close не закроет
// канал под пишущим Emit.
func (e *ChanEmitter) Emit(ctx context.Context, event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	select {
	case e.ch <- event:
	case <-ctx.Done():
	}
}

// Subscribe возвращает подписчика. Все подписчики читают один канал.
func (e *ChanEmitter) Subscribe() Subscriber {
	return &chanSubscriber{ch: e.ch}
}

// Close закрывает канал; повторный вызов ничего не делает.
func (e *ChanEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.ch)
}

type chanSubscriber struct {
	ch <-chan Event
}

func (s *chanSubscriber) Events() <-chan Event {
	return s.ch
}

// Close — канал общий, его закрывает ChanEmitter.Close.
func (s *chanSubscriber) Close() {}

var (
	_ Emitter    = (*ChanEmitter)(nil)
	_ Emitter    = Nop{}
	_ Subscriber = (*chanSubscriber)(nil)
)
