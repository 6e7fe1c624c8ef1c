package state

import (
	"context"
	"sync"
	"time"
)

// Manager — реестр открытых разговоров.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewManager создаёт пустой реестр.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session), now: time.Now}
}

// Get возвращает разговор по ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// GetOrCreate возвращает разговор, создавая его при первом обращении.
// created == true означает, что разговор новый.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	if s, ok := m.Get(id); ok {
		return s, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, false
	}
	s = newSession(id, m.now())
	m.sessions[id] = s
	return s, true
}

// Acquire возвращает разговор с занятым слотом хода, создавая его при первом
// обращении. Если разговор вытеснили, пока ход ждал слота, берётся новый:
// ход никогда не выполняется на разговоре вне реестра.
func (m *Manager) Acquire(ctx context.Context, id string) (s *Session, created bool, release func(), err error) {
	for {
		s, created = m.GetOrCreate(id)
		release, err = s.Acquire(ctx)
		if err != nil {
			return nil, false, nil, err
		}
		if current, ok := m.Get(id); ok && current == s {
			return s, created, release, nil
		}
		release()
	}
}

// Remove удаляет разговор, если в реестре всё ещё именно s.
func (m *Manager) Remove(id string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[id] == s {
		delete(m.sessions, id)
	}
}

// EvictIdle удаляет разговоры без ходов дольше maxIdle и возвращает их число.
// Разговор с выполняющимся ходом не удаляется.
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if s.UpdatedAt().After(cutoff) || len(s.slot) > 0 {
			continue
		}
		delete(m.sessions, id)
		evicted++
	}
	return evicted
}

// Len возвращает число открытых разговоров.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
