package openai

import (
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultMaxThreads — сколько цепочек ответов хранится в памяти.
const DefaultMaxThreads = 1000

// threadStore хранит транскрипт каждого ответа по его ID.
//
// Chat Completions API не хранит состояние на сервере, поэтому
// previous_response_id реализован на стороне клиента: ответ с ID X
// ссылается на полный список сообщений, включая сам ответ.
type threadStore struct {
	mu      sync.Mutex
	max     int
	threads map[string]thread
}

type thread struct {
	messages []openai.ChatCompletionMessage
	touched  time.Time
}

func newThreadStore(max int) *threadStore {
	if max <= 0 {
		max = DefaultMaxThreads
	}
	return &threadStore{max: max, threads: make(map[string]thread)}
}

// get возвращает копию транскрипта.
func (s *threadStore) get(id string) ([]openai.ChatCompletionMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[id]
	if !ok {
		return nil, false
	}
	t.touched = time.Now()
	s.threads[id] = t
	return append([]openai.ChatCompletionMessage(nil), t.messages...), true
}

// put сохраняет транскрипт, вытесняя самый давний при переполнении.
func (s *threadStore) put(id string, messages []openai.ChatCompletionMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.threads[id]; !exists && len(s.threads) >= s.max {
		var oldestID string
		var oldest time.Time
		for tid, t := range s.threads {
			if oldestID == "" || t.touched.Before(oldest) {
				oldestID, oldest = tid, t.touched
			}
		}
		delete(s.threads, oldestID)
	}
	s.threads[id] = thread{messages: messages, touched: time.Now()}
}

func (s *threadStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}
