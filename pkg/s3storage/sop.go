package s3storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ilkoid/bellhop/pkg/utils"
)

// DefaultSOPTTL — сколько держать скачанный документ в памяти.
const DefaultSOPTTL = 5 * time.Minute

// SOPSource отдаёт markdown регламента из бакета.
//
// При ошибке скачивания или пустом объекте возвращается fallback.
// Успешно скачанный документ кэшируется на ttl.
type SOPSource struct {
	client   Downloader
	key      string
	fallback string
	ttl      time.Duration
	now      func() time.Time

	mu        sync.Mutex
	cached    string
	fetchedAt time.Time
}

// NewSOPSource создаёт источник. client может быть nil — тогда всегда fallback.
func NewSOPSource(client Downloader, key, fallback string) *SOPSource {
	return &SOPSource{
		client:   client,
		key:      key,
		fallback: fallback,
		ttl:      DefaultSOPTTL,
		now:      time.Now,
	}
}

// PricingSOP возвращает текст регламента.
func (s *SOPSource) PricingSOP(ctx context.Context) string {
	if s.client == nil {
		return s.fallback
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != "" && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.cached
	}

	data, err := s.client.DownloadFile(ctx, s.key)
	if err != nil {
		utils.Warn("Pricing SOP download failed, using built-in SOP", "key", s.key, "error", err)
		return s.fallback
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		utils.Warn("Pricing SOP object is empty, using built-in SOP", "key", s.key)
		return s.fallback
	}

	s.cached = text
	s.fetchedAt = s.now()
	return text
}
