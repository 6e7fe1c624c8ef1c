package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ilkoid/bellhop/pkg/usage"
)

func newID() string {
	return uuid.NewString()
}

// SaveChatContext сохраняет накопленный usage разговора.
func (s *Store) SaveChatContext(ctx context.Context, chatID string, u usage.Usage) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode usage: %w", err)
	}
	now := s.timestamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chats (id, last_context, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_context = excluded.last_context, updated_at = excluded.updated_at
	`, chatID, string(payload), now, now)
	if err != nil {
		return fmt.Errorf("save chat context: %w", err)
	}
	return nil
}

// ChatContext возвращает последний usage разговора; false, если разговор неизвестен.
func (s *Store) ChatContext(ctx context.Context, chatID string) (usage.Usage, bool, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT last_context FROM chats WHERE id = ?`, chatID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return usage.Usage{}, false, nil
	}
	if err != nil {
		return usage.Usage{}, false, fmt.Errorf("load chat context: %w", err)
	}
	if !raw.Valid {
		return usage.Usage{}, true, nil
	}

	var u usage.Usage
	if err := json.Unmarshal([]byte(raw.String), &u); err != nil {
		return usage.Usage{}, false, fmt.Errorf("decode usage: %w", err)
	}
	return u, true, nil
}
