// Package sqlite реализует hotel.Store и hotel.ChatStore на SQLite (mattn/go-sqlite3).
//
// Схема создаётся при открытии. Мутирующие операции выполняются в транзакциях.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ilkoid/bellhop/pkg/hotel"
)

// MemoryPath открывает базу в памяти (тесты, демо).
const MemoryPath = ":memory:"

// Store — хранилище отеля на SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var (
	_ hotel.Store     = (*Store)(nil)
	_ hotel.ChatStore = (*Store)(nil)
)

// Open открывает (или создаёт) базу по пути и применяет схему.
func Open(path string) (*Store, error) {
	dsn := MemoryPath
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		dsn = path + "?_journal=WAL&_timeout=5000&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Один писатель; для :memory: это ещё и единственная копия базы
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close закрывает соединение.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS company_settings (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		url TEXT,
		contact TEXT,
		phone_number TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS services (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL DEFAULT 'room',
		rate_lower_usd REAL NOT NULL,
		rate_upper_usd REAL NOT NULL,
		clamp TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		service_id TEXT NOT NULL REFERENCES services(id),
		name TEXT NOT NULL,
		room_number TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS room_rates (
		id TEXT PRIMARY KEY,
		day TEXT NOT NULL,
		room_id TEXT NOT NULL REFERENCES rooms(id),
		service_id TEXT NOT NULL REFERENCES services(id),
		status TEXT NOT NULL DEFAULT 'empty' CHECK (status IN ('empty', 'confirmed')),
		price_usd REAL NOT NULL,
		date_booked TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_room_rates_day ON room_rates(day);

	CREATE TABLE IF NOT EXISTS chats (
		id TEXT PRIMARY KEY,
		last_context TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// withTx выполняет fn в транзакции; ошибка fn откатывает изменения.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
