package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilkoid/bellhop/pkg/hotel"
)

// settingsColumns сопоставляет поля API колонкам таблицы.
var settingsColumns = map[string]string{
	"name":        "name",
	"address":     "address",
	"url":         "url",
	"contact":     "contact",
	"phoneNumber": "phone_number",
}

// Обязательные поля не принимают null.
var requiredSettings = map[string]bool{"name": true, "address": true}

const settingsSelect = `SELECT id, name, address, url, contact, phone_number, created_at, updated_at FROM company_settings LIMIT 1`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadSettings(ctx context.Context, q queryRower) (hotel.Settings, error) {
	var (
		st                   hotel.Settings
		url, contact, phone  sql.NullString
		createdAt, updatedAt string
	)
	err := q.QueryRowContext(ctx, settingsSelect).Scan(
		&st.ID, &st.Name, &st.Address, &url, &contact, &phone, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return hotel.Settings{}, hotel.ErrNotFound
	}
	if err != nil {
		return hotel.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	st.URL = nullString(url)
	st.Contact = nullString(contact)
	st.PhoneNumber = nullString(phone)
	st.CreatedAt = parseTimestamp(createdAt)
	st.UpdatedAt = parseTimestamp(updatedAt)
	return st, nil
}

// Settings возвращает настройки отеля.
func (s *Store) Settings(ctx context.Context) (hotel.Settings, error) {
	return loadSettings(ctx, s.db)
}

// UpdateSettings обновляет разрешённые поля. Неизвестные ключи игнорируются.
func (s *Store) UpdateSettings(ctx context.Context, updates map[string]*string) (hotel.Settings, error) {
	var (
		sets []string
		args []any
	)
	for _, field := range hotel.SettingsFields {
		value, ok := updates[field]
		if !ok {
			continue
		}
		if value == nil && requiredSettings[field] {
			return hotel.Settings{}, fmt.Errorf("field '%s' cannot be null", field)
		}
		sets = append(sets, settingsColumns[field]+" = ?")
		if value == nil {
			args = append(args, nil)
		} else {
			args = append(args, *value)
		}
	}
	if len(sets) == 0 {
		return hotel.Settings{}, fmt.Errorf("no valid fields provided for update")
	}

	var updated hotel.Settings
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := loadSettings(ctx, tx)
		if err != nil {
			return err
		}

		sets = append(sets, "updated_at = ?")
		args = append(args, s.timestamp(), current.ID)
		query := "UPDATE company_settings SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update settings: %w", err)
		}

		updated, err = loadSettings(ctx, tx)
		return err
	})
	if err != nil {
		return hotel.Settings{}, err
	}
	return updated, nil
}

// Overview собирает сводку за 30 дней до asOf включительно.
func (s *Store) Overview(ctx context.Context, asOf string) (hotel.Overview, error) {
	end, err := hotel.ParseDate(asOf)
	if err != nil {
		return hotel.Overview{}, err
	}
	ov := hotel.Overview{
		PeriodStart: end.AddDate(0, 0, -29).Format(hotel.DateLayout),
		PeriodEnd:   asOf,
	}

	st, err := s.Settings(ctx)
	switch {
	case err == nil:
		ov.HotelName = st.Name
	case !errors.Is(err, hotel.ErrNotFound):
		return hotel.Overview{}, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM rooms`).Scan(&ov.Rooms); err != nil {
		return hotel.Overview{}, fmt.Errorf("count rooms: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM services`).Scan(&ov.Services); err != nil {
		return hotel.Overview{}, fmt.Errorf("count services: %w", err)
	}

	var avgRate, occupancy sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT count(*),
			round(avg(price_usd), 2),
			round(count(CASE WHEN status = 'confirmed' AND (date_booked IS NULL OR date_booked <= ?) THEN 1 END) * 100.0 / count(*), 2)
		FROM room_rates
		WHERE day >= ? AND day <= ?
	`, asOf, ov.PeriodStart, ov.PeriodEnd).Scan(&ov.RateRowsInRange, &avgRate, &occupancy)
	if err != nil {
		return hotel.Overview{}, fmt.Errorf("aggregate rates: %w", err)
	}
	ov.AverageRate = avgRate.Float64
	ov.OccupancyRate = occupancy.Float64
	return ov, nil
}

// InsertSettings создаёт запись настроек (используется при seed).
func (s *Store) InsertSettings(ctx context.Context, st hotel.Settings) (hotel.Settings, error) {
	if st.ID == "" {
		st.ID = newID()
	}
	now := s.now().UTC()
	st.CreatedAt, st.UpdatedAt = now, now
	ts := now.Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO company_settings (id, name, address, url, contact, phone_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, st.ID, st.Name, st.Address, st.URL, st.Contact, st.PhoneNumber, ts, ts)
	if err != nil {
		return hotel.Settings{}, fmt.Errorf("insert settings: %w", err)
	}
	return st, nil
}
