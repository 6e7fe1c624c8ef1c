package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ilkoid/bellhop/pkg/hotel"
)

// DailyRates возвращает агрегаты ставок по дням.
func (s *Store) DailyRates(ctx context.Context, start, end string) ([]hotel.DailyRate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, avg(price_usd), min(price_usd), max(price_usd), count(*)
		FROM room_rates
		WHERE day >= ? AND day <= ?
		GROUP BY day
		ORDER BY day
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query daily rates: %w", err)
	}
	defer rows.Close()

	var out []hotel.DailyRate
	for rows.Next() {
		var d hotel.DailyRate
		if err := rows.Scan(&d.Day, &d.Average, &d.Min, &d.Max, &d.Count); err != nil {
			return nil, fmt.Errorf("scan daily rate: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RateRows возвращает строки ставок диапазона.
func (s *Store) RateRows(ctx context.Context, start, end string, limit int) ([]hotel.RoomRate, error) {
	query := `
		SELECT id, day, room_id, service_id, status, price_usd, date_booked, updated_at
		FROM room_rates
		WHERE day >= ? AND day <= ?
		ORDER BY day, room_id`
	args := []any{start, end}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rate rows: %w", err)
	}
	defer rows.Close()

	var out []hotel.RoomRate
	for rows.Next() {
		r, err := scanRoomRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoomRate(sc scanner, extra ...any) (hotel.RoomRate, error) {
	var (
		r         hotel.RoomRate
		booked    sql.NullString
		updatedAt string
	)
	dest := append([]any{&r.ID, &r.Day, &r.RoomID, &r.ServiceID, &r.Status, &r.PriceUSD, &booked, &updatedAt}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return hotel.RoomRate{}, fmt.Errorf("scan room rate: %w", err)
	}
	r.DateBooked = nullString(booked)
	r.UpdatedAt = parseTimestamp(updatedAt)
	return r, nil
}

// Occupancy считает загрузку по дням на дату asOf.
func (s *Store) Occupancy(ctx context.Context, start, end, asOf string) ([]hotel.OccupancyDay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day,
			count(*),
			count(CASE WHEN status = 'confirmed' AND (date_booked IS NULL OR date_booked <= ?) THEN 1 END),
			round(count(CASE WHEN status = 'confirmed' AND (date_booked IS NULL OR date_booked <= ?) THEN 1 END) * 100.0 / count(*), 2)
		FROM room_rates
		WHERE day >= ? AND day <= ?
		GROUP BY day
		ORDER BY day
	`, asOf, asOf, start, end)
	if err != nil {
		return nil, fmt.Errorf("query occupancy: %w", err)
	}
	defer rows.Close()

	var out []hotel.OccupancyDay
	for rows.Next() {
		var d hotel.OccupancyDay
		if err := rows.Scan(&d.Date, &d.TotalRooms, &d.OccupiedRooms, &d.OccupancyRate); err != nil {
			return nil, fmt.Errorf("scan occupancy: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AdjustRates читает строки диапазона, вычисляет новые цены планом и
// записывает их в одной транзакции.
func (s *Store) AdjustRates(ctx context.Context, start, end string, plan hotel.RatePlan) (hotel.RateAdjustResult, error) {
	var result hotel.RateAdjustResult

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := loadRateRows(ctx, tx, start, end)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		prices, err := plan(rows)
		if err != nil {
			return err
		}
		if len(prices) != len(rows) {
			return fmt.Errorf("rate plan returned %d prices for %d rows", len(prices), len(rows))
		}

		stmt, err := tx.PrepareContext(ctx, `UPDATE room_rates SET price_usd = ?, updated_at = ? WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("prepare rate update: %w", err)
		}
		defer stmt.Close()

		now := s.timestamp()
		days := make(map[string]struct{})
		var before, after float64
		for i, row := range rows {
			if _, err := stmt.ExecContext(ctx, prices[i], now, row.ID); err != nil {
				return fmt.Errorf("update rate %s: %w", row.ID, err)
			}
			days[row.Day] = struct{}{}
			before += row.PriceUSD
			after += prices[i]
		}

		n := float64(len(rows))
		result = hotel.RateAdjustResult{
			PreviousAverage: before / n,
			NewAverage:      after / n,
			AffectedDates:   len(days),
			AffectedRooms:   len(rows),
		}
		return nil
	})
	if err != nil {
		return hotel.RateAdjustResult{}, err
	}
	return result, nil
}

func loadRateRows(ctx context.Context, tx *sql.Tx, start, end string) ([]hotel.RateRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT r.id, r.day, r.room_id, r.service_id, r.status, r.price_usd, r.date_booked, r.updated_at,
			s.name, s.rate_lower_usd, s.rate_upper_usd, s.clamp
		FROM room_rates r
		JOIN services s ON s.id = r.service_id
		WHERE r.day >= ? AND r.day <= ?
		ORDER BY r.day, r.room_id
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query rate rows: %w", err)
	}
	defer rows.Close()

	var out []hotel.RateRow
	for rows.Next() {
		var (
			row   hotel.RateRow
			clamp sql.NullString
		)
		rate, err := scanRoomRate(rows, &row.ServiceName, &row.RateLowerUSD, &row.RateUpperUSD, &clamp)
		if err != nil {
			return nil, err
		}
		row.RoomRate = rate
		if row.Clamp, err = decodeClamp(clamp); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func decodeClamp(v sql.NullString) (*hotel.Clamp, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	var c hotel.Clamp
	if err := json.Unmarshal([]byte(v.String), &c); err != nil {
		return nil, fmt.Errorf("decode clamp: %w", err)
	}
	return &c, nil
}
