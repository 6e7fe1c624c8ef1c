package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ilkoid/bellhop/pkg/hotel"
	"github.com/ilkoid/bellhop/pkg/utils"
)

// SeedOptions — параметры демо-данных.
type SeedOptions struct {
	From  string
	To    string
	Rooms int
	// Seed фиксирует генератор бронирований.
	Seed uint64
}

// DefaultSeedOptions покрывает всё окно данных, 50 номеров.
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		From:  hotel.DataWindowStart,
		To:    hotel.DataWindowEnd,
		Rooms: 50,
		Seed:  42,
	}
}

// SeedStats — сколько записей создано.
type SeedStats struct {
	Rooms int
	Rates int
}

// Seed очищает таблицы отеля и заполняет их демо-данными.
func (s *Store) Seed(ctx context.Context, opts SeedOptions) (SeedStats, error) {
	from, err := hotel.ParseDate(opts.From)
	if err != nil {
		return SeedStats{}, err
	}
	to, err := hotel.ParseDate(opts.To)
	if err != nil {
		return SeedStats{}, err
	}
	if to.Before(from) {
		return SeedStats{}, fmt.Errorf("seed range end %s is before start %s", opts.To, opts.From)
	}
	if opts.Rooms <= 0 {
		return SeedStats{}, fmt.Errorf("seed rooms must be positive, got %d", opts.Rooms)
	}

	for _, table := range []string{"room_rates", "rooms", "services", "company_settings"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return SeedStats{}, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	url := "https://www.thened.com/nomad"
	contact := "info@thened.com"
	phone := "+1-212-555-0123"
	if _, err := s.InsertSettings(ctx, hotel.Settings{
		Name:        "The Ned",
		Address:     "1170 Broadway, New York, NY 10001",
		URL:         &url,
		Contact:     &contact,
		PhoneNumber: &phone,
	}); err != nil {
		return SeedStats{}, err
	}

	minRate, maxRate := 100.0, 750.0
	svc, err := s.InsertService(ctx, hotel.Service{
		Name:         "Base Rate",
		Type:         "room",
		RateLowerUSD: minRate,
		RateUpperUSD: maxRate,
		Clamp: &hotel.Clamp{
			Target:    "weekend",
			MinRate:   &minRate,
			MaxRate:   &maxRate,
			Direction: "tighten",
			Notes:     "Initial baseline clamp before AI adjustments.",
		},
	})
	if err != nil {
		return SeedStats{}, err
	}

	roomIDs := make([]string, 0, opts.Rooms)
	for i := 1; i <= opts.Rooms; i++ {
		// 10 номеров на этаж: 0101..0110, 0201..
		number := fmt.Sprintf("%02d%02d", (i-1)/10+1, (i-1)%10+1)
		id, err := s.InsertRoom(ctx, svc.ID, number)
		if err != nil {
			return SeedStats{}, err
		}
		roomIDs = append(roomIDs, id)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	stats := SeedStats{Rooms: len(roomIDs)}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO room_rates (id, day, room_id, service_id, status, price_usd, date_booked, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare rate insert: %w", err)
		}
		defer stmt.Close()

		now := s.timestamp()
		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			price := demoRate(day)
			p := demoBookingProbability(day)
			dayStr := day.Format(hotel.DateLayout)

			for _, roomID := range roomIDs {
				status := hotel.StatusEmpty
				var booked any
				if rng.Float64() < p {
					status = hotel.StatusConfirmed
					booked = day.AddDate(0, 0, -(1 + rng.IntN(90))).Format(hotel.DateLayout)
				}
				if _, err := stmt.ExecContext(ctx, newID(), dayStr, roomID, svc.ID, status, price, booked, now, now); err != nil {
					return fmt.Errorf("insert rate %s: %w", dayStr, err)
				}
				stats.Rates++
			}
		}
		return nil
	})
	if err != nil {
		return SeedStats{}, err
	}

	utils.Info("Demo data seeded", "rooms", stats.Rooms, "rates", stats.Rates, "from", opts.From, "to", opts.To)
	return stats, nil
}

// demoRate: база $180, сезонность и премия выходных (пт +$9, сб +$15).
func demoRate(day time.Time) float64 {
	seasonal := map[time.Month]float64{
		time.January: 0.85, time.February: 0.9, time.March: 0.95,
		time.April: 1.05, time.May: 1.1, time.June: 1.15,
		time.July: 1.1, time.August: 1.05, time.September: 1.2,
		time.October: 1.25, time.November: 1.1, time.December: 1.3,
	}
	rate := 180 * seasonal[day.Month()]
	switch day.Weekday() {
	case time.Friday:
		rate += 9
	case time.Saturday:
		rate += 15
	}
	return math.Round(rate*100) / 100
}

func demoBookingProbability(day time.Time) float64 {
	p := 0.55
	if wd := day.Weekday(); wd == time.Friday || wd == time.Saturday {
		p += 0.2
	}
	if day.Month() >= time.September && day.Month() <= time.December {
		p += 0.1
	}
	return p
}

// InsertService добавляет услугу.
func (s *Store) InsertService(ctx context.Context, svc hotel.Service) (hotel.Service, error) {
	if svc.ID == "" {
		svc.ID = newID()
	}
	if svc.Type == "" {
		svc.Type = "room"
	}
	var clamp any
	if svc.Clamp != nil {
		payload, err := json.Marshal(svc.Clamp)
		if err != nil {
			return hotel.Service{}, fmt.Errorf("encode clamp: %w", err)
		}
		clamp = string(payload)
	}
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (id, name, type, rate_lower_usd, rate_upper_usd, clamp, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, svc.ID, svc.Name, svc.Type, svc.RateLowerUSD, svc.RateUpperUSD, clamp, now, now)
	if err != nil {
		return hotel.Service{}, fmt.Errorf("insert service %q: %w", svc.Name, err)
	}
	return svc, nil
}

// InsertRoom добавляет номер и возвращает его ID.
func (s *Store) InsertRoom(ctx context.Context, serviceID, number string) (string, error) {
	id := newID()
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, service_id, name, room_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, serviceID, "Room "+number, number, now, now)
	if err != nil {
		return "", fmt.Errorf("insert room %s: %w", number, err)
	}
	return id, nil
}

// InsertRate добавляет ставку номера на день.
func (s *Store) InsertRate(ctx context.Context, r hotel.RoomRate) (hotel.RoomRate, error) {
	if r.ID == "" {
		r.ID = newID()
	}
	if r.Status == "" {
		r.Status = hotel.StatusEmpty
	}
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_rates (id, day, room_id, service_id, status, price_usd, date_booked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Day, r.RoomID, r.ServiceID, r.Status, r.PriceUSD, r.DateBooked, now, now)
	if err != nil {
		return hotel.RoomRate{}, fmt.Errorf("insert rate %s: %w", r.Day, err)
	}
	r.UpdatedAt = parseTimestamp(now)
	return r, nil
}
