package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ilkoid/bellhop/pkg/hotel"
)

// Services возвращает услуги по именам (все, если names пуст).
func (s *Store) Services(ctx context.Context, names []string) ([]hotel.Service, error) {
	query := `SELECT id, name, type, rate_lower_usd, rate_upper_usd, clamp FROM services`
	var args []any
	if len(names) > 0 {
		query += " WHERE name IN (?" + strings.Repeat(", ?", len(names)-1) + ")"
		for _, n := range names {
			args = append(args, n)
		}
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	var out []hotel.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func scanService(sc scanner) (hotel.Service, error) {
	var (
		svc   hotel.Service
		clamp sql.NullString
	)
	if err := sc.Scan(&svc.ID, &svc.Name, &svc.Type, &svc.RateLowerUSD, &svc.RateUpperUSD, &clamp); err != nil {
		return hotel.Service{}, err
	}
	c, err := decodeClamp(clamp)
	if err != nil {
		return hotel.Service{}, err
	}
	svc.Clamp = c
	return svc, nil
}

func serviceByName(ctx context.Context, tx *sql.Tx, name string) (hotel.Service, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, name, type, rate_lower_usd, rate_upper_usd, clamp FROM services WHERE name = ?`, name)
	svc, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return hotel.Service{}, hotel.ServiceNotFound(name)
	}
	if err != nil {
		return hotel.Service{}, fmt.Errorf("load service %q: %w", name, err)
	}
	return svc, nil
}

// UpdateServiceRates меняет границы ставок всех услуг из updates или ни одной.
func (s *Store) UpdateServiceRates(ctx context.Context, updates []hotel.ServiceRateUpdate) ([]hotel.ServiceRateChange, error) {
	var changes []hotel.ServiceRateChange

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.timestamp()
		for _, u := range updates {
			svc, err := serviceByName(ctx, tx, u.ServiceName)
			if err != nil {
				return err
			}

			ch := hotel.ServiceRateChange{
				ServiceName: u.ServiceName,
				OldMin:      svc.RateLowerUSD,
				OldMax:      svc.RateUpperUSD,
				NewMin:      svc.RateLowerUSD,
				NewMax:      svc.RateUpperUSD,
			}
			if u.MinRate != nil {
				ch.NewMin = *u.MinRate
			}
			if u.MaxRate != nil {
				ch.NewMax = *u.MaxRate
			}
			if ch.NewMin > ch.NewMax {
				return fmt.Errorf("minRate %.2f exceeds maxRate %.2f for service '%s'", ch.NewMin, ch.NewMax, u.ServiceName)
			}

			if _, err := tx.ExecContext(ctx,
				`UPDATE services SET rate_lower_usd = ?, rate_upper_usd = ?, updated_at = ? WHERE id = ?`,
				ch.NewMin, ch.NewMax, now, svc.ID); err != nil {
				return fmt.Errorf("update service %q: %w", u.ServiceName, err)
			}
			changes = append(changes, ch)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// UpdateServiceClamp заменяет clamp-метаданные услуги.
func (s *Store) UpdateServiceClamp(ctx context.Context, serviceName string, clamp hotel.Clamp) (hotel.ClampChange, error) {
	if err := clamp.Validate(); err != nil {
		return hotel.ClampChange{}, err
	}
	payload, err := json.Marshal(clamp)
	if err != nil {
		return hotel.ClampChange{}, fmt.Errorf("encode clamp: %w", err)
	}

	var change hotel.ClampChange
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		svc, err := serviceByName(ctx, tx, serviceName)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE services SET clamp = ?, updated_at = ? WHERE id = ?`,
			string(payload), s.timestamp(), svc.ID); err != nil {
			return fmt.Errorf("update clamp: %w", err)
		}
		change = hotel.ClampChange{ServiceID: svc.ID, Previous: svc.Clamp, Current: clamp}
		return nil
	})
	if err != nil {
		return hotel.ClampChange{}, err
	}
	return change, nil
}
