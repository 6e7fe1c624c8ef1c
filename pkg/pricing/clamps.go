package pricing

import (
	"fmt"
	"time"

	"github.com/ilkoid/bellhop/pkg/hotel"
)

// Policy определяет реакцию на выход новых ставок за границы.
type Policy string

const (
	// PolicyBlock отменяет изменение целиком.
	PolicyBlock Policy = "block"
	// PolicyAdvisory применяет изменение и возвращает предупреждения.
	PolicyAdvisory Policy = "advisory"
)

// ParsePolicy возвращает политику из конфигурации; пустое значение — block.
func ParsePolicy(s string) Policy {
	if Policy(s) == PolicyAdvisory {
		return PolicyAdvisory
	}
	return PolicyBlock
}

// Violation — ставка вне допустимого диапазона.
type Violation struct {
	Date         string  `json:"date"`
	RoomID       string  `json:"roomId"`
	ServiceName  string  `json:"serviceName"`
	ProposedRate float64 `json:"proposedRate"`
	MinRate      float64 `json:"minRate"`
	MaxRate      float64 `json:"maxRate"`
}

// ClampError возвращается планом при политике block.
type ClampError struct {
	Violations []Violation
}

func (e *ClampError) Error() string {
	return fmt.Sprintf("Rate change violates rate clamps (%d rates out of range)", len(e.Violations))
}

// Bounds возвращает действующие границы строки: диапазон услуги,
// суженный clamp-метаданными, если clamp относится к дню строки.
func Bounds(row hotel.RateRow) (lo, hi float64) {
	lo, hi = row.RateLowerUSD, row.RateUpperUSD
	c := row.Clamp
	if c == nil || !clampApplies(c.Target, row.Day) {
		return lo, hi
	}
	if c.MinRate != nil && *c.MinRate > lo {
		lo = *c.MinRate
	}
	if c.MaxRate != nil && *c.MaxRate < hi {
		hi = *c.MaxRate
	}
	return lo, hi
}

// clampApplies: выходные — ночи пятницы и субботы.
func clampApplies(target, day string) bool {
	switch target {
	case "all", "":
		return true
	}
	d, err := time.Parse(hotel.DateLayout, day)
	if err != nil {
		return false
	}
	weekend := d.Weekday() == time.Friday || d.Weekday() == time.Saturday
	if target == "weekend" {
		return weekend
	}
	return !weekend
}

// CheckClamps сравнивает предложенные цены с границами строк.
func CheckClamps(rows []hotel.RateRow, prices []float64) []Violation {
	var out []Violation
	for i, row := range rows {
		lo, hi := Bounds(row)
		p := prices[i]
		if p < lo || p > hi {
			out = append(out, Violation{
				Date:         row.Day,
				RoomID:       row.RoomID,
				ServiceName:  row.ServiceName,
				ProposedRate: p,
				MinRate:      lo,
				MaxRate:      hi,
			})
		}
	}
	return out
}

// Plan строит hotel.RatePlan для корректировки.
//
// При PolicyAdvisory нарушения складываются в warnings, а изменение применяется.
func Plan(adj Adjustment, policy Policy, warnings *[]Violation) hotel.RatePlan {
	return func(rows []hotel.RateRow) ([]float64, error) {
		prices := make([]float64, len(rows))
		for i, row := range rows {
			prices[i] = adj.Apply(row.PriceUSD)
		}

		violations := CheckClamps(rows, prices)
		if len(violations) == 0 {
			return prices, nil
		}
		if policy == PolicyAdvisory {
			if warnings != nil {
				*warnings = violations
			}
			return prices, nil
		}
		return nil, &ClampError{Violations: violations}
	}
}
