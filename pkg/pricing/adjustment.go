// Package pricing содержит расчёт изменений ставок, проверку clamp-границ
// и справочные данные для анализа ценовых возможностей.
package pricing

import (
	"fmt"
	"math"
	"strconv"
)

// Типы корректировки.
const (
	TypePercentage  = "percentage"
	TypeFixedAmount = "fixed_amount"
)

// Операции корректировки.
const (
	OpIncrease = "increase"
	OpDecrease = "decrease"
	OpSetTo    = "set_to"
)

// Adjustment — корректировка ставки.
//
// Для процентов set_to означает долю от текущей цены (set_to 90 → 90% цены),
// для фиксированной суммы — абсолютную цену.
type Adjustment struct {
	Type      string  `json:"type"`
	Value     float64 `json:"value"`
	Operation string  `json:"operation"`
}

// Validate проверяет тип, операцию и конечность значения.
func (a Adjustment) Validate() error {
	if math.IsNaN(a.Value) || math.IsInf(a.Value, 0) {
		return fmt.Errorf("adjustment value must be a finite number")
	}
	switch a.Type {
	case TypePercentage, TypeFixedAmount:
	default:
		return fmt.Errorf("unknown adjustment type %q", a.Type)
	}
	switch a.Operation {
	case OpIncrease, OpDecrease, OpSetTo:
	default:
		return fmt.Errorf("unknown adjustment operation %q", a.Operation)
	}
	return nil
}

// Apply возвращает новую цену, округлённую до центов.
func (a Adjustment) Apply(price float64) float64 {
	var next float64
	if a.Type == TypePercentage {
		switch a.Operation {
		case OpIncrease:
			next = price * (1 + a.Value/100)
		case OpDecrease:
			next = price * (1 - a.Value/100)
		default:
			next = price * (a.Value / 100)
		}
	} else {
		switch a.Operation {
		case OpIncrease:
			next = price + a.Value
		case OpDecrease:
			next = price - a.Value
		default:
			next = a.Value
		}
	}
	return Round2(next)
}

// Describe возвращает описание вида "increase by 10%" или "decrease by $50".
func (a Adjustment) Describe() string {
	value := strconv.FormatFloat(a.Value, 'f', -1, 64)
	if a.Type == TypePercentage {
		return fmt.Sprintf("%s by %s%%", a.Operation, value)
	}
	return fmt.Sprintf("%s by $%s", a.Operation, value)
}

// Round2 округляет до двух знаков.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Average возвращает среднее, округлённое до центов; 0 для пустого среза.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Round2(sum / float64(len(values)))
}
