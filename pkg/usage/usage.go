// Package usage считает расход токенов и стоимость в рамках разговора.
//
// Usage — значение одного вызова модели или суммы нескольких вызовов.
// Accumulator накапливает Usage разговора и сбрасывается при новом разговоре.
package usage

import (
	"math"
	"sync"
)

// Usage — расход токенов (и опционально стоимость в долларах).
type Usage struct {
	InputTokens  int      `json:"inputTokens"`
	OutputTokens int      `json:"outputTokens"`
	TotalTokens  int      `json:"totalTokens"`
	Cost         *float64 `json:"cost,omitempty"`
}

// Add возвращает сумму двух значений. Cost складывается только если известен хотя бы у одного.
func (u Usage) Add(o Usage) Usage {
	sum := Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalTokens:  u.TotalTokens + o.TotalTokens,
	}
	if u.Cost != nil || o.Cost != nil {
		c := deref(u.Cost) + deref(o.Cost)
		sum.Cost = &c
	}
	return sum
}

// IsZero сообщает, что расход не зафиксирован.
func (u Usage) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0 && u.TotalTokens == 0 && u.Cost == nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// Pricing — тариф модели в долларах за миллион токенов.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// IsZero сообщает, что тариф не задан.
func (p Pricing) IsZero() bool {
	return p.InputPerMillion == 0 && p.OutputPerMillion == 0
}

// Apply проставляет Cost, если тариф задан. Стоимость округляется до 1e-6 доллара.
func (p Pricing) Apply(u Usage) Usage {
	if p.IsZero() {
		return u
	}
	cost := float64(u.InputTokens)*p.InputPerMillion/1e6 + float64(u.OutputTokens)*p.OutputPerMillion/1e6
	cost = math.Round(cost*1e6) / 1e6
	u.Cost = &cost
	return u
}

// Accumulator — потокобезопасный накопитель расхода одного разговора.
type Accumulator struct {
	mu    sync.Mutex
	total Usage
	turns int
}

// Add добавляет расход одного хода и возвращает новое накопленное значение.
func (a *Accumulator) Add(u Usage) Usage {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = a.total.Add(u)
	a.turns++
	return a.total
}

// Snapshot возвращает текущее накопленное значение и число учтённых ходов.
func (a *Accumulator) Snapshot() (Usage, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total, a.turns
}

// Reset обнуляет накопитель (новый разговор).
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = Usage{}
	a.turns = 0
}

// Restore устанавливает ранее сохранённое значение (после рестарта процесса).
func (a *Accumulator) Restore(u Usage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = u
}
