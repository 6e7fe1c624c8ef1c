// Package hotel описывает сущности отеля и контракт доступа к данным.
//
// Инструменты (pkg/tools/std) работают только через интерфейс Store,
// реализация на SQLite живёт в pkg/store/sqlite.
package hotel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ilkoid/bellhop/pkg/usage"
)

// DateLayout — формат дат в хранилище и в аргументах инструментов.
const DateLayout = "2006-01-02"

// Окно данных, для которого в базе есть загрузка номеров.
const (
	DataWindowStart = "2024-01-01"
	DataWindowEnd   = "2026-03-12"
)

// Статусы строки RoomRates.
const (
	StatusEmpty     = "empty"
	StatusConfirmed = "confirmed"
)

var (
	// ErrNotFound — запись отсутствует (например, настройки отеля не заведены).
	ErrNotFound = errors.New("not found")

	// ErrServiceNotFound — услуга с указанным именем не существует.
	// Оборачивается через ServiceNotFound, чтобы сообщение содержало имя.
	ErrServiceNotFound = errors.New("service not found")
)

// ServiceNotFound возвращает ошибку вида "Service 'X' not found".
func ServiceNotFound(name string) error {
	return &serviceNotFoundError{name: name}
}

type serviceNotFoundError struct{ name string }

func (e *serviceNotFoundError) Error() string {
	return fmt.Sprintf("Service '%s' not found", e.name)
}

func (e *serviceNotFoundError) Unwrap() error { return ErrServiceNotFound }

// Settings — карточка отеля (единственная запись).
type Settings struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	URL         *string   `json:"url"`
	Contact     *string   `json:"contact"`
	PhoneNumber *string   `json:"phoneNumber"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SettingsFields — поля настроек, которые разрешено менять.
var SettingsFields = []string{"name", "address", "url", "contact", "phoneNumber"}

// Clamp — метаданные ограничения ставок для сегмента (выходные/будни/все дни).
type Clamp struct {
	Target    string   `json:"target"`
	MinRate   *float64 `json:"minRate,omitempty"`
	MaxRate   *float64 `json:"maxRate,omitempty"`
	Direction string   `json:"direction"`
	Notes     string   `json:"notes,omitempty"`
}

// Validate проверяет инвариант MinRate <= MaxRate.
func (c Clamp) Validate() error {
	if c.MinRate != nil && c.MaxRate != nil && *c.MinRate > *c.MaxRate {
		return fmt.Errorf("clamp minRate %.2f exceeds maxRate %.2f", *c.MinRate, *c.MaxRate)
	}
	return nil
}

// Service — тип номера (услуга) с допустимым диапазоном ставок.
type Service struct {
	ID           string
	Name         string
	Type         string
	RateLowerUSD float64
	RateUpperUSD float64
	Clamp        *Clamp
}

// RoomRate — ставка одного номера на один день.
type RoomRate struct {
	ID         string
	Day        string
	RoomID     string
	ServiceID  string
	Status     string
	PriceUSD   float64
	DateBooked *string
	UpdatedAt  time.Time
}

// DailyRate — агрегат ставок за день. Average не округлён.
type DailyRate struct {
	Day     string
	Average float64
	Min     float64
	Max     float64
	Count   int
}

// OccupancyDay — загрузка за один день.
type OccupancyDay struct {
	Date          string  `json:"date"`
	TotalRooms    int     `json:"totalRooms"`
	OccupiedRooms int     `json:"occupiedRooms"`
	OccupancyRate float64 `json:"occupancyRate"`
}

// RateRow — строка ставки вместе с границами её услуги; входит в план изменения.
type RateRow struct {
	RoomRate
	ServiceName  string
	RateLowerUSD float64
	RateUpperUSD float64
	Clamp        *Clamp
}

// RatePlan получает строки диапазона и возвращает новые цены в том же порядке.
// Ошибка плана откатывает транзакцию целиком.
type RatePlan func(rows []RateRow) ([]float64, error)

// RateAdjustResult — итог массового изменения ставок.
type RateAdjustResult struct {
	PreviousAverage float64
	NewAverage      float64
	AffectedDates   int
	AffectedRooms   int
}

// ServiceRateUpdate — новые границы ставок услуги; nil оставляет значение как есть.
type ServiceRateUpdate struct {
	ServiceName string
	MinRate     *float64
	MaxRate     *float64
}

// ServiceRateChange — границы услуги до и после изменения.
type ServiceRateChange struct {
	ServiceName string
	OldMin      float64
	OldMax      float64
	NewMin      float64
	NewMax      float64
}

// ClampChange — результат UpdateServiceClamp.
type ClampChange struct {
	ServiceID string
	Previous  *Clamp
	Current   Clamp
}

// Overview — сводка для админки.
type Overview struct {
	HotelName       string  `json:"hotelName"`
	Rooms           int     `json:"rooms"`
	Services        int     `json:"services"`
	AverageRate     float64 `json:"averageRate"`
	OccupancyRate   float64 `json:"occupancyRate"`
	PeriodStart     string  `json:"periodStart"`
	PeriodEnd       string  `json:"periodEnd"`
	RateRowsInRange int     `json:"rateRows"`
}

// Store — контракт доступа к данным отеля.
//
// Все мутирующие методы выполняются в одной транзакции.
type Store interface {
	// DailyRates возвращает агрегаты ставок по дням в [start, end].
	DailyRates(ctx context.Context, start, end string) ([]DailyRate, error)

	// RateRows возвращает строки ставок в [start, end], не более limit (0 — без лимита).
	RateRows(ctx context.Context, start, end string, limit int) ([]RoomRate, error)

	// Occupancy считает загрузку по дням: номер занят, если статус confirmed
	// и бронь сделана не позже asOf (или дата брони неизвестна).
	Occupancy(ctx context.Context, start, end, asOf string) ([]OccupancyDay, error)

	// AdjustRates применяет plan ко всем ставкам в [start, end].
	AdjustRates(ctx context.Context, start, end string, plan RatePlan) (RateAdjustResult, error)

	// Services возвращает услуги; пустой names означает все.
	Services(ctx context.Context, names []string) ([]Service, error)

	// UpdateServiceRates меняет границы ставок. Неизвестная услуга откатывает все изменения.
	UpdateServiceRates(ctx context.Context, updates []ServiceRateUpdate) ([]ServiceRateChange, error)

	// UpdateServiceClamp заменяет метаданные clamp у услуги.
	UpdateServiceClamp(ctx context.Context, serviceName string, clamp Clamp) (ClampChange, error)

	// Settings возвращает настройки отеля или ErrNotFound.
	Settings(ctx context.Context) (Settings, error)

	// UpdateSettings обновляет разрешённые поля (см. SettingsFields).
	UpdateSettings(ctx context.Context, updates map[string]*string) (Settings, error)

	// Overview возвращает сводку за 30 дней, заканчивающихся asOf.
	Overview(ctx context.Context, asOf string) (Overview, error)
}

// ChatStore хранит накопленный usage разговора.
type ChatStore interface {
	SaveChatContext(ctx context.Context, chatID string, u usage.Usage) error
	ChatContext(ctx context.Context, chatID string) (usage.Usage, bool, error)
}

// ParseDate разбирает дату в формате YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// InDataWindow проверяет, что [start, end] лежит внутри окна данных.
func InDataWindow(start, end time.Time) bool {
	ws, _ := time.Parse(DateLayout, DataWindowStart)
	we, _ := time.Parse(DateLayout, DataWindowEnd)
	return !start.Before(ws) && !end.After(we)
}
