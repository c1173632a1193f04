package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// EventType — тип автоматического события.
type EventType string

const (
	EventBirthday    EventType = "birthday"
	EventAnniversary EventType = "anniversary"
	EventStockLow    EventType = "stock_low"
)

// EventTypes перечисляет типы в порядке проверки.
var EventTypes = []EventType{EventBirthday, EventAnniversary, EventStockLow}

// Valid проверяет, что тип события поддерживается.
func (t EventType) Valid() bool {
	switch t {
	case EventBirthday, EventAnniversary, EventStockLow:
		return true
	default:
		return false
	}
}

// ParseEventType разбирает строковое значение типа события.
func ParseEventType(value string) (EventType, error) {
	t := EventType(value)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, value)
	}
	return t, nil
}

// TimeOfDay — время запуска проверки в течение дня.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// DefaultNotifyTime используется, если время в настройках не разобрано.
var DefaultNotifyTime = TimeOfDay{Hour: 9}

// ParseTimeOfDay разбирает строку вида "09:00"; при ошибке возвращает DefaultNotifyTime и ошибку.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	hourRaw, minuteRaw, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return DefaultNotifyTime, fmt.Errorf("invalid time of day %q", value)
	}
	hour, err := strconv.Atoi(hourRaw)
	if err != nil || hour < 0 || hour > 23 {
		return DefaultNotifyTime, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(minuteRaw)
	if err != nil || minute < 0 || minute > 59 {
		return DefaultNotifyTime, fmt.Errorf("invalid minute in %q", value)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// String форматирует время как HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On возвращает момент этого времени в указанный день.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// ParseNotifyDays разбирает CSV вида "3,1,0". Пустые элементы пропускаются;
// при ошибке разбора возвращается [0] (уведомление только в день события).
func ParseNotifyDays(value string) []int {
	days := make([]int, 0)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day, err := strconv.Atoi(part)
		if err != nil || day < 0 {
			return []int{0}
		}
		days = append(days, day)
	}
	if len(days) == 0 {
		return []int{0}
	}
	return days
}

// FormatNotifyDays собирает список дней обратно в CSV.
func FormatNotifyDays(days []int) string {
	parts := make([]string, 0, len(days))
	for _, day := range days {
		parts = append(parts, strconv.Itoa(day))
	}
	return strings.Join(parts, ",")
}

// EventSettings — настройки одного типа автоматических событий.
type EventSettings struct {
	Type             EventType
	Enabled          bool
	NotifyDays       []int
	NotifyTime       TimeOfDay
	RewardAmount     int64
	RewardMultiplier int64
	StockThreshold   int
}

// NotifiesOn сообщает, нужно ли уведомлять за days дней до события.
func (s EventSettings) NotifiesOn(days int) bool {
	for _, d := range s.NotifyDays {
		if d == days {
			return true
		}
	}
	return false
}

// AnniversaryReward считает начисление за юбилей: база + годы * множитель.
func (s EventSettings) AnniversaryReward(years int) int64 {
	return s.RewardAmount + int64(years)*s.RewardMultiplier
}

// DefaultEventSettings возвращает настройки, с которыми система разворачивается.
func DefaultEventSettings() []EventSettings {
	return []EventSettings{
		{
			Type:         EventBirthday,
			Enabled:      true,
			NotifyDays:   []int{3, 1, 0},
			NotifyTime:   TimeOfDay{Hour: 9},
			RewardAmount: 1000,
		},
		{
			Type:             EventAnniversary,
			Enabled:          true,
			NotifyDays:       []int{3, 0},
			NotifyTime:       TimeOfDay{Hour: 9},
			RewardAmount:     500,
			RewardMultiplier: 100,
		},
		{
			Type:           EventStockLow,
			Enabled:        true,
			NotifyDays:     []int{0},
			NotifyTime:     TimeOfDay{Hour: 10},
			StockThreshold: 5,
		},
	}
}

// SortEventSettings упорядочивает настройки в порядке EventTypes.
func SortEventSettings(settings []EventSettings) {
	index := make(map[EventType]int, len(EventTypes))
	for i, t := range EventTypes {
		index[t] = i
	}
	sort.SliceStable(settings, func(i, j int) bool {
		return index[settings[i].Type] < index[settings[j].Type]
	})
}

// AwardKey — ключ идемпотентности разового начисления за событие.
type AwardKey struct {
	AccountID      int64
	EventType      EventType
	OccurrenceYear int
}

// AwardRecord фиксирует начисление по ключу AwardKey.
type AwardRecord struct {
	Key           AwardKey
	TransactionID string
	Amount        int64
	CreatedAt     time.Time
}
