package calendar

import (
	"errors"

	"github.com/Leganyst/slotbooking/internal/utils"
)

// Ошибки валидации правил и исключений.
var (
	ErrInvalidDayOfWeek = errors.New("day_of_week must be in [0,6]")
	ErrMissingTime      = errors.New("start_time and end_time are required")
	ErrInvalidWindow    = errors.New("end_time must be after start_time")
	ErrSlotDuration     = errors.New("slot_duration_minutes must be positive")
	ErrNegativeBuffer   = errors.New("buffer_minutes must not be negative")
	ErrPartialWindow    = errors.New("custom window needs both start_time and end_time")
)

// Window — окно в минутах от локальной полуночи, [StartMin, EndMin).
type Window struct {
	StartMin int
	EndMin   int
}

// ValidateRuleWindow проверяет одно недельное правило.
func ValidateRuleWindow(dayOfWeek int, start, end string, slotMinutes, bufferMinutes int) (Window, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return Window{}, ErrInvalidDayOfWeek
	}
	if start == "" || end == "" {
		return Window{}, ErrMissingTime
	}
	w, err := parseWindow(start, end)
	if err != nil {
		return Window{}, err
	}
	if slotMinutes <= 0 {
		return Window{}, ErrSlotDuration
	}
	if bufferMinutes < 0 {
		return Window{}, ErrNegativeBuffer
	}
	return w, nil
}

// ValidateOverrideWindow проверяет окно исключения.
// nil без ошибки: окна нет (день заблокирован либо берутся правила).
func ValidateOverrideWindow(isAvailable bool, start, end *string) (*Window, error) {
	if !isAvailable {
		return nil, nil
	}
	if start == nil && end == nil {
		return nil, nil
	}
	if start == nil || end == nil || *start == "" || *end == "" {
		return nil, ErrPartialWindow
	}
	w, err := parseWindow(*start, *end)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func parseWindow(start, end string) (Window, error) {
	s, err := utils.ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := utils.ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	if e <= s {
		return Window{}, ErrInvalidWindow
	}
	return Window{StartMin: s, EndMin: e}, nil
}
