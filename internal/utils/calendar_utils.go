package utils

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrSlotDuration     = errors.New("slot duration must be positive")
	ErrInvalidClock     = errors.New("time of day must be HH:MM")
)

// MinutesPerDay — "24:00" допустим как конец окна.
const MinutesPerDay = 24 * 60

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange создаёт интервал и делает простую валидацию.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// Duration длительность интервала.
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// SplitToTimeSlots нарезает интервал на слоты длительностью slotDuration.
// Начало следующего слота сдвигается на slotDuration+gap (буфер между приёмами).
// Слот попадает в результат, только если целиком помещается в интервал.
func SplitToTimeSlots(
	tr TimeRange,
	slotDuration time.Duration,
	gap time.Duration,
) ([]TimeRange, error) {
	if slotDuration <= 0 {
		return nil, ErrSlotDuration
	}
	if gap < 0 {
		gap = 0
	}
	if !tr.End.After(tr.Start) {
		return []TimeRange{}, nil
	}

	step := slotDuration + gap

	var slots []TimeRange
	for cur := tr.Start; !cur.Add(slotDuration).After(tr.End); cur = cur.Add(step) {
		slots = append(slots, TimeRange{Start: cur, End: cur.Add(slotDuration)})
	}

	return slots, nil
}

// HasOverlap проверяет, пересекается ли newRange с existing.
// inclusive = true: касание концами считается пересечением.
func HasOverlap(
	newRange TimeRange,
	existing []TimeRange,
	inclusive bool,
) (bool, []TimeRange) {
	var conflicts []TimeRange

	for _, tr := range existing {
		if rangesOverlap(newRange, tr, inclusive) {
			conflicts = append(conflicts, tr)
		}
	}

	return len(conflicts) > 0, conflicts
}

func rangesOverlap(a, b TimeRange, inclusive bool) bool {
	if inclusive {
		return !a.Start.After(b.End) && !b.Start.After(a.End)
	}

	// Полуоткрытые интервалы [Start, End)
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// ===== Время суток "HH:MM" =====

// ParseClock переводит "HH:MM" в минуты от полуночи.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidClock
	}
	h, okH := twoDigits(s[0], s[1])
	m, okM := twoDigits(s[3], s[4])
	if !okH || !okM || m > 59 {
		return 0, ErrInvalidClock
	}
	total := h*60 + m
	if total > MinutesPerDay {
		return 0, ErrInvalidClock
	}
	return total, nil
}

// FormatClock обратна ParseClock.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// ===== Календарные даты =====

// DateOnly отбрасывает время, оставляя полночь в той же зоне.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DayInLocation — полночь календарной даты date (берутся только год/месяц/день) в зоне loc.
func DayInLocation(date time.Time, loc *time.Location) time.Time {
	year, month, day := date.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// DayRange — сутки [полночь, следующая полночь) для даты в зоне loc.
func DayRange(date time.Time, loc *time.Location) TimeRange {
	start := DayInLocation(date, loc)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

// AtClock: minutes минут от полуночи дня day.
func AtClock(day time.Time, minutes int) time.Time {
	return DateOnly(day).Add(time.Duration(minutes) * time.Minute)
}

func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ===== Форматирование слота для пользователя =====

var ruWeekdays = map[time.Weekday]string{
	time.Monday:    "Понедельник",
	time.Tuesday:   "Вторник",
	time.Wednesday: "Среда",
	time.Thursday:  "Четверг",
	time.Friday:    "Пятница",
	time.Saturday:  "Суббота",
	time.Sunday:    "Воскресенье",
}

// FormatSlotForUser форматирует интервал в человекочитаемую строку
// в зоне loc (nil: как есть).
func FormatSlotForUser(tr TimeRange, loc *time.Location) string {
	start := tr.Start
	end := tr.End

	if loc != nil {
		start = start.In(loc)
		end = end.In(loc)
	}

	return fmt.Sprintf("%s, %s, %s–%s",
		ruWeekdays[start.Weekday()],
		start.Format("02.01.2006"),
		start.Format("15:04"),
		end.Format("15:04"),
	)
}
