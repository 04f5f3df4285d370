package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/slotbooking/internal/model"
	"github.com/Leganyst/slotbooking/internal/repository"
	"github.com/Leganyst/slotbooking/internal/utils"
)

// DayStats — агрегат одного дня месячного календаря.
type DayStats struct {
	Date           string
	AvailableCount int
	HeldCount      int
	BookedCount    int
	Override       *model.AvailabilityOverride
}

type MonthCalendar struct {
	ProviderID uuid.UUID
	Year       int
	Month      time.Month
	Days       []DayStats
}

// QueryService — проекции для UI записи. Перед чтением догенерирует слоты
// и возвращает истёкшие удержания, иначе счётчики held врут.
type QueryService struct {
	providers    repository.ProviderRepository
	overrides    repository.OverrideRepository
	slots        repository.SlotRepository
	materializer *Materializer
	holds        *HoldService
	clock        Clock
	logger       *zap.Logger
}

func NewQueryService(
	providers repository.ProviderRepository,
	overrides repository.OverrideRepository,
	slots repository.SlotRepository,
	materializer *Materializer,
	holds *HoldService,
	clock Clock,
	logger *zap.Logger,
) *QueryService {
	return &QueryService{
		providers:    providers,
		overrides:    overrides,
		slots:        slots,
		materializer: materializer,
		holds:        holds,
		clock:        clock,
		logger:       logger.Named("query"),
	}
}

// DaySlots — слоты локальной даты провайдера, начинающиеся после now.
// includeHeld=false отдаёт только available.
func (s *QueryService) DaySlots(ctx context.Context, providerID uuid.UUID, date time.Time, includeHeld bool) ([]model.TimeSlot, error) {
	provider, err := s.refresh(ctx, providerID)
	if err != nil {
		return nil, err
	}

	statuses := []model.SlotStatus{model.SlotStatusAvailable}
	if includeHeld {
		statuses = append(statuses, model.SlotStatusHeld)
	}

	day := utils.DayRange(date, provider.Location())
	slots, err := s.slots.ListByProviderRange(ctx, providerID, day.Start, day.End, statuses...)
	if err != nil {
		return nil, internal("list slots", err)
	}

	now := s.clock.now()
	out := slots[:0]
	for _, slot := range slots {
		if slot.StartAt.After(now) {
			out = append(out, slot)
		}
	}
	return out, nil
}

// MonthCalendar — счётчики available/held/booked по каждому дню месяца
// и исключения на эти даты. Прошедшие свободные слоты не считаются.
// Нулевые year/month берутся из текущей даты в зоне провайдера.
func (s *QueryService) MonthCalendar(ctx context.Context, providerID uuid.UUID, year int, month time.Month) (*MonthCalendar, error) {
	if month < 0 || month > time.December {
		return nil, invalidInput("month must be in [1,12]")
	}
	if year != 0 && (year < 1970 || year > 9999) {
		return nil, invalidInput("year is out of range")
	}

	provider, err := s.refresh(ctx, providerID)
	if err != nil {
		return nil, err
	}

	loc := provider.Location()
	if year == 0 || month == 0 {
		local := s.clock.now().In(loc)
		if year == 0 {
			year = local.Year()
		}
		if month == 0 {
			month = local.Month()
		}
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	next := first.AddDate(0, 1, 0)
	last := next.AddDate(0, 0, -1)

	slots, err := s.slots.ListByProviderRange(ctx, providerID, first, next)
	if err != nil {
		return nil, internal("list slots", err)
	}
	overrides, err := s.overrides.ListByProvider(ctx, providerID, &first, &last)
	if err != nil {
		return nil, internal("list overrides", err)
	}

	cal := &MonthCalendar{ProviderID: providerID, Year: year, Month: month}
	index := make(map[string]int)
	for day := first; day.Before(next); day = day.AddDate(0, 0, 1) {
		key := utils.DateKey(day)
		index[key] = len(cal.Days)
		cal.Days = append(cal.Days, DayStats{Date: key})
	}

	now := s.clock.now()
	for _, slot := range slots {
		i, ok := index[utils.DateKey(slot.StartAt.In(loc))]
		if !ok {
			continue
		}
		switch slot.Status {
		case model.SlotStatusAvailable:
			if slot.StartAt.After(now) {
				cal.Days[i].AvailableCount++
			}
		case model.SlotStatusHeld:
			cal.Days[i].HeldCount++
		case model.SlotStatusBooked:
			cal.Days[i].BookedCount++
		}
	}

	for j := range overrides {
		if i, ok := index[utils.DateKey(overrides[j].Day())]; ok {
			cal.Days[i].Override = &overrides[j]
		}
	}

	return cal, nil
}

// refresh: ленивая генерация и возврат истёкших удержаний перед чтением.
func (s *QueryService) refresh(ctx context.Context, providerID uuid.UUID) (*model.Provider, error) {
	provider, _, err := s.materializer.materialize(ctx, providerID)
	if err != nil {
		return nil, err
	}
	s.holds.reclaimBestEffort(ctx)
	return provider, nil
}
