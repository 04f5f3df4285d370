package service

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leganyst/slotbooking/internal/config"
	"github.com/Leganyst/slotbooking/internal/notify"
	"github.com/Leganyst/slotbooking/internal/repository"
)

// Clock возвращает текущее время; в тестах подменяется.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func (c Clock) now() time.Time {
	if c == nil {
		return systemClock()
	}
	return c().UTC()
}

// Services — все сервисы ядра, собранные поверх одной БД.
type Services struct {
	Providers    *ProviderService
	Rules        *RuleService
	Overrides    *OverrideService
	Materializer *Materializer
	Holds        *HoldService
	Bookings     *BookingService
	Query        *QueryService
}

// New собирает сервисы: GORM-репозитории, шаблон и горизонт из cfg.
func New(db *gorm.DB, cfg config.ScheduleConfig, notifier notify.Notifier, clock Clock, logger *zap.Logger) *Services {
	providerRepo := repository.NewGormProviderRepository(db)
	ruleRepo := repository.NewGormRuleRepository(db)
	overrideRepo := repository.NewGormOverrideRepository(db)
	slotRepo := repository.NewGormSlotRepository(db)
	bookingRepo := repository.NewGormBookingRepository(db)
	serviceRepo := repository.NewGormServiceRepository(db)

	materializer := NewMaterializer(db, providerRepo, ruleRepo, overrideRepo, slotRepo, cfg, clock, logger)
	holds := NewHoldService(db, slotRepo, time.Duration(cfg.HoldMinutes)*time.Minute, clock, logger)

	return &Services{
		Providers:    NewProviderService(providerRepo),
		Rules:        NewRuleService(db, providerRepo, ruleRepo, materializer, logger),
		Overrides:    NewOverrideService(db, providerRepo, overrideRepo, materializer, logger),
		Materializer: materializer,
		Holds:        holds,
		Bookings: NewBookingService(
			db, slotRepo, bookingRepo, providerRepo,
			NewRepositoryCatalog(serviceRepo), holds, notifier, clock, logger,
		),
		Query: NewQueryService(providerRepo, overrideRepo, slotRepo, materializer, holds, clock, logger),
	}
}

// dedupeIDs убирает дубли, сохраняя порядок.
func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// sortedIDs — копия в порядке id, тот же порядок, в котором берутся блокировки.
func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
