package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leganyst/slotbooking/internal/config"
	"github.com/Leganyst/slotbooking/internal/model"
	"github.com/Leganyst/slotbooking/internal/repository"
	"github.com/Leganyst/slotbooking/internal/utils"
)

// Materializer разворачивает правила и исключения провайдера в конкретные слоты
// на скользящий горизонт. Повторный запуск ничего не дублирует: вставка идёт
// с ON CONFLICT DO NOTHING по (provider_id, start_at), held/booked слоты не трогаются.
type Materializer struct {
	db        *gorm.DB
	providers repository.ProviderRepository
	rules     repository.RuleRepository
	overrides repository.OverrideRepository
	slots     repository.SlotRepository

	template    config.DefaultTemplate
	horizonDays int

	clock  Clock
	logger *zap.Logger
}

func NewMaterializer(
	db *gorm.DB,
	providers repository.ProviderRepository,
	rules repository.RuleRepository,
	overrides repository.OverrideRepository,
	slots repository.SlotRepository,
	cfg config.ScheduleConfig,
	clock Clock,
	logger *zap.Logger,
) *Materializer {
	return &Materializer{
		db:          db,
		providers:   providers,
		rules:       rules,
		overrides:   overrides,
		slots:       slots,
		template:    cfg.Default,
		horizonDays: cfg.HorizonDays,
		clock:       clock,
		logger:      logger.Named("materializer"),
	}
}

type window struct {
	rng      utils.TimeRange
	duration time.Duration
	buffer   time.Duration
}

// runResult — итог одного прогона.
type runResult struct {
	Inserted int64
	Removed  int64
}

// Materialize догенерирует слоты на весь горизонт, только вставкой.
// Возвращает число новых слотов.
func (m *Materializer) Materialize(ctx context.Context, providerID uuid.UUID) (int64, error) {
	_, res, err := m.materialize(ctx, providerID)
	return res.Inserted, err
}

func (m *Materializer) materialize(ctx context.Context, providerID uuid.UUID) (*model.Provider, runResult, error) {
	provider, rules, err := m.prepare(ctx, providerID)
	if err != nil {
		return nil, runResult{}, err
	}
	from, to := m.horizon(provider)
	res, err := m.run(ctx, provider, rules, from, to, false)
	return provider, res, err
}

// RegenerateDate пересобирает слоты одной даты: свободные слоты, которых нет
// в новом наборе, удаляются, недостающие вставляются.
func (m *Materializer) RegenerateDate(ctx context.Context, providerID uuid.UUID, date time.Time) (int64, error) {
	provider, rules, err := m.prepare(ctx, providerID)
	if err != nil {
		return 0, err
	}

	loc := provider.Location()
	day := utils.DayInLocation(date, loc)
	today, _ := m.horizon(provider)
	if day.Before(today) {
		return 0, nil
	}

	res, err := m.run(ctx, provider, rules, day, day.AddDate(0, 0, 1), true)
	return res.Inserted, err
}

// RegenerateHorizon делает то же, что RegenerateDate, для всех дат горизонта.
// Вызывается после изменения правил.
func (m *Materializer) RegenerateHorizon(ctx context.Context, providerID uuid.UUID) (int64, error) {
	provider, rules, err := m.prepare(ctx, providerID)
	if err != nil {
		return 0, err
	}
	from, to := m.horizon(provider)
	res, err := m.run(ctx, provider, rules, from, to, true)
	return res.Inserted, err
}

// Reseed сбрасывает правила провайдера на текущий шаблон по умолчанию:
// удаляет все свободные слоты и правила, засевает шаблон и генерирует горизонт.
// Забронированные и удержанные слоты остаются как есть.
func (m *Materializer) Reseed(ctx context.Context, providerID uuid.UUID) (int64, error) {
	provider, err := m.provider(ctx, providerID)
	if err != nil {
		return 0, err
	}
	rules, err := m.seed(ctx, provider.ID, true)
	if err != nil {
		return 0, err
	}
	from, to := m.horizon(provider)
	res, err := m.run(ctx, provider, rules, from, to, false)
	return res.Inserted, err
}

func (m *Materializer) provider(ctx context.Context, providerID uuid.UUID) (*model.Provider, error) {
	p, err := m.providers.GetByID(ctx, providerID)
	if err != nil {
		return nil, wrapStorage("provider "+providerID.String(), err)
	}
	return p, nil
}

// prepare находит провайдера и его активные правила, при необходимости засевая шаблон.
func (m *Materializer) prepare(ctx context.Context, providerID uuid.UUID) (*model.Provider, []model.AvailabilityRule, error) {
	provider, err := m.provider(ctx, providerID)
	if err != nil {
		return nil, nil, err
	}
	rules, err := m.ensureRules(ctx, provider)
	if err != nil {
		return nil, nil, err
	}
	return provider, rules, nil
}

func (m *Materializer) ensureRules(ctx context.Context, provider *model.Provider) ([]model.AvailabilityRule, error) {
	rules, err := m.rules.ListActive(ctx, provider.ID)
	if err != nil {
		return nil, internal("list rules", err)
	}

	switch {
	case len(rules) == 0:
		m.logger.Info("seeding default rules", zap.String("provider_id", provider.ID.String()))
		return m.seed(ctx, provider.ID, false)
	case m.isStale(rules):
		m.logger.Info("default rules are stale, reseeding", zap.String("provider_id", provider.ID.String()))
		return m.seed(ctx, provider.ID, true)
	}
	return rules, nil
}

// isStale: все правила засеяны шаблоном, и шаблон с тех пор поменялся.
func (m *Materializer) isStale(rules []model.AvailabilityRule) bool {
	want := make(map[string]struct{})
	for _, r := range m.templateRules(uuid.Nil) {
		want[ruleKey(r)] = struct{}{}
	}

	have := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if !r.Seeded {
			return false
		}
		have[ruleKey(r)] = struct{}{}
	}

	if len(have) != len(want) {
		return true
	}
	for k := range have {
		if _, ok := want[k]; !ok {
			return true
		}
	}
	return false
}

func ruleKey(r model.AvailabilityRule) string {
	return fmt.Sprintf("%d|%s|%s|%d|%d", r.DayOfWeek, r.StartTime, r.EndTime, r.SlotDurationMinutes, r.BufferMinutes)
}

func (m *Materializer) templateRules(providerID uuid.UUID) []model.AvailabilityRule {
	rules := make([]model.AvailabilityRule, 0, len(m.template.Days))
	for _, day := range m.template.Days {
		rules = append(rules, model.AvailabilityRule{
			ProviderID:          providerID,
			DayOfWeek:           day,
			StartTime:           m.template.Start,
			EndTime:             m.template.End,
			SlotDurationMinutes: m.template.SlotMinutes,
			BufferMinutes:       m.template.BufferMinutes,
			Active:              true,
			Seeded:              true,
		})
	}
	return rules
}

// seed засевает шаблон; wipe=true сначала деактивирует правила и удаляет свободные слоты.
func (m *Materializer) seed(ctx context.Context, providerID uuid.UUID, wipe bool) ([]model.AvailabilityRule, error) {
	var active []model.AvailabilityRule

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rules := m.rules.WithTx(tx)

		if wipe {
			if _, err := rules.DeactivateAll(ctx, providerID); err != nil {
				return err
			}
			removed, err := m.slots.WithTx(tx).DeleteAllAvailable(ctx, providerID)
			if err != nil {
				return err
			}
			m.logger.Info("available slots wiped",
				zap.String("provider_id", providerID.String()),
				zap.Int64("removed", removed),
			)
		}

		if err := rules.Upsert(ctx, m.templateRules(providerID)); err != nil {
			return err
		}

		var err error
		active, err = rules.ListActive(ctx, providerID)
		return err
	})
	if err != nil {
		return nil, internal("seed default rules", err)
	}
	return active, nil
}

// horizon — [сегодня, сегодня+horizonDays) в локальных сутках провайдера.
func (m *Materializer) horizon(provider *model.Provider) (time.Time, time.Time) {
	loc := provider.Location()
	today := utils.DayInLocation(m.clock.now().In(loc), loc)
	return today, today.AddDate(0, 0, m.horizonDays)
}

// run генерирует слоты для локальных суток в [from, to) одной транзакцией.
// reconcile=true дополнительно удаляет будущие свободные слоты, чьих границ нет в новом наборе.
func (m *Materializer) run(
	ctx context.Context,
	provider *model.Provider,
	rules []model.AvailabilityRule,
	from, to time.Time,
	reconcile bool,
) (runResult, error) {
	var res runResult
	now := m.clock.now()
	loc := provider.Location()
	lastDay := to.AddDate(0, 0, -1)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slots := m.slots.WithTx(tx)

		overrides, err := m.overrides.WithTx(tx).ListByProvider(ctx, provider.ID, &from, &lastDay)
		if err != nil {
			return fmt.Errorf("list overrides: %w", err)
		}
		byDate := make(map[string]*model.AvailabilityOverride, len(overrides))
		for i := range overrides {
			byDate[utils.DateKey(overrides[i].Day())] = &overrides[i]
		}

		claimed, err := slots.ListByProviderRange(ctx, provider.ID, from, to, model.SlotStatusHeld, model.SlotStatusBooked)
		if err != nil {
			return fmt.Errorf("list claimed slots: %w", err)
		}
		claimedByDate := make(map[string][]utils.TimeRange)
		for _, s := range claimed {
			key := utils.DateKey(s.StartAt.In(loc))
			claimedByDate[key] = append(claimedByDate[key], utils.TimeRange{Start: s.StartAt, End: s.EndAt})
		}

		var candidates []model.TimeSlot
		for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
			key := utils.DateKey(day)
			dayRange := utils.DayRange(day, loc)

			ov := byDate[key]
			if ov != nil && !ov.IsAvailable {
				// заблокированный день: убираем только свободные слоты
				removed, err := slots.DeleteAvailableInRange(ctx, provider.ID, dayRange.Start, dayRange.End)
				if err != nil {
					return fmt.Errorf("clear blocked day %s: %w", key, err)
				}
				res.Removed += removed
				continue
			}

			daySlots := m.daySlots(provider, day, rules, ov, now, claimedByDate[key])

			if reconcile {
				pruneFrom := dayRange.Start
				if now.After(pruneFrom) {
					pruneFrom = now
				}
				removed, err := slots.DeleteAvailableExcept(ctx, provider.ID, pruneFrom, dayRange.End, daySlots)
				if err != nil {
					return fmt.Errorf("prune day %s: %w", key, err)
				}
				res.Removed += removed
			}

			candidates = append(candidates, daySlots...)
		}

		inserted, err := slots.InsertMissing(ctx, candidates)
		if err != nil {
			return fmt.Errorf("insert slots: %w", err)
		}
		res.Inserted = inserted
		return nil
	})
	if err != nil {
		return runResult{}, internal("materialize slots", err)
	}

	m.logger.Debug("materialized",
		zap.String("provider_id", provider.ID.String()),
		zap.String("from", utils.DateKey(from)),
		zap.String("to", utils.DateKey(lastDay)),
		zap.Bool("reconcile", reconcile),
		zap.Int64("inserted", res.Inserted),
		zap.Int64("removed", res.Removed),
	)
	return res, nil
}

// daySlots — кандидаты на один локальный день. В результат не попадают слоты,
// начинающиеся не позже now, и слоты, пересекающиеся с уже занятыми.
func (m *Materializer) daySlots(
	provider *model.Provider,
	day time.Time,
	rules []model.AvailabilityRule,
	ov *model.AvailabilityOverride,
	now time.Time,
	claimed []utils.TimeRange,
) []model.TimeSlot {
	var out []model.TimeSlot
	seen := make(map[int64]struct{})

	for _, w := range m.windowsFor(day, rules, ov) {
		ranges, err := utils.SplitToTimeSlots(w.rng, w.duration, w.buffer)
		if err != nil {
			m.logger.Warn("skip window", zap.Error(err))
			continue
		}
		for _, r := range ranges {
			if !r.Start.After(now) {
				continue
			}
			if busy, _ := utils.HasOverlap(r, claimed, false); busy {
				continue
			}
			if _, dup := seen[r.Start.Unix()]; dup {
				continue
			}
			seen[r.Start.Unix()] = struct{}{}

			out = append(out, model.TimeSlot{
				ProviderID: provider.ID,
				StartAt:    r.Start.UTC(),
				EndAt:      r.End.UTC(),
				Status:     model.SlotStatusAvailable,
			})
		}
	}
	return out
}

// windowsFor — окна дня: своё окно исключения либо все правила этого дня недели.
func (m *Materializer) windowsFor(day time.Time, rules []model.AvailabilityRule, ov *model.AvailabilityOverride) []window {
	if ov != nil && ov.HasCustomWindow() {
		start, errS := utils.ParseClock(*ov.StartTime)
		end, errE := utils.ParseClock(*ov.EndTime)
		if errS != nil || errE != nil {
			m.logger.Warn("override has malformed window", zap.String("override_id", ov.ID.String()))
			return nil
		}
		dur, buf := m.granularity(day.Weekday(), rules)
		return []window{{
			rng:      utils.TimeRange{Start: utils.AtClock(day, start), End: utils.AtClock(day, end)},
			duration: dur,
			buffer:   buf,
		}}
	}

	var windows []window
	for _, r := range rules {
		if r.DayOfWeek != int(day.Weekday()) {
			continue
		}
		start, errS := utils.ParseClock(r.StartTime)
		end, errE := utils.ParseClock(r.EndTime)
		if errS != nil || errE != nil {
			m.logger.Warn("rule has malformed window", zap.String("rule_id", r.ID.String()))
			continue
		}
		windows = append(windows, window{
			rng:      utils.TimeRange{Start: utils.AtClock(day, start), End: utils.AtClock(day, end)},
			duration: time.Duration(r.SlotDurationMinutes) * time.Minute,
			buffer:   time.Duration(r.BufferMinutes) * time.Minute,
		})
	}
	return windows
}

// granularity для окна исключения: правило того же дня недели,
// иначе любое активное правило, иначе шаблон.
func (m *Materializer) granularity(weekday time.Weekday, rules []model.AvailabilityRule) (time.Duration, time.Duration) {
	pick := func(r model.AvailabilityRule) (time.Duration, time.Duration) {
		return time.Duration(r.SlotDurationMinutes) * time.Minute, time.Duration(r.BufferMinutes) * time.Minute
	}
	for _, r := range rules {
		if r.DayOfWeek == int(weekday) {
			return pick(r)
		}
	}
	if len(rules) > 0 {
		return pick(rules[0])
	}
	return time.Duration(m.template.SlotMinutes) * time.Minute, time.Duration(m.template.BufferMinutes) * time.Minute
}
