package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leganyst/slotbooking/internal/calendar"
	"github.com/Leganyst/slotbooking/internal/model"
	"github.com/Leganyst/slotbooking/internal/repository"
	"github.com/Leganyst/slotbooking/internal/utils"
)

type RuleInput struct {
	DayOfWeek           int
	StartTime           string
	EndTime             string
	SlotDurationMinutes int
	BufferMinutes       int
}

// RuleService хранит недельные правила провайдера.
type RuleService struct {
	db           *gorm.DB
	providers    repository.ProviderRepository
	rules        repository.RuleRepository
	materializer *Materializer
	logger       *zap.Logger
}

func NewRuleService(
	db *gorm.DB,
	providers repository.ProviderRepository,
	rules repository.RuleRepository,
	materializer *Materializer,
	logger *zap.Logger,
) *RuleService {
	return &RuleService{
		db:           db,
		providers:    providers,
		rules:        rules,
		materializer: materializer,
		logger:       logger.Named("rules"),
	}
}

// ReplaceRules заменяет недельный шаблон целиком. Некорректные и пересекающиеся
// записи пропускаются; если не осталось ни одной, а на входе что-то было, InvalidInput.
// Пустой список сбрасывает провайдера на шаблон по умолчанию.
func (s *RuleService) ReplaceRules(ctx context.Context, providerID uuid.UUID, inputs []RuleInput) ([]model.AvailabilityRule, error) {
	if _, err := s.providers.GetByID(ctx, providerID); err != nil {
		return nil, wrapStorage("provider "+providerID.String(), err)
	}

	valid := s.validRules(providerID, inputs)
	if len(inputs) > 0 && len(valid) == 0 {
		return nil, invalidInput("no valid rules in request")
	}

	var active []model.AvailabilityRule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rules := s.rules.WithTx(tx)
		if _, err := rules.DeactivateAll(ctx, providerID); err != nil {
			return err
		}
		if err := rules.Upsert(ctx, valid); err != nil {
			return err
		}
		var err error
		active, err = rules.ListActive(ctx, providerID)
		return err
	})
	if err != nil {
		return nil, internal("replace rules", err)
	}

	s.logger.Info("rules replaced",
		zap.String("provider_id", providerID.String()),
		zap.Int("requested", len(inputs)),
		zap.Int("active", len(active)),
	)

	// Ленивое чтение догенерирует слоты в любом случае, так что ошибка здесь не фатальна.
	if _, err := s.materializer.RegenerateHorizon(ctx, providerID); err != nil {
		s.logger.Warn("regenerate after rules replace failed",
			zap.String("provider_id", providerID.String()),
			zap.Error(err),
		)
	}

	return active, nil
}

// validRules отбрасывает некорректные записи и записи, пересекающиеся
// с уже принятыми в тот же день недели.
func (s *RuleService) validRules(providerID uuid.UUID, inputs []RuleInput) []model.AvailabilityRule {
	// Опорный день для сравнения окон по минутам.
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	accepted := make(map[int][]utils.TimeRange)
	out := make([]model.AvailabilityRule, 0, len(inputs))

	for i, in := range inputs {
		w, err := calendar.ValidateRuleWindow(in.DayOfWeek, in.StartTime, in.EndTime, in.SlotDurationMinutes, in.BufferMinutes)
		if err != nil {
			s.logger.Debug("skip invalid rule", zap.Int("index", i), zap.Error(err))
			continue
		}

		tr := utils.TimeRange{Start: utils.AtClock(base, w.StartMin), End: utils.AtClock(base, w.EndMin)}
		if overlaps, _ := utils.HasOverlap(tr, accepted[in.DayOfWeek], false); overlaps {
			s.logger.Debug("skip overlapping rule", zap.Int("index", i), zap.Int("day_of_week", in.DayOfWeek))
			continue
		}
		accepted[in.DayOfWeek] = append(accepted[in.DayOfWeek], tr)

		out = append(out, model.AvailabilityRule{
			ProviderID:          providerID,
			DayOfWeek:           in.DayOfWeek,
			StartTime:           utils.FormatClock(w.StartMin),
			EndTime:             utils.FormatClock(w.EndMin),
			SlotDurationMinutes: in.SlotDurationMinutes,
			BufferMinutes:       in.BufferMinutes,
			Active:              true,
		})
	}
	return out
}

// ActiveRules отсортированы по (day_of_week, start_time).
func (s *RuleService) ActiveRules(ctx context.Context, providerID uuid.UUID) ([]model.AvailabilityRule, error) {
	if _, err := s.providers.GetByID(ctx, providerID); err != nil {
		return nil, wrapStorage("provider "+providerID.String(), err)
	}
	rules, err := s.rules.ListActive(ctx, providerID)
	if err != nil {
		return nil, internal("list rules", err)
	}
	return rules, nil
}

// DeactivateRule логически удаляет правило и пересобирает горизонт провайдера.
func (s *RuleService) DeactivateRule(ctx context.Context, ruleID uuid.UUID) (*model.AvailabilityRule, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("rule %s not found", ruleID)
	}
	if err != nil {
		return nil, internal("get rule", err)
	}
	if !rule.Active {
		return rule, nil
	}

	if _, err := s.rules.Deactivate(ctx, ruleID); err != nil {
		return nil, internal("deactivate rule", err)
	}
	rule.Active = false

	if _, err := s.materializer.RegenerateHorizon(ctx, rule.ProviderID); err != nil {
		s.logger.Warn("regenerate after rule deactivation failed",
			zap.String("rule_id", ruleID.String()),
			zap.Error(err),
		)
	}
	return rule, nil
}
