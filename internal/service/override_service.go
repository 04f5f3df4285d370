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

type OverrideInput struct {
	ProviderID  uuid.UUID
	Date        time.Time // берутся только год/месяц/день
	IsAvailable bool
	StartTime   *string
	EndTime     *string
	Reason      string
}

// OverrideService хранит исключения на даты. Каждое изменение
// пересобирает слоты ровно этой даты.
type OverrideService struct {
	db           *gorm.DB
	providers    repository.ProviderRepository
	overrides    repository.OverrideRepository
	materializer *Materializer
	logger       *zap.Logger
}

func NewOverrideService(
	db *gorm.DB,
	providers repository.ProviderRepository,
	overrides repository.OverrideRepository,
	materializer *Materializer,
	logger *zap.Logger,
) *OverrideService {
	return &OverrideService{
		db:           db,
		providers:    providers,
		overrides:    overrides,
		materializer: materializer,
		logger:       logger.Named("overrides"),
	}
}

// Upsert создаёт или заменяет исключение на (provider, date).
func (s *OverrideService) Upsert(ctx context.Context, in OverrideInput) (*model.AvailabilityOverride, error) {
	if in.Date.IsZero() {
		return nil, invalidInput("date is required")
	}
	w, err := calendar.ValidateOverrideWindow(in.IsAvailable, in.StartTime, in.EndTime)
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	if _, err := s.providers.GetByID(ctx, in.ProviderID); err != nil {
		return nil, wrapStorage("provider "+in.ProviderID.String(), err)
	}

	o := &model.AvailabilityOverride{
		ProviderID:  in.ProviderID,
		Date:        model.NewDate(in.Date),
		IsAvailable: in.IsAvailable,
		Reason:      in.Reason,
	}
	if w != nil {
		start, end := utils.FormatClock(w.StartMin), utils.FormatClock(w.EndMin)
		o.StartTime, o.EndTime = &start, &end
	}

	var saved *model.AvailabilityOverride
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		saved, err = s.overrides.WithTx(tx).Upsert(ctx, o)
		return err
	})
	if err != nil {
		return nil, internal("upsert override", err)
	}

	if err := s.regenerate(ctx, saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// Delete удаляет исключение и возвращает удалённую запись.
func (s *OverrideService) Delete(ctx context.Context, id uuid.UUID) (*model.AvailabilityOverride, error) {
	o, err := s.overrides.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("override %s not found", id)
	}
	if err != nil {
		return nil, internal("get override", err)
	}

	n, err := s.overrides.Delete(ctx, id)
	if err != nil {
		return nil, internal("delete override", err)
	}
	if n == 0 {
		return nil, notFound("override %s not found", id)
	}

	if err := s.regenerate(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// List: from/to включительно, nil означает без границы.
func (s *OverrideService) List(ctx context.Context, providerID uuid.UUID, from, to *time.Time) ([]model.AvailabilityOverride, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, invalidInput("to must not be before from")
	}
	if _, err := s.providers.GetByID(ctx, providerID); err != nil {
		return nil, wrapStorage("provider "+providerID.String(), err)
	}
	overrides, err := s.overrides.ListByProvider(ctx, providerID, from, to)
	if err != nil {
		return nil, internal("list overrides", err)
	}
	return overrides, nil
}

// regenerate — обязательная пересборка слотов даты исключения.
func (s *OverrideService) regenerate(ctx context.Context, o *model.AvailabilityOverride) error {
	inserted, err := s.materializer.RegenerateDate(ctx, o.ProviderID, o.Day())
	if err != nil {
		s.logger.Error("regenerate date failed",
			zap.String("provider_id", o.ProviderID.String()),
			zap.String("date", utils.DateKey(o.Day())),
			zap.Error(err),
		)
		return internal("regenerate slots for "+utils.DateKey(o.Day()), err)
	}
	s.logger.Debug("date regenerated",
		zap.String("provider_id", o.ProviderID.String()),
		zap.String("date", utils.DateKey(o.Day())),
		zap.Int64("inserted", inserted),
	)
	return nil
}
