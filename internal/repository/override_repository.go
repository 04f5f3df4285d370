package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/slotbooking/internal/model"
)

type OverrideRepository interface {
	WithTx(tx *gorm.DB) OverrideRepository
	// Вставить или заменить исключение на (provider_id, date). Возвращает актуальную строку.
	Upsert(ctx context.Context, o *model.AvailabilityOverride) (*model.AvailabilityOverride, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.AvailabilityOverride, error)
	GetByDate(ctx context.Context, providerID uuid.UUID, date time.Time) (*model.AvailabilityOverride, error)
	// Исключения провайдера в [from, to] по датам; nil означает без ограничения.
	ListByProvider(ctx context.Context, providerID uuid.UUID, from, to *time.Time) ([]model.AvailabilityOverride, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type GormOverrideRepository struct {
	db *gorm.DB
}

func NewGormOverrideRepository(db *gorm.DB) *GormOverrideRepository {
	return &GormOverrideRepository{db: db}
}

func (r *GormOverrideRepository) WithTx(tx *gorm.DB) OverrideRepository {
	return &GormOverrideRepository{db: tx}
}

func (r *GormOverrideRepository) Upsert(ctx context.Context, o *model.AvailabilityOverride) (*model.AvailabilityOverride, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"is_available",
				"start_time",
				"end_time",
				"reason",
				"updated_at",
			}),
		}).
		Create(o).Error
	if err != nil {
		return nil, err
	}
	// при конфликте ID в o новый, не тот что в базе
	return r.GetByDate(ctx, o.ProviderID, o.Day())
}

func (r *GormOverrideRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AvailabilityOverride, error) {
	var o model.AvailabilityOverride
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormOverrideRepository) GetByDate(ctx context.Context, providerID uuid.UUID, date time.Time) (*model.AvailabilityOverride, error) {
	var o model.AvailabilityOverride
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND date = ?", providerID, model.NewDate(date)).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormOverrideRepository) ListByProvider(
	ctx context.Context,
	providerID uuid.UUID,
	from, to *time.Time,
) ([]model.AvailabilityOverride, error) {
	q := r.db.WithContext(ctx).Where("provider_id = ?", providerID)
	if from != nil {
		q = q.Where("date >= ?", model.NewDate(*from))
	}
	if to != nil {
		q = q.Where("date <= ?", model.NewDate(*to))
	}

	var overrides []model.AvailabilityOverride
	if err := q.Order("date ASC").Find(&overrides).Error; err != nil {
		return nil, err
	}
	return overrides, nil
}

func (r *GormOverrideRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&model.AvailabilityOverride{}, "id = ?", id)
	return res.RowsAffected, res.Error
}
