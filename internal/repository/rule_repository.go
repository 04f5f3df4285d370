package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/slotbooking/internal/model"
)

type RuleRepository interface {
	WithTx(tx *gorm.DB) RuleRepository
	// Активные правила провайдера по (day_of_week, start_time).
	ListActive(ctx context.Context, providerID uuid.UUID) ([]model.AvailabilityRule, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.AvailabilityRule, error)
	// Деактивировать все активные правила провайдера.
	DeactivateAll(ctx context.Context, providerID uuid.UUID) (int64, error)
	// Деактивировать одно правило.
	Deactivate(ctx context.Context, id uuid.UUID) (int64, error)
	// Вставить или обновить по (provider_id, day_of_week, start_time).
	Upsert(ctx context.Context, rules []model.AvailabilityRule) error
}

type GormRuleRepository struct {
	db *gorm.DB
}

func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

func (r *GormRuleRepository) WithTx(tx *gorm.DB) RuleRepository {
	return &GormRuleRepository{db: tx}
}

func (r *GormRuleRepository) ListActive(ctx context.Context, providerID uuid.UUID) ([]model.AvailabilityRule, error) {
	var rules []model.AvailabilityRule
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND active = ?", providerID, true).
		Order("day_of_week ASC, start_time ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *GormRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AvailabilityRule, error) {
	var rule model.AvailabilityRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *GormRuleRepository) DeactivateAll(ctx context.Context, providerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.AvailabilityRule{}).
		Where("provider_id = ? AND active = ?", providerID, true).
		Update("active", false)
	return res.RowsAffected, res.Error
}

func (r *GormRuleRepository) Deactivate(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.AvailabilityRule{}).
		Where("id = ?", id).
		Update("active", false)
	return res.RowsAffected, res.Error
}

func (r *GormRuleRepository) Upsert(ctx context.Context, rules []model.AvailabilityRule) error {
	if len(rules) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider_id"}, {Name: "day_of_week"}, {Name: "start_time"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"end_time",
				"slot_duration_minutes",
				"buffer_minutes",
				"active",
				"seeded",
				"updated_at",
			}),
		}).
		Create(&rules).Error
}
