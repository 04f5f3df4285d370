package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/slotbooking/internal/model"
)

type ProviderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Provider, error)
	Create(ctx context.Context, p *model.Provider) error
	// Все провайдеры, для фоновых задач и CLI.
	List(ctx context.Context) ([]model.Provider, error)
}

type GormProviderRepository struct {
	db *gorm.DB
}

func NewGormProviderRepository(db *gorm.DB) *GormProviderRepository {
	return &GormProviderRepository{db: db}
}

func (r *GormProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	var p model.Provider
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProviderRepository) Create(ctx context.Context, p *model.Provider) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *GormProviderRepository) List(ctx context.Context) ([]model.Provider, error) {
	var providers []model.Provider
	if err := r.db.WithContext(ctx).Order("display_name ASC").Find(&providers).Error; err != nil {
		return nil, err
	}
	return providers, nil
}
