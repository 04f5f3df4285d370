package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// availability_rules — недельный шаблон доступности провайдера.
// Правила не удаляются физически, только деактивируются.
type AvailabilityRule struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ProviderID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rules_provider_day_start,priority:1"`

	// 0 = воскресенье ... 6 = суббота (как time.Weekday).
	DayOfWeek int `gorm:"not null;uniqueIndex:idx_rules_provider_day_start,priority:2"`

	// Локальное время провайдера, "HH:MM".
	StartTime string `gorm:"type:varchar(5);not null;uniqueIndex:idx_rules_provider_day_start,priority:3"`
	EndTime   string `gorm:"type:varchar(5);not null"`

	SlotDurationMinutes int `gorm:"not null"`
	BufferMinutes       int `gorm:"not null"`

	Active bool `gorm:"not null;index"`

	// Правило создано шаблоном по умолчанию, а не провайдером.
	Seeded bool `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (r *AvailabilityRule) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
