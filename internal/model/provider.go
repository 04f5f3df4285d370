package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Provider — представитель услуг (консультант, мастер и т.п.).
// Все правила и исключения провайдера трактуются в его фиксированном смещении от UTC.
type Provider struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	// Имя/отображаемое название в интерфейсе.
	DisplayName string `gorm:"type:varchar(255);not null"`

	// Краткое описание, специализация и т.п.
	Description string `gorm:"type:text"`

	// Смещение локального времени провайдера от UTC в минутах (UTC+3 -> 180).
	UTCOffsetMinutes int `gorm:"column:utc_offset_minutes;not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Rules     []AvailabilityRule     `gorm:"foreignKey:ProviderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Overrides []AvailabilityOverride `gorm:"foreignKey:ProviderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Slots     []TimeSlot             `gorm:"foreignKey:ProviderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (p *Provider) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Location возвращает зону провайдера с фиксированным смещением.
func (p *Provider) Location() *time.Location {
	if p.UTCOffsetMinutes == 0 {
		return time.UTC
	}
	sign := "+"
	offset := p.UTCOffsetMinutes
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, offset/60, offset%60)
	return time.FixedZone(name, p.UTCOffsetMinutes*60)
}
