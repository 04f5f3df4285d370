package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Статус слота расписания.
type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusHeld      SlotStatus = "held"
	SlotStatusBooked    SlotStatus = "booked"
)

// time_slots — конкретные слоты, развёрнутые из правил и исключений.
// held  => HeldBy и HoldExpiresAt заполнены.
// booked => BookingID заполнен, поля удержания пустые; такой слот не удаляется.
type TimeSlot struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ProviderID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_time_slots_provider_start,priority:1"`

	StartAt time.Time `gorm:"not null;uniqueIndex:idx_time_slots_provider_start,priority:2;index"`
	EndAt   time.Time `gorm:"not null"`

	Status SlotStatus `gorm:"type:varchar(16);not null;index"`

	HeldBy        *uuid.UUID `gorm:"type:uuid;index"`
	HoldExpiresAt *time.Time `gorm:"index"`
	BookingID     *uuid.UUID `gorm:"type:uuid;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Provider *Provider `gorm:"foreignKey:ProviderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Booking  *Booking  `gorm:"foreignKey:BookingID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (s *TimeSlot) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
