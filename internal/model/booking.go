package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// bookings — запись о бронировании, охватывает один или несколько подряд идущих слотов.
type Booking struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ClientID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProviderID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ServiceID  *uuid.UUID `gorm:"type:uuid;index"`

	// min(start) и max(end) по забронированным слотам.
	StartAt time.Time `gorm:"not null;index"`
	EndAt   time.Time `gorm:"not null"`

	DurationMinutes int             `gorm:"not null"`
	Price           decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	// Список ID слотов на момент бронирования.
	SlotIDs datatypes.JSON `gorm:"column:slot_ids"`

	Status      BookingStatus `gorm:"type:varchar(32);not null;index"`
	Notes       string        `gorm:"type:text"`
	CancelledAt *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Provider *Provider `gorm:"foreignKey:ProviderID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Service  *Service  `gorm:"foreignKey:ServiceID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
