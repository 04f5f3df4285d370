package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// availability_overrides — исключения на конкретную дату.
// IsAvailable=false блокирует день целиком; true с временем заменяет окна правил на этот день.
type AvailabilityOverride struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ProviderID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_overrides_provider_date,priority:1"`

	// Чистая дата без времени (полночь UTC).
	Date datatypes.Date `gorm:"type:date;not null;uniqueIndex:idx_overrides_provider_date,priority:2"`

	IsAvailable bool `gorm:"not null"`

	StartTime *string `gorm:"type:varchar(5)"`
	EndTime   *string `gorm:"type:varchar(5)"`

	Reason string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (o *AvailabilityOverride) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// HasCustomWindow: исключение задаёт своё окно вместо правил.
func (o *AvailabilityOverride) HasCustomWindow() bool {
	return o.IsAvailable && o.StartTime != nil && o.EndTime != nil
}

// Day возвращает дату исключения как time.Time (полночь UTC).
func (o *AvailabilityOverride) Day() time.Time {
	t := time.Time(o.Date)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate строит datatypes.Date из календарной даты (часовой пояс игнорируется).
func NewDate(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
