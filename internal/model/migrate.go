package model

import "gorm.io/gorm"

// AutoMigrate выполняет миграцию всех сущностей ядра расписания.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Provider{},
		&Service{},
		&AvailabilityRule{},
		&AvailabilityOverride{},
		&Booking{},
		&TimeSlot{},
	)
}
