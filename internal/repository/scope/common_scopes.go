package scope

import (
	"time"

	"gorm.io/gorm"
)

// ActiveRegistrations keeps registrations that still hold a seat
func ActiveRegistrations(db *gorm.DB) *gorm.DB {
	return db.Where("status IN ?", []string{"pending", "confirmed"})
}

// SuccessfulPaymentsSince keeps settled payments made at or after since
func SuccessfulPaymentsSince(since time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ? AND paid_at >= ?", "success", since)
	}
}
