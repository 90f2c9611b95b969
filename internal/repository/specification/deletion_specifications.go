package specification

import (
	"time"

	"event-deletion-be/internal/entity"

	"gorm.io/gorm"
)

// ByStatuses filters deletion requests in any of the given states
type ByStatuses struct {
	Statuses []entity.DeletionStatus
}

func (s ByStatuses) Apply(db *gorm.DB) *gorm.DB {
	values := make([]string, 0, len(s.Statuses))
	for _, st := range s.Statuses {
		values = append(values, string(st))
	}
	return db.Where("status IN ?", values)
}

// NotSoftDeleted hides requests flagged by retention cleanup
type NotSoftDeleted struct{}

func (s NotSoftDeleted) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

// SoftDeleted selects only requests flagged by retention cleanup
type SoftDeleted struct{}

func (s SoftDeleted) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", true)
}

// DueBy selects requests whose execute_at is at or before the given instant
type DueBy struct {
	Now time.Time
}

func (s DueBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("execute_at <= ?", s.Now)
}

// ExecuteAtBetween selects requests executing in (From, To]
type ExecuteAtBetween struct {
	From time.Time
	To   time.Time
}

func (s ExecuteAtBetween) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("execute_at > ? AND execute_at <= ?", s.From, s.To)
}

// FinishedBefore selects requests that reached a terminal state before the cutoff
type FinishedBefore struct {
	Cutoff time.Time
}

func (s FinishedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("finished_at IS NOT NULL AND finished_at < ?", s.Cutoff)
}
