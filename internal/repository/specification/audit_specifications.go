package specification

import (
	"time"

	"event-deletion-be/internal/entity"

	"gorm.io/gorm"
)

// ByActions filters audit entries by action kind
type ByActions struct {
	Actions []entity.AuditAction
}

func (s ByActions) Apply(db *gorm.DB) *gorm.DB {
	values := make([]string, 0, len(s.Actions))
	for _, a := range s.Actions {
		values = append(values, string(a))
	}
	return db.Where("action IN ?", values)
}

// TimestampSince filters audit entries written at or after Since
type TimestampSince struct {
	Since time.Time
}

func (s TimestampSince) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("timestamp >= ?", s.Since)
}

type ByActorID struct {
	ActorID string
}

func (s ByActorID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("actor_id = ?", s.ActorID)
}
