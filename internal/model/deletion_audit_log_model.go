package model

import (
	"time"

	"event-deletion-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeletionAuditLog is append-only; nothing in this service updates or deletes rows.
type DeletionAuditLog struct {
	ID        uuid.UUID                        `gorm:"type:uuid;primaryKey"`
	Action    string                           `gorm:"type:varchar(40);not null;index"`
	EventID   uuid.UUID                        `gorm:"type:uuid;not null;index"`
	RequestID *uuid.UUID                       `gorm:"type:uuid;index"`
	ActorID   string                           `gorm:"type:varchar(255);index"`
	Actor     datatypes.JSONType[entity.Actor] `gorm:"type:jsonb"`
	Timestamp time.Time                        `gorm:"not null;index"`
	Severity  string                           `gorm:"type:varchar(20);not null"`
	Category  string                           `gorm:"type:varchar(30);not null"`
	Details   datatypes.JSON                   `gorm:"type:jsonb"`
}

func (DeletionAuditLog) TableName() string {
	return "deletion_audit_logs"
}
