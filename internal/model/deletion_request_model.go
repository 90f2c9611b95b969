package model

import (
	"time"

	"event-deletion-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeletionRequest GORM model for scheduled event deletions
type DeletionRequest struct {
	ID                   uuid.UUID                                      `gorm:"type:uuid;primaryKey"`
	EventID              uuid.UUID                                      `gorm:"type:uuid;not null;index"`
	EventSnapshot        datatypes.JSONType[entity.EventSnapshot]       `gorm:"type:jsonb"`
	ScheduledAt          time.Time                                      `gorm:"not null"`
	GraceHours           float64                                        `gorm:"not null"`
	ExecuteAt            time.Time                                      `gorm:"not null;index"`
	Status               string                                         `gorm:"type:varchar(20);not null;index"` // scheduled, cancelled, executing, completed, failed
	InitiatedBy          datatypes.JSONType[entity.Actor]               `gorm:"type:jsonb"`
	CancelledBy          datatypes.JSONType[*entity.Actor]              `gorm:"type:jsonb"`
	CancelledAt          *time.Time
	CancelReason         string                                         `gorm:"type:text"`
	ExecutionStartedAt   *time.Time
	ExecutionCompletedAt *time.Time
	ExecutionFailedAt    *time.Time
	FinishedAt           *time.Time                                     `gorm:"index"` // set on any terminal transition
	ErrorMessage         string                                         `gorm:"type:text"`
	ErrorDetail          string                                         `gorm:"type:text"`
	Statistics           datatypes.JSONType[*entity.DeletionStatistics] `gorm:"type:jsonb"`
	SecurityCheck        datatypes.JSONType[entity.SecurityCheckResult] `gorm:"type:jsonb"`
	BackupArtifactID     string                                         `gorm:"type:varchar(255)"`
	SkipBackup           bool                                           `gorm:"default:false"`
	Notifications        datatypes.JSONType[entity.NotificationFlags]   `gorm:"type:jsonb"`
	IsDeleted            bool                                           `gorm:"default:false;index"`
	CreatedAt            time.Time                                      `gorm:"autoCreateTime"`
	UpdatedAt            time.Time                                      `gorm:"autoUpdateTime"`
}

func (DeletionRequest) TableName() string {
	return "deletion_requests"
}
