package dto

import (
	"time"

	"event-deletion-be/internal/entity"

	"github.com/google/uuid"
)

type ScheduleDeletionRequest struct {
	GraceHours float64 `json:"grace_hours" validate:"omitempty,gt=0,lte=720"`
	SkipBackup bool    `json:"skip_backup"`
}

type CancelDeletionRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ForceDeleteRequest struct {
	Reason     string `json:"reason" validate:"required,max=500"`
	SkipBackup bool   `json:"skip_backup"`
}

type MarkStuckFailedRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type RemainingTimeResponse struct {
	Seconds int64  `json:"seconds"`
	Expired bool   `json:"expired"`
	Display string `json:"display"`
}

type DeletionRequestResponse struct {
	Id               uuid.UUID                  `json:"id"`
	EventId          uuid.UUID                  `json:"event_id"`
	Event            entity.EventSnapshot       `json:"event"`
	Status           entity.DeletionStatus      `json:"status"`
	ScheduledAt      time.Time                  `json:"scheduled_at"`
	GraceHours       float64                    `json:"grace_hours"`
	ExecuteAt        time.Time                  `json:"execute_at"`
	Remaining        RemainingTimeResponse      `json:"remaining"`
	InitiatedBy      entity.Actor               `json:"initiated_by"`
	CancelledBy      *entity.Actor              `json:"cancelled_by,omitempty"`
	CancelledAt      *time.Time                 `json:"cancelled_at,omitempty"`
	CancelReason     string                     `json:"cancel_reason,omitempty"`
	StartedAt        *time.Time                 `json:"execution_started_at,omitempty"`
	CompletedAt      *time.Time                 `json:"execution_completed_at,omitempty"`
	FailedAt         *time.Time                 `json:"execution_failed_at,omitempty"`
	ErrorMessage     string                     `json:"error_message,omitempty"`
	Statistics       *entity.DeletionStatistics `json:"statistics,omitempty"`
	SecurityCheck    entity.SecurityCheckResult `json:"security_check"`
	BackupArtifactId string                     `json:"backup_artifact_id,omitempty"`
	SkipBackup       bool                       `json:"skip_backup"`
	Notifications    entity.NotificationFlags   `json:"notifications"`
}

type AuditEntryResponse struct {
	Id        uuid.UUID              `json:"id"`
	Action    entity.AuditAction     `json:"action"`
	EventId   uuid.UUID              `json:"event_id"`
	RequestId *uuid.UUID             `json:"request_id,omitempty"`
	Actor     entity.Actor           `json:"actor"`
	Timestamp time.Time              `json:"timestamp"`
	Severity  entity.AuditSeverity   `json:"severity"`
	Category  entity.AuditCategory   `json:"category"`
	Details   map[string]interface{} `json:"details"`
}

type ForceDeleteResponse struct {
	EventId          uuid.UUID                  `json:"event_id"`
	Statistics       *entity.DeletionStatistics `json:"statistics"`
	BackupArtifactId string                     `json:"backup_artifact_id,omitempty"`
}

type RestoreBackupRequest struct {
	DryRun       bool     `json:"dry_run"`
	Collections  []string `json:"collections" validate:"omitempty,dive,required"`
	NewEventId   string   `json:"new_event_id" validate:"omitempty,uuid"`
	SkipExisting bool     `json:"skip_existing"`
}
