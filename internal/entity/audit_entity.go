// FILE: internal/entity/audit_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction enumerates the lifecycle transitions written to the trail
type AuditAction string

const (
	AuditActionScheduled          AuditAction = "scheduled"
	AuditActionCancelled          AuditAction = "cancelled"
	AuditActionStarted            AuditAction = "started"
	AuditActionCompleted          AuditAction = "completed"
	AuditActionFailed             AuditAction = "failed"
	AuditActionForceDeleted       AuditAction = "force_deleted"
	AuditActionStatusAccessed     AuditAction = "status_accessed"
	AuditActionSecurityChecked    AuditAction = "security_checked"
	AuditActionNotificationFailed AuditAction = "notification_failed"
	AuditActionRestored           AuditAction = "restored"
)

// AuditSeverity levels, mirrored to the log stream
type AuditSeverity string

const (
	AuditSeverityInfo     AuditSeverity = "info"
	AuditSeverityWarning  AuditSeverity = "warning"
	AuditSeverityError    AuditSeverity = "error"
	AuditSeverityCritical AuditSeverity = "critical"
)

// AuditCategory groups actions for reporting
type AuditCategory string

const (
	AuditCategoryDeletion     AuditCategory = "deletion"
	AuditCategorySecurity     AuditCategory = "security"
	AuditCategoryAccess       AuditCategory = "access"
	AuditCategoryNotification AuditCategory = "notification"
	AuditCategoryRecovery     AuditCategory = "recovery"
)

// AuditEntry is one immutable record of a lifecycle transition
type AuditEntry struct {
	ID        uuid.UUID
	Action    AuditAction
	EventID   uuid.UUID
	RequestID *uuid.UUID
	Actor     Actor
	Timestamp time.Time
	Severity  AuditSeverity
	Category  AuditCategory
	Details   map[string]interface{}
}

// AuditSummary groups trail entries over a timeframe
type AuditSummary struct {
	TimeframeDays int                   `json:"timeframe_days"`
	Since         time.Time             `json:"since"`
	Total         int64                 `json:"total"`
	ByAction      map[AuditAction]int64 `json:"by_action"`
}

// AnomalyAlert flags an actor with an unusual number of destructive actions
type AnomalyAlert struct {
	Actor      Actor         `json:"actor"`
	EventCount int           `json:"event_count"`
	EventIDs   []uuid.UUID   `json:"event_ids"`
	FirstAt    time.Time     `json:"first_at"`
	LastAt     time.Time     `json:"last_at"`
	Window     time.Duration `json:"window"`
	Message    string        `json:"message"`
}
