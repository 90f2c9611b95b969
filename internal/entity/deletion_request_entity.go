// FILE: internal/entity/deletion_request_entity.go
package entity

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// DeletionStatus represents the lifecycle state of a deletion request
type DeletionStatus string

const (
	DeletionStatusScheduled DeletionStatus = "scheduled"
	DeletionStatusCancelled DeletionStatus = "cancelled"
	DeletionStatusExecuting DeletionStatus = "executing"
	DeletionStatusCompleted DeletionStatus = "completed"
	DeletionStatusFailed    DeletionStatus = "failed"
)

// NonTerminalStatuses are the states that block a new schedule for the same event
var NonTerminalStatuses = []DeletionStatus{DeletionStatusScheduled, DeletionStatusExecuting}

// TerminalStatuses are the states eligible for retention cleanup
var TerminalStatuses = []DeletionStatus{DeletionStatusCancelled, DeletionStatusCompleted, DeletionStatusFailed}

func (s DeletionStatus) IsTerminal() bool {
	switch s {
	case DeletionStatusCancelled, DeletionStatusCompleted, DeletionStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal forward step.
// scheduled -> cancelled | executing, executing -> completed | failed.
func (s DeletionStatus) CanTransitionTo(next DeletionStatus) bool {
	switch s {
	case DeletionStatusScheduled:
		return next == DeletionStatusCancelled || next == DeletionStatusExecuting
	case DeletionStatusExecuting:
		return next == DeletionStatusCompleted || next == DeletionStatusFailed
	}
	return false
}

// Actor is an opaque identity record attached verbatim for display
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// EventSnapshot caches the target event metadata at schedule time
type EventSnapshot struct {
	Name           string     `json:"name"`
	Status         string     `json:"status,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	DependentCount int64      `json:"dependent_count"`
}

// SecurityCheckResult holds the risk flags computed once at schedule time
type SecurityCheckResult struct {
	HasActiveRegistrations  bool      `json:"has_active_registrations"`
	ActiveRegistrationCount int64     `json:"active_registration_count"`
	HasRecentPayments       bool      `json:"has_recent_payments"`
	RecentPaymentCount      int64     `json:"recent_payment_count"`
	IsEventLive             bool      `json:"is_event_live"`
	RequiresApproval        bool      `json:"requires_approval"`
	CheckErrors             []string  `json:"check_errors,omitempty"`
	CheckedAt               time.Time `json:"checked_at"`
}

// NotificationKind names one notification sent to the dispatcher
type NotificationKind string

const (
	NotificationScheduled   NotificationKind = "scheduled"
	NotificationReminder30m NotificationKind = "reminder_30m"
	NotificationReminder5m  NotificationKind = "reminder_5m"
	NotificationCompleted   NotificationKind = "completed"
	NotificationFailed      NotificationKind = "failed"
	NotificationCancelled   NotificationKind = "cancelled"
)

// NotificationFlags records which notifications have already been sent
type NotificationFlags struct {
	Scheduled   bool `json:"scheduled"`
	Reminder30m bool `json:"reminder_30m"`
	Reminder5m  bool `json:"reminder_5m"`
	Completed   bool `json:"completed"`
	Failed      bool `json:"failed"`
	Cancelled   bool `json:"cancelled"`
}

func (f NotificationFlags) IsSent(kind NotificationKind) bool {
	switch kind {
	case NotificationScheduled:
		return f.Scheduled
	case NotificationReminder30m:
		return f.Reminder30m
	case NotificationReminder5m:
		return f.Reminder5m
	case NotificationCompleted:
		return f.Completed
	case NotificationFailed:
		return f.Failed
	case NotificationCancelled:
		return f.Cancelled
	}
	return false
}

func (f *NotificationFlags) MarkSent(kind NotificationKind) {
	switch kind {
	case NotificationScheduled:
		f.Scheduled = true
	case NotificationReminder30m:
		f.Reminder30m = true
	case NotificationReminder5m:
		f.Reminder5m = true
	case NotificationCompleted:
		f.Completed = true
	case NotificationFailed:
		f.Failed = true
	case NotificationCancelled:
		f.Cancelled = true
	}
}

// DeletionRequest represents one scheduled, grace-delayed event deletion
type DeletionRequest struct {
	ID                   uuid.UUID
	EventID              uuid.UUID
	Event                EventSnapshot
	ScheduledAt          time.Time
	GraceHours           float64
	ExecuteAt            time.Time
	Status               DeletionStatus
	InitiatedBy          Actor
	CancelledBy          *Actor
	CancelledAt          *time.Time
	CancelReason         string
	ExecutionStartedAt   *time.Time
	ExecutionCompletedAt *time.Time
	ExecutionFailedAt    *time.Time
	FinishedAt           *time.Time
	ErrorMessage         string
	ErrorDetail          string
	Statistics           *DeletionStatistics
	SecurityCheck        SecurityCheckResult
	BackupArtifactID     string
	SkipBackup           bool
	Notifications        NotificationFlags
	IsDeleted            bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// GraceDuration converts fractional grace hours into a duration, rounded to the nanosecond
func GraceDuration(graceHours float64) time.Duration {
	return time.Duration(math.Round(graceHours * float64(time.Hour)))
}

// ComputeExecuteAt returns scheduledAt + graceHours
func ComputeExecuteAt(scheduledAt time.Time, graceHours float64) time.Time {
	return scheduledAt.Add(GraceDuration(graceHours))
}

// Remaining returns max(0, ExecuteAt - now)
func (r *DeletionRequest) Remaining(now time.Time) time.Duration {
	d := r.ExecuteAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// IsCancellable reports whether cancel is legal at now
func (r *DeletionRequest) IsCancellable(now time.Time) bool {
	return r.Status == DeletionStatusScheduled && now.Before(r.ExecuteAt)
}
