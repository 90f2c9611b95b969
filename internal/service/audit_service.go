// FILE: internal/service/audit_service.go
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/pkg/logger"
	"event-deletion-be/internal/repository/specification"
	"event-deletion-be/internal/repository/unitofwork"
	"event-deletion-be/pkg/deletion/recovery"

	"github.com/google/uuid"
	"github.com/juju/clock"
)

// DefaultAnomalyThreshold is the number of distinct events one actor may destroy inside the window
const DefaultAnomalyThreshold = 3

// ForceDeleteRecord describes an immediate deletion that bypassed the request store
type ForceDeleteRecord struct {
	EventID          uuid.UUID
	Event            entity.EventSnapshot
	Actor            entity.Actor
	Reason           string
	Statistics       *entity.DeletionStatistics
	BackupArtifactID string
	SkipBackup       bool
	Err              error
}

type IAuditService interface {
	// CreateAuditLog persists the entry and mirrors it to the log stream.
	// A failed write is logged as critical and returned.
	CreateAuditLog(ctx context.Context, entry *entity.AuditEntry) error
	// Stage persists the entry through uow, which may hold an open transaction.
	// Nothing is mirrored until Publish is called after the commit.
	Stage(ctx context.Context, uow unitofwork.UnitOfWork, entry *entity.AuditEntry) error
	Publish(entry *entity.AuditEntry)

	LogScheduled(ctx context.Context, req *entity.DeletionRequest) error
	LogCancelled(ctx context.Context, req *entity.DeletionRequest) error
	LogStarted(ctx context.Context, req *entity.DeletionRequest) error
	LogCompleted(ctx context.Context, req *entity.DeletionRequest) error
	LogFailed(ctx context.Context, req *entity.DeletionRequest, cause error) error
	LogForceDeleted(ctx context.Context, rec ForceDeleteRecord) error
	LogStatusAccessed(ctx context.Context, req *entity.DeletionRequest, actor entity.Actor) error
	LogSecurityChecked(ctx context.Context, eventID uuid.UUID, actor entity.Actor, result entity.SecurityCheckResult) error
	LogNotificationFailed(ctx context.Context, req *entity.DeletionRequest, kind entity.NotificationKind, cause error) error
	LogRestored(ctx context.Context, artifact *entity.BackupArtifact, result *recovery.RestoreResult, actor entity.Actor) error

	AuditTrail(ctx context.Context, eventID uuid.UUID, limit int) ([]*entity.AuditEntry, error)
	Summary(ctx context.Context, timeframeDays int) (*entity.AuditSummary, error)
	DetectAnomalies(ctx context.Context, window time.Duration, threshold int) ([]entity.AnomalyAlert, error)
}

type auditService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
	clock      clock.Clock
}

func NewAuditService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger, clk clock.Clock) IAuditService {
	if clk == nil {
		clk = clock.WallClock
	}
	return &auditService{
		uowFactory: uowFactory,
		logger:     log,
		clock:      clk,
	}
}

func (s *auditService) CreateAuditLog(ctx context.Context, entry *entity.AuditEntry) error {
	if err := s.Stage(ctx, s.uowFactory.NewUnitOfWork(ctx), entry); err != nil {
		return err
	}
	s.mirror(entry)
	return nil
}

func (s *auditService) Stage(ctx context.Context, uow unitofwork.UnitOfWork, entry *entity.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.clock.Now().UTC()
	}
	if entry.Severity == "" {
		entry.Severity = entity.AuditSeverityInfo
	}
	if entry.Details == nil {
		entry.Details = map[string]interface{}{}
	}

	if err := uow.AuditLogRepository().Create(ctx, entry); err != nil {
		s.logger.Critical("AUDIT", "Audit log write failed", map[string]interface{}{
			"action":   string(entry.Action),
			"event_id": entry.EventID.String(),
			"actor_id": entry.Actor.ID,
			"error":    err.Error(),
		})
		return fmt.Errorf("audit write failed for %s: %w", entry.Action, err)
	}
	return nil
}

func (s *auditService) Publish(entry *entity.AuditEntry) {
	s.mirror(entry)
}

func (s *auditService) mirror(entry *entity.AuditEntry) {
	details := map[string]interface{}{
		"audit_id": entry.ID.String(),
		"action":   string(entry.Action),
		"category": string(entry.Category),
		"event_id": entry.EventID.String(),
		"actor":    entry.Actor,
		"details":  entry.Details,
	}
	if entry.RequestID != nil {
		details["request_id"] = entry.RequestID.String()
	}

	msg := fmt.Sprintf("Deletion audit: %s", entry.Action)
	switch entry.Severity {
	case entity.AuditSeverityCritical:
		s.logger.Critical("AUDIT", msg, details)
	case entity.AuditSeverityError:
		s.logger.Error("AUDIT", msg, details)
	case entity.AuditSeverityWarning:
		s.logger.Warn("AUDIT", msg, details)
	default:
		s.logger.Info("AUDIT", msg, details)
	}
}

func requestEntry(action entity.AuditAction, req *entity.DeletionRequest, actor entity.Actor, severity entity.AuditSeverity, category entity.AuditCategory) *entity.AuditEntry {
	id := req.ID
	return &entity.AuditEntry{
		Action:    action,
		EventID:   req.EventID,
		RequestID: &id,
		Actor:     actor,
		Severity:  severity,
		Category:  category,
		Details: map[string]interface{}{
			"event":        req.Event,
			"status":       string(req.Status),
			"scheduled_at": req.ScheduledAt,
			"execute_at":   req.ExecuteAt,
			"grace_hours":  req.GraceHours,
		},
	}
}

// ScheduledEntry builds the "scheduled" entry for req
func ScheduledEntry(req *entity.DeletionRequest) *entity.AuditEntry {
	entry := requestEntry(entity.AuditActionScheduled, req, req.InitiatedBy, entity.AuditSeverityWarning, entity.AuditCategoryDeletion)
	entry.Details["security_check"] = req.SecurityCheck
	entry.Details["skip_backup"] = req.SkipBackup
	return entry
}

// CancelledEntry builds the "cancelled" entry, attributed to the canceller
func CancelledEntry(req *entity.DeletionRequest) *entity.AuditEntry {
	actor := req.InitiatedBy
	if req.CancelledBy != nil {
		actor = *req.CancelledBy
	}
	entry := requestEntry(entity.AuditActionCancelled, req, actor, entity.AuditSeverityInfo, entity.AuditCategoryDeletion)
	entry.Details["cancelled_at"] = req.CancelledAt
	entry.Details["reason"] = req.CancelReason
	entry.Details["initiated_by"] = req.InitiatedBy
	return entry
}

// FailedEntry builds the "failed" entry; cause overrides the stored error message
func FailedEntry(req *entity.DeletionRequest, cause error) *entity.AuditEntry {
	entry := requestEntry(entity.AuditActionFailed, req, req.InitiatedBy, entity.AuditSeverityError, entity.AuditCategoryDeletion)
	entry.Details["statistics"] = req.Statistics
	entry.Details["backup_artifact_id"] = req.BackupArtifactID
	entry.Details["execution_failed_at"] = req.ExecutionFailedAt
	entry.Details["error"] = req.ErrorMessage
	entry.Details["error_detail"] = req.ErrorDetail
	entry.Details["requires_manual_cleanup"] = true
	if cause != nil {
		entry.Details["error"] = cause.Error()
	}
	return entry
}

func (s *auditService) LogScheduled(ctx context.Context, req *entity.DeletionRequest) error {
	return s.CreateAuditLog(ctx, ScheduledEntry(req))
}

func (s *auditService) LogCancelled(ctx context.Context, req *entity.DeletionRequest) error {
	return s.CreateAuditLog(ctx, CancelledEntry(req))
}

func (s *auditService) LogStarted(ctx context.Context, req *entity.DeletionRequest) error {
	entry := requestEntry(entity.AuditActionStarted, req, req.InitiatedBy, entity.AuditSeverityWarning, entity.AuditCategoryDeletion)
	entry.Details["execution_started_at"] = req.ExecutionStartedAt
	entry.Details["skip_backup"] = req.SkipBackup
	return s.CreateAuditLog(ctx, entry)
}

func (s *auditService) LogCompleted(ctx context.Context, req *entity.DeletionRequest) error {
	entry := requestEntry(entity.AuditActionCompleted, req, req.InitiatedBy, entity.AuditSeverityWarning, entity.AuditCategoryDeletion)
	entry.Details["statistics"] = req.Statistics
	entry.Details["backup_artifact_id"] = req.BackupArtifactID
	entry.Details["execution_started_at"] = req.ExecutionStartedAt
	entry.Details["execution_completed_at"] = req.ExecutionCompletedAt
	return s.CreateAuditLog(ctx, entry)
}

func (s *auditService) LogFailed(ctx context.Context, req *entity.DeletionRequest, cause error) error {
	return s.CreateAuditLog(ctx, FailedEntry(req, cause))
}

func (s *auditService) LogForceDeleted(ctx context.Context, rec ForceDeleteRecord) error {
	severity := entity.AuditSeverityCritical
	details := map[string]interface{}{
		"bypass":             true,
		"event":              rec.Event,
		"reason":             rec.Reason,
		"statistics":         rec.Statistics,
		"backup_artifact_id": rec.BackupArtifactID,
		"skip_backup":        rec.SkipBackup,
	}
	if rec.Err != nil {
		details["error"] = rec.Err.Error()
		details["requires_manual_cleanup"] = true
	}

	return s.CreateAuditLog(ctx, &entity.AuditEntry{
		Action:   entity.AuditActionForceDeleted,
		EventID:  rec.EventID,
		Actor:    rec.Actor,
		Severity: severity,
		Category: entity.AuditCategoryDeletion,
		Details:  details,
	})
}

func (s *auditService) LogStatusAccessed(ctx context.Context, req *entity.DeletionRequest, actor entity.Actor) error {
	entry := requestEntry(entity.AuditActionStatusAccessed, req, actor, entity.AuditSeverityInfo, entity.AuditCategoryAccess)
	return s.CreateAuditLog(ctx, entry)
}

func (s *auditService) LogSecurityChecked(ctx context.Context, eventID uuid.UUID, actor entity.Actor, result entity.SecurityCheckResult) error {
	severity := entity.AuditSeverityInfo
	if result.RequiresApproval {
		severity = entity.AuditSeverityWarning
	}
	return s.CreateAuditLog(ctx, &entity.AuditEntry{
		Action:   entity.AuditActionSecurityChecked,
		EventID:  eventID,
		Actor:    actor,
		Severity: severity,
		Category: entity.AuditCategorySecurity,
		Details: map[string]interface{}{
			"security_check": result,
		},
	})
}

func (s *auditService) LogNotificationFailed(ctx context.Context, req *entity.DeletionRequest, kind entity.NotificationKind, cause error) error {
	entry := requestEntry(entity.AuditActionNotificationFailed, req, req.InitiatedBy, entity.AuditSeverityWarning, entity.AuditCategoryNotification)
	entry.Details["kind"] = string(kind)
	if cause != nil {
		entry.Details["error"] = cause.Error()
	}
	return s.CreateAuditLog(ctx, entry)
}

func (s *auditService) LogRestored(ctx context.Context, artifact *entity.BackupArtifact, result *recovery.RestoreResult, actor entity.Actor) error {
	severity := entity.AuditSeverityWarning
	if len(result.Errors) > 0 {
		severity = entity.AuditSeverityError
	}
	return s.CreateAuditLog(ctx, &entity.AuditEntry{
		Action:   entity.AuditActionRestored,
		EventID:  result.EventID,
		Actor:    actor,
		Severity: severity,
		Category: entity.AuditCategoryRecovery,
		Details: map[string]interface{}{
			"artifact_id":           artifact.ID,
			"original_event_id":     artifact.EventID.String(),
			"event_name":            artifact.EventName,
			"collections_processed": result.CollectionsProcessed,
			"records_restored":      result.RecordsRestored,
			"records_skipped":       result.RecordsSkipped,
			"per_collection":        result.PerCollection,
			"errors":                result.Errors,
		},
	})
}

func (s *auditService) AuditTrail(ctx context.Context, eventID uuid.UUID, limit int) ([]*entity.AuditEntry, error) {
	specs := []specification.Specification{
		specification.ByEventID{EventID: eventID},
		specification.OrderBy{Field: "timestamp", Desc: true},
	}
	if limit > 0 {
		specs = append(specs, specification.Pagination{Limit: limit})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.AuditLogRepository().FindAll(ctx, specs...)
}

func (s *auditService) Summary(ctx context.Context, timeframeDays int) (*entity.AuditSummary, error) {
	if timeframeDays <= 0 {
		timeframeDays = 30
	}
	since := s.clock.Now().UTC().AddDate(0, 0, -timeframeDays)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	counts, err := uow.AuditLogRepository().CountByAction(ctx, specification.TimestampSince{Since: since})
	if err != nil {
		return nil, err
	}

	summary := &entity.AuditSummary{
		TimeframeDays: timeframeDays,
		Since:         since,
		ByAction:      counts,
	}
	for _, n := range counts {
		summary.Total += n
	}
	return summary, nil
}

// DetectAnomalies flags actors who scheduled or force-deleted at least threshold
// distinct events within window. It only reports; nothing is blocked.
func (s *auditService) DetectAnomalies(ctx context.Context, window time.Duration, threshold int) ([]entity.AnomalyAlert, error) {
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	since := s.clock.Now().UTC().Add(-window)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	entries, err := uow.AuditLogRepository().FindAll(ctx,
		specification.ByActions{Actions: []entity.AuditAction{entity.AuditActionScheduled, entity.AuditActionForceDeleted}},
		specification.TimestampSince{Since: since},
		specification.OrderBy{Field: "timestamp"},
	)
	if err != nil {
		return nil, err
	}

	type tally struct {
		actor   entity.Actor
		events  map[uuid.UUID]struct{}
		ordered []uuid.UUID
		first   time.Time
		last    time.Time
	}
	byActor := make(map[string]*tally)
	for _, e := range entries {
		key := e.Actor.ID
		t, ok := byActor[key]
		if !ok {
			t = &tally{actor: e.Actor, events: make(map[uuid.UUID]struct{}), first: e.Timestamp}
			byActor[key] = t
		}
		if _, seen := t.events[e.EventID]; !seen {
			t.events[e.EventID] = struct{}{}
			t.ordered = append(t.ordered, e.EventID)
		}
		t.last = e.Timestamp
	}

	alerts := make([]entity.AnomalyAlert, 0)
	for _, t := range byActor {
		if len(t.ordered) < threshold {
			continue
		}
		alerts = append(alerts, entity.AnomalyAlert{
			Actor:      t.actor,
			EventCount: len(t.ordered),
			EventIDs:   t.ordered,
			FirstAt:    t.first,
			LastAt:     t.last,
			Window:     window,
			Message: fmt.Sprintf("actor %s requested destruction of %d events within %s",
				t.actor.ID, len(t.ordered), window),
		})
	}

	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].EventCount != alerts[j].EventCount {
			return alerts[i].EventCount > alerts[j].EventCount
		}
		return alerts[i].Actor.ID < alerts[j].Actor.ID
	})

	for _, a := range alerts {
		s.logger.Warn("AUDIT", "Deletion anomaly detected", map[string]interface{}{
			"actor_id":    a.Actor.ID,
			"event_count": a.EventCount,
			"window":      window.String(),
		})
	}
	return alerts, nil
}
