// FILE: internal/service/deletion_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-deletion-be/internal/apperror"
	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/pkg/logger"
	"event-deletion-be/internal/repository/specification"
	"event-deletion-be/internal/repository/unitofwork"
	"event-deletion-be/pkg/deletion/security"
	"event-deletion-be/pkg/notify"

	"github.com/google/uuid"
	"github.com/juju/clock"
)

// DefaultGraceHours applies when neither the caller nor the config sets one
const DefaultGraceHours = 24.0

type ScheduleInput struct {
	EventID    uuid.UUID
	Initiator  entity.Actor
	GraceHours float64 // <= 0 uses the configured default
	SkipBackup bool
}

// RemainingTime is max(0, executeAt - now) with a display form
type RemainingTime struct {
	Duration time.Duration `json:"duration"`
	Seconds  int64         `json:"seconds"`
	Expired  bool          `json:"expired"`
	Display  string        `json:"display"`
}

type CleanupResult struct {
	SoftDeleted int64 `json:"soft_deleted"`
	Purged      int64 `json:"purged"`
}

type IDeletionService interface {
	Schedule(ctx context.Context, input ScheduleInput) (*entity.DeletionRequest, error)
	Cancel(ctx context.Context, requestID uuid.UUID, actor entity.Actor, reason string) (*entity.DeletionRequest, error)
	Get(ctx context.Context, requestID uuid.UUID) (*entity.DeletionRequest, error)
	// Status returns the most recent request for the event and audits the read
	Status(ctx context.Context, eventID uuid.UUID, actor entity.Actor) (*entity.DeletionRequest, error)
	ListForEvent(ctx context.Context, eventID uuid.UUID) ([]*entity.DeletionRequest, error)
	FindDue(ctx context.Context, now time.Time) ([]*entity.DeletionRequest, error)
	FindUpcoming(ctx context.Context, within time.Duration) ([]*entity.DeletionRequest, error)
	RemainingTime(req *entity.DeletionRequest) RemainingTime

	MarkStarted(ctx context.Context, req *entity.DeletionRequest) error
	MarkCompleted(ctx context.Context, req *entity.DeletionRequest, stats *entity.DeletionStatistics, backupArtifactID string) error
	MarkFailed(ctx context.Context, req *entity.DeletionRequest, stats *entity.DeletionStatistics, backupArtifactID string, cause error) error
	MarkNotified(ctx context.Context, req *entity.DeletionRequest, kind entity.NotificationKind) error
	// MarkStuckFailed lets an operator fail a request left executing by a crashed worker
	MarkStuckFailed(ctx context.Context, requestID uuid.UUID, actor entity.Actor, reason string) (*entity.DeletionRequest, error)
	CleanupTerminal(ctx context.Context, retention time.Duration) (CleanupResult, error)
}

type deletionService struct {
	uowFactory   unitofwork.RepositoryFactory
	events       IEventProvider
	checker      *security.Checker
	audit        IAuditService
	notifier     *notify.Guard
	clock        clock.Clock
	defaultGrace float64
	logger       logger.ILogger
}

func NewDeletionService(
	uowFactory unitofwork.RepositoryFactory,
	events IEventProvider,
	checker *security.Checker,
	audit IAuditService,
	notifier *notify.Guard,
	clk clock.Clock,
	defaultGraceHours float64,
	log logger.ILogger,
) IDeletionService {
	if clk == nil {
		clk = clock.WallClock
	}
	if defaultGraceHours <= 0 {
		defaultGraceHours = DefaultGraceHours
	}
	if notifier == nil {
		notifier = notify.NewGuard(nil, log, nil)
	}
	return &deletionService{
		uowFactory:   uowFactory,
		events:       events,
		checker:      checker,
		audit:        audit,
		notifier:     notifier,
		clock:        clk,
		defaultGrace: defaultGraceHours,
		logger:       log,
	}
}

func (s *deletionService) now() time.Time {
	return s.clock.Now().UTC()
}

func activeFor(eventID uuid.UUID) []specification.Specification {
	return []specification.Specification{
		specification.ByEventID{EventID: eventID},
		specification.ByStatuses{Statuses: entity.NonTerminalStatuses},
		specification.NotSoftDeleted{},
	}
}

func conflictWith(existing *entity.DeletionRequest) error {
	return &apperror.ConflictError{
		EventID:           existing.EventID.String(),
		ExistingRequestID: existing.ID.String(),
		ExistingStatus:    existing.Status,
	}
}

func (s *deletionService) Schedule(ctx context.Context, input ScheduleInput) (*entity.DeletionRequest, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.DeletionRequestRepository().FindOne(ctx, activeFor(input.EventID)...)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflictWith(existing)
	}

	snapshot, err := s.events.Snapshot(ctx, input.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event %s: %w", input.EventID, err)
	}
	if snapshot == nil {
		return nil, apperror.NewNotFound("event", input.EventID.String())
	}

	check := s.checker.Check(ctx, input.EventID)
	if err := s.audit.LogSecurityChecked(ctx, input.EventID, input.Initiator, check); err != nil {
		return nil, err
	}

	graceHours := input.GraceHours
	if graceHours <= 0 {
		graceHours = s.defaultGrace
	}
	now := s.now()

	req := &entity.DeletionRequest{
		ID:            uuid.New(),
		EventID:       input.EventID,
		Event:         *snapshot,
		ScheduledAt:   now,
		GraceHours:    graceHours,
		ExecuteAt:     entity.ComputeExecuteAt(now, graceHours),
		Status:        entity.DeletionStatusScheduled,
		InitiatedBy:   input.Initiator,
		SecurityCheck: check,
		SkipBackup:    input.SkipBackup,
	}

	entry, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.audit.Publish(entry)

	s.logger.Info("DELETION", "Deletion scheduled", map[string]interface{}{
		"request_id":        req.ID.String(),
		"event_id":          req.EventID.String(),
		"execute_at":        req.ExecuteAt,
		"requires_approval": check.RequiresApproval,
	})

	s.notify(ctx, entity.NotificationScheduled, req)

	return req, nil
}

// create re-checks for an active request inside the transaction and stages the
// "scheduled" audit entry in it; the partial unique index catches whatever
// slips between the check and the insert.
func (s *deletionService) create(ctx context.Context, req *entity.DeletionRequest) (*entity.AuditEntry, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}

	existing, err := uow.DeletionRequestRepository().FindOne(ctx, activeFor(req.EventID)...)
	if err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	if existing != nil {
		_ = uow.Rollback()
		return nil, conflictWith(existing)
	}

	if err := uow.DeletionRequestRepository().Create(ctx, req); err != nil {
		_ = uow.Rollback()
		return nil, s.lostRace(ctx, req, err)
	}

	entry := ScheduledEntry(req)
	if err := s.audit.Stage(ctx, uow, entry); err != nil {
		_ = uow.Rollback()
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, s.lostRace(ctx, req, err)
	}
	return entry, nil
}

// lostRace reports a conflict when another writer won the insert
func (s *deletionService) lostRace(ctx context.Context, req *entity.DeletionRequest, createErr error) error {
	raced, err := s.uowFactory.NewUnitOfWork(ctx).DeletionRequestRepository().FindOne(ctx, activeFor(req.EventID)...)
	if err == nil && raced != nil {
		return conflictWith(raced)
	}
	return fmt.Errorf("failed to persist deletion request: %w", createErr)
}

func (s *deletionService) Cancel(ctx context.Context, requestID uuid.UUID, actor entity.Actor, reason string) (*entity.DeletionRequest, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !req.IsCancellable(now) {
		stateErr := &apperror.InvalidStateError{
			RequestID: req.ID.String(),
			Current:   req.Status,
			Attempted: "cancel",
		}
		if req.Status == entity.DeletionStatusScheduled {
			stateErr.Reason = "grace period has elapsed"
		}
		return nil, stateErr
	}

	err = s.transition(ctx, req, entity.DeletionStatusCancelled, "cancel", func(r *entity.DeletionRequest) {
		canceller := actor
		r.CancelledBy = &canceller
		r.CancelledAt = &now
		r.CancelReason = reason
	}, CancelledEntry)
	if err != nil {
		return nil, err
	}

	s.logger.Info("DELETION", "Deletion cancelled", map[string]interface{}{
		"request_id": req.ID.String(),
		"event_id":   req.EventID.String(),
		"actor_id":   actor.ID,
	})

	s.notify(ctx, entity.NotificationCancelled, req)

	return req, nil
}

func (s *deletionService) Get(ctx context.Context, requestID uuid.UUID) (*entity.DeletionRequest, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	req, err := uow.DeletionRequestRepository().FindOne(ctx, specification.ByID{ID: requestID})
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperror.NewNotFound("deletion request", requestID.String())
	}
	return req, nil
}

func (s *deletionService) Status(ctx context.Context, eventID uuid.UUID, actor entity.Actor) (*entity.DeletionRequest, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	req, err := uow.DeletionRequestRepository().FindOne(ctx,
		specification.ByEventID{EventID: eventID},
		specification.NotSoftDeleted{},
		specification.OrderBy{Field: "scheduled_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperror.NewNotFound("deletion request for event", eventID.String())
	}

	if err := s.audit.LogStatusAccessed(ctx, req, actor); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *deletionService) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]*entity.DeletionRequest, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.DeletionRequestRepository().FindAll(ctx,
		specification.ByEventID{EventID: eventID},
		specification.NotSoftDeleted{},
		specification.OrderBy{Field: "scheduled_at", Desc: true},
	)
}

func (s *deletionService) FindDue(ctx context.Context, now time.Time) ([]*entity.DeletionRequest, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.DeletionRequestRepository().FindAll(ctx,
		specification.ByStatuses{Statuses: []entity.DeletionStatus{entity.DeletionStatusScheduled}},
		specification.NotSoftDeleted{},
		specification.DueBy{Now: now.UTC()},
		specification.OrderBy{Field: "execute_at"},
	)
}

func (s *deletionService) FindUpcoming(ctx context.Context, within time.Duration) ([]*entity.DeletionRequest, error) {
	now := s.now()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.DeletionRequestRepository().FindAll(ctx,
		specification.ByStatuses{Statuses: []entity.DeletionStatus{entity.DeletionStatusScheduled}},
		specification.NotSoftDeleted{},
		specification.ExecuteAtBetween{From: now, To: now.Add(within)},
		specification.OrderBy{Field: "execute_at"},
	)
}

func (s *deletionService) RemainingTime(req *entity.DeletionRequest) RemainingTime {
	d := req.Remaining(s.now())
	return RemainingTime{
		Duration: d,
		Seconds:  int64(d / time.Second),
		Expired:  d == 0,
		Display:  FormatRemaining(d),
	}
}

// FormatRemaining renders "Xh Ym", "Ym Zs", "Zs" or "expired"
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

func (s *deletionService) MarkStarted(ctx context.Context, req *entity.DeletionRequest) error {
	now := s.now()
	return s.transition(ctx, req, entity.DeletionStatusExecuting, "start", func(r *entity.DeletionRequest) {
		r.ExecutionStartedAt = &now
	}, nil)
}

func (s *deletionService) MarkCompleted(ctx context.Context, req *entity.DeletionRequest, stats *entity.DeletionStatistics, backupArtifactID string) error {
	now := s.now()
	return s.transition(ctx, req, entity.DeletionStatusCompleted, "complete", func(r *entity.DeletionRequest) {
		r.ExecutionCompletedAt = &now
		r.Statistics = stats
		r.BackupArtifactID = backupArtifactID
	}, nil)
}

func (s *deletionService) MarkFailed(ctx context.Context, req *entity.DeletionRequest, stats *entity.DeletionStatistics, backupArtifactID string, cause error) error {
	return s.transition(ctx, req, entity.DeletionStatusFailed, "fail", s.failWith(stats, backupArtifactID, cause), nil)
}

func (s *deletionService) failWith(stats *entity.DeletionStatistics, backupArtifactID string, cause error) func(*entity.DeletionRequest) {
	now := s.now()
	return func(r *entity.DeletionRequest) {
		r.ExecutionFailedAt = &now
		r.Statistics = stats
		r.BackupArtifactID = backupArtifactID
		if cause != nil {
			r.ErrorMessage = cause.Error()
			r.ErrorDetail = errorDetail(cause)
		}
	}
}

func errorDetail(err error) string {
	var execErr *apperror.ExecutionError
	if errors.As(err, &execErr) {
		return fmt.Sprintf("stage=%s cause=%v", execErr.Stage, execErr.Err)
	}
	return fmt.Sprintf("%T: %v", err, err)
}

func (s *deletionService) MarkNotified(ctx context.Context, req *entity.DeletionRequest, kind entity.NotificationKind) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	flags, err := uow.DeletionRequestRepository().MarkNotificationSent(ctx, req.ID, kind)
	if err != nil {
		return err
	}
	req.Notifications = flags
	return nil
}

func (s *deletionService) MarkStuckFailed(ctx context.Context, requestID uuid.UUID, actor entity.Actor, reason string) (*entity.DeletionRequest, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != entity.DeletionStatusExecuting {
		return nil, &apperror.InvalidStateError{
			RequestID: req.ID.String(),
			Current:   req.Status,
			Attempted: "mark stuck failed",
			Reason:    "only executing requests can be marked stuck",
		}
	}

	if reason == "" {
		reason = "execution interrupted"
	}
	cause := fmt.Errorf("marked failed by %s: %s", actor.ID, reason)
	err = s.transition(ctx, req, entity.DeletionStatusFailed, "fail", s.failWith(req.Statistics, req.BackupArtifactID, cause), func(r *entity.DeletionRequest) *entity.AuditEntry {
		return FailedEntry(r, cause)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("DELETION", "Stuck deletion marked failed", map[string]interface{}{
		"request_id": req.ID.String(),
		"event_id":   req.EventID.String(),
		"actor_id":   actor.ID,
	})

	s.notify(ctx, entity.NotificationFailed, req)
	return req, nil
}

// CleanupTerminal flags terminal requests older than retention and purges
// flagged ones older than twice the retention.
func (s *deletionService) CleanupTerminal(ctx context.Context, retention time.Duration) (CleanupResult, error) {
	var result CleanupResult
	if retention <= 0 {
		return result, nil
	}
	now := s.now()
	repo := s.uowFactory.NewUnitOfWork(ctx).DeletionRequestRepository()

	flagged, err := repo.MarkDeleted(ctx,
		specification.ByStatuses{Statuses: entity.TerminalStatuses},
		specification.NotSoftDeleted{},
		specification.FinishedBefore{Cutoff: now.Add(-retention)},
	)
	if err != nil {
		return result, fmt.Errorf("failed to flag expired deletion requests: %w", err)
	}
	result.SoftDeleted = flagged

	purged, err := repo.DeleteUnscoped(ctx,
		specification.SoftDeleted{},
		specification.FinishedBefore{Cutoff: now.Add(-2 * retention)},
	)
	if err != nil {
		return result, fmt.Errorf("failed to purge deletion requests: %w", err)
	}
	result.Purged = purged

	if flagged > 0 || purged > 0 {
		s.logger.Info("DELETION", "Retention cleanup finished", map[string]interface{}{
			"soft_deleted": flagged,
			"purged":       purged,
		})
	}
	return result, nil
}

// transition applies mutate to a copy, moves it to next and persists it only
// if the stored status is still the one we read.
// transition moves req to next inside one transaction. When record is set, the
// entry it builds is staged in the same transaction so the new status and its
// audit entry commit together, and is mirrored only after the commit.
func (s *deletionService) transition(
	ctx context.Context,
	req *entity.DeletionRequest,
	next entity.DeletionStatus,
	attempted string,
	mutate func(*entity.DeletionRequest),
	record func(*entity.DeletionRequest) *entity.AuditEntry,
) error {
	if !req.Status.CanTransitionTo(next) {
		return &apperror.InvalidStateError{
			RequestID: req.ID.String(),
			Current:   req.Status,
			Attempted: attempted,
		}
	}

	from := req.Status
	updated := *req
	mutate(&updated)
	updated.Status = next
	if next.IsTerminal() {
		finished := s.now()
		updated.FinishedAt = &finished
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	ok, err := uow.DeletionRequestRepository().Transition(ctx, &updated, from)
	if err != nil {
		_ = uow.Rollback()
		return fmt.Errorf("failed to %s deletion request %s: %w", attempted, req.ID, err)
	}
	if !ok {
		_ = uow.Rollback()
		current := from
		if stored, _ := s.uowFactory.NewUnitOfWork(ctx).DeletionRequestRepository().FindOne(ctx, specification.ByID{ID: req.ID}); stored != nil {
			current = stored.Status
		}
		return &apperror.InvalidStateError{
			RequestID: req.ID.String(),
			Current:   current,
			Attempted: attempted,
			Reason:    "status changed concurrently",
		}
	}

	var entry *entity.AuditEntry
	if record != nil {
		entry = record(&updated)
		if err := s.audit.Stage(ctx, uow, entry); err != nil {
			_ = uow.Rollback()
			return err
		}
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to %s deletion request %s: %w", attempted, req.ID, err)
	}
	if entry != nil {
		s.audit.Publish(entry)
	}

	*req = updated
	return nil
}

func (s *deletionService) notify(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest) {
	if !s.notifier.Send(ctx, kind, req) {
		return
	}
	if err := s.MarkNotified(ctx, req, kind); err != nil {
		s.logger.Warn("DELETION", "Failed to record notification flag", map[string]interface{}{
			"request_id": req.ID.String(),
			"kind":       string(kind),
			"error":      err.Error(),
		})
	}
}
