// Package executor runs due deletion requests after their grace period.
// Only the designated worker starts the cycle; every other instance stays idle.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"event-deletion-be/internal/apperror"
	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/pkg/logger"
	"event-deletion-be/internal/service"
	"event-deletion-be/pkg/deletion/cascade"
	"event-deletion-be/pkg/notify"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("event-deletion-be/executor")

const (
	DefaultPollInterval     = time.Minute
	DefaultReminderInterval = 5 * time.Minute
	DefaultCleanupInterval  = 24 * time.Hour
	DefaultRetention        = 90 * 24 * time.Hour

	reminder30m = 30 * time.Minute
	reminder5m  = 5 * time.Minute
)

// Store is the slice of the request store the executor drives
type Store interface {
	Get(ctx context.Context, requestID uuid.UUID) (*entity.DeletionRequest, error)
	FindDue(ctx context.Context, now time.Time) ([]*entity.DeletionRequest, error)
	FindUpcoming(ctx context.Context, within time.Duration) ([]*entity.DeletionRequest, error)
	MarkStarted(ctx context.Context, req *entity.DeletionRequest) error
	MarkCompleted(ctx context.Context, req *entity.DeletionRequest, stats *entity.DeletionStatistics, backupArtifactID string) error
	MarkFailed(ctx context.Context, req *entity.DeletionRequest, stats *entity.DeletionStatistics, backupArtifactID string, cause error) error
	MarkNotified(ctx context.Context, req *entity.DeletionRequest, kind entity.NotificationKind) error
	CleanupTerminal(ctx context.Context, retention time.Duration) (service.CleanupResult, error)
}

// Backuper is satisfied by *backup.Writer
type Backuper interface {
	Write(ctx context.Context, eventID uuid.UUID) (*entity.BackupArtifact, error)
}

// Deleter is satisfied by *cascade.Engine
type Deleter interface {
	Count(ctx context.Context, eventID uuid.UUID) (map[string]int64, error)
	Delete(ctx context.Context, eventID uuid.UUID, opts cascade.Options) (*entity.DeletionStatistics, error)
}

type Auditor interface {
	LogStarted(ctx context.Context, req *entity.DeletionRequest) error
	LogCompleted(ctx context.Context, req *entity.DeletionRequest) error
	LogFailed(ctx context.Context, req *entity.DeletionRequest, cause error) error
	LogForceDeleted(ctx context.Context, rec service.ForceDeleteRecord) error
}

// Snapshotter is satisfied by service.IEventProvider
type Snapshotter interface {
	Snapshot(ctx context.Context, eventID uuid.UUID) (*entity.EventSnapshot, error)
}

type Config struct {
	Clock            clock.Clock
	PollInterval     time.Duration
	ReminderInterval time.Duration
	CleanupInterval  time.Duration
	Retention        time.Duration
	IsPrimary        bool
}

func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = clock.WallClock
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ReminderInterval <= 0 {
		c.ReminderInterval = DefaultReminderInterval
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	return c
}

type ForceOptions struct {
	SkipBackup bool
	Reason     string
}

type ForceResult struct {
	EventID          uuid.UUID                  `json:"event_id"`
	Statistics       *entity.DeletionStatistics `json:"statistics"`
	BackupArtifactID string                     `json:"backup_artifact_id,omitempty"`
}

type Executor struct {
	cfg      Config
	store    Store
	backup   Backuper
	deleter  Deleter
	audit    Auditor
	events   Snapshotter
	notifier *notify.Guard
	logger   logger.ILogger

	mu         sync.Mutex
	processing map[uuid.UUID]struct{}
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func New(
	cfg Config,
	store Store,
	backuper Backuper,
	deleter Deleter,
	audit Auditor,
	events Snapshotter,
	notifier *notify.Guard,
	log logger.ILogger,
) *Executor {
	if notifier == nil {
		notifier = notify.NewGuard(nil, log, nil)
	}
	return &Executor{
		cfg:        cfg.withDefaults(),
		store:      store,
		backup:     backuper,
		deleter:    deleter,
		audit:      audit,
		events:     events,
		notifier:   notifier,
		logger:     log,
		processing: make(map[uuid.UUID]struct{}),
	}
}

// Start launches the poll, reminder and cleanup cycle in the background.
// It is a no-op on instances that are not the designated worker.
func (e *Executor) Start(ctx context.Context) {
	if !e.cfg.IsPrimary {
		e.logger.Info("EXECUTOR", "Not the designated worker, deletion executor disabled", nil)
		return
	}

	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	e.logger.Info("EXECUTOR", "Deletion executor started", map[string]interface{}{
		"poll_interval":     e.cfg.PollInterval.String(),
		"reminder_interval": e.cfg.ReminderInterval.String(),
		"cleanup_interval":  e.cfg.CleanupInterval.String(),
	})

	e.wg.Add(1)
	go e.cycle(ctx)
}

// Stop cancels the cycle and waits for the running pass to finish
func (e *Executor) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	e.wg.Wait()
	e.logger.Info("EXECUTOR", "Deletion executor stopped", nil)
}

// cycle runs the poll, reminder and cleanup passes from one goroutine so no two
// passes ever touch the same request at once.
func (e *Executor) cycle(ctx context.Context) {
	defer e.wg.Done()

	cleanup := func(ctx context.Context) error {
		_, err := e.RunCleanup(ctx)
		return err
	}

	// Run immediately on startup
	e.runSafely(ctx, "poll", e.Tick)
	e.runSafely(ctx, "reminders", e.RunReminders)
	e.runSafely(ctx, "cleanup", cleanup)

	pollC := e.cfg.Clock.After(e.cfg.PollInterval)
	remindC := e.cfg.Clock.After(e.cfg.ReminderInterval)
	cleanupC := e.cfg.Clock.After(e.cfg.CleanupInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-pollC:
			e.runSafely(ctx, "poll", e.Tick)
			pollC = e.cfg.Clock.After(e.cfg.PollInterval)
		case <-remindC:
			e.runSafely(ctx, "reminders", e.RunReminders)
			remindC = e.cfg.Clock.After(e.cfg.ReminderInterval)
		case <-cleanupC:
			e.runSafely(ctx, "cleanup", cleanup)
			cleanupC = e.cfg.Clock.After(e.cfg.CleanupInterval)
		}
	}
}

func (e *Executor) runSafely(ctx context.Context, name string, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("EXECUTOR", "Executor pass panicked", map[string]interface{}{
				"loop":  name,
				"panic": fmt.Sprint(r),
			})
		}
	}()

	if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Error("EXECUTOR", "Executor pass failed", map[string]interface{}{
			"loop":  name,
			"error": err.Error(),
		})
	}
}

func (e *Executor) claim(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.processing[id]; busy {
		return false
	}
	e.processing[id] = struct{}{}
	return true
}

func (e *Executor) release(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.processing, id)
}

// IsProcessing reports whether a request is currently being executed here
func (e *Executor) IsProcessing(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, busy := e.processing[id]
	return busy
}

// Tick processes every due request once, sequentially. A failing request is
// logged and the rest of the due set still runs.
func (e *Executor) Tick(ctx context.Context) error {
	due, err := e.store.FindDue(ctx, e.cfg.Clock.Now())
	if err != nil {
		return fmt.Errorf("failed to load due deletions: %w", err)
	}

	for _, req := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !e.claim(req.ID) {
			continue
		}
		func() {
			defer e.release(req.ID)
			if err := e.Process(ctx, req); err != nil {
				e.logger.Error("EXECUTOR", "Deletion request failed", map[string]interface{}{
					"request_id": req.ID.String(),
					"event_id":   req.EventID.String(),
					"error":      err.Error(),
				})
			}
		}()
	}
	return nil
}

// Process executes one request if it is still scheduled and due.
// A request cancelled after it was picked up is skipped.
func (e *Executor) Process(ctx context.Context, req *entity.DeletionRequest) error {
	current, err := e.store.Get(ctx, req.ID)
	if err != nil {
		return err
	}
	if current.Status != entity.DeletionStatusScheduled {
		e.logger.Info("EXECUTOR", "Skipping request no longer scheduled", map[string]interface{}{
			"request_id": current.ID.String(),
			"status":     string(current.Status),
		})
		return nil
	}
	if e.cfg.Clock.Now().Before(current.ExecuteAt) {
		return nil
	}
	return e.execute(ctx, current)
}

// ForceProcess runs a scheduled request now, without waiting for its grace period
func (e *Executor) ForceProcess(ctx context.Context, requestID uuid.UUID, actor entity.Actor) (*entity.DeletionRequest, error) {
	if !e.claim(requestID) {
		return nil, &apperror.InvalidStateError{
			RequestID: requestID.String(),
			Current:   entity.DeletionStatusExecuting,
			Attempted: "force process",
			Reason:    "already being processed",
		}
	}
	defer e.release(requestID)

	req, err := e.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != entity.DeletionStatusScheduled {
		return nil, &apperror.InvalidStateError{
			RequestID: req.ID.String(),
			Current:   req.Status,
			Attempted: "force process",
		}
	}

	e.logger.Warn("EXECUTOR", "Deletion forced before grace period end", map[string]interface{}{
		"request_id": req.ID.String(),
		"event_id":   req.EventID.String(),
		"actor_id":   actor.ID,
	})

	err = e.execute(ctx, req)
	return req, err
}

func (e *Executor) execute(ctx context.Context, req *entity.DeletionRequest) (err error) {
	ctx, span := tracer.Start(ctx, "deletion.execute", trace.WithAttributes(
		attribute.String("deletion.request_id", req.ID.String()),
		attribute.String("deletion.event_id", req.EventID.String()),
		attribute.Bool("deletion.skip_backup", req.SkipBackup),
	))
	defer func() { endSpan(span, err) }()

	return e.run(ctx, req)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (e *Executor) run(ctx context.Context, req *entity.DeletionRequest) error {
	if err := e.store.MarkStarted(ctx, req); err != nil {
		if errors.Is(err, apperror.ErrInvalidState) {
			e.logger.Info("EXECUTOR", "Request changed before execution, skipping", map[string]interface{}{
				"request_id": req.ID.String(),
				"error":      err.Error(),
			})
			return nil
		}
		return err
	}

	if err := e.audit.LogStarted(ctx, req); err != nil {
		return e.fail(ctx, req, nil, "", &apperror.ExecutionError{Stage: "audit", Err: err})
	}

	before, err := e.deleter.Count(ctx, req.EventID)
	if err != nil {
		return e.fail(ctx, req, nil, "", &apperror.ExecutionError{Stage: "count", Err: err})
	}

	var artifactID string
	if !req.SkipBackup {
		artifact, err := e.backup.Write(ctx, req.EventID)
		if err != nil {
			return e.fail(ctx, req, nil, "", &apperror.ExecutionError{Stage: "backup", Err: err})
		}
		artifactID = artifact.ID
		e.compareCounts("backup", req, before, artifact.Counts())
	}

	stats, err := e.deleter.Delete(ctx, req.EventID, cascade.Options{SkipBackup: req.SkipBackup})
	if err != nil {
		return e.fail(ctx, req, stats, artifactID, &apperror.ExecutionError{Stage: "cascade", Stats: stats, Err: err})
	}
	e.compareCounts("cascade", req, before, stats.Collections)

	if err := e.store.MarkCompleted(ctx, req, stats, artifactID); err != nil {
		return fmt.Errorf("deletion of event %s finished but could not be recorded: %w", req.EventID, err)
	}

	e.logger.Info("EXECUTOR", "Deletion completed", map[string]interface{}{
		"request_id":         req.ID.String(),
		"event_id":           req.EventID.String(),
		"total_records":      stats.TotalRecords,
		"backup_artifact_id": artifactID,
		"duration_ms":        stats.DurationMs,
	})

	if err := e.audit.LogCompleted(ctx, req); err != nil {
		return err
	}
	e.notify(ctx, entity.NotificationCompleted, req)
	return nil
}

func (e *Executor) fail(ctx context.Context, req *entity.DeletionRequest, stats *entity.DeletionStatistics, artifactID string, cause error) error {
	if stats == nil {
		stats = entity.NewDeletionStatistics(e.cfg.Clock.Now().UTC())
		stats.AddError(cause.Error())
		stats.Finish(e.cfg.Clock.Now().UTC())
	}

	e.logger.Error("EXECUTOR", "Deletion failed, manual cleanup required", map[string]interface{}{
		"request_id":              req.ID.String(),
		"event_id":                req.EventID.String(),
		"error":                   cause.Error(),
		"collections":             stats.Collections,
		"backup_artifact_id":      artifactID,
		"requires_manual_cleanup": true,
	})

	if err := e.store.MarkFailed(ctx, req, stats, artifactID, cause); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to record failure: %w", err))
	}
	if err := e.audit.LogFailed(ctx, req, cause); err != nil {
		return errors.Join(cause, err)
	}
	e.notify(ctx, entity.NotificationFailed, req)
	return cause
}

func (e *Executor) compareCounts(stage string, req *entity.DeletionRequest, expected, actual map[string]int64) {
	for collection, want := range expected {
		if got := actual[collection]; got != want {
			e.logger.Warn("EXECUTOR", "Record count mismatch", map[string]interface{}{
				"stage":      stage,
				"request_id": req.ID.String(),
				"collection": collection,
				"expected":   want,
				"actual":     got,
			})
		}
	}
}

// ForceDelete destroys an event immediately without a deletion request.
// Exactly one force_deleted audit entry is written, whether or not it succeeds.
func (e *Executor) ForceDelete(ctx context.Context, eventID uuid.UUID, actor entity.Actor, opts ForceOptions) (*ForceResult, error) {
	snapshot, err := e.events.Snapshot(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event %s: %w", eventID, err)
	}
	if snapshot == nil {
		return nil, apperror.NewNotFound("event", eventID.String())
	}

	e.logger.Warn("EXECUTOR", "Force deletion requested", map[string]interface{}{
		"event_id": eventID.String(),
		"actor_id": actor.ID,
		"reason":   opts.Reason,
	})

	ctx, span := tracer.Start(ctx, "deletion.force", trace.WithAttributes(
		attribute.String("deletion.event_id", eventID.String()),
		attribute.String("deletion.actor_id", actor.ID),
	))

	result := &ForceResult{EventID: eventID}
	rec := service.ForceDeleteRecord{
		EventID:    eventID,
		Event:      *snapshot,
		Actor:      actor,
		Reason:     opts.Reason,
		SkipBackup: opts.SkipBackup,
	}

	runErr := func() error {
		if !opts.SkipBackup {
			artifact, err := e.backup.Write(ctx, eventID)
			if err != nil {
				return &apperror.ExecutionError{Stage: "backup", Err: err}
			}
			result.BackupArtifactID = artifact.ID
		}
		stats, err := e.deleter.Delete(ctx, eventID, cascade.Options{SkipBackup: opts.SkipBackup})
		result.Statistics = stats
		if err != nil {
			return &apperror.ExecutionError{Stage: "cascade", Stats: stats, Err: err}
		}
		return nil
	}()

	endSpan(span, runErr)

	rec.Statistics = result.Statistics
	rec.BackupArtifactID = result.BackupArtifactID
	rec.Err = runErr

	if err := e.audit.LogForceDeleted(ctx, rec); err != nil {
		return result, errors.Join(runErr, err)
	}
	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

// RunReminders sends the 30 and 5 minute reminders, each at most once per request
func (e *Executor) RunReminders(ctx context.Context) error {
	upcoming, err := e.store.FindUpcoming(ctx, reminder30m)
	if err != nil {
		return fmt.Errorf("failed to load upcoming deletions: %w", err)
	}

	now := e.cfg.Clock.Now()
	for _, req := range upcoming {
		remaining := req.Remaining(now)
		switch {
		case remaining <= reminder5m:
			if req.Notifications.Reminder5m {
				continue
			}
			e.notify(ctx, entity.NotificationReminder5m, req)
			if !req.Notifications.Reminder30m {
				e.markNotified(ctx, req, entity.NotificationReminder30m)
			}
		case !req.Notifications.Reminder30m:
			e.notify(ctx, entity.NotificationReminder30m, req)
		}
	}
	return nil
}

// RunCleanup applies the retention policy to terminal requests
func (e *Executor) RunCleanup(ctx context.Context) (service.CleanupResult, error) {
	return e.store.CleanupTerminal(ctx, e.cfg.Retention)
}

func (e *Executor) notify(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest) {
	if e.notifier.Send(ctx, kind, req) {
		e.markNotified(ctx, req, kind)
	}
}

func (e *Executor) markNotified(ctx context.Context, req *entity.DeletionRequest, kind entity.NotificationKind) {
	if err := e.store.MarkNotified(ctx, req, kind); err != nil {
		e.logger.Warn("EXECUTOR", "Failed to record notification flag", map[string]interface{}{
			"request_id": req.ID.String(),
			"kind":       string(kind),
			"error":      err.Error(),
		})
	}
}
