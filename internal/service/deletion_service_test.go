package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"event-deletion-be/internal/apperror"
	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/pkg/logger"
	"event-deletion-be/internal/repository/unitofwork"
	"event-deletion-be/internal/testutil"
	"event-deletion-be/pkg/deletion/cascade"
	"event-deletion-be/pkg/deletion/registry"
	"event-deletion-be/pkg/deletion/security"
	"event-deletion-be/pkg/notify"

	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var scheduleNow = time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

var admin = entity.Actor{ID: "admin-1", Name: "Dana", Email: "dana@example.com", Role: "admin"}

type recordedNotice struct {
	kind      entity.NotificationKind
	requestID uuid.UUID
}

type recordingDispatcher struct {
	mu      sync.Mutex
	notices []recordedNotice
	err     error
}

func (d *recordingDispatcher) Notify(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, recordedNotice{kind: kind, requestID: req.ID})
	return d.err
}

func (d *recordingDispatcher) kinds() []entity.NotificationKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]entity.NotificationKind, 0, len(d.notices))
	for _, n := range d.notices {
		out = append(out, n.kind)
	}
	return out
}

// auditOutage fails to stage one audit action and passes the rest through
type auditOutage struct {
	IAuditService
	action entity.AuditAction
}

func (a *auditOutage) Stage(ctx context.Context, uow unitofwork.UnitOfWork, entry *entity.AuditEntry) error {
	if a.action != "" && entry.Action == a.action {
		return errors.New("audit store down")
	}
	return a.IAuditService.Stage(ctx, uow, entry)
}

type deletionFixture struct {
	db         *gorm.DB
	clock      *testclock.Clock
	svc        IDeletionService
	audit      IAuditService
	dispatcher *recordingDispatcher
	outage     *auditOutage
}

func newDeletionFixture(t *testing.T) *deletionFixture {
	t.Helper()

	db := testutil.NewDB(t)
	clk := testclock.NewClock(scheduleNow)
	log := logger.NewNopLogger()
	factory := unitofwork.NewRepositoryFactory(db)

	engine := cascade.NewEngine(db, registry.Default(), clk)
	provider := NewEventProvider(db, engine)
	audit := NewAuditService(factory, log, clk)
	dispatcher := &recordingDispatcher{}
	guard := notify.NewGuard(dispatcher, log, func(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest, err error) {
		_ = audit.LogNotificationFailed(ctx, req, kind, err)
	})

	outage := &auditOutage{IAuditService: audit}
	svc := NewDeletionService(factory, provider, security.NewChecker(provider, clk, 0), outage, guard, clk, 24, log)
	return &deletionFixture{db: db, clock: clk, svc: svc, audit: audit, dispatcher: dispatcher, outage: outage}
}

func TestScheduleComputesExecuteAtAndAudits(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Spring Gala"))

	req, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 0.01})
	require.NoError(t, err)

	assert.Equal(t, entity.DeletionStatusScheduled, req.Status)
	assert.True(t, scheduleNow.Add(36*time.Second).Equal(req.ExecuteAt))
	assert.Equal(t, "Spring Gala", req.Event.Name)
	assert.Equal(t, seeded.Total, req.Event.DependentCount)
	assert.True(t, req.SecurityCheck.HasActiveRegistrations)
	assert.True(t, req.SecurityCheck.RequiresApproval)
	assert.True(t, req.Notifications.Scheduled)
	assert.Equal(t, []entity.NotificationKind{entity.NotificationScheduled}, f.dispatcher.kinds())

	stored, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, stored.ExecuteAt.Equal(req.ExecuteAt))
	assert.True(t, stored.Notifications.Scheduled)

	trail, err := f.audit.AuditTrail(ctx, seeded.ID, 0)
	require.NoError(t, err)
	actions := make([]entity.AuditAction, 0, len(trail))
	for _, e := range trail {
		actions = append(actions, e.Action)
	}
	assert.ElementsMatch(t, []entity.AuditAction{entity.AuditActionSecurityChecked, entity.AuditActionScheduled}, actions)
}

func TestScheduleUsesDefaultGrace(t *testing.T) {
	f := newDeletionFixture(t)
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Default Grace"))

	req, err := f.svc.Schedule(context.Background(), ScheduleInput{EventID: seeded.ID, Initiator: admin})
	require.NoError(t, err)
	assert.Equal(t, 24.0, req.GraceHours)
	assert.True(t, scheduleNow.Add(24*time.Hour).Equal(req.ExecuteAt))
}

func TestScheduleUnknownEvent(t *testing.T) {
	f := newDeletionFixture(t)

	_, err := f.svc.Schedule(context.Background(), ScheduleInput{EventID: uuid.New(), Initiator: admin})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Empty(t, f.dispatcher.kinds())
}

func TestScheduleConflictsWhileActiveThenAllowsAfterTerminal(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Busy Event"))

	first, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)

	_, err = f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	var conflict *apperror.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID.String(), conflict.ExistingRequestID)
	assert.Equal(t, entity.DeletionStatusScheduled, conflict.ExistingStatus)

	require.NoError(t, f.svc.MarkStarted(ctx, first))
	_, err = f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, entity.DeletionStatusExecuting, conflict.ExistingStatus)

	require.NoError(t, f.svc.MarkFailed(ctx, first, nil, "", errors.New("boom")))
	second, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCancelRules(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Cancel Me"))

	req, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)

	f.clock.Advance(30 * time.Minute)
	canceller := entity.Actor{ID: "ops-2", Name: "Lee"}
	cancelled, err := f.svc.Cancel(ctx, req.ID, canceller, "wrong event")
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, "ops-2", cancelled.CancelledBy.ID)
	assert.Equal(t, "wrong event", cancelled.CancelReason)
	require.NotNil(t, cancelled.FinishedAt)
	assert.True(t, cancelled.Notifications.Cancelled)

	_, err = f.svc.Cancel(ctx, req.ID, canceller, "again")
	var stateErr *apperror.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, entity.DeletionStatusCancelled, stateErr.Current)

	_, err = f.svc.Cancel(ctx, uuid.New(), canceller, "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCancelAfterGraceElapsedFails(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Too Late"))

	req, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.svc.Cancel(ctx, req.ID, admin, "")
	var stateErr *apperror.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, entity.DeletionStatusScheduled, stateErr.Current)
	assert.Equal(t, "grace period has elapsed", stateErr.Reason)

	stored, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusScheduled, stored.Status)
}

func TestCancelWhileExecutingFails(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Running"))

	req, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)
	require.NoError(t, f.svc.MarkStarted(ctx, req))

	_, err = f.svc.Cancel(ctx, req.ID, admin, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestFindDueNeverReturnsCancelled(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()

	kept := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Kept"))
	dropped := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Dropped"))

	due, err := f.svc.Schedule(ctx, ScheduleInput{EventID: kept.ID, Initiator: admin, GraceHours: 0.5})
	require.NoError(t, err)
	cancelled, err := f.svc.Schedule(ctx, ScheduleInput{EventID: dropped.ID, Initiator: admin, GraceHours: 0.5})
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, cancelled.ID, admin, "changed my mind")
	require.NoError(t, err)

	none, err := f.svc.FindDue(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Empty(t, none)

	f.clock.Advance(31 * time.Minute)
	found, err := f.svc.FindDue(ctx, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, due.ID, found[0].ID)

	f.clock.Advance(365 * 24 * time.Hour)
	found, err = f.svc.FindDue(ctx, f.clock.Now())
	require.NoError(t, err)
	for _, r := range found {
		assert.NotEqual(t, cancelled.ID, r.ID)
	}
}

func TestFindUpcoming(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()

	soon := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Soon"))
	later := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Later"))

	soonReq, err := f.svc.Schedule(ctx, ScheduleInput{EventID: soon.ID, Initiator: admin, GraceHours: 0.25})
	require.NoError(t, err)
	_, err = f.svc.Schedule(ctx, ScheduleInput{EventID: later.ID, Initiator: admin, GraceHours: 5})
	require.NoError(t, err)

	upcoming, err := f.svc.FindUpcoming(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, soonReq.ID, upcoming[0].ID)
}

func TestRemainingTimeNeverNegative(t *testing.T) {
	f := newDeletionFixture(t)
	req := &entity.DeletionRequest{ExecuteAt: scheduleNow.Add(90*time.Minute + 5*time.Second)}

	rt := f.svc.RemainingTime(req)
	assert.Equal(t, "1h 30m", rt.Display)
	assert.False(t, rt.Expired)

	f.clock.Advance(89 * time.Minute)
	assert.Equal(t, "1m 5s", f.svc.RemainingTime(req).Display)

	f.clock.Advance(time.Minute)
	assert.Equal(t, "5s", f.svc.RemainingTime(req).Display)

	f.clock.Advance(time.Hour)
	rt = f.svc.RemainingTime(req)
	assert.Zero(t, rt.Duration)
	assert.True(t, rt.Expired)
	assert.Equal(t, "expired", rt.Display)
}

func TestMarkTransitionsAreMonotonic(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Monotonic"))

	req, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.MarkCompleted(ctx, req, nil, ""), apperror.ErrInvalidState)

	require.NoError(t, f.svc.MarkStarted(ctx, req))
	stats := entity.NewDeletionStatistics(scheduleNow)
	stats.Record("tickets", 3)
	require.NoError(t, f.svc.MarkCompleted(ctx, req, stats, "backup-1"))

	stored, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusCompleted, stored.Status)
	assert.Equal(t, "backup-1", stored.BackupArtifactID)
	require.NotNil(t, stored.Statistics)
	assert.Equal(t, int64(3), stored.Statistics.TotalRecords)
	assert.NotNil(t, stored.ExecutionStartedAt)
	assert.NotNil(t, stored.ExecutionCompletedAt)

	assert.ErrorIs(t, f.svc.MarkFailed(ctx, stored, nil, "", errors.New("late")), apperror.ErrInvalidState)
	assert.ErrorIs(t, f.svc.MarkStarted(ctx, stored), apperror.ErrInvalidState)
}

func TestTransitionDetectsConcurrentWriter(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Raced"))

	req, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)

	stale := *req
	_, err = f.svc.Cancel(ctx, req.ID, admin, "")
	require.NoError(t, err)

	err = f.svc.MarkStarted(ctx, &stale)
	var stateErr *apperror.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, entity.DeletionStatusCancelled, stateErr.Current)
}

func TestMarkStuckFailed(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Stuck"))

	req, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)

	_, err = f.svc.MarkStuckFailed(ctx, req.ID, admin, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	require.NoError(t, f.svc.MarkStarted(ctx, req))
	f.clock.Advance(time.Minute)
	failed, err := f.svc.MarkStuckFailed(ctx, req.ID, admin, "worker crashed")
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusFailed, failed.Status)
	assert.Contains(t, failed.ErrorMessage, "worker crashed")

	trail, err := f.audit.AuditTrail(ctx, seeded.ID, 1)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, entity.AuditActionFailed, trail[0].Action)
	assert.Equal(t, true, trail[0].Details["requires_manual_cleanup"])
}

func TestStatusAuditsAccess(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Watched"))

	_, err := f.svc.Status(ctx, seeded.ID, admin)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	req, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)

	viewer := entity.Actor{ID: "viewer"}
	got, err := f.svc.Status(ctx, seeded.ID, viewer)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	summary, err := f.audit.Summary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.ByAction[entity.AuditActionStatusAccessed])
}

func TestNotificationFailureIsAuditedAndDoesNotBlock(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	f.dispatcher.err = errors.New("smtp unreachable")
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Quiet"))

	req, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)
	assert.False(t, req.Notifications.Scheduled)

	summary, err := f.audit.Summary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.ByAction[entity.AuditActionNotificationFailed])
}

func TestCleanupTerminal(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	retention := 90 * 24 * time.Hour

	done := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Done"))
	pending := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Pending"))

	old, err := f.svc.Schedule(ctx, ScheduleInput{EventID: done.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, old.ID, admin, "")
	require.NoError(t, err)
	active, err := f.svc.Schedule(ctx, ScheduleInput{EventID: pending.ID, Initiator: admin, GraceHours: 24 * 365})
	require.NoError(t, err)

	f.clock.Advance(retention + time.Hour)
	res, err := f.svc.CleanupTerminal(ctx, retention)
	require.NoError(t, err)
	assert.Equal(t, CleanupResult{SoftDeleted: 1}, res)

	list, err := f.svc.ListForEvent(ctx, done.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	f.clock.Advance(retention)
	res, err = f.svc.CleanupTerminal(ctx, retention)
	require.NoError(t, err)
	assert.Equal(t, CleanupResult{Purged: 1}, res)

	_, err = f.svc.Get(ctx, old.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	stillThere, err := f.svc.Get(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusScheduled, stillThere.Status)
}

func trailActions(t *testing.T, f *deletionFixture, eventID uuid.UUID) []entity.AuditAction {
	t.Helper()
	trail, err := f.audit.AuditTrail(context.Background(), eventID, 0)
	require.NoError(t, err)
	actions := make([]entity.AuditAction, 0, len(trail))
	for _, e := range trail {
		actions = append(actions, e.Action)
	}
	return actions
}

func TestScheduleLeavesNothingBehindWhenAuditFails(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Unaudited"))

	f.outage.action = entity.AuditActionScheduled
	_, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 0.01})
	require.ErrorContains(t, err, "audit store down")

	f.clock.Advance(time.Minute)
	due, err := f.svc.FindDue(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Empty(t, due)

	requests, err := f.svc.ListForEvent(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Empty(t, requests)
	assert.NotContains(t, trailActions(t, f, seeded.ID), entity.AuditActionScheduled)
	assert.Empty(t, f.dispatcher.kinds())

	f.outage.action = ""
	req, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusScheduled, req.Status)
	assert.Contains(t, trailActions(t, f, seeded.ID), entity.AuditActionScheduled)
}

func TestCancelKeepsRequestScheduledWhenAuditFails(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Still Pending"))

	req, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)

	f.outage.action = entity.AuditActionCancelled
	_, err = f.svc.Cancel(ctx, req.ID, admin, "oops")
	require.ErrorContains(t, err, "audit store down")

	stored, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusScheduled, stored.Status)
	assert.Nil(t, stored.CancelledBy)
	assert.Nil(t, stored.FinishedAt)
	assert.NotContains(t, trailActions(t, f, seeded.ID), entity.AuditActionCancelled)
	assert.Equal(t, []entity.NotificationKind{entity.NotificationScheduled}, f.dispatcher.kinds())

	f.outage.action = ""
	cancelled, err := f.svc.Cancel(ctx, req.ID, admin, "oops")
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusCancelled, cancelled.Status)
}

func TestMarkStuckFailedKeepsExecutingWhenAuditFails(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Half Done"))

	req, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)
	require.NoError(t, f.svc.MarkStarted(ctx, req))

	f.outage.action = entity.AuditActionFailed
	_, err = f.svc.MarkStuckFailed(ctx, req.ID, admin, "worker crashed")
	require.ErrorContains(t, err, "audit store down")

	stored, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusExecuting, stored.Status)
	assert.Empty(t, stored.ErrorMessage)
	assert.NotContains(t, trailActions(t, f, seeded.ID), entity.AuditActionFailed)
}

func TestTransitionKeepsNotificationFlags(t *testing.T) {
	f := newDeletionFixture(t)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Flagged"))

	req, err := f.svc.Schedule(ctx, ScheduleInput{EventID: seeded.ID, Initiator: admin, GraceHours: 1})
	require.NoError(t, err)
	require.True(t, req.Notifications.Scheduled)

	stale := *req
	stale.Notifications = entity.NotificationFlags{}
	require.NoError(t, f.svc.MarkNotified(ctx, &stale, entity.NotificationReminder30m))
	assert.True(t, stale.Notifications.Scheduled)
	assert.True(t, stale.Notifications.Reminder30m)

	stale.Notifications = entity.NotificationFlags{}
	require.NoError(t, f.svc.MarkStarted(ctx, &stale))

	stored, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusExecuting, stored.Status)
	assert.True(t, stored.Notifications.Scheduled)
	assert.True(t, stored.Notifications.Reminder30m)
}
