package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/model"
	"event-deletion-be/internal/pkg/logger"
	"event-deletion-be/internal/repository/unitofwork"
	"event-deletion-be/internal/service"
	"event-deletion-be/internal/testutil"
	"event-deletion-be/pkg/deletion/backup"
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

var start = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

var operator = entity.Actor{ID: "op-1", Name: "Sam", Email: "sam@example.com", Role: "admin"}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type recordingBackuper struct {
	inner Backuper
	log   *callLog
	err   error
}

func (b *recordingBackuper) Write(ctx context.Context, eventID uuid.UUID) (*entity.BackupArtifact, error) {
	b.log.add("backup")
	if b.err != nil {
		return nil, b.err
	}
	return b.inner.Write(ctx, eventID)
}

type recordingDeleter struct {
	inner Deleter
	log   *callLog
	err   error
}

func (d *recordingDeleter) Count(ctx context.Context, eventID uuid.UUID) (map[string]int64, error) {
	return d.inner.Count(ctx, eventID)
}

func (d *recordingDeleter) Delete(ctx context.Context, eventID uuid.UUID, opts cascade.Options) (*entity.DeletionStatistics, error) {
	d.log.add("delete")
	if d.err != nil {
		stats := entity.NewDeletionStatistics(start)
		stats.Record("check_ins", 2)
		stats.AddError(d.err.Error())
		return stats, d.err
	}
	return d.inner.Delete(ctx, eventID, opts)
}

type countingDispatcher struct {
	mu    sync.Mutex
	kinds []entity.NotificationKind
}

func (d *countingDispatcher) Notify(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kinds = append(d.kinds, kind)
	return nil
}

func (d *countingDispatcher) sent() []entity.NotificationKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]entity.NotificationKind(nil), d.kinds...)
}

// startFailingAuditor fails the "started" entry while startErr is set
type startFailingAuditor struct {
	Auditor
	startErr error
}

func (a *startFailingAuditor) LogStarted(ctx context.Context, req *entity.DeletionRequest) error {
	if a.startErr != nil {
		return a.startErr
	}
	return a.Auditor.LogStarted(ctx, req)
}

type fixture struct {
	db         *gorm.DB
	clock      *testclock.Clock
	store      service.IDeletionService
	audit      service.IAuditService
	auditor    *startFailingAuditor
	storage    *backup.LocalStorage
	backuper   *recordingBackuper
	deleter    *recordingDeleter
	calls      *callLog
	dispatcher *countingDispatcher
	exec       *Executor
}

func newFixture(t *testing.T, primary bool) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	clk := testclock.NewClock(start)
	log := logger.NewNopLogger()
	factory := unitofwork.NewRepositoryFactory(db)
	reg := registry.Default()

	storage, err := backup.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	engine := cascade.NewEngine(db, reg, clk)
	provider := service.NewEventProvider(db, engine)
	audit := service.NewAuditService(factory, log, clk)
	dispatcher := &countingDispatcher{}
	guard := notify.NewGuard(dispatcher, log, nil)
	store := service.NewDeletionService(factory, provider, security.NewChecker(provider, clk, 0), audit, guard, clk, 24, log)

	calls := &callLog{}
	backuper := &recordingBackuper{inner: backup.NewWriter(db, storage, reg, clk), log: calls}
	deleter := &recordingDeleter{inner: engine, log: calls}

	auditor := &startFailingAuditor{Auditor: audit}
	exec := New(Config{Clock: clk, IsPrimary: primary}, store, backuper, deleter, auditor, provider, guard, log)
	t.Cleanup(exec.Stop)

	return &fixture{
		db: db, clock: clk, store: store, audit: audit, auditor: auditor, storage: storage,
		backuper: backuper, deleter: deleter, calls: calls, dispatcher: dispatcher, exec: exec,
	}
}

func (f *fixture) schedule(t *testing.T, eventID uuid.UUID, graceHours float64, skipBackup bool) *entity.DeletionRequest {
	t.Helper()
	req, err := f.store.Schedule(context.Background(), service.ScheduleInput{
		EventID: eventID, Initiator: operator, GraceHours: graceHours, SkipBackup: skipBackup,
	})
	require.NoError(t, err)
	return req
}

func (f *fixture) actions(t *testing.T, eventID uuid.UUID) []entity.AuditAction {
	t.Helper()
	trail, err := f.audit.AuditTrail(context.Background(), eventID, 0)
	require.NoError(t, err)
	out := make([]entity.AuditAction, 0, len(trail))
	for _, e := range trail {
		out = append(out, e.Action)
	}
	return out
}

func TestTickExecutesDueRequestWithBackupFirst(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Winter Market"))
	req := f.schedule(t, seeded.ID, 0.5, false)

	require.NoError(t, f.exec.Tick(ctx))
	assert.Empty(t, f.calls.list())

	f.clock.Advance(30 * time.Minute)
	require.NoError(t, f.exec.Tick(ctx))
	assert.Equal(t, []string{"backup", "delete"}, f.calls.list())

	done, err := f.store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusCompleted, done.Status)
	require.NotNil(t, done.Statistics)
	assert.Equal(t, seeded.Total, done.Statistics.TotalRecords)
	assert.True(t, done.Notifications.Completed)
	require.NotEmpty(t, done.BackupArtifactID)

	artifact, err := backup.Load(ctx, f.storage, done.BackupArtifactID)
	require.NoError(t, err)
	assert.Equal(t, seeded.Counts, artifact.Counts())

	assert.Zero(t, testutil.CountWhere(t, f.db, "events", "id", seeded.ID))
	assert.Contains(t, f.actions(t, seeded.ID), entity.AuditActionStarted)
	assert.Contains(t, f.actions(t, seeded.ID), entity.AuditActionCompleted)
	assert.False(t, f.exec.IsProcessing(req.ID))

	require.NoError(t, f.exec.Tick(ctx))
	assert.Len(t, f.calls.list(), 2)
}

func TestSkipBackupRunsCascadeOnly(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("No Backup"))
	req := f.schedule(t, seeded.ID, 0.1, true)

	f.clock.Advance(time.Hour)
	require.NoError(t, f.exec.Tick(ctx))
	assert.Equal(t, []string{"delete"}, f.calls.list())

	done, err := f.store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusCompleted, done.Status)
	assert.Empty(t, done.BackupArtifactID)

	objects, err := f.storage.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestCascadeFailureMarksFailedAndContinues(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	broken := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Broken"))
	brokenReq := f.schedule(t, broken.ID, 0.1, false)

	f.deleter.err = errors.New("lock timeout")
	f.clock.Advance(time.Hour)
	require.NoError(t, f.exec.Tick(ctx))

	failed, err := f.store.Get(ctx, brokenReq.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusFailed, failed.Status)
	assert.Contains(t, failed.ErrorMessage, "lock timeout")
	assert.Contains(t, failed.ErrorDetail, "stage=cascade")
	require.NotNil(t, failed.Statistics)
	assert.Equal(t, int64(2), failed.Statistics.Collections["check_ins"])
	assert.NotEmpty(t, failed.BackupArtifactID)
	assert.NotNil(t, failed.ExecutionFailedAt)
	assert.True(t, failed.Notifications.Failed)

	trail, err := f.audit.AuditTrail(ctx, broken.ID, 0)
	require.NoError(t, err)
	var failedEntry *entity.AuditEntry
	for _, e := range trail {
		if e.Action == entity.AuditActionFailed {
			failedEntry = e
		}
	}
	require.NotNil(t, failedEntry)
	assert.Equal(t, true, failedEntry.Details["requires_manual_cleanup"])

	f.deleter.err = nil
	healthy := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Healthy"))
	healthyReq := f.schedule(t, healthy.ID, 0.1, false)
	f.clock.Advance(time.Hour)
	require.NoError(t, f.exec.Tick(ctx))

	done, err := f.store.Get(ctx, healthyReq.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusCompleted, done.Status)

	stillFailed, err := f.store.Get(ctx, brokenReq.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusFailed, stillFailed.Status)
}

func TestBackupFailureNeverDeletes(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Unsafe"))
	req := f.schedule(t, seeded.ID, 0.1, false)

	f.backuper.err = errors.New("disk full")
	f.clock.Advance(time.Hour)
	require.NoError(t, f.exec.Tick(ctx))

	assert.Equal(t, []string{"backup"}, f.calls.list())
	failed, err := f.store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusFailed, failed.Status)
	assert.Contains(t, failed.ErrorDetail, "stage=backup")
	assert.Equal(t, int64(1), testutil.CountWhere(t, f.db, "events", "id", seeded.ID))
}

func TestStartedAuditFailureStopsBeforeBackup(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Unrecorded"))
	req := f.schedule(t, seeded.ID, 0.1, false)

	f.auditor.startErr = errors.New("audit store down")
	f.clock.Advance(time.Hour)
	require.NoError(t, f.exec.Tick(ctx))

	failed, err := f.store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusFailed, failed.Status)
	assert.Contains(t, failed.ErrorDetail, "stage=audit")
	assert.Contains(t, failed.ErrorMessage, "audit store down")
	assert.Empty(t, failed.BackupArtifactID)
	assert.Empty(t, f.calls.list())

	assert.Equal(t, int64(1), testutil.CountWhere(t, f.db, "events", "id", seeded.ID))
	assert.Contains(t, f.actions(t, seeded.ID), entity.AuditActionFailed)
	assert.NotContains(t, f.actions(t, seeded.ID), entity.AuditActionStarted)

	objects, err := f.storage.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestProcessSkipsCancelledRequest(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Spared"))
	req := f.schedule(t, seeded.ID, 0.5, false)

	picked := *req
	_, err := f.store.Cancel(ctx, req.ID, operator, "keep it")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	require.NoError(t, f.exec.Process(ctx, &picked))
	assert.Empty(t, f.calls.list())

	stored, err := f.store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusCancelled, stored.Status)
	assert.Equal(t, int64(1), testutil.CountWhere(t, f.db, "events", "id", seeded.ID))
}

func TestStartRunsDueRequestAfterShortGrace(t *testing.T) {
	f := newFixture(t, true)
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Quick"))
	req := f.schedule(t, seeded.ID, 0.01, false)

	f.exec.Start(context.Background())
	require.NoError(t, f.clock.WaitAdvance(DefaultPollInterval, 5*time.Second, 3))

	require.Eventually(t, func() bool {
		stored, err := f.store.Get(context.Background(), req.ID)
		return err == nil && stored.Status == entity.DeletionStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	f.exec.Stop()

	done, err := f.store.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.Total, done.Statistics.TotalRecords)
}

func TestStartIsNoopWhenNotPrimary(t *testing.T) {
	f := newFixture(t, false)
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Idle"))
	req := f.schedule(t, seeded.ID, 0.01, false)

	f.exec.Start(context.Background())
	f.clock.Advance(time.Hour)
	f.exec.Stop()

	stored, err := f.store.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusScheduled, stored.Status)
	assert.Empty(t, f.calls.list())
}

func TestClaimPreventsReentry(t *testing.T) {
	f := newFixture(t, true)
	id := uuid.New()

	require.True(t, f.exec.claim(id))
	assert.False(t, f.exec.claim(id))
	assert.True(t, f.exec.IsProcessing(id))

	_, err := f.exec.ForceProcess(context.Background(), id, operator)
	assert.Error(t, err)

	f.exec.release(id)
	assert.False(t, f.exec.IsProcessing(id))
}

func TestForceProcessSkipsGrace(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Urgent"))
	req := f.schedule(t, seeded.ID, 48, false)

	done, err := f.exec.ForceProcess(ctx, req.ID, operator)
	require.NoError(t, err)
	assert.Equal(t, entity.DeletionStatusCompleted, done.Status)
	assert.Equal(t, []string{"backup", "delete"}, f.calls.list())

	_, err = f.exec.ForceProcess(ctx, req.ID, operator)
	assert.Error(t, err)
}

func TestForceDeleteWritesOneAuditEntryAndNoRequest(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Gone Now"))

	result, err := f.exec.ForceDelete(ctx, seeded.ID, operator, ForceOptions{Reason: "legal hold lifted"})
	require.NoError(t, err)
	assert.Equal(t, seeded.Total, result.Statistics.TotalRecords)
	assert.NotEmpty(t, result.BackupArtifactID)

	trail, err := f.audit.AuditTrail(ctx, seeded.ID, 0)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, entity.AuditActionForceDeleted, trail[0].Action)
	assert.Equal(t, true, trail[0].Details["bypass"])
	assert.Equal(t, entity.AuditSeverityCritical, trail[0].Severity)

	var requests int64
	require.NoError(t, f.db.Model(&model.DeletionRequest{}).Count(&requests).Error)
	assert.Zero(t, requests)
	assert.Zero(t, testutil.CountWhere(t, f.db, "events", "id", seeded.ID))

	_, err = f.exec.ForceDelete(ctx, uuid.New(), operator, ForceOptions{})
	assert.Error(t, err)
}

func TestRunRemindersSendsEachOnce(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Reminded"))
	req := f.schedule(t, seeded.ID, 0.4, false)

	require.NoError(t, f.exec.RunReminders(ctx))
	require.NoError(t, f.exec.RunReminders(ctx))

	f.clock.Advance(20 * time.Minute)
	require.NoError(t, f.exec.RunReminders(ctx))
	require.NoError(t, f.exec.RunReminders(ctx))

	assert.Equal(t, []entity.NotificationKind{
		entity.NotificationScheduled,
		entity.NotificationReminder30m,
		entity.NotificationReminder5m,
	}, f.dispatcher.sent())

	stored, err := f.store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, stored.Notifications.Reminder30m)
	assert.True(t, stored.Notifications.Reminder5m)
}

func TestRunRemindersLateStartMarksBoth(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Late"))
	req := f.schedule(t, seeded.ID, 0.05, false)

	require.NoError(t, f.exec.RunReminders(ctx))
	assert.Equal(t, []entity.NotificationKind{entity.NotificationScheduled, entity.NotificationReminder5m}, f.dispatcher.sent())

	stored, err := f.store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, stored.Notifications.Reminder30m)
}

func TestRunCleanupUsesRetention(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	seeded := testutil.SeedEvent(t, f.db, testutil.DefaultSeed("Old"))
	req := f.schedule(t, seeded.ID, 1, false)
	_, err := f.store.Cancel(ctx, req.ID, operator, "")
	require.NoError(t, err)

	res, err := f.exec.RunCleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.SoftDeleted)

	f.clock.Advance(DefaultRetention + time.Hour)
	res, err = f.exec.RunCleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.SoftDeleted)
}
