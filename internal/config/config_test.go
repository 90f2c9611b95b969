package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DELETION_GRACE_HOURS", "")
	t.Setenv("WORKER_INDEX", "")

	cfg := Load()

	assert.Equal(t, 24.0, cfg.Deletion.DefaultGraceHours)
	assert.Equal(t, 60*time.Second, cfg.Deletion.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.Deletion.ReminderInterval)
	assert.Equal(t, 90, cfg.Deletion.RetentionDays)
	assert.True(t, cfg.Deletion.IsPrimaryWorker())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DELETION_GRACE_HOURS", "0.01")
	t.Setenv("DELETION_POLL_INTERVAL_SECONDS", "5")
	t.Setenv("WORKER_INDEX", "2")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("BACKUP_DIR", "/var/backups/events")

	cfg := Load()

	assert.Equal(t, 0.01, cfg.Deletion.DefaultGraceHours)
	assert.Equal(t, 5*time.Second, cfg.Deletion.PollInterval)
	assert.False(t, cfg.Deletion.IsPrimaryWorker())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/var/backups/events", cfg.Backup.Dir)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("DELETION_RETENTION_DAYS", "ninety")
	t.Setenv("DELETION_GRACE_HOURS", "soon")

	cfg := Load()

	assert.Equal(t, 90, cfg.Deletion.RetentionDays)
	assert.Equal(t, 24.0, cfg.Deletion.DefaultGraceHours)
}

func TestLoadTracing(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")

	cfg := Load()

	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "collector:4318", cfg.Tracing.Endpoint)
	assert.Equal(t, "event-deletion-be", cfg.Tracing.ServiceName)
}
