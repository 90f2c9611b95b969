package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Keys     APIKeys
	Deletion DeletionConfig
	Backup   BackupConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type APIKeys struct {
	JwtSecret string
}

// DeletionConfig drives the request store and the grace-period executor
type DeletionConfig struct {
	DefaultGraceHours  float64
	PollInterval       time.Duration
	ReminderInterval   time.Duration
	CleanupInterval    time.Duration
	RetentionDays      int
	RecentPaymentDays  int
	WorkerIndex        int // only worker #1 runs the executor
	AnomalyThreshold   int
	AnomalyWindowHours int
}

type BackupConfig struct {
	Dir string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/deletion-audit.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Events"),
		},
		Keys: APIKeys{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Deletion: DeletionConfig{
			DefaultGraceHours:  getEnvAsFloat("DELETION_GRACE_HOURS", 24),
			PollInterval:       time.Duration(getEnvAsInt("DELETION_POLL_INTERVAL_SECONDS", 60)) * time.Second,
			ReminderInterval:   time.Duration(getEnvAsInt("DELETION_REMINDER_INTERVAL_SECONDS", 300)) * time.Second,
			CleanupInterval:    time.Duration(getEnvAsInt("DELETION_CLEANUP_INTERVAL_HOURS", 24)) * time.Hour,
			RetentionDays:      getEnvAsInt("DELETION_RETENTION_DAYS", 90),
			RecentPaymentDays:  getEnvAsInt("DELETION_RECENT_PAYMENT_DAYS", 30),
			WorkerIndex:        getEnvAsInt("WORKER_INDEX", 1),
			AnomalyThreshold:   getEnvAsInt("DELETION_ANOMALY_THRESHOLD", 3),
			AnomalyWindowHours: getEnvAsInt("DELETION_ANOMALY_WINDOW_HOURS", 24),
		},
		Backup: BackupConfig{
			Dir: getEnv("BACKUP_DIR", "backups"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "event-deletion-be"),
		},
	}
}

// IsPrimaryWorker reports whether this process should drive the executor
func (c DeletionConfig) IsPrimaryWorker() bool {
	return c.WorkerIndex == 1
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
