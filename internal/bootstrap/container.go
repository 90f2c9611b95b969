package bootstrap

import (
	"context"
	"log"
	"time"

	"event-deletion-be/internal/config"
	"event-deletion-be/internal/controller"
	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/pkg/logger"
	"event-deletion-be/internal/pkg/mailer"
	"event-deletion-be/internal/repository/unitofwork"
	"event-deletion-be/internal/service"
	"event-deletion-be/pkg/deletion/backup"
	"event-deletion-be/pkg/deletion/cascade"
	"event-deletion-be/pkg/deletion/executor"
	"event-deletion-be/pkg/deletion/recovery"
	"event-deletion-be/pkg/deletion/registry"
	"event-deletion-be/pkg/deletion/security"
	pktNats "event-deletion-be/pkg/nats"
	"event-deletion-be/pkg/notify"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/juju/clock"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DeletionController controller.IDeletionController
	RecoveryController controller.IRecoveryController

	// Background Services (Exposed for main.go to run)
	Executor        *executor.Executor
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	closers []func()
}

// NewRecoveryService builds only what the recovery CLI needs
func NewRecoveryService(db *gorm.DB, cfg *config.Config) (*recovery.Service, logger.ILogger, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)

	storage, err := backup.NewLocalStorage(cfg.Backup.Dir)
	if err != nil {
		return nil, nil, err
	}

	auditService := service.NewAuditService(unitofwork.NewRepositoryFactory(db), auditLogger, clock.WallClock)
	return recovery.NewService(db, storage, registry.Default(), sysLogger).WithAudit(auditService), sysLogger, nil
}

// auditNotificationFailure records a failed notification and escalates when the
// audit write itself fails
func auditNotificationFailure(auditService service.IAuditService, sysLogger logger.ILogger) notify.FailureHook {
	return func(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest, err error) {
		if auditErr := auditService.LogNotificationFailed(ctx, req, kind, err); auditErr != nil {
			sysLogger.Critical("NOTIFY", "Notification failure could not be audited", map[string]interface{}{
				"kind":       string(kind),
				"request_id": req.ID.String(),
				"event_id":   req.EventID.String(),
				"error":      auditErr.Error(),
			})
		}
	}
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)
	clk := clock.WallClock
	reg := registry.Default()

	c := &Container{Logger: sysLogger}

	// 2. Domain services
	engine := cascade.NewEngine(db, reg, clk)
	eventProvider := service.NewEventProvider(db, engine)
	checker := security.NewChecker(eventProvider, clk, time.Duration(cfg.Deletion.RecentPaymentDays)*24*time.Hour)
	auditService := service.NewAuditService(uowFactory, auditLogger, clk)

	// 3. Notification channels
	dispatchers := notify.Multi{}

	// Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	dispatchers = append(dispatchers, notify.NewBusDispatcher(pubSub, notify.DefaultBusTopic, clk))
	c.ConsumerService = service.NewConsumerService(pubSub, notify.DefaultBusTopic, logger.NewIsolatedLogger("logs/notification.log"))

	// NATS
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			c.closers = append(c.closers, natsPub.Close)
			dispatchers = append(dispatchers, notify.NewNatsDispatcher(natsPub, clk))
		}
	}

	// Redis
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		dispatchers = append(dispatchers, notify.NewRedisDispatcher(rdb, notify.DefaultRedisChannel, clk))
	}

	// SMTP
	if cfg.SMTP.Host != "" {
		emailService := mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
		)
		dispatchers = append(dispatchers, notify.NewEmailDispatcher(emailService, clk))
	}

	guard := notify.NewGuard(dispatchers, sysLogger, auditNotificationFailure(auditService, sysLogger))

	deletionService := service.NewDeletionService(
		uowFactory,
		eventProvider,
		checker,
		auditService,
		guard,
		clk,
		cfg.Deletion.DefaultGraceHours,
		sysLogger,
	)

	// 4. Backup & Recovery
	storage, err := backup.NewLocalStorage(cfg.Backup.Dir)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize backup storage: %v", err)
	}
	recoveryService := recovery.NewService(db, storage, reg, sysLogger).WithAudit(auditService)
	writer := backup.NewWriter(db, storage, reg, clk).OnWrite(recoveryService.ArtifactWritten)

	// 5. Executor
	c.Executor = executor.New(
		executor.Config{
			Clock:            clk,
			PollInterval:     cfg.Deletion.PollInterval,
			ReminderInterval: cfg.Deletion.ReminderInterval,
			CleanupInterval:  cfg.Deletion.CleanupInterval,
			Retention:        time.Duration(cfg.Deletion.RetentionDays) * 24 * time.Hour,
			IsPrimary:        cfg.Deletion.IsPrimaryWorker(),
		},
		deletionService,
		writer,
		engine,
		auditService,
		eventProvider,
		guard,
		sysLogger,
	)

	// 6. Controllers
	c.DeletionController = controller.NewDeletionController(
		deletionService,
		auditService,
		c.Executor,
		controller.AnomalyPolicy{
			Window:    time.Duration(cfg.Deletion.AnomalyWindowHours) * time.Hour,
			Threshold: cfg.Deletion.AnomalyThreshold,
		},
	)
	c.RecoveryController = controller.NewRecoveryController(recoveryService)

	return c
}

// Close stops the executor and releases broker connections
func (c *Container) Close() {
	if c.Executor != nil {
		c.Executor.Stop()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
