package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/pkg/mailer"
	"event-deletion-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/juju/clock"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel carries deletion notices to every API instance
const DefaultRedisChannel = "deletion_events"

// DefaultBusTopic is the in-process watermill topic for deletion notices
const DefaultBusTopic = "deletion.notices"

// EventPublisher is satisfied by *nats.Publisher
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// NatsDispatcher publishes events.EVENT_DELETION_<KIND> on JetStream
type NatsDispatcher struct {
	publisher EventPublisher
	clock     clock.Clock
}

func NewNatsDispatcher(publisher EventPublisher, clk clock.Clock) *NatsDispatcher {
	return &NatsDispatcher{publisher: publisher, clock: clk}
}

func (d *NatsDispatcher) Notify(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest) error {
	now := d.clock.Now()
	return d.publisher.Publish(ctx, events.NewDeletionEvent(string(kind), Payload(kind, req, now), now))
}

// RedisPublisher is satisfied by *redis.Client
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisDispatcher publishes JSON notices on a pub/sub channel
type RedisDispatcher struct {
	rdb     RedisPublisher
	channel string
	clock   clock.Clock
}

func NewRedisDispatcher(rdb RedisPublisher, channel string, clk clock.Clock) *RedisDispatcher {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisDispatcher{rdb: rdb, channel: channel, clock: clk}
}

func (d *RedisDispatcher) Notify(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest) error {
	data, err := json.Marshal(map[string]interface{}{
		"type": events.DeletionEventType(string(kind)),
		"data": Payload(kind, req, d.clock.Now()),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal redis notice: %w", err)
	}
	if err := d.rdb.Publish(ctx, d.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis channel %s: %w", d.channel, err)
	}
	return nil
}

// BusDispatcher publishes on a watermill publisher, usually the in-process gochannel
type BusDispatcher struct {
	publisher message.Publisher
	topic     string
	clock     clock.Clock
}

func NewBusDispatcher(publisher message.Publisher, topic string, clk clock.Clock) *BusDispatcher {
	if topic == "" {
		topic = DefaultBusTopic
	}
	return &BusDispatcher{publisher: publisher, topic: topic, clock: clk}
}

func (d *BusDispatcher) Notify(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest) error {
	data, err := json.Marshal(Payload(kind, req, d.clock.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal bus notice: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("event_type", events.DeletionEventType(string(kind)))
	msg.SetContext(ctx)

	return d.publisher.Publish(d.topic, msg)
}

// EmailDispatcher mails the initiator of the request
type EmailDispatcher struct {
	mailer mailer.IEmailService
	clock  clock.Clock
}

func NewEmailDispatcher(m mailer.IEmailService, clk clock.Clock) *EmailDispatcher {
	return &EmailDispatcher{mailer: m, clock: clk}
}

func (d *EmailDispatcher) Notify(ctx context.Context, kind entity.NotificationKind, req *entity.DeletionRequest) error {
	to := req.InitiatedBy.Email
	if to == "" {
		return nil
	}
	subject, heading, body := renderEmail(kind, req, d.clock)
	return d.mailer.SendDeletionNotice(to, subject, heading, body)
}

func renderEmail(kind entity.NotificationKind, req *entity.DeletionRequest, clk clock.Clock) (subject, heading, body string) {
	name := req.Event.Name
	switch kind {
	case entity.NotificationScheduled:
		return fmt.Sprintf("Deletion scheduled: %s", name),
			"Event deletion scheduled",
			fmt.Sprintf("%s will be permanently deleted at %s UTC. You can cancel until then.", name, req.ExecuteAt.UTC().Format("2006-01-02 15:04"))
	case entity.NotificationReminder30m, entity.NotificationReminder5m:
		left := req.Remaining(clk.Now()).Round(time.Minute)
		return fmt.Sprintf("Reminder: %s will be deleted soon", name),
			"Deletion is about to run",
			fmt.Sprintf("%s will be permanently deleted in about %s.", name, left)
	case entity.NotificationCompleted:
		var total int64
		if req.Statistics != nil {
			total = req.Statistics.TotalRecords
		}
		return fmt.Sprintf("Deletion completed: %s", name),
			"Event deleted",
			fmt.Sprintf("%s and %d dependent records were deleted. Backup: %s.", name, total, orNone(req.BackupArtifactID))
	case entity.NotificationFailed:
		return fmt.Sprintf("Deletion failed: %s", name),
			"Event deletion failed",
			fmt.Sprintf("Deleting %s failed and needs manual cleanup: %s", name, req.ErrorMessage)
	case entity.NotificationCancelled:
		return fmt.Sprintf("Deletion cancelled: %s", name),
			"Event deletion cancelled",
			fmt.Sprintf("The scheduled deletion of %s was cancelled. Reason: %s", name, orNone(req.CancelReason))
	}
	return fmt.Sprintf("Deletion update: %s", name), "Deletion update", fmt.Sprintf("%s: %s", name, kind)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
