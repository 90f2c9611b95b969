package service

import (
	"context"
	"testing"
	"time"

	"event-deletion-be/internal/entity"
	"event-deletion-be/internal/testutil"
	"event-deletion-be/pkg/notify"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerLogsBusNotices(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &testutil.RecordingLogger{}
	require.NoError(t, NewConsumerService(pubSub, notify.DefaultBusTopic, rec).Consume(ctx))

	now := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	req := &entity.DeletionRequest{
		ID:          uuid.New(),
		EventID:     uuid.New(),
		ScheduledAt: now,
		ExecuteAt:   now.Add(time.Hour),
		Status:      entity.DeletionStatusScheduled,
	}
	require.NoError(t, notify.NewBusDispatcher(pubSub, "", testclock.NewClock(now)).Notify(ctx, entity.NotificationScheduled, req))

	require.Eventually(t, func() bool {
		return rec.Has("info", "Deletion notice delivered")
	}, 5*time.Second, 10*time.Millisecond)
}

func TestConsumerAcksMalformedNotices(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &testutil.RecordingLogger{}
	require.NoError(t, NewConsumerService(pubSub, notify.DefaultBusTopic, rec).Consume(ctx))

	require.NoError(t, pubSub.Publish(notify.DefaultBusTopic, message.NewMessage(watermill.NewUUID(), []byte("not json"))))

	require.Eventually(t, func() bool {
		return rec.Has("error", "Failed to unmarshal deletion notice")
	}, 5*time.Second, 10*time.Millisecond)
	assert.False(t, rec.Has("info", "Deletion notice delivered"))
}
