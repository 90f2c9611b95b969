// FILE: internal/service/consumer_service.go
package service

import (
	"context"
	"encoding/json"

	"event-deletion-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

// IConsumerService drains deletion notices from the in-process bus into the notification log
type IConsumerService interface {
	Consume(ctx context.Context) error
}

// NoticeSubscriber is satisfied by *gochannel.GoChannel
type NoticeSubscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

type consumerService struct {
	subscriber NoticeSubscriber
	topicName  string
	logger     logger.ILogger
}

func NewConsumerService(subscriber NoticeSubscriber, topicName string, log logger.ILogger) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("NOTICE", "Failed to unmarshal deletion notice", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// Ack invalid messages to prevent infinite retry
		msg.Ack()
		return
	}

	payload["message_id"] = msg.UUID
	payload["event_type"] = msg.Metadata.Get("event_type")
	cs.logger.Info("NOTICE", "Deletion notice delivered", payload)
	msg.Ack()
}
