package service

import (
	"context"

	"chat-app-be/internal/pkg/logger"
	"chat-app-be/pkg/events"
	pktNats "chat-app-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventForwarder ships events to the cross-instance bus.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	forwarder  EventForwarder
	local      map[string]pktNats.EventHandler
	logger     logger.ILogger
}

// NewConsumerService drains the in-process topic. Events go to forwarder when it is set;
// types with a local handler are handled in-process when there is no forwarder or forwarding fails.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	forwarder EventForwarder,
	local map[string]pktNats.EventHandler,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		forwarder:  forwarder,
		local:      local,
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
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := decodeEventMessage(msg.Payload)
	if err != nil {
		cs.logger.Error("Consumer", "Invalid event payload", map[string]interface{}{"uuid": msg.UUID, "error": err})
		msg.Ack()
		return
	}

	if cs.forwarder != nil {
		err := cs.forwarder.Publish(ctx, event)
		if err == nil {
			msg.Ack()
			return
		}
		cs.logger.Warn("Consumer", "Forwarding failed, handling locally", map[string]interface{}{"type": event.EventType(), "error": err})
	}

	if handler, ok := cs.local[event.EventType()]; ok {
		if err := handler(ctx, event); err != nil {
			cs.logger.Error("Consumer", "Local handler failed", map[string]interface{}{"type": event.EventType(), "error": err})
		}
	}
	msg.Ack()
}
