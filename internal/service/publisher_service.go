package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chat-app-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const EventsTopic = "chat.events"

// eventMessage is the in-process wire form of a domain event.
type eventMessage struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

type IPublisherService interface {
	Publish(ctx context.Context, event events.Event) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *publisherService) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(eventMessage{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return ps.publisher.Publish(ps.topicName, msg)
}

func decodeEventMessage(payload []byte) (events.Event, error) {
	var m eventMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	if m.Type == "" {
		return nil, errors.New("event without type")
	}
	return events.New(m.Type, m.Data, m.OccurredAt), nil
}
