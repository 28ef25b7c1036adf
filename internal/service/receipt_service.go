package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-app-be/internal/pkg/logger"
	"chat-app-be/internal/realtime"
	"chat-app-be/pkg/events"
	pktNats "chat-app-be/pkg/nats"

	"github.com/google/uuid"
)

const ReceiptDurable = "receipt-worker"

// StatusNotifier pushes a status change to a sender's live socket.
type StatusNotifier interface {
	NotifyStatus(senderID uuid.UUID, payload realtime.StatusChangedPayload) bool
}

// ReceiptService turns MESSAGE_STATUS_CHANGED events into message_status_changed frames for the sender.
type ReceiptService struct {
	notifier StatusNotifier
	logger   logger.ILogger
}

func NewReceiptService(notifier StatusNotifier, log logger.ILogger) *ReceiptService {
	return &ReceiptService{notifier: notifier, logger: log}
}

// Start attaches the durable receipt consumer.
func (s *ReceiptService) Start(ctx context.Context, sub *pktNats.Subscriber) error {
	return sub.Subscribe(ctx, pktNats.Subject(events.TypeMessageStatusChanged), ReceiptDurable, s.Handle)
}

// Handle never asks for redelivery: a malformed receipt stays malformed and a missed one is
// recoverable from history.
func (s *ReceiptService) Handle(ctx context.Context, event events.Event) error {
	senderID, payload, err := parseStatusEvent(event)
	if err != nil {
		s.logger.Warn("Receipts", "Dropping malformed status event", map[string]interface{}{"error": err})
		return nil
	}

	delivered := s.notifier.NotifyStatus(senderID, payload)
	s.logger.Debug("Receipts", "Status change routed", map[string]interface{}{
		"message_id": payload.MessageID,
		"status":     payload.Status,
		"local":      delivered,
	})
	return nil
}

func parseStatusEvent(event events.Event) (uuid.UUID, realtime.StatusChangedPayload, error) {
	data := event.Payload()
	str := func(key string) string {
		v, _ := data[key].(string)
		return v
	}

	messageID, err := uuid.Parse(str("message_id"))
	if err != nil {
		return uuid.Nil, realtime.StatusChangedPayload{}, fmt.Errorf("message_id: %w", err)
	}
	senderID, err := uuid.Parse(str("sender_id"))
	if err != nil {
		return uuid.Nil, realtime.StatusChangedPayload{}, fmt.Errorf("sender_id: %w", err)
	}
	receiverID, err := uuid.Parse(str("receiver_id"))
	if err != nil {
		return uuid.Nil, realtime.StatusChangedPayload{}, fmt.Errorf("receiver_id: %w", err)
	}
	status := str("status")
	if status == "" {
		return uuid.Nil, realtime.StatusChangedPayload{}, errors.New("status missing")
	}

	at := event.Timestamp()
	if raw := str("at"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			at = parsed
		}
	}

	return senderID, realtime.StatusChangedPayload{
		MessageID:  messageID,
		ReceiverId: receiverID,
		Status:     status,
		At:         at,
	}, nil
}
