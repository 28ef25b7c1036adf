package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"chat-app-be/internal/entity"
	"chat-app-be/internal/observability"
	"chat-app-be/internal/pkg/logger"
	"chat-app-be/pkg/events"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const maxBodyLength = 4000

// SendIntent is a validated request to send one message. The sender is never part of it.
type SendIntent struct {
	ReceiverID uuid.UUID
	Body       *string
	Type       entity.MessageType
	Metadata   json.RawMessage
	ClientRef  string
}

// DeliveryResult reports what happened to a persisted message.
// Delivered is false when the receiver had no live connection here, which is not an error.
type DeliveryResult struct {
	Message   *entity.Message
	Record    MessageRecord
	Delivered bool
}

// ParseSendIntent validates a client payload.
func ParseSendIntent(p SendMessagePayload) (SendIntent, error) {
	if strings.TrimSpace(p.ReceiverID) == "" {
		return SendIntent{}, newError(CodeValidation, "receiverId is required", nil)
	}
	receiverID, err := uuid.Parse(p.ReceiverID)
	if err != nil || receiverID == uuid.Nil {
		return SendIntent{}, newError(CodeValidation, "receiverId is not a valid id", err)
	}

	msgType := entity.MessageType(strings.ToLower(strings.TrimSpace(p.Type)))
	if msgType == "" {
		msgType = entity.MessageTypeText
	}
	switch msgType {
	case entity.MessageTypeText, entity.MessageTypeImage, entity.MessageTypeFile, entity.MessageTypeAudio:
	default:
		return SendIntent{}, newError(CodeValidation, "unsupported message type", nil)
	}

	body := p.Body
	if body != nil && strings.TrimSpace(*body) == "" {
		body = nil
	}
	if msgType.RequiresBody() && body == nil {
		return SendIntent{}, newError(CodeValidation, "body is required", nil)
	}
	if body != nil && len(*body) > maxBodyLength {
		return SendIntent{}, newError(CodeValidation, "body is too long", nil)
	}

	var meta json.RawMessage
	if len(p.Metadata) > 0 && string(p.Metadata) != "null" {
		if !json.Valid(p.Metadata) {
			return SendIntent{}, newError(CodeValidation, "metadata must be JSON", nil)
		}
		meta = p.Metadata
	}
	if !msgType.RequiresBody() && body == nil && meta == nil {
		return SendIntent{}, newError(CodeValidation, "metadata is required for non-text messages", nil)
	}

	return SendIntent{
		ReceiverID: receiverID,
		Body:       body,
		Type:       msgType,
		Metadata:   meta,
		ClientRef:  p.ClientRef,
	}, nil
}

// DeliveryPipeline persists a message, pushes it to the receiver and acknowledges the sender, in that order.
type DeliveryPipeline struct {
	store     MessageStore
	registry  *Registry
	transport Transport
	relay     UserRelay
	events    EventPublisher
	metrics   *observability.Metrics
	logger    logger.ILogger
	now       func() time.Time
}

func NewDeliveryPipeline(store MessageStore, registry *Registry, transport Transport, log logger.ILogger) *DeliveryPipeline {
	return &DeliveryPipeline{
		store:     store,
		registry:  registry,
		transport: transport,
		logger:    log,
		now:       time.Now,
	}
}

// Send runs the pipeline for senderID. senderConnID is the connection the intent arrived on;
// when empty (REST path) the sender's bound connection, if any, receives the ack.
func (d *DeliveryPipeline) Send(ctx context.Context, senderID uuid.UUID, senderConnID string, in SendIntent) (*DeliveryResult, error) {
	ctx, span := otel.Tracer("chat-app-be/realtime").Start(ctx, "realtime.SendMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("chat.sender_id", senderID.String()),
		attribute.String("chat.receiver_id", in.ReceiverID.String()),
	)

	msg := &entity.Message{
		SenderId:   senderID,
		ReceiverId: in.ReceiverID,
		Body:       in.Body,
		Type:       in.Type,
		Metadata:   in.Metadata,
		Status:     entity.MessageStatusSent,
		CreatedAt:  d.now().UTC().Truncate(time.Microsecond),
	}
	if err := d.store.InsertMessage(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		d.metrics.MessageRecorded(observability.ResultFailed)
		d.logger.Error("Delivery", "Failed to persist message", map[string]interface{}{
			"sender_id":   senderID,
			"receiver_id": in.ReceiverID,
			"error":       err,
		})
		return nil, newError(CodePersistenceFailure, "message could not be saved", err)
	}

	record := NewMessageRecord(msg)
	result := &DeliveryResult{Message: msg, Record: record}

	if frame, err := EncodeFrame(EventMessageReceived, record); err != nil {
		d.logger.Error("Delivery", "Failed to encode message", map[string]interface{}{"message_id": msg.Id, "error": err})
	} else {
		result.Delivered = d.deliver(msg, frame)
	}
	span.SetAttributes(attribute.Bool("chat.delivered", result.Delivered))

	if senderConnID == "" {
		senderConnID, _ = d.registry.Lookup(senderID)
	}
	if senderConnID != "" {
		ack, err := EncodeFrame(EventMessageSent, MessageAck{MessageRecord: record, ClientRef: in.ClientRef})
		if err == nil {
			if err := d.transport.Emit(senderConnID, ack); err != nil {
				d.logger.Warn("Delivery", "Sender ack not delivered", map[string]interface{}{"conn_id": senderConnID, "error": err})
			}
		}
	}

	if result.Delivered {
		d.metrics.MessageRecorded(observability.ResultDelivered)
	} else {
		d.metrics.MessageRecorded(observability.ResultOffline)
	}
	d.publish(ctx, msg)
	return result, nil
}

// deliver pushes the frame to the receiver's connection. A lookup that races a disconnect is tolerated.
func (d *DeliveryPipeline) deliver(msg *entity.Message, frame []byte) bool {
	connID, ok := d.registry.Lookup(msg.ReceiverId)
	if !ok {
		if d.relay != nil {
			if err := d.relay.RelayToUser(msg.ReceiverId, frame); err != nil {
				d.logger.Warn("Delivery", "Relay failed", map[string]interface{}{"receiver_id": msg.ReceiverId, "error": err})
			}
		}
		return false
	}
	if err := d.transport.Emit(connID, frame); err != nil {
		d.logger.Warn("Delivery", "Receiver connection gone", map[string]interface{}{
			"message_id": msg.Id,
			"conn_id":    connID,
			"error":      err,
		})
		return false
	}
	return true
}

func (d *DeliveryPipeline) publish(ctx context.Context, msg *entity.Message) {
	if d.events == nil {
		return
	}
	ev := events.New(events.TypeMessageSent, map[string]interface{}{
		"message_id":  msg.Id.String(),
		"sender_id":   msg.SenderId.String(),
		"receiver_id": msg.ReceiverId.String(),
		"type":        string(msg.Type),
	}, msg.CreatedAt)
	if err := d.events.Publish(ctx, ev); err != nil {
		d.logger.Warn("Delivery", "Failed to publish message event", map[string]interface{}{"message_id": msg.Id, "error": err})
	}
}
