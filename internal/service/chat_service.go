package service

import (
	"context"
	"errors"
	"time"

	"chat-app-be/internal/dto"
	"chat-app-be/internal/entity"
	"chat-app-be/internal/pkg/logger"
	"chat-app-be/internal/realtime"
	"chat-app-be/internal/repository/specification"
	"chat-app-be/internal/repository/unitofwork"
	"chat-app-be/pkg/events"

	"github.com/google/uuid"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// MessageSender hands REST-originated messages to the realtime delivery pipeline.
type MessageSender interface {
	SendMessage(ctx context.Context, senderID uuid.UUID, in realtime.SendIntent) (*realtime.DeliveryResult, error)
}

type IChatService interface {
	OnlineUsers(ctx context.Context, callerID uuid.UUID) ([]*dto.UserResponse, error)
	History(ctx context.Context, callerID, partnerID uuid.UUID, limit int, before *time.Time) ([]*dto.MessageResponse, error)
	RecentChats(ctx context.Context, callerID uuid.UUID) ([]*dto.RecentChatResponse, error)
	OpenSession(ctx context.Context, callerID, partnerID uuid.UUID) (*dto.SessionResponse, error)
	SendMessage(ctx context.Context, callerID uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	UpdateStatus(ctx context.Context, callerID, messageID uuid.UUID, status string) (*dto.MessageResponse, error)
	DeleteMessage(ctx context.Context, callerID, messageID uuid.UUID) error
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	sender     MessageSender
	events     realtime.EventPublisher
	logger     logger.ILogger
	now        func() time.Time
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	sender MessageSender,
	eventPublisher realtime.EventPublisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		sender:     sender,
		events:     eventPublisher,
		logger:     log,
		now:        time.Now,
	}
}

func toMessageResponse(m *entity.Message) dto.MessageResponse {
	return dto.MessageResponse{
		Id:          m.Id,
		SenderId:    m.SenderId,
		ReceiverId:  m.ReceiverId,
		Body:        m.Body,
		Type:        string(m.Type),
		Metadata:    m.Metadata,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
		DeliveredAt: m.DeliveredAt,
		ReadAt:      m.ReadAt,
	}
}

func (s *chatService) OnlineUsers(ctx context.Context, callerID uuid.UUID) ([]*dto.UserResponse, error) {
	rows, err := s.uowFactory.NewUnitOfWork(ctx).PresenceRepository().FindOnline(ctx, callerID)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.UserResponse, 0, len(rows))
	for _, row := range rows {
		r := toUserResponse(row.User, row.Presence)
		res = append(res, &r)
	}
	return res, nil
}

func clampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

func (s *chatService) History(ctx context.Context, callerID, partnerID uuid.UUID, limit int, before *time.Time) ([]*dto.MessageResponse, error) {
	msgs, err := s.uowFactory.NewUnitOfWork(ctx).MessageRepository().
		FindConversation(ctx, callerID, partnerID, clampHistoryLimit(limit), before)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		r := toMessageResponse(m)
		res = append(res, &r)
	}
	return res, nil
}

func (s *chatService) RecentChats(ctx context.Context, callerID uuid.UUID) ([]*dto.RecentChatResponse, error) {
	chats, err := s.uowFactory.NewUnitOfWork(ctx).MessageRepository().FindRecentChats(ctx, callerID)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.RecentChatResponse, 0, len(chats))
	for _, c := range chats {
		res = append(res, &dto.RecentChatResponse{
			PartnerId:       c.PartnerId,
			PartnerName:     c.PartnerName,
			LastMessage:     c.LastMessage,
			LastMessageType: string(c.LastMessageType),
			LastMessageAt:   c.LastMessageAt,
			UnreadCount:     c.UnreadCount,
			PartnerOnline:   c.PartnerOnline,
			PartnerLastSeen: c.PartnerLastSeen,
		})
	}
	return res, nil
}

// OpenSession returns the conversation id shared with partnerID. The id is derived from the pair,
// so opening it again, from either side, yields the same session.
func (s *chatService) OpenSession(ctx context.Context, callerID, partnerID uuid.UUID) (*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	partner, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: partnerID})
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, ErrUserNotFound
	}
	statuses, err := uow.PresenceRepository().FindByUserIDs(ctx, []uuid.UUID{partnerID})
	if err != nil {
		return nil, err
	}

	return &dto.SessionResponse{
		SessionId: realtime.ConversationID(callerID, partnerID),
		Partner:   toUserResponse(partner, statuses[partnerID]),
	}, nil
}

func (s *chatService) SendMessage(ctx context.Context, callerID uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	intent, err := realtime.ParseSendIntent(realtime.SendMessagePayload{
		ReceiverID: req.ReceiverId,
		Body:       req.Body,
		Type:       req.Type,
		Metadata:   req.Metadata,
	})
	if err != nil {
		var rtErr *realtime.Error
		if errors.As(err, &rtErr) {
			return nil, &ValidationError{Message: rtErr.Message}
		}
		return nil, err
	}

	receiver, err := s.uowFactory.NewUnitOfWork(ctx).UserRepository().FindOne(ctx, specification.ByID{ID: intent.ReceiverID})
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, ErrUserNotFound
	}

	result, err := s.sender.SendMessage(ctx, callerID, intent)
	if err != nil {
		return nil, err
	}
	return &dto.SendMessageResponse{
		Message:   toMessageResponse(result.Message),
		Delivered: result.Delivered,
	}, nil
}

func (s *chatService) UpdateStatus(ctx context.Context, callerID, messageID uuid.UUID, status string) (*dto.MessageResponse, error) {
	target := entity.MessageStatus(status)
	if !target.Valid() || target == entity.MessageStatusSent {
		return nil, &ValidationError{Message: "status must be delivered or read"}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	msg, err := uow.MessageRepository().FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	// only the receiver acknowledges a message
	if msg.ReceiverId != callerID {
		return nil, ErrForbidden
	}
	if !entity.CanTransition(msg.Status, target) {
		return nil, ErrInvalidStatusTransition
	}

	at := s.now()
	changed, err := uow.MessageRepository().UpdateStatus(ctx, messageID, target, at)
	if err != nil {
		return nil, err
	}
	if !changed {
		// a concurrent update got there first
		return nil, ErrInvalidStatusTransition
	}

	msg.Status = target
	switch target {
	case entity.MessageStatusDelivered:
		msg.DeliveredAt = &at
	case entity.MessageStatusRead:
		msg.ReadAt = &at
		if msg.DeliveredAt == nil {
			msg.DeliveredAt = &at
		}
	}

	if s.events != nil {
		event := events.New(events.TypeMessageStatusChanged, map[string]interface{}{
			"message_id":  msg.Id.String(),
			"sender_id":   msg.SenderId.String(),
			"receiver_id": msg.ReceiverId.String(),
			"status":      string(target),
			"at":          at.UTC().Format(time.RFC3339Nano),
		}, at)
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn("ChatService", "Failed to publish status change", map[string]interface{}{"message_id": msg.Id, "error": err})
		}
	}

	res := toMessageResponse(msg)
	return &res, nil
}

func (s *chatService) DeleteMessage(ctx context.Context, callerID, messageID uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	msg, err := uow.MessageRepository().FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.SenderId != callerID {
		return ErrForbidden
	}
	return uow.MessageRepository().Delete(ctx, messageID)
}
