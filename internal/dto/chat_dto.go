package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SendMessageRequest struct {
	ReceiverId string          `json:"receiver_id" validate:"required,uuid"`
	Body       *string         `json:"body"`
	Type       string          `json:"type" validate:"omitempty,oneof=text image file audio"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

type MessageResponse struct {
	Id          uuid.UUID       `json:"id"`
	SenderId    uuid.UUID       `json:"sender_id"`
	ReceiverId  uuid.UUID       `json:"receiver_id"`
	Body        *string         `json:"body"`
	Type        string          `json:"type"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
	ReadAt      *time.Time      `json:"read_at,omitempty"`
}

type SendMessageResponse struct {
	Message   MessageResponse `json:"message"`
	Delivered bool            `json:"delivered"`
}

type UpdateMessageStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=delivered read"`
}

type RecentChatResponse struct {
	PartnerId       uuid.UUID  `json:"partner_id"`
	PartnerName     string     `json:"partner_name"`
	LastMessage     *string    `json:"last_message"`
	LastMessageType string     `json:"last_message_type"`
	LastMessageAt   time.Time  `json:"last_message_at"`
	UnreadCount     int64      `json:"unread_count"`
	PartnerOnline   bool       `json:"partner_online"`
	PartnerLastSeen *time.Time `json:"partner_last_seen,omitempty"`
}

type OpenSessionRequest struct {
	PartnerId string `json:"partner_id" validate:"required,uuid"`
}

// SessionResponse identifies the conversation between the caller and a partner.
type SessionResponse struct {
	SessionId uuid.UUID    `json:"session_id"`
	Partner   UserResponse `json:"partner"`
}
