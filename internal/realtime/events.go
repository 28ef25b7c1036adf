package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"chat-app-be/internal/entity"

	"github.com/google/uuid"
)

// Inbound events
const (
	EventAuthenticate    = "authenticate"
	EventSendMessage     = "send_message"
	EventFindRandomMatch = "find_random_match"
)

// Outbound events
const (
	EventAuthenticated        = "authenticated"
	EventMessageSent          = "message_sent"
	EventMessageReceived      = "message_received"
	EventPresenceChanged      = "presence_changed"
	EventMessageStatusChanged = "message_status_changed"
	EventMatchFound           = "match_found"
	EventError                = "error"
)

// Envelope is the frame shape in both directions: {"event": "...", "data": {...}}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type AuthenticatePayload struct {
	Token string `json:"token"`
}

type SendMessagePayload struct {
	ReceiverID string          `json:"receiverId"`
	Body       *string         `json:"body"`
	Type       string          `json:"type"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	ClientRef  string          `json:"clientRef,omitempty"`
}

type AuthenticatedPayload struct {
	UserID uuid.UUID `json:"userId"`
}

// MessageRecord is the canonical message shape pushed to both parties.
type MessageRecord struct {
	Id         uuid.UUID       `json:"id"`
	SenderId   uuid.UUID       `json:"senderId"`
	ReceiverId uuid.UUID       `json:"receiverId"`
	Body       *string         `json:"body"`
	Type       string          `json:"type"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// MessageAck is the sender's copy, with the client's correlation ref echoed back.
type MessageAck struct {
	MessageRecord
	ClientRef string `json:"clientRef,omitempty"`
}

type PresencePayload struct {
	UserID   uuid.UUID  `json:"userId"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type StatusChangedPayload struct {
	MessageID  uuid.UUID `json:"messageId"`
	ReceiverId uuid.UUID `json:"receiverId"`
	Status     string    `json:"status"`
	At         time.Time `json:"at"`
}

// MatchFoundPayload tells each side of a random match who their partner is.
type MatchFoundPayload struct {
	SessionID uuid.UUID `json:"sessionId"`
	PartnerID uuid.UUID `json:"partnerId"`
}

type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Ref     string    `json:"ref,omitempty"`
}

func NewMessageRecord(m *entity.Message) MessageRecord {
	return MessageRecord{
		Id:         m.Id,
		SenderId:   m.SenderId,
		ReceiverId: m.ReceiverId,
		Body:       m.Body,
		Type:       string(m.Type),
		Metadata:   m.Metadata,
		Status:     string(m.Status),
		CreatedAt:  m.CreatedAt,
	}
}

func EncodeFrame(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

func DecodeFrame(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, newError(CodeBadPayload, "frame is not a JSON envelope", err)
	}
	if env.Event == "" {
		return Envelope{}, newError(CodeBadPayload, "frame has no event name", nil)
	}
	return env, nil
}

// decodeToken accepts either {"token": "..."} or a bare JSON string.
func decodeToken(data json.RawMessage) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	if data[0] == '"' {
		var tok string
		if json.Unmarshal(data, &tok) == nil {
			return tok
		}
		return ""
	}
	var p AuthenticatePayload
	if json.Unmarshal(data, &p) != nil {
		return ""
	}
	return p.Token
}
