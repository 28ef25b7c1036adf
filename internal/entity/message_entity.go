package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

var messageStatusRank = map[MessageStatus]int{
	MessageStatusSent:      1,
	MessageStatusDelivered: 2,
	MessageStatusRead:      3,
}

func (s MessageStatus) Valid() bool {
	_, ok := messageStatusRank[s]
	return ok
}

// CanTransition reports whether from -> to moves strictly forward along sent -> delivered -> read.
func CanTransition(from, to MessageStatus) bool {
	f, okFrom := messageStatusRank[from]
	t, okTo := messageStatusRank[to]
	return okFrom && okTo && t > f
}

// StatusesBefore lists every status a message may be in for a transition to target to be legal.
func StatusesBefore(target MessageStatus) []MessageStatus {
	var out []MessageStatus
	for _, s := range []MessageStatus{MessageStatusSent, MessageStatusDelivered, MessageStatusRead} {
		if CanTransition(s, target) {
			out = append(out, s)
		}
	}
	return out
}

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeAudio MessageType = "audio"
)

// RequiresBody is true for text messages; other types carry their payload in Metadata.
func (t MessageType) RequiresBody() bool {
	return t == "" || t == MessageTypeText
}

type Message struct {
	Id          uuid.UUID
	SenderId    uuid.UUID
	ReceiverId  uuid.UUID
	Body        *string
	Type        MessageType
	Metadata    json.RawMessage
	Status      MessageStatus
	IsDeleted   bool
	CreatedAt   time.Time
	DeliveredAt *time.Time
	ReadAt      *time.Time
}

// RecentChat is one conversation summary in the recent-chats list.
type RecentChat struct {
	PartnerId       uuid.UUID
	PartnerName     string
	LastMessage     *string
	LastMessageType MessageType
	LastMessageAt   time.Time
	UnreadCount     int64
	PartnerOnline   bool
	PartnerLastSeen *time.Time
}
