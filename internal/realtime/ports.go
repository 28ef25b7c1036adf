package realtime

import (
	"context"

	"chat-app-be/internal/entity"
	"chat-app-be/pkg/events"

	"github.com/google/uuid"
)

// Transport writes frames to live connections.
// Emit to a connection that is already gone returns an error.
type Transport interface {
	Emit(connID string, frame []byte) error
	Broadcast(frame []byte)
	Close(connID string)
}

// UserRelay forwards a frame to a user bound on another instance.
type UserRelay interface {
	RelayToUser(userID uuid.UUID, frame []byte) error
}

type CredentialValidator interface {
	Validate(token string) (uuid.UUID, error)
}

type MessageStore interface {
	InsertMessage(ctx context.Context, msg *entity.Message) error
}

type PresenceStore interface {
	SavePresence(ctx context.Context, presence *entity.Presence) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}
