package contract

import (
	"context"
	"time"

	"chat-app-be/internal/entity"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Message, error)
	// FindConversation returns up to limit messages between a and b older than before, oldest first.
	FindConversation(ctx context.Context, a, b uuid.UUID, limit int, before *time.Time) ([]*entity.Message, error)
	FindRecentChats(ctx context.Context, userID uuid.UUID) ([]*entity.RecentChat, error)
	// UpdateStatus advances the status only from an earlier one. Returns false when nothing changed.
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.MessageStatus, at time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
