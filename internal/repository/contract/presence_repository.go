package contract

import (
	"context"

	"chat-app-be/internal/entity"

	"github.com/google/uuid"
)

type PresenceRepository interface {
	Upsert(ctx context.Context, presence *entity.Presence) error
	FindByUserIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Presence, error)
	// FindOnline lists users whose persisted state is online, excluding excludeID.
	FindOnline(ctx context.Context, excludeID uuid.UUID) ([]*entity.UserWithPresence, error)
}
