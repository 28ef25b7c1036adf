package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation matches messages exchanged between two users in either direction.
type Conversation struct {
	UserA uuid.UUID
	UserB uuid.UUID
}

func (s Conversation) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		s.UserA, s.UserB, s.UserB, s.UserA)
}

type CreatedBefore struct {
	Before time.Time
}

func (s CreatedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_at < ?", s.Before)
}
