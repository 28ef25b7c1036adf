package entity

import (
	"time"

	"github.com/google/uuid"
)

// Presence is the persisted online/offline state of one user.
// A stale IsOnline=true row can survive a crash; the live registry is authoritative.
type Presence struct {
	UserId   uuid.UUID
	IsOnline bool
	LastSeen time.Time
}

// UserWithPresence is a directory row.
type UserWithPresence struct {
	User     *User
	Presence *Presence
}
