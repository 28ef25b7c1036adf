package model

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus is the persisted presence row, one per user.
type UserStatus struct {
	UserId   uuid.UUID `gorm:"type:uuid;primaryKey"`
	IsOnline bool      `gorm:"not null;index"`
	LastSeen time.Time `gorm:"not null"`
}

func (UserStatus) TableName() string {
	return "user_statuses"
}
