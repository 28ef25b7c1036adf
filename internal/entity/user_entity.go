package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type OTPChannel string

const (
	OTPChannelEmail  OTPChannel = "email"
	OTPChannelMobile OTPChannel = "mobile"
)

func (c OTPChannel) Valid() bool {
	return c == OTPChannelEmail || c == OTPChannelMobile
}

type User struct {
	Id              uuid.UUID
	Name            string
	Email           *string
	Mobile          *string
	ProfileImageURL *string
	Role            UserRole
	IsVerified      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OTPVerification is one issued login code. Only the bcrypt hash of the code is stored.
type OTPVerification struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	OTPHash   string
	Channel   OTPChannel
	ExpiresAt time.Time
	IsUsed    bool
	CreatedAt time.Time
}
