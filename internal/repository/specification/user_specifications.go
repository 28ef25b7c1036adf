package specification

import (
	"chat-app-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByEmail struct {
	Email string
}

func (s ByEmail) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("email = ?", s.Email)
}

type ByMobile struct {
	Mobile string
}

func (s ByMobile) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("mobile = ?", s.Mobile)
}

// ByContact resolves a login contact on the column its channel names.
func ByContact(channel entity.OTPChannel, contact string) Specification {
	if channel == entity.OTPChannelEmail {
		return ByEmail{Email: contact}
	}
	return ByMobile{Mobile: contact}
}

type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

type ByChannel struct {
	Channel entity.OTPChannel
}

func (s ByChannel) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("channel = ?", string(s.Channel))
}
