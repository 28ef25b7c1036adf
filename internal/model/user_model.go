package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name            string         `gorm:"type:varchar(255);not null;default:'New User'"`
	Email           *string        `gorm:"type:varchar(255);uniqueIndex"`
	Mobile          *string        `gorm:"type:varchar(32);uniqueIndex"`
	ProfileImageURL *string        `gorm:"type:text"`
	Role            string         `gorm:"type:varchar(50);not null;default:'user'"`
	IsVerified      bool           `gorm:"default:false"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

type OTPVerification struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index:idx_otp_user_channel,priority:1"`
	OTPHash   string    `gorm:"column:otp_hash;type:varchar(255);not null"`
	Channel   string    `gorm:"type:varchar(10);not null;index:idx_otp_user_channel,priority:2"`
	ExpiresAt time.Time `gorm:"not null"`
	IsUsed    bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (OTPVerification) TableName() string {
	return "otp_verifications"
}
