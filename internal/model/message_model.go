package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Message struct {
	Id          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SenderId    uuid.UUID      `gorm:"type:uuid;not null;index:idx_messages_pair_created,priority:1"`
	ReceiverId  uuid.UUID      `gorm:"type:uuid;not null;index:idx_messages_pair_created,priority:2;index:idx_messages_receiver_status,priority:1"`
	Body        *string        `gorm:"type:text"`
	Type        string         `gorm:"type:varchar(20);not null;default:'text'"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"`
	Status      string         `gorm:"type:varchar(20);not null;default:'sent';index:idx_messages_receiver_status,priority:2"`
	CreatedAt   time.Time      `gorm:"not null;index:idx_messages_pair_created,priority:3"`
	DeliveredAt *time.Time
	ReadAt      *time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (Message) TableName() string {
	return "messages"
}
