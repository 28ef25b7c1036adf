package mapper

import (
	"encoding/json"

	"chat-app-be/internal/entity"
	"chat-app-be/internal/model"

	"gorm.io/datatypes"
)

type MessageMapper struct{}

func NewMessageMapper() *MessageMapper {
	return &MessageMapper{}
}

func (m *MessageMapper) ToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}
	var meta json.RawMessage
	if len(msg.Metadata) > 0 {
		meta = json.RawMessage(msg.Metadata)
	}
	return &entity.Message{
		Id:          msg.Id,
		SenderId:    msg.SenderId,
		ReceiverId:  msg.ReceiverId,
		Body:        msg.Body,
		Type:        entity.MessageType(msg.Type),
		Metadata:    meta,
		Status:      entity.MessageStatus(msg.Status),
		IsDeleted:   msg.DeletedAt.Valid,
		CreatedAt:   msg.CreatedAt,
		DeliveredAt: msg.DeliveredAt,
		ReadAt:      msg.ReadAt,
	}
}

func (m *MessageMapper) ToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}
	var meta datatypes.JSON
	if len(msg.Metadata) > 0 {
		meta = datatypes.JSON(msg.Metadata)
	}
	return &model.Message{
		Id:          msg.Id,
		SenderId:    msg.SenderId,
		ReceiverId:  msg.ReceiverId,
		Body:        msg.Body,
		Type:        string(msg.Type),
		Metadata:    meta,
		Status:      string(msg.Status),
		CreatedAt:   msg.CreatedAt,
		DeliveredAt: msg.DeliveredAt,
		ReadAt:      msg.ReadAt,
	}
}

func (m *MessageMapper) ToEntities(msgs []model.Message) []*entity.Message {
	out := make([]*entity.Message, 0, len(msgs))
	for i := range msgs {
		out = append(out, m.ToEntity(&msgs[i]))
	}
	return out
}
