package mapper

import (
	"chat-app-be/internal/entity"
	"chat-app-be/internal/model"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToEntity(u *model.User) *entity.User {
	if u == nil {
		return nil
	}
	return &entity.User{
		Id:              u.Id,
		Name:            u.Name,
		Email:           u.Email,
		Mobile:          u.Mobile,
		ProfileImageURL: u.ProfileImageURL,
		Role:            entity.UserRole(u.Role),
		IsVerified:      u.IsVerified,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (m *UserMapper) ToModel(u *entity.User) *model.User {
	if u == nil {
		return nil
	}
	return &model.User{
		Id:              u.Id,
		Name:            u.Name,
		Email:           u.Email,
		Mobile:          u.Mobile,
		ProfileImageURL: u.ProfileImageURL,
		Role:            string(u.Role),
		IsVerified:      u.IsVerified,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (m *UserMapper) OTPToEntity(o *model.OTPVerification) *entity.OTPVerification {
	if o == nil {
		return nil
	}
	return &entity.OTPVerification{
		Id:        o.Id,
		UserId:    o.UserId,
		OTPHash:   o.OTPHash,
		Channel:   entity.OTPChannel(o.Channel),
		ExpiresAt: o.ExpiresAt,
		IsUsed:    o.IsUsed,
		CreatedAt: o.CreatedAt,
	}
}

func (m *UserMapper) OTPToModel(o *entity.OTPVerification) *model.OTPVerification {
	if o == nil {
		return nil
	}
	return &model.OTPVerification{
		Id:        o.Id,
		UserId:    o.UserId,
		OTPHash:   o.OTPHash,
		Channel:   string(o.Channel),
		ExpiresAt: o.ExpiresAt,
		IsUsed:    o.IsUsed,
		CreatedAt: o.CreatedAt,
	}
}

func (m *UserMapper) PresenceToEntity(s *model.UserStatus) *entity.Presence {
	if s == nil {
		return nil
	}
	return &entity.Presence{
		UserId:   s.UserId,
		IsOnline: s.IsOnline,
		LastSeen: s.LastSeen,
	}
}

func (m *UserMapper) PresenceToModel(p *entity.Presence) *model.UserStatus {
	if p == nil {
		return nil
	}
	return &model.UserStatus{
		UserId:   p.UserId,
		IsOnline: p.IsOnline,
		LastSeen: p.LastSeen,
	}
}
