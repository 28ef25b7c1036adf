package dto

import (
	"time"

	"github.com/google/uuid"
)

type UserResponse struct {
	Id              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           *string    `json:"email,omitempty"`
	Mobile          *string    `json:"mobile,omitempty"`
	ProfileImageURL *string    `json:"profile_image_url,omitempty"`
	Role            string     `json:"role"`
	IsVerified      bool       `json:"is_verified"`
	IsOnline        bool       `json:"is_online"`
	LastSeen        *time.Time `json:"last_seen,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// UpdateUserRequest only touches the fields that are present.
type UpdateUserRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Mobile *string `json:"mobile" validate:"omitempty,min=6,max=20"`
}
