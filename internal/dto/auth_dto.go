package dto

import "time"

type RequestOTPRequest struct {
	Channel string `json:"channel" validate:"required,oneof=email mobile"`
	Contact string `json:"contact" validate:"required,max=255"`
}

type RequestOTPResponse struct {
	Channel   string    `json:"channel"`
	Contact   string    `json:"contact"`
	ExpiresAt time.Time `json:"expires_at"`
	// Only populated when debug echo is enabled
	OTP string `json:"otp,omitempty"`
}

type VerifyOTPRequest struct {
	Channel string `json:"channel" validate:"required,oneof=email mobile"`
	Contact string `json:"contact" validate:"required,max=255"`
	OTP     string `json:"otp" validate:"required,len=6,numeric"`
}

type VerifyOTPResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}
