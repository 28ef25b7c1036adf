package service

import "errors"

var (
	ErrOTPCooldown             = errors.New("please wait before requesting another code")
	ErrOTPInvalid              = errors.New("invalid or expired code")
	ErrUserNotFound            = errors.New("user not found")
	ErrContactInUse            = errors.New("email or mobile already in use")
	ErrForbidden               = errors.New("forbidden")
	ErrMessageNotFound         = errors.New("message not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// ValidationError carries a client-facing message for a rejected request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
