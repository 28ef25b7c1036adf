package contract

import (
	"context"
	"time"

	"chat-app-be/internal/entity"

	"github.com/google/uuid"
)

type OtpRepository interface {
	Create(ctx context.Context, otp *entity.OTPVerification) error
	// FindLatestActive returns the newest unused code for the pair that has not expired at now.
	FindLatestActive(ctx context.Context, userID uuid.UUID, channel entity.OTPChannel, now time.Time) (*entity.OTPVerification, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
}
