package unitofwork

import (
	"context"

	"chat-app-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	OtpRepository() contract.OtpRepository
	PresenceRepository() contract.PresenceRepository
	MessageRepository() contract.MessageRepository
}
