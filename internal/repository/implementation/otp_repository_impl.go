package implementation

import (
	"context"
	"errors"
	"time"

	"chat-app-be/internal/entity"
	"chat-app-be/internal/mapper"
	"chat-app-be/internal/model"
	"chat-app-be/internal/repository/contract"
	"chat-app-be/internal/repository/scope"
	"chat-app-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OtpRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewOtpRepository(db *gorm.DB) contract.OtpRepository {
	return &OtpRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *OtpRepositoryImpl) Create(ctx context.Context, otp *entity.OTPVerification) error {
	if otp.Id == uuid.Nil {
		otp.Id = uuid.New()
	}
	m := r.mapper.OTPToModel(otp)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*otp = *r.mapper.OTPToEntity(m)
	return nil
}

func (r *OtpRepositoryImpl) FindLatestActive(ctx context.Context, userID uuid.UUID, channel entity.OTPChannel, now time.Time) (*entity.OTPVerification, error) {
	var m model.OTPVerification
	query := applySpecifications(r.db.WithContext(ctx),
		specification.UserOwnedBy{UserID: userID},
		specification.ByChannel{Channel: channel},
	)
	err := query.
		Where("is_used = ? AND expires_at > ?", false, now).
		Scopes(scope.OrderByCreatedDesc).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.OTPToEntity(&m), nil
}

func (r *OtpRepositoryImpl) MarkUsed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.OTPVerification{}).Where("id = ?", id).Update("is_used", true).Error
}
