package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-app-be/internal/dto"
	"chat-app-be/internal/entity"
	"chat-app-be/internal/pkg/logger"
	"chat-app-be/internal/repository/specification"
	"chat-app-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

type IUserService interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error)
	List(ctx context.Context, callerID uuid.UUID) ([]*dto.UserResponse, error)
	Update(ctx context.Context, userID uuid.UUID, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, callerID, targetID uuid.UUID) error
}

type userService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewUserService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IUserService {
	return &userService{
		uowFactory: uowFactory,
		logger:     log,
	}
}

func toUserResponse(u *entity.User, p *entity.Presence) dto.UserResponse {
	res := dto.UserResponse{
		Id:              u.Id,
		Name:            u.Name,
		Email:           u.Email,
		Mobile:          u.Mobile,
		ProfileImageURL: u.ProfileImageURL,
		Role:            string(u.Role),
		IsVerified:      u.IsVerified,
		CreatedAt:       u.CreatedAt,
	}
	if p != nil {
		res.IsOnline = p.IsOnline
		if !p.LastSeen.IsZero() {
			lastSeen := p.LastSeen
			res.LastSeen = &lastSeen
		}
	}
	return res
}

func (s *userService) withPresence(ctx context.Context, uow unitofwork.UnitOfWork, user *entity.User) (*dto.UserResponse, error) {
	statuses, err := uow.PresenceRepository().FindByUserIDs(ctx, []uuid.UUID{user.Id})
	if err != nil {
		return nil, err
	}
	res := toUserResponse(user, statuses[user.Id])
	return &res, nil
}

func (s *userService) GetMe(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	return s.GetByID(ctx, userID)
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.withPresence(ctx, uow, user)
}

func (s *userService) List(ctx context.Context, callerID uuid.UUID) ([]*dto.UserResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	users, err := uow.UserRepository().FindAll(ctx,
		specification.ExcludeID{ID: callerID},
		specification.OrderBy{Field: "name"},
	)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.Id)
	}
	statuses, err := uow.PresenceRepository().FindByUserIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.UserResponse, 0, len(users))
	for _, u := range users {
		r := toUserResponse(u, statuses[u.Id])
		res = append(res, &r)
	}
	return res, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func (s *userService) Update(ctx context.Context, userID uuid.UUID, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userID})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	// absent fields keep their current value
	if name := trimmedOrNil(req.Name); name != nil {
		user.Name = *name
	}
	if email := trimmedOrNil(req.Email); email != nil {
		lowered := strings.ToLower(*email)
		if err := s.ensureContactFree(ctx, uow, specification.ByEmail{Email: lowered}, userID); err != nil {
			return nil, err
		}
		user.Email = &lowered
	}
	if mobile := trimmedOrNil(req.Mobile); mobile != nil {
		if err := s.ensureContactFree(ctx, uow, specification.ByMobile{Mobile: *mobile}, userID); err != nil {
			return nil, err
		}
		user.Mobile = mobile
	}

	if err := uow.UserRepository().Update(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrContactInUse
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("UserService", "Profile updated", map[string]interface{}{"user_id": userID})
	return s.withPresence(ctx, s.uowFactory.NewUnitOfWork(ctx), user)
}

func (s *userService) ensureContactFree(ctx context.Context, uow unitofwork.UnitOfWork, spec specification.Specification, userID uuid.UUID) error {
	existing, err := uow.UserRepository().FindOne(ctx, spec, specification.ExcludeID{ID: userID})
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrContactInUse
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (s *userService) Delete(ctx context.Context, callerID, targetID uuid.UUID) error {
	if callerID != targetID {
		return ErrForbidden
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: targetID})
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if err := uow.UserRepository().Delete(ctx, targetID); err != nil {
		return err
	}

	s.logger.Info("UserService", "Account deleted", map[string]interface{}{"user_id": targetID})
	return nil
}
