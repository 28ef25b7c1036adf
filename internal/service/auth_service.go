package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"chat-app-be/internal/dto"
	"chat-app-be/internal/entity"
	"chat-app-be/internal/pkg/logger"
	"chat-app-be/internal/pkg/mailer"
	"chat-app-be/internal/pkg/token"
	"chat-app-be/internal/repository/memory"
	"chat-app-be/internal/repository/specification"
	"chat-app-be/internal/repository/unitofwork"

	"golang.org/x/crypto/bcrypt"
)

type IAuthService interface {
	RequestOTP(ctx context.Context, req *dto.RequestOTPRequest) (*dto.RequestOTPResponse, error)
	VerifyOTP(ctx context.Context, req *dto.VerifyOTPRequest) (*dto.VerifyOTPResponse, error)
}

type AuthOptions struct {
	OTPTTL       time.Duration
	DebugEchoOTP bool
}

type authService struct {
	uowFactory   unitofwork.RepositoryFactory
	emailService mailer.IEmailService
	tokens       *token.Manager
	throttle     *memory.OtpThrottle
	logger       logger.ILogger
	opts         AuthOptions

	now         func() time.Time
	generateOTP func() (string, error)
	// sendAsync runs slow deliveries off the request path
	sendAsync func(fn func())
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	emailService mailer.IEmailService,
	tokens *token.Manager,
	throttle *memory.OtpThrottle,
	log logger.ILogger,
	opts AuthOptions,
) IAuthService {
	return &authService{
		uowFactory:   uowFactory,
		emailService: emailService,
		tokens:       tokens,
		throttle:     throttle,
		logger:       log,
		opts:         opts,
		now:          time.Now,
		generateOTP:  generateOTP,
		sendAsync:    func(fn func()) { go fn() },
	}
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n), nil
}

func normalizeContact(channel entity.OTPChannel, contact string) string {
	contact = strings.TrimSpace(contact)
	if channel == entity.OTPChannelEmail {
		return strings.ToLower(contact)
	}
	return contact
}

func (s *authService) RequestOTP(ctx context.Context, req *dto.RequestOTPRequest) (*dto.RequestOTPResponse, error) {
	channel := entity.OTPChannel(req.Channel)
	if !channel.Valid() {
		return nil, &ValidationError{Message: "channel must be email or mobile"}
	}
	contact := normalizeContact(channel, req.Contact)
	if contact == "" {
		return nil, &ValidationError{Message: "contact is required"}
	}

	throttleKey := string(channel) + ":" + contact
	if ok, wait := s.throttle.Allow(throttleKey); !ok {
		return nil, fmt.Errorf("%w (retry in %ds)", ErrOTPCooldown, int(wait.Seconds())+1)
	}

	res, otp, err := s.issueOTP(ctx, channel, contact)
	if err != nil {
		s.throttle.Reset(throttleKey)
		return nil, err
	}

	switch channel {
	case entity.OTPChannelEmail:
		ttlMinutes := int(s.opts.OTPTTL.Minutes())
		s.sendAsync(func() {
			if err := s.emailService.SendOTP(contact, otp, ttlMinutes); err != nil {
				s.logger.Error("AuthService", "Failed to send OTP email", map[string]interface{}{"contact": contact, "error": err})
			}
		})
	case entity.OTPChannelMobile:
		s.logger.Info("AuthService", "OTP issued for mobile, SMS delivery is external", map[string]interface{}{"contact": contact})
	}

	if s.opts.DebugEchoOTP {
		res.OTP = otp
	}
	return res, nil
}

func (s *authService) issueOTP(ctx context.Context, channel entity.OTPChannel, contact string) (*dto.RequestOTPResponse, string, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, "", err
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().FindOne(ctx, specification.ByContact(channel, contact))
	if err != nil {
		return nil, "", fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		user = &entity.User{Name: "New User", Role: entity.UserRoleUser}
		if channel == entity.OTPChannelEmail {
			user.Email = &contact
		} else {
			user.Mobile = &contact
		}
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			return nil, "", fmt.Errorf("create user: %w", err)
		}
	}

	otp, err := s.generateOTP()
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	record := &entity.OTPVerification{
		UserId:    user.Id,
		OTPHash:   string(hash),
		Channel:   channel,
		ExpiresAt: now.Add(s.opts.OTPTTL),
		CreatedAt: now,
	}
	if err := uow.OtpRepository().Create(ctx, record); err != nil {
		return nil, "", fmt.Errorf("store otp: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, "", err
	}

	return &dto.RequestOTPResponse{
		Channel:   string(channel),
		Contact:   contact,
		ExpiresAt: record.ExpiresAt,
	}, otp, nil
}

func (s *authService) VerifyOTP(ctx context.Context, req *dto.VerifyOTPRequest) (*dto.VerifyOTPResponse, error) {
	channel := entity.OTPChannel(req.Channel)
	if !channel.Valid() {
		return nil, &ValidationError{Message: "channel must be email or mobile"}
	}
	contact := normalizeContact(channel, req.Contact)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByContact(channel, contact))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrOTPInvalid
	}

	record, err := uow.OtpRepository().FindLatestActive(ctx, user.Id, channel, s.now())
	if err != nil {
		return nil, fmt.Errorf("find otp: %w", err)
	}
	if record == nil {
		return nil, ErrOTPInvalid
	}
	if bcrypt.CompareHashAndPassword([]byte(record.OTPHash), []byte(req.OTP)) != nil {
		return nil, ErrOTPInvalid
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.OtpRepository().MarkUsed(ctx, record.Id); err != nil {
		return nil, err
	}
	if !user.IsVerified {
		if err := uow.UserRepository().MarkVerified(ctx, user.Id); err != nil {
			return nil, err
		}
		user.IsVerified = true
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	accessToken, expiresAt, err := s.tokens.Issue(user.Id, string(user.Role))
	if err != nil {
		return nil, err
	}

	s.logger.Info("AuthService", "User signed in", map[string]interface{}{"user_id": user.Id, "channel": channel})
	return &dto.VerifyOTPResponse{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		User:        toUserResponse(user, nil),
	}, nil
}
