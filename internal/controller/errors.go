package controller

import (
	"errors"

	"chat-app-be/internal/pkg/serverutils"
	"chat-app-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// writeServiceError maps service errors onto the response envelope.
func writeServiceError(ctx *fiber.Ctx, err error) error {
	var vErr *service.ValidationError
	status, message := fiber.StatusInternalServerError, "Internal server error"

	switch {
	case errors.As(err, &vErr):
		status, message = fiber.StatusBadRequest, vErr.Message
	case errors.Is(err, service.ErrOTPInvalid):
		status, message = fiber.StatusBadRequest, "Invalid or expired OTP"
	case errors.Is(err, service.ErrOTPCooldown):
		status, message = fiber.StatusTooManyRequests, err.Error()
	case errors.Is(err, service.ErrContactInUse):
		status, message = fiber.StatusBadRequest, "Email or Mobile already in use"
	case errors.Is(err, service.ErrUserNotFound):
		status, message = fiber.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrMessageNotFound):
		status, message = fiber.StatusNotFound, "Message not found"
	case errors.Is(err, service.ErrForbidden):
		status, message = fiber.StatusForbidden, "Forbidden"
	case errors.Is(err, service.ErrInvalidStatusTransition):
		status, message = fiber.StatusConflict, "Status can only move forward"
	}

	return ctx.Status(status).JSON(serverutils.ErrorResponse(status, message))
}

func uuidParam(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}
