package controller

import (
	"strconv"
	"time"

	"chat-app-be/internal/dto"
	"chat-app-be/internal/pkg/serverutils"
	"chat-app-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	OnlineUsers(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Recent(ctx *fiber.Ctx) error
	OpenSession(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	UpdateStatus(ctx *fiber.Ctx) error
	DeleteMessage(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
	auth    fiber.Handler
}

func NewChatController(service service.IChatService, auth fiber.Handler) IChatController {
	return &chatController{service: service, auth: auth}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat")
	h.Use(c.auth)
	h.Get("/online-users", c.OnlineUsers)
	h.Get("/history/:userId", c.History)
	h.Get("/recent", c.Recent)
	h.Post("/session", c.OpenSession)
	h.Post("/messages", c.SendMessage)
	h.Patch("/messages/:id/status", c.UpdateStatus)
	h.Delete("/messages/:id", c.DeleteMessage)
}

func (c *chatController) OnlineUsers(ctx *fiber.Ctx) error {
	userID, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.OnlineUsers(ctx.UserContext(), userID)
	if err != nil {
		return writeServiceError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Online users", res))
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	userID, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	partnerID, err := uuidParam(ctx, "userId")
	if err != nil {
		return err
	}

	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid limit")
		}
	}
	var before *time.Time
	if raw := ctx.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid before, expected RFC3339")
		}
		before = &t
	}

	res, err := c.service.History(ctx.UserContext(), userID, partnerID, limit, before)
	if err != nil {
		return writeServiceError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat history", res))
}

func (c *chatController) Recent(ctx *fiber.Ctx) error {
	userID, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.RecentChats(ctx.UserContext(), userID)
	if err != nil {
		return writeServiceError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Recent chats", res))
}

func (c *chatController) OpenSession(ctx *fiber.Ctx) error {
	userID, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	var req dto.OpenSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	partnerID, err := uuid.Parse(req.PartnerId)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid partner_id")
	}

	res, err := c.service.OpenSession(ctx.UserContext(), userID, partnerID)
	if err != nil {
		return writeServiceError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat session", res))
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	userID, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendMessage(ctx.UserContext(), userID, &req)
	if err != nil {
		return writeServiceError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Message sent", res))
}

func (c *chatController) UpdateStatus(ctx *fiber.Ctx) error {
	userID, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	messageID, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateMessageStatusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateStatus(ctx.UserContext(), userID, messageID, req.Status)
	if err != nil {
		return writeServiceError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Status updated", res))
}

func (c *chatController) DeleteMessage(ctx *fiber.Ctx) error {
	userID, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	messageID, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.service.DeleteMessage(ctx.UserContext(), userID, messageID); err != nil {
		return writeServiceError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Message deleted", nil))
}
