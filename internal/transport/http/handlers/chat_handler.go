package handlers

import (
	"github.com/fridday/backend/internal/core/services"
	"github.com/fridday/backend/internal/domain"
	"github.com/fridday/backend/internal/infrastructure/logger"
	"github.com/fridday/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	service *services.ChatService
	log     *logger.Logger
}

func NewChatHandler(service *services.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{service: service, log: log}
}

func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(*domain.AuthUser)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unauthorized"})
	}
	token, _ := c.Locals("access_token").(string)

	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationErrorResponse{Errors: errs})
	}

	result, err := h.service.Run(c.Context(), user.ID, token, req.Message, req.SessionID)
	if err != nil {
		h.log.Errorw("chat_turn_failed", "user_id", user.ID, "session_id", req.SessionID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(result)
}

func (h *ChatHandler) SearchConversations(c *fiber.Ctx) error {
	token, _ := c.Locals("access_token").(string)

	var req dto.SearchConversationsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationErrorResponse{Errors: errs})
	}

	matches, err := h.service.SearchSimilar(c.Context(), req.Query, req.Threshold, req.Limit, token)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(fiber.Map{"matches": matches})
}
