package handlers

import (
	"github.com/fridday/backend/internal/core/ports"
	"github.com/fridday/backend/internal/domain"
	"github.com/fridday/backend/internal/infrastructure/logger"
	"github.com/fridday/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	provider ports.AuthProvider
	log      *logger.Logger
}

func NewAuthHandler(provider ports.AuthProvider, log *logger.Logger) *AuthHandler {
	return &AuthHandler{provider: provider, log: log}
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(*domain.AuthUser)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unauthorized"})
	}
	return c.JSON(fiber.Map{
		"id":            user.ID,
		"email":         user.Email,
		"user_metadata": user.UserMetadata,
	})
}

// DevToken mints a session via the password grant. Routed only when
// auth.dev_endpoints is enabled.
func (h *AuthHandler) DevToken(c *fiber.Ctx) error {
	var req dto.DevTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "email and password are required"})
	}

	session, err := h.provider.SignInWithPassword(c.Context(), req.Email, req.Password)
	if err != nil {
		h.log.Warnw("dev_token_rejected", "email", req.Email, "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "authentication failed"})
	}
	return c.JSON(session)
}

func (h *AuthHandler) DevRefresh(c *fiber.Ctx) error {
	var req dto.DevRefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "refresh_token is required"})
	}

	session, err := h.provider.RefreshSession(c.Context(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "token refresh failed"})
	}
	return c.JSON(session)
}
