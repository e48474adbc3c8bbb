package handlers

import (
	"errors"

	"github.com/fridday/backend/internal/core/services"
	"github.com/fridday/backend/internal/domain"
	"github.com/fridday/backend/internal/infrastructure/logger"
	"github.com/fridday/backend/internal/transport/http/dto"
	httpmw "github.com/fridday/backend/internal/transport/http/middleware"
	"github.com/gofiber/fiber/v2"
)

type ResearchHandler struct {
	service  *services.ResearchService
	registry *services.ResearchRegistry
	log      *logger.Logger
}

func NewResearchHandler(service *services.ResearchService, registry *services.ResearchRegistry, log *logger.Logger) *ResearchHandler {
	return &ResearchHandler{service: service, registry: registry, log: log}
}

// SubmitResearch starts a relay run and returns as soon as the initial
// task record is durable. The run itself continues detached; downstream
// failures surface through the progress store, not here.
func (h *ResearchHandler) SubmitResearch(c *fiber.Ctx) error {
	var req dto.SubmitResearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	// The token may ride in the body (original client contract) or on
	// the request itself.
	if req.JWTToken == "" {
		req.JWTToken = httpmw.BearerToken(c)
	}

	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationErrorResponse{Errors: errs})
	}

	taskID, err := h.service.Submit(c.Context(), req.ToDomain())
	if err != nil {
		h.log.Errorw("research_submit_failed", "user_id", req.UserID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.SubmitResearchResponse{
		Status:     "process_started",
		Message:    "research task started, poll research_history for progress",
		ResearchID: taskID,
	})
}

// GetResearch returns the in-process snapshot of a run.
func (h *ResearchHandler) GetResearch(c *fiber.Ctx) error {
	task, err := h.registry.Snapshot(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(task)
}

// CancelResearch aborts a running relay through its cancellation handle.
func (h *ResearchHandler) CancelResearch(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.registry.Cancel(id); err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	h.log.Infow("research_cancel_requested", "task_id", id)
	return c.JSON(fiber.Map{"status": "cancelling", "research_id": id})
}
