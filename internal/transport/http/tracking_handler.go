package http

import (
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/service"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type TrackingHandler struct {
	tracking service.TrackingService
	logger   *zap.Logger
}

func NewTrackingHandler(tracking service.TrackingService, logger *zap.Logger) *TrackingHandler {
	return &TrackingHandler{
		tracking: tracking,
		logger:   logger,
	}
}

func (h *TrackingHandler) ListSteps(c *fiber.Ctx) error {
	steps, err := h.tracking.ListSteps(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"steps": steps})
}

func (h *TrackingHandler) CompleteStep(c *fiber.Ctx) error {
	var input struct {
		StepName string `json:"step_name"`
	}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	steps, err := h.tracking.CompleteStep(c.UserContext(), c.Params("id"), domain.StepName(input.StepName))
	if err != nil {
		ctxlog.Warn(c.UserContext(), h.logger, "Complete step failed",
			zap.String("order_id", c.Params("id")),
			zap.String("step_name", input.StepName),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"steps": steps})
}

func (h *TrackingHandler) GetChecklist(c *fiber.Ctx) error {
	checklist, err := h.tracking.GetChecklist(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"checklist": checklist,
		"done":      checklist.Done(),
	})
}

func (h *TrackingHandler) CompleteChecklist(c *fiber.Ctx) error {
	checklistID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid checklist id",
		})
	}

	if err := h.tracking.CompleteChecklist(c.UserContext(), int64(checklistID)); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"status": "success"})
}

func (h *TrackingHandler) UpdateChecklistItem(c *fiber.Ctx) error {
	entryID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid item checklist id",
		})
	}

	var input service.ChecklistItemUpdate

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	entry, err := h.tracking.UpdateChecklistItem(c.UserContext(), int64(entryID), input)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(entry)
}
