package http

import (
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/service"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type OrderHandler struct {
	ledger   service.LedgerService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewOrderHandler(ledger service.LedgerService, logger *zap.Logger, validate *validator.Validate) *OrderHandler {
	return &OrderHandler{
		ledger:   ledger,
		logger:   logger,
		validate: validate,
	}
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	input := new(service.CreateOrderRequest)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	order, err := h.ledger.CreateOrder(c.UserContext(), input)
	if err != nil {
		ctxlog.Warn(c.UserContext(), h.logger, "Create order failed", zap.Error(err))
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	order, err := h.ledger.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(order)
}

func (h *OrderHandler) AddItem(c *fiber.Ctx) error {
	var input service.OrderLine

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	order, err := h.ledger.AddItem(c.UserContext(), c.Params("id"), input)
	if err != nil {
		ctxlog.Warn(c.UserContext(), h.logger, "Add item failed", zap.Error(err))
		return errorResponse(c, err)
	}

	return c.JSON(order)
}

func (h *OrderHandler) UpdateItemQuantity(c *fiber.Ctx) error {
	lineID, err := c.ParamsInt("itemID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid item id",
		})
	}

	var input struct {
		Quantity int32 `json:"quantity" validate:"required,gte=1"`
	}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	order, err := h.ledger.UpdateItemQuantity(c.UserContext(), c.Params("id"), int64(lineID), input.Quantity)
	if err != nil {
		ctxlog.Warn(c.UserContext(), h.logger, "Update item quantity failed", zap.Error(err))
		return errorResponse(c, err)
	}

	return c.JSON(order)
}

func (h *OrderHandler) RemoveItem(c *fiber.Ctx) error {
	lineID, err := c.ParamsInt("itemID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid item id",
		})
	}

	order, err := h.ledger.RemoveItem(c.UserContext(), c.Params("id"), int64(lineID))
	if err != nil {
		ctxlog.Warn(c.UserContext(), h.logger, "Remove item failed", zap.Error(err))
		return errorResponse(c, err)
	}

	return c.JSON(order)
}

func (h *OrderHandler) FileCancellation(c *fiber.Ctx) error {
	var input struct {
		Description string `json:"description" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	req, err := h.ledger.FileCancellation(c.UserContext(), c.Params("id"), input.Description)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(req)
}

func (h *OrderHandler) FileReturn(c *fiber.Ctx) error {
	req, err := h.ledger.FileReturn(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(req)
}
