package http

import (
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/service"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	catalog  service.CatalogService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger, validate *validator.Validate) *CatalogHandler {
	return &CatalogHandler{
		catalog:  catalog,
		logger:   logger,
		validate: validate,
	}
}

func (h *CatalogHandler) List(c *fiber.Ctx) error {
	visibleOnly := c.QueryBool("visible", true)

	items, err := h.catalog.List(c.UserContext(), visibleOnly)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"items": items})
}

func (h *CatalogHandler) Get(c *fiber.Ctx) error {
	item, err := h.catalog.FindBySKU(c.UserContext(), c.Params("sku"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(item)
}

func (h *CatalogHandler) Save(c *fiber.Ctx) error {
	var input struct {
		SKU               string          `json:"sku"`
		Name              string          `json:"name" validate:"required"`
		Price             decimal.Decimal `json:"price" validate:"required"`
		Discount          decimal.Decimal `json:"discount"`
		Category          string          `json:"category"`
		Visibility        bool            `json:"visibility"`
		StockAvailability bool            `json:"stock_availability"`
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

	item := &domain.Item{
		SKU:               input.SKU,
		Name:              input.Name,
		Price:             input.Price,
		Discount:          input.Discount,
		Category:          input.Category,
		Visibility:        input.Visibility,
		StockAvailability: input.StockAvailability,
	}

	if err := h.catalog.Save(c.UserContext(), item); err != nil {
		ctxlog.Warn(c.UserContext(), h.logger, "Save item failed", zap.Error(err))
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}
