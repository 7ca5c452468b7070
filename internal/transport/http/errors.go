package http

import (
	"errors"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/gateway"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/repository"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/service"
	"github.com/gofiber/fiber/v2"
)

// statusFromError maps service and repository errors onto HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrOrderItemNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrPaymentNotFound),
		errors.Is(err, repository.ErrStepNotFound),
		errors.Is(err, repository.ErrChecklistNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, repository.ErrOrderAlreadyPaid),
		errors.Is(err, repository.ErrDuplicatePayment),
		errors.Is(err, service.ErrPaymentNotRefundable):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrItemUnavailable),
		errors.Is(err, service.ErrRefundExceedsPayment),
		errors.Is(err, service.ErrRefundTargetRequired):
		return fiber.StatusBadRequest
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(statusFromError(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}
