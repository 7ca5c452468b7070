package http

import (
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/service"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	reconciler service.ReconcilerService
	logger     *zap.Logger
	validate   *validator.Validate
}

func NewPaymentHandler(reconciler service.ReconcilerService, logger *zap.Logger, validate *validator.Validate) *PaymentHandler {
	return &PaymentHandler{
		reconciler: reconciler,
		logger:     logger,
		validate:   validate,
	}
}

func (h *PaymentHandler) CreateStripeIntent(c *fiber.Ctx) error {
	var input struct {
		OrderID string `json:"order_id" validate:"required,len=6"`
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

	result, err := h.reconciler.CreateStripeIntent(c.UserContext(), input.OrderID)
	if err != nil {
		ctxlog.Warn(c.UserContext(), h.logger, "Create stripe intent failed",
			zap.String("order_id", input.OrderID),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *PaymentHandler) CreateMpesaIntent(c *fiber.Ctx) error {
	var input struct {
		OrderID string `json:"order_id" validate:"required,len=6"`
		Phone   string `json:"phone" validate:"required"`
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

	payment, err := h.reconciler.CreateMpesaIntent(c.UserContext(), input.OrderID, input.Phone)
	if err != nil {
		ctxlog.Warn(c.UserContext(), h.logger, "Create mpesa intent failed",
			zap.String("order_id", input.OrderID),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(payment)
}

// stkCallbackBody mirrors the gateway's nested callback payload.
type stkCallbackBody struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []domain.CallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// StkCallback acknowledges every callback with 200 per gateway convention.
// Reconciliation errors are surfaced as 500 so the gateway retries.
func (h *PaymentHandler) StkCallback(c *fiber.Ctx) error {
	var body stkCallbackBody

	if err := c.BodyParser(&body); err != nil {
		ctxlog.Warn(c.UserContext(), h.logger, "Unparseable stk callback, dropping", zap.Error(err))

		return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
	}

	cb := &domain.STKCallback{
		MerchantRequestID: body.Body.StkCallback.MerchantRequestID,
		ResultCode:        body.Body.StkCallback.ResultCode,
		ResultDesc:        body.Body.StkCallback.ResultDesc,
		Metadata:          body.Body.StkCallback.CallbackMetadata.Item,
	}

	if err := h.reconciler.ReconcileCallback(c.UserContext(), cb); err != nil {
		ctxlog.Error(c.UserContext(), h.logger, "Callback reconciliation failed",
			zap.String("merchant_request_id", cb.MerchantRequestID),
			zap.Error(err),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "reconciliation failed",
		})
	}

	return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	input := new(service.RefundRequest)

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

	refund, err := h.reconciler.Refund(c.UserContext(), input)
	if err != nil {
		ctxlog.Warn(c.UserContext(), h.logger, "Refund failed",
			zap.String("payment_id", input.PaymentID.String()),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(refund)
}

// b2cResultBody mirrors the gateway's transfer result payload.
type b2cResultBody struct {
	Result struct {
		ResultCode    int    `json:"ResultCode"`
		ResultDesc    string `json:"ResultDesc"`
		TransactionID string `json:"ConversationID"`
	} `json:"Result"`
}

func (h *PaymentHandler) B2CResult(c *fiber.Ctx) error {
	var body b2cResultBody

	if err := c.BodyParser(&body); err != nil {
		ctxlog.Warn(c.UserContext(), h.logger, "Unparseable b2c result, dropping", zap.Error(err))

		return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
	}

	res := &domain.B2CResult{
		ResultCode:    body.Result.ResultCode,
		ResultDesc:    body.Result.ResultDesc,
		TransactionID: body.Result.TransactionID,
	}

	if err := h.reconciler.HandleB2CResult(c.UserContext(), res); err != nil {
		ctxlog.Error(c.UserContext(), h.logger, "B2C result handling failed",
			zap.String("transaction_id", res.TransactionID),
			zap.Error(err),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "result handling failed",
		})
	}

	return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// B2CTimeout acknowledges queue timeouts. The refund stays pending and is
// resolved manually or by a later result delivery.
func (h *PaymentHandler) B2CTimeout(c *fiber.Ctx) error {
	ctxlog.Warn(c.UserContext(), h.logger, "B2C timeout received",
		zap.String("body", string(c.Body())),
	)

	return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}
