package service

import (
	"context"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/email"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/pdfgen"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/repository"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ReceiptService interface {
	EmitReceipt(ctx context.Context, tx pgx.Tx, orderID string) error
}

type receiptService struct {
	logger      *zap.Logger
	orderRepo   repository.OrderRepository
	receiptRepo repository.ReceiptRepository
	sender      email.Sender
	tracer      trace.Tracer
}

func NewReceiptService(
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	receiptRepo repository.ReceiptRepository,
	sender email.Sender,
) ReceiptService {
	return &receiptService{
		logger:      logger,
		orderRepo:   orderRepo,
		receiptRepo: receiptRepo,
		sender:      sender,
		tracer:      otel.Tracer("receipt_service"),
	}
}

// EmitReceipt renders and emails the receipt for a paid order, at most once
// per order. The receipt row is inserted in the caller's transaction so the
// gate commits together with the event claim. Delivery failures are logged
// and swallowed: payment state never rolls back because an email bounced.
func (s *receiptService) EmitReceipt(ctx context.Context, tx pgx.Tx, orderID string) error {
	ctx, span := s.tracer.Start(ctx, "ReceiptService.EmitReceipt")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	exists, err := s.receiptRepo.Exists(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if exists {
		ctxlog.Info(ctx, s.logger, "Receipt already emitted, skipping",
			zap.String("order_id", orderID),
		)

		return nil
	}

	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		return err
	}

	if err := s.receiptRepo.Create(ctx, tx, &domain.Receipt{OrderID: orderID}); err != nil {
		return err
	}

	pdf, err := pdfgen.RenderReceipt(order)
	if err != nil {
		span.RecordError(err)
		ctxlog.Error(ctx, s.logger, "Failed to render receipt",
			zap.String("order_id", orderID),
			zap.Error(err),
		)

		return nil
	}

	if err := s.sender.SendReceiptEmail(ctx, order.ReceiptEmail, orderID, pdf); err != nil {
		span.RecordError(err)
		ctxlog.Error(ctx, s.logger, "Failed to send receipt email",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}

	return nil
}
