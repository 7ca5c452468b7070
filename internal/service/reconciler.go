package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/gateway"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/outbox"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/repository"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrPaymentNotRefundable rejects refunds against payments that never
// reached paid.
var ErrPaymentNotRefundable = errors.New("payment is not refundable")

// ErrRefundExceedsPayment rejects refund amounts above the paid amount. The
// check runs before any gateway call so no money moves.
var ErrRefundExceedsPayment = errors.New("refund amount exceeds payment amount")

// ErrRefundTargetRequired rejects refund requests naming neither a payment
// nor an order.
var ErrRefundTargetRequired = errors.New("either payment_id or order_id is required")

// StripeIntentResult carries the client-facing handle for a created card
// intent alongside the recorded payment.
type StripeIntentResult struct {
	Payment      *domain.Payment `json:"payment"`
	ClientSecret string          `json:"client_secret"`
}

// RefundRequest targets either a specific payment or an order, in which case
// the order's latest paid payment is refunded.
type RefundRequest struct {
	PaymentID uuid.UUID       `json:"payment_id"`
	OrderID   string          `json:"order_id" validate:"omitempty,len=6"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Phone     string          `json:"phone"`
}

type ReconcilerService interface {
	CreateStripeIntent(ctx context.Context, orderID string) (*StripeIntentResult, error)
	CreateMpesaIntent(ctx context.Context, orderID, phone string) (*domain.Payment, error)
	ReconcileCallback(ctx context.Context, cb *domain.STKCallback) error
	Refund(ctx context.Context, req *RefundRequest) (*domain.Refund, error)
	HandleB2CResult(ctx context.Context, res *domain.B2CResult) error
}

type reconcilerService struct {
	pool        *pgxpool.Pool
	logger      *zap.Logger
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	outboxRepo  outbox.Repository
	card        gateway.CardGateway
	mobile      gateway.MobileGateway
	tracer      trace.Tracer
}

func NewReconcilerService(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	outboxRepo outbox.Repository,
	card gateway.CardGateway,
	mobile gateway.MobileGateway,
) ReconcilerService {
	return &reconcilerService{
		pool:        pool,
		logger:      logger,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		card:        card,
		mobile:      mobile,
		tracer:      otel.Tracer("reconciler_service"),
	}
}

func (s *reconcilerService) begin(ctx context.Context) (pgx.Tx, func(), error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		ctxlog.Warn(ctx, s.logger, "Failed to begin transaction", zap.Error(err))
		return nil, nil, err
	}

	rollback := func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.Warn(cleanupCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}

	return tx, rollback, nil
}

func (s *reconcilerService) emitEvent(ctx context.Context, tx pgx.Tx, topic, eventType, aggregateID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return s.outboxRepo.SaveEvent(ctx, tx, &outbox.Event{
		AggregateType: "payment",
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
		Topic:         topic,
	})
}

// CreateStripeIntent authorizes a card charge for the order's outstanding
// total. The intent is created before the transaction opens so the row lock
// is never held across the provider call.
func (s *reconcilerService) CreateStripeIntent(ctx context.Context, orderID string) (*StripeIntentResult, error) {
	ctx, span := s.tracer.Start(ctx, "ReconcilerService.CreateStripeIntent")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == domain.PaymentStatusPaid || order.PaymentStatus == domain.PaymentStatusRefunded {
		return nil, repository.ErrOrderAlreadyPaid
	}

	intent, err := s.card.CreateIntent(ctx, order.Total, order.ReceiptEmail)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	locked, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		OrderID:       orderID,
		Method:        domain.PaymentMethodStripe,
		Status:        domain.PaymentStatusPending,
		Amount:        locked.Total,
		TransactionID: intent.ID,
		PayerEmail:    locked.ReceiptEmail,
	}

	succeeded := intent.Status == "succeeded"
	if succeeded {
		payment.Status = domain.PaymentStatusPaid
	}

	if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
		return nil, err
	}

	locked.StripeID = intent.ID
	if succeeded {
		locked.AmountPaid = locked.AmountPaid.Add(payment.Amount)
	}
	locked.DerivePaymentStatus()

	if err := s.orderRepo.UpdatePaymentState(ctx, tx, locked); err != nil {
		return nil, err
	}

	if succeeded {
		err := s.emitEvent(ctx, tx, domain.TopicPaymentEvents, domain.EventPaymentSucceeded, orderID, &domain.PaymentSucceededEvent{
			OrderID:   orderID,
			PaymentID: payment.ID.String(),
			Amount:    payment.Amount,
			PaidAt:    time.Now().UTC(),
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, err
	}

	ctxlog.Info(ctx, s.logger, "Stripe intent created",
		zap.String("order_id", orderID),
		zap.String("intent_id", intent.ID),
		zap.String("status", intent.Status),
	)

	return &StripeIntentResult{Payment: payment, ClientSecret: intent.ClientSecret}, nil
}

// CreateMpesaIntent fires an STK push and records a pending payment keyed by
// the gateway's merchant request id. Reconciliation happens when the
// asynchronous callback arrives.
func (s *reconcilerService) CreateMpesaIntent(ctx context.Context, orderID, phone string) (*domain.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "ReconcilerService.CreateMpesaIntent")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	order, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == domain.PaymentStatusPaid || order.PaymentStatus == domain.PaymentStatusRefunded {
		return nil, repository.ErrOrderAlreadyPaid
	}

	push, err := s.mobile.STKPush(ctx, phone, order.Total, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	locked, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		OrderID:       orderID,
		Method:        domain.PaymentMethodMpesa,
		Status:        domain.PaymentStatusPending,
		Amount:        locked.Total,
		TransactionID: push.MerchantRequestID,
		PayerEmail:    locked.ReceiptEmail,
	}

	if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
		return nil, err
	}

	locked.MerchantRequestID = push.MerchantRequestID

	if err := s.orderRepo.UpdatePaymentState(ctx, tx, locked); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, err
	}

	ctxlog.Info(ctx, s.logger, "STK push initiated",
		zap.String("order_id", orderID),
		zap.String("merchant_request_id", push.MerchantRequestID),
	)

	return payment, nil
}

// ReconcileCallback applies an asynchronous mobile-money result. It is
// idempotent: a callback for an unknown correlation id is acknowledged and
// dropped, and a callback against a terminal payment is a no-op.
func (s *reconcilerService) ReconcileCallback(ctx context.Context, cb *domain.STKCallback) error {
	ctx, span := s.tracer.Start(ctx, "ReconcilerService.ReconcileCallback")
	defer span.End()

	span.SetAttributes(
		attribute.String("merchant_request_id", cb.MerchantRequestID),
		attribute.Int("result_code", cb.ResultCode),
	)

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	payment, err := s.paymentRepo.GetByTransactionID(ctx, tx, domain.PaymentMethodMpesa, cb.MerchantRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			ctxlog.Warn(ctx, s.logger, "Callback for unknown payment, dropping",
				zap.String("merchant_request_id", cb.MerchantRequestID),
			)

			return nil
		}

		return err
	}

	if payment.Terminal() {
		ctxlog.Info(ctx, s.logger, "Callback for terminal payment, skipping",
			zap.String("payment_id", payment.ID.String()),
			zap.String("payment_status", string(payment.Status)),
		)

		return nil
	}

	order, err := s.orderRepo.GetForUpdate(ctx, tx, payment.OrderID)
	if err != nil {
		return err
	}

	payment.ResultCode = fmt.Sprintf("%d", cb.ResultCode)
	payment.ResultDesc = cb.ResultDesc

	if cb.Succeeded() {
		amount := payment.Amount
		if confirmed, ok := cb.Amount(); ok {
			amount = confirmed
		}
		payment.Amount = amount
		payment.Status = domain.PaymentStatusPaid

		if receipt, ok := cb.ReceiptNumber(); ok {
			order.MpesaReceiptNumber = receipt
		}
		order.AmountPaid = order.AmountPaid.Add(amount)
		order.DerivePaymentStatus()

		if err := s.emitEvent(ctx, tx, domain.TopicPaymentEvents, domain.EventPaymentSucceeded, order.ID, &domain.PaymentSucceededEvent{
			OrderID:   order.ID,
			PaymentID: payment.ID.String(),
			Amount:    amount,
			PaidAt:    time.Now().UTC(),
		}); err != nil {
			return err
		}
	} else {
		payment.Status = domain.PaymentStatusFailed
		order.PaymentStatus = domain.PaymentStatusFailed

		if err := s.emitEvent(ctx, tx, domain.TopicPaymentEvents, domain.EventPaymentFailed, order.ID, &domain.PaymentFailedEvent{
			OrderID:    order.ID,
			PaymentID:  payment.ID.String(),
			ResultCode: payment.ResultCode,
			ResultDesc: payment.ResultDesc,
			FailedAt:   time.Now().UTC(),
		}); err != nil {
			return err
		}
	}

	if err := s.paymentRepo.UpdateStatus(ctx, tx, payment); err != nil {
		return err
	}

	if err := s.orderRepo.UpdatePaymentState(ctx, tx, order); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return err
	}

	ctxlog.Info(ctx, s.logger, "Callback reconciled",
		zap.String("order_id", order.ID),
		zap.String("payment_status", string(payment.Status)),
	)

	return nil
}

// Refund marks payment and order refunded immediately. Card refunds resolve
// synchronously; mobile refunds stay pending until the transfer result
// arrives on the result endpoint.
func (s *reconcilerService) Refund(ctx context.Context, req *RefundRequest) (*domain.Refund, error) {
	ctx, span := s.tracer.Start(ctx, "ReconcilerService.Refund")
	defer span.End()

	span.SetAttributes(attribute.String("payment_id", req.PaymentID.String()))

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	var payment *domain.Payment
	switch {
	case req.PaymentID != uuid.Nil:
		payment, err = s.paymentRepo.GetForUpdate(ctx, tx, req.PaymentID)
	case req.OrderID != "":
		payment, err = s.paymentRepo.GetLatestPaid(ctx, tx, req.OrderID)
	default:
		return nil, ErrRefundTargetRequired
	}
	if err != nil {
		return nil, err
	}

	if payment.Status != domain.PaymentStatusPaid {
		return nil, ErrPaymentNotRefundable
	}

	amount := req.Amount
	if !amount.IsPositive() {
		amount = payment.Amount
	}
	if amount.GreaterThan(payment.Amount) {
		return nil, ErrRefundExceedsPayment
	}

	refund := &domain.Refund{
		PaymentID: payment.ID,
		Amount:    amount,
		Reason:    req.Reason,
	}

	switch payment.Method {
	case domain.PaymentMethodStripe:
		if err := s.card.Refund(ctx, payment.TransactionID, amount); err != nil {
			span.RecordError(err)
			return nil, err
		}
		refund.Status = domain.RefundStatusCompleted
	case domain.PaymentMethodMpesa:
		conversationID, err := s.mobile.B2CPayment(ctx, req.Phone, amount, "Refund for order "+payment.OrderID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		refund.Status = domain.RefundStatusPending
		refund.TransactionID = conversationID
	default:
		return nil, fmt.Errorf("unsupported payment method: %s", payment.Method)
	}

	if err := s.paymentRepo.CreateRefund(ctx, tx, refund); err != nil {
		return nil, err
	}

	payment.Status = domain.PaymentStatusRefunded
	if err := s.paymentRepo.UpdateStatus(ctx, tx, payment); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetForUpdate(ctx, tx, payment.OrderID)
	if err != nil {
		return nil, err
	}

	order.PaymentStatus = domain.PaymentStatusRefunded
	order.AmountPaid = order.AmountPaid.Sub(amount)
	if err := s.orderRepo.UpdatePaymentState(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := s.emitEvent(ctx, tx, domain.TopicOrderEvents, domain.EventRefundInitiated, order.ID, &domain.RefundInitiatedEvent{
		PaymentID: payment.ID.String(),
		RefundID:  refund.ID.String(),
		OrderID:   order.ID,
		Amount:    amount,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, err
	}

	ctxlog.Info(ctx, s.logger, "Refund initiated",
		zap.String("order_id", order.ID),
		zap.String("refund_id", refund.ID.String()),
		zap.String("refund_status", string(refund.Status)),
	)

	return refund, nil
}

// HandleB2CResult resolves a pending mobile refund. Unknown transaction ids
// are logged and dropped so the gateway gets its acknowledgement.
func (s *reconcilerService) HandleB2CResult(ctx context.Context, res *domain.B2CResult) error {
	ctx, span := s.tracer.Start(ctx, "ReconcilerService.HandleB2CResult")
	defer span.End()

	span.SetAttributes(
		attribute.String("transaction_id", res.TransactionID),
		attribute.Int("result_code", res.ResultCode),
	)

	status := domain.RefundStatusCompleted
	if res.ResultCode != 0 {
		status = domain.RefundStatusFailed

		ctxlog.Warn(ctx, s.logger, "B2C transfer failed",
			zap.String("transaction_id", res.TransactionID),
			zap.String("result_desc", res.ResultDesc),
		)
	}

	return s.paymentRepo.UpdateRefundStatusByTransactionID(ctx, res.TransactionID, status)
}
