package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	GetByTransactionID(ctx context.Context, tx pgx.Tx, method domain.PaymentMethod, transactionID string) (*domain.Payment, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error)
	GetLatestPaid(ctx context.Context, tx pgx.Tx, orderID string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	CreateRefund(ctx context.Context, tx pgx.Tx, refund *domain.Refund) error
	UpdateRefundStatusByTransactionID(ctx context.Context, transactionID string, status domain.RefundStatus) error
}

type paymentRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewPaymentRepository(pool *pgxpool.Pool, logger *zap.Logger) PaymentRepository {
	return &paymentRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/payment_repo"),
	}
}

const paymentColumns = `
	id, order_id, payment_method, payment_status, amount, transaction_id,
	result_code, result_desc, payer_email, created_at, updated_at
`

func scanPayment(row pgx.Row, p *domain.Payment) error {
	return row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Method,
		&p.Status,
		&p.Amount,
		&p.TransactionID,
		&p.ResultCode,
		&p.ResultDesc,
		&p.PayerEmail,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *paymentRepo) Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", payment.OrderID),
		attribute.String("payment_method", string(payment.Method)),
	)

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	query := `
		INSERT INTO payments (
			id, order_id, payment_method, payment_status, amount,
			transaction_id, result_code, result_desc, payer_email
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		query,
		payment.ID,
		payment.OrderID,
		string(payment.Method),
		string(payment.Status),
		payment.Amount,
		payment.TransactionID,
		payment.ResultCode,
		payment.ResultDesc,
		payment.PayerEmail,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt); err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == uniqueViolation {
			return ErrDuplicatePayment
		}

		span.RecordError(err)

		ctxlog.Warn(ctx, r.logger, "Failed to insert payment", zap.Error(err))

		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

// GetByTransactionID locks the payment row matching a gateway reference so
// duplicate callbacks serialize behind each other.
func (r *paymentRepo) GetByTransactionID(ctx context.Context, tx pgx.Tx, method domain.PaymentMethod, transactionID string) (*domain.Payment, error) {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.GetByTransactionID")
	defer span.End()

	span.SetAttributes(
		attribute.String("payment_method", string(method)),
		attribute.String("transaction_id", transactionID),
	)

	var payment domain.Payment
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE payment_method = $1 AND transaction_id = $2
		FOR UPDATE
	`

	if err := scanPayment(tx.QueryRow(ctx, query, string(method), transactionID), &payment); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}

	return &payment, nil
}

func (r *paymentRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error) {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.GetForUpdate")
	defer span.End()

	span.SetAttributes(attribute.String("payment_id", id.String()))

	var payment domain.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`

	if err := scanPayment(tx.QueryRow(ctx, query, id), &payment); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}

	return &payment, nil
}

// GetLatestPaid returns the most recent paid payment of an order, locking it
// for the refund flow.
func (r *paymentRepo) GetLatestPaid(ctx context.Context, tx pgx.Tx, orderID string) (*domain.Payment, error) {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.GetLatestPaid")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	var payment domain.Payment
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE order_id = $1 AND payment_status = 'paid'
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`

	if err := scanPayment(tx.QueryRow(ctx, query, orderID), &payment); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query paid payment: %w", err)
	}

	return &payment, nil
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.String("payment_id", payment.ID.String()),
		attribute.String("payment_status", string(payment.Status)),
	)

	query := `
		UPDATE payments
		SET payment_status = $1,
			amount = $2,
			transaction_id = $3,
			result_code = $4,
			result_desc = $5,
			updated_at = NOW()
		WHERE id = $6
	`

	tag, err := tx.Exec(
		ctx,
		query,
		string(payment.Status),
		payment.Amount,
		payment.TransactionID,
		payment.ResultCode,
		payment.ResultDesc,
		payment.ID,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update payment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

func (r *paymentRepo) CreateRefund(ctx context.Context, tx pgx.Tx, refund *domain.Refund) error {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.CreateRefund")
	defer span.End()

	span.SetAttributes(attribute.String("payment_id", refund.PaymentID.String()))

	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}

	query := `
		INSERT INTO refunds (id, payment_id, refund_amount, refund_status, refund_reason, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	if err := tx.QueryRow(
		ctx,
		query,
		refund.ID,
		refund.PaymentID,
		refund.Amount,
		string(refund.Status),
		refund.Reason,
		refund.TransactionID,
	).Scan(&refund.CreatedAt); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert refund: %w", err)
	}

	return nil
}

// UpdateRefundStatusByTransactionID resolves an asynchronous transfer result
// against the pending refund of the payment it refunded.
func (r *paymentRepo) UpdateRefundStatusByTransactionID(ctx context.Context, transactionID string, status domain.RefundStatus) error {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.UpdateRefundStatusByTransactionID")
	defer span.End()

	span.SetAttributes(
		attribute.String("transaction_id", transactionID),
		attribute.String("refund_status", string(status)),
	)

	query := `
		UPDATE refunds
		SET refund_status = $1
		WHERE refund_status = 'pending' AND transaction_id = $2
	`

	tag, err := r.pool.Exec(ctx, query, string(status), transactionID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update refund: %w", err)
	}

	if tag.RowsAffected() == 0 {
		ctxlog.Warn(ctx, r.logger, "No pending refund matched transfer result",
			zap.String("transaction_id", transactionID),
		)
	}

	return nil
}
