package repository

import (
	"context"
	"fmt"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ReceiptRepository interface {
	Exists(ctx context.Context, tx pgx.Tx, orderID string) (bool, error)
	Create(ctx context.Context, tx pgx.Tx, receipt *domain.Receipt) error
}

type receiptRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewReceiptRepository(pool *pgxpool.Pool, logger *zap.Logger) ReceiptRepository {
	return &receiptRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/receipt_repo"),
	}
}

// Exists checks the emission gate under lock so concurrent emitters cannot
// both pass it.
func (r *receiptRepo) Exists(ctx context.Context, tx pgx.Tx, orderID string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "ReceiptRepository.Exists")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM receipts WHERE order_id = $1 FOR UPDATE)`

	if err := tx.QueryRow(ctx, query, orderID).Scan(&exists); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check receipt: %w", err)
	}

	return exists, nil
}

func (r *receiptRepo) Create(ctx context.Context, tx pgx.Tx, receipt *domain.Receipt) error {
	ctx, span := r.tracer.Start(ctx, "ReceiptRepository.Create")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", receipt.OrderID))

	query := `
		INSERT INTO receipts (order_id)
		VALUES ($1)
		RETURNING id, created_at
	`

	if err := tx.QueryRow(ctx, query, receipt.OrderID).Scan(&receipt.ID, &receipt.CreatedAt); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert receipt: %w", err)
	}

	return nil
}
