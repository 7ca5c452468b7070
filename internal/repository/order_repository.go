package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Order, error)
	ListItems(ctx context.Context, tx pgx.Tx, orderID string) ([]domain.OrderItem, error)
	AddItem(ctx context.Context, tx pgx.Tx, line *domain.OrderItem) error
	UpdateItemQuantity(ctx context.Context, tx pgx.Tx, orderID string, lineID int64, quantity int32) error
	DeleteItem(ctx context.Context, tx pgx.Tx, orderID string, lineID int64) error
	UpdateTotals(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	UpdatePaymentState(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	UpdateDelivered(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	CodeExists(ctx context.Context, tx pgx.Tx, code string) (bool, error)
	CreateCancellationRequest(ctx context.Context, req *domain.CancellationRequest) error
	CreateReturnRequest(ctx context.Context, req *domain.ReturnRequest) error
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/order_repo"),
	}
}

const orderColumns = `
	id, payment_status, total, amount_paid, total_discount_amount,
	total_discount_percentage, extra_fee, stripe_id, merchant_request_id,
	mpesa_receipt_number, recipient_name, receipt_email, organization_id,
	grade, delivered, created_at, updated_at
`

func scanOrder(row pgx.Row, o *domain.Order) error {
	return row.Scan(
		&o.ID,
		&o.PaymentStatus,
		&o.Total,
		&o.AmountPaid,
		&o.TotalDiscountAmount,
		&o.TotalDiscountPercentage,
		&o.ExtraFee,
		&o.StripeID,
		&o.MerchantRequestID,
		&o.MpesaReceiptNumber,
		&o.RecipientName,
		&o.ReceiptEmail,
		&o.OrganizationID,
		&o.Grade,
		&o.Delivered,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

func (r *orderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", order.ID))

	query := `
		INSERT INTO orders (
			id, payment_status, total, amount_paid, total_discount_amount,
			total_discount_percentage, extra_fee, recipient_name, receipt_email,
			organization_id, grade
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		query,
		order.ID,
		string(order.PaymentStatus),
		order.Total,
		order.AmountPaid,
		order.TotalDiscountAmount,
		order.TotalDiscountPercentage,
		order.ExtraFee,
		order.RecipientName,
		order.ReceiptEmail,
		order.OrganizationID,
		order.Grade,
	).Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
		span.RecordError(err)

		ctxlog.Warn(ctx, r.logger, "Failed to insert order", zap.Error(err))

		return err
	}

	return nil
}

func (r *orderRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Get")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", id))

	var order domain.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	if err := scanOrder(r.pool.QueryRow(ctx, query, id), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.listItems(ctx, r.pool, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *orderRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetForUpdate")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", id))

	var order domain.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	if err := scanOrder(tx.QueryRow(ctx, query, id), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	return &order, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *orderRepo) listItems(ctx context.Context, q queryer, orderID string) ([]domain.OrderItem, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.item_sku, oi.quantity,
			i.sku, i.name, i.price, i.discount, i.discounted_price,
			i.category, i.visibility, i.stock_availability, i.created_at
		FROM order_items oi
		JOIN items i ON i.sku = oi.item_sku
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var result []domain.OrderItem
	for rows.Next() {
		var line domain.OrderItem
		if err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ItemSKU,
			&line.Quantity,
			&line.Item.SKU,
			&line.Item.Name,
			&line.Item.Price,
			&line.Item.Discount,
			&line.Item.DiscountedPrice,
			&line.Item.Category,
			&line.Item.Visibility,
			&line.Item.StockAvailability,
			&line.Item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		result = append(result, line)
	}

	return result, rows.Err()
}

// ListItems loads the order's lines with their catalog entries inside the
// caller's transaction, so a recompute sees a consistent snapshot.
func (r *orderRepo) ListItems(ctx context.Context, tx pgx.Tx, orderID string) ([]domain.OrderItem, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListItems")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	items, err := r.listItems(ctx, tx, orderID)
	if err != nil {
		span.RecordError(err)
	}
	return items, err
}

func (r *orderRepo) AddItem(ctx context.Context, tx pgx.Tx, line *domain.OrderItem) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.AddItem")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", line.OrderID),
		attribute.String("item_sku", line.ItemSKU),
		attribute.Int("quantity", int(line.Quantity)),
	)

	query := `
		INSERT INTO order_items (order_id, item_sku, quantity)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if err := tx.QueryRow(ctx, query, line.OrderID, line.ItemSKU, line.Quantity).Scan(&line.ID); err != nil {
		span.RecordError(err)

		ctxlog.Warn(ctx, r.logger, "Failed to insert order item", zap.Error(err))

		return fmt.Errorf("failed to insert order item: %w", err)
	}

	return nil
}

func (r *orderRepo) UpdateItemQuantity(ctx context.Context, tx pgx.Tx, orderID string, lineID int64, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateItemQuantity")
	defer span.End()

	query := `
		UPDATE order_items
		SET quantity = $1
		WHERE id = $2 AND order_id = $3
	`

	tag, err := tx.Exec(ctx, query, quantity, lineID, orderID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update order item: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrOrderItemNotFound
	}

	return nil
}

func (r *orderRepo) DeleteItem(ctx context.Context, tx pgx.Tx, orderID string, lineID int64) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.DeleteItem")
	defer span.End()

	query := `
		DELETE FROM order_items
		WHERE id = $1 AND order_id = $2
	`

	tag, err := tx.Exec(ctx, query, lineID, orderID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete order item: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrOrderItemNotFound
	}

	return nil
}

func (r *orderRepo) UpdateTotals(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateTotals")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", order.ID))

	query := `
		UPDATE orders
		SET total = $1,
			total_discount_amount = $2,
			total_discount_percentage = $3,
			payment_status = $4,
			updated_at = NOW()
		WHERE id = $5
	`

	tag, err := tx.Exec(
		ctx,
		query,
		order.Total,
		order.TotalDiscountAmount,
		order.TotalDiscountPercentage,
		string(order.PaymentStatus),
		order.ID,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update order totals: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// UpdatePaymentState persists the payment-facing order fields written by the
// reconciler.
func (r *orderRepo) UpdatePaymentState(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdatePaymentState")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", order.ID),
		attribute.String("payment_status", string(order.PaymentStatus)),
	)

	query := `
		UPDATE orders
		SET payment_status = $1,
			amount_paid = $2,
			stripe_id = $3,
			merchant_request_id = $4,
			mpesa_receipt_number = $5,
			updated_at = NOW()
		WHERE id = $6
	`

	tag, err := tx.Exec(
		ctx,
		query,
		string(order.PaymentStatus),
		order.AmountPaid,
		order.StripeID,
		order.MerchantRequestID,
		order.MpesaReceiptNumber,
		order.ID,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update order payment state: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) UpdateDelivered(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateDelivered")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", order.ID),
		attribute.Bool("delivered", order.Delivered),
	)

	query := `
		UPDATE orders
		SET delivered = $1, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := tx.Exec(ctx, query, order.Delivered, order.ID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update order delivery flag: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) CodeExists(ctx context.Context, tx pgx.Tx, code string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.CodeExists")
	defer span.End()

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	if err := tx.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check order code: %w", err)
	}

	return exists, nil
}

func (r *orderRepo) CreateCancellationRequest(ctx context.Context, req *domain.CancellationRequest) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.CreateCancellationRequest")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", req.OrderID))

	query := `
		INSERT INTO cancellation_requests (order_id, description, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	if err := r.pool.QueryRow(ctx, query, req.OrderID, req.Description, string(req.Status)).
		Scan(&req.ID, &req.CreatedAt); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert cancellation request: %w", err)
	}

	return nil
}

func (r *orderRepo) CreateReturnRequest(ctx context.Context, req *domain.ReturnRequest) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.CreateReturnRequest")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", req.OrderID))

	query := `
		INSERT INTO return_requests (order_id, status)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	if err := r.pool.QueryRow(ctx, query, req.OrderID, string(req.Status)).
		Scan(&req.ID, &req.CreatedAt); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert return request: %w", err)
	}

	return nil
}
