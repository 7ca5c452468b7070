package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/repository"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrItemUnavailable rejects order lines referencing catalog entries that are
// hidden or out of stock.
var ErrItemUnavailable = errors.New("item is not available for ordering")

// OrderLine is one requested line of a new or changed order.
type OrderLine struct {
	SKU      string `json:"sku" validate:"required,len=6"`
	Quantity int32  `json:"quantity" validate:"required,gte=1"`
}

type CreateOrderRequest struct {
	RecipientName  string      `json:"recipient_name" validate:"required"`
	ReceiptEmail   string      `json:"receipt_email" validate:"required,email"`
	Grade          string      `json:"grade"`
	OrganizationID *int64      `json:"organization_id"`
	Items          []OrderLine `json:"items" validate:"required,min=1,dive"`
}

type LedgerService interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	AddItem(ctx context.Context, orderID string, line OrderLine) (*domain.Order, error)
	UpdateItemQuantity(ctx context.Context, orderID string, lineID int64, quantity int32) (*domain.Order, error)
	RemoveItem(ctx context.Context, orderID string, lineID int64) (*domain.Order, error)
	FileCancellation(ctx context.Context, orderID, description string) (*domain.CancellationRequest, error)
	FileReturn(ctx context.Context, orderID string) (*domain.ReturnRequest, error)
}

type ledgerService struct {
	pool        *pgxpool.Pool
	logger      *zap.Logger
	orderRepo   repository.OrderRepository
	catalogRepo repository.CatalogRepository
	tracer      trace.Tracer
}

func NewLedgerService(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	catalogRepo repository.CatalogRepository,
) LedgerService {
	return &ledgerService{
		pool:        pool,
		logger:      logger,
		orderRepo:   orderRepo,
		catalogRepo: catalogRepo,
		tracer:      otel.Tracer("ledger_service"),
	}
}

func (s *ledgerService) begin(ctx context.Context) (pgx.Tx, func(), error) {
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

// CreateOrder creates the order with all requested lines in one transaction.
// Any invalid line aborts the whole order.
func (s *ledgerService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerService.CreateOrder")
	defer span.End()

	span.SetAttributes(attribute.Int("line_count", len(req.Items)))

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	order := &domain.Order{
		PaymentStatus:  domain.PaymentStatusPending,
		RecipientName:  req.RecipientName,
		ReceiptEmail:   req.ReceiptEmail,
		Grade:          req.Grade,
		OrganizationID: req.OrganizationID,
	}

	for {
		order.ID = domain.GenerateCode()

		exists, err := s.orderRepo.CodeExists(ctx, tx, order.ID)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
	}

	span.SetAttributes(attribute.String("order_id", order.ID))

	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, reqLine := range req.Items {
		item, err := s.catalogRepo.GetBySKU(ctx, reqLine.SKU)
		if err != nil {
			return nil, err
		}
		if !item.Visibility || !item.StockAvailability {
			return nil, fmt.Errorf("%w: %s", ErrItemUnavailable, item.SKU)
		}

		line := domain.OrderItem{
			OrderID:  order.ID,
			ItemSKU:  item.SKU,
			Quantity: reqLine.Quantity,
			Item:     *item,
		}
		if err := s.orderRepo.AddItem(ctx, tx, &line); err != nil {
			return nil, err
		}

		order.Items = append(order.Items, line)
	}

	order.Recompute()

	if err := s.orderRepo.UpdateTotals(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, err
	}

	ctxlog.Info(ctx, s.logger, "Order created",
		zap.String("order_id", order.ID),
		zap.String("total", order.Total.String()),
	)

	return order, nil
}

func (s *ledgerService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerService.GetOrder")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", id))

	return s.orderRepo.Get(ctx, id)
}

// mutateLines locks the order, applies fn to its lines, then recomputes and
// persists the totals. Mutation is rejected once the order is paid.
func (s *ledgerService) mutateLines(ctx context.Context, orderID string, fn func(tx pgx.Tx, order *domain.Order) error) (*domain.Order, error) {
	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == domain.PaymentStatusPaid || order.PaymentStatus == domain.PaymentStatusRefunded {
		return nil, repository.ErrOrderAlreadyPaid
	}

	if err := fn(tx, order); err != nil {
		return nil, err
	}

	order.Items, err = s.orderRepo.ListItems(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	order.Recompute()

	if err := s.orderRepo.UpdateTotals(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, err
	}

	return order, nil
}

func (s *ledgerService) AddItem(ctx context.Context, orderID string, reqLine OrderLine) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerService.AddItem")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("sku", reqLine.SKU),
	)

	return s.mutateLines(ctx, orderID, func(tx pgx.Tx, order *domain.Order) error {
		item, err := s.catalogRepo.GetBySKU(ctx, reqLine.SKU)
		if err != nil {
			return err
		}
		if !item.Visibility || !item.StockAvailability {
			return fmt.Errorf("%w: %s", ErrItemUnavailable, item.SKU)
		}

		line := domain.OrderItem{
			OrderID:  order.ID,
			ItemSKU:  item.SKU,
			Quantity: reqLine.Quantity,
		}

		return s.orderRepo.AddItem(ctx, tx, &line)
	})
}

func (s *ledgerService) UpdateItemQuantity(ctx context.Context, orderID string, lineID int64, quantity int32) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerService.UpdateItemQuantity")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.Int64("line_id", lineID),
		attribute.Int("quantity", int(quantity)),
	)

	return s.mutateLines(ctx, orderID, func(tx pgx.Tx, order *domain.Order) error {
		return s.orderRepo.UpdateItemQuantity(ctx, tx, orderID, lineID, quantity)
	})
}

func (s *ledgerService) RemoveItem(ctx context.Context, orderID string, lineID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerService.RemoveItem")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.Int64("line_id", lineID),
	)

	return s.mutateLines(ctx, orderID, func(tx pgx.Tx, order *domain.Order) error {
		return s.orderRepo.DeleteItem(ctx, tx, orderID, lineID)
	})
}

func (s *ledgerService) FileCancellation(ctx context.Context, orderID, description string) (*domain.CancellationRequest, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerService.FileCancellation")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	if _, err := s.orderRepo.Get(ctx, orderID); err != nil {
		return nil, err
	}

	req := &domain.CancellationRequest{
		OrderID:     orderID,
		Description: description,
		Status:      domain.RequestStatusPending,
	}

	if err := s.orderRepo.CreateCancellationRequest(ctx, req); err != nil {
		return nil, err
	}

	ctxlog.Info(ctx, s.logger, "Cancellation request filed", zap.String("order_id", orderID))

	return req, nil
}

func (s *ledgerService) FileReturn(ctx context.Context, orderID string) (*domain.ReturnRequest, error) {
	ctx, span := s.tracer.Start(ctx, "LedgerService.FileReturn")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	if _, err := s.orderRepo.Get(ctx, orderID); err != nil {
		return nil, err
	}

	req := &domain.ReturnRequest{
		OrderID: orderID,
		Status:  domain.RequestStatusPending,
	}

	if err := s.orderRepo.CreateReturnRequest(ctx, req); err != nil {
		return nil, err
	}

	ctxlog.Info(ctx, s.logger, "Return request filed", zap.String("order_id", orderID))

	return req, nil
}
