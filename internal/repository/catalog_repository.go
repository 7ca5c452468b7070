package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CatalogRepository interface {
	GetBySKU(ctx context.Context, sku string) (*domain.Item, error)
	List(ctx context.Context, visibleOnly bool) ([]domain.Item, error)
	Upsert(ctx context.Context, item *domain.Item) error
}

type catalogRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCatalogRepository(pool *pgxpool.Pool, logger *zap.Logger) CatalogRepository {
	return &catalogRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/catalog_repo"),
	}
}

const itemColumns = `
	sku, name, price, discount, discounted_price, category,
	visibility, stock_availability, created_at
`

func scanItem(row pgx.Row, i *domain.Item) error {
	return row.Scan(
		&i.SKU,
		&i.Name,
		&i.Price,
		&i.Discount,
		&i.DiscountedPrice,
		&i.Category,
		&i.Visibility,
		&i.StockAvailability,
		&i.CreatedAt,
	)
}

func (r *catalogRepo) GetBySKU(ctx context.Context, sku string) (*domain.Item, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.GetBySKU")
	defer span.End()

	span.SetAttributes(attribute.String("sku", sku))

	var item domain.Item
	query := `SELECT ` + itemColumns + ` FROM items WHERE sku = $1`

	if err := scanItem(r.pool.QueryRow(ctx, query, sku), &item); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	return &item, nil
}

func (r *catalogRepo) List(ctx context.Context, visibleOnly bool) ([]domain.Item, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.List")
	defer span.End()

	query := `SELECT ` + itemColumns + ` FROM items`
	if visibleOnly {
		query += ` WHERE visibility = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		if err := scanItem(rows, &item); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}

		items = append(items, item)
	}

	return items, rows.Err()
}

// Upsert writes a catalog entry, recomputing the stored discounted price from
// the incoming price and discount.
func (r *catalogRepo) Upsert(ctx context.Context, item *domain.Item) error {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.Upsert")
	defer span.End()

	span.SetAttributes(attribute.String("sku", item.SKU))

	item.ApplyDiscount()

	query := `
		INSERT INTO items (sku, name, price, discount, discounted_price, category, visibility, stock_availability)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (sku) DO UPDATE
		SET name = EXCLUDED.name,
			price = EXCLUDED.price,
			discount = EXCLUDED.discount,
			discounted_price = EXCLUDED.discounted_price,
			category = EXCLUDED.category,
			visibility = EXCLUDED.visibility,
			stock_availability = EXCLUDED.stock_availability
		RETURNING created_at
	`

	if err := r.pool.QueryRow(
		ctx,
		query,
		item.SKU,
		item.Name,
		item.Price,
		item.Discount,
		item.DiscountedPrice,
		item.Category,
		item.Visibility,
		item.StockAvailability,
	).Scan(&item.CreatedAt); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert item: %w", err)
	}

	return nil
}
