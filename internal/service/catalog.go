package service

import (
	"context"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CatalogService interface {
	FindBySKU(ctx context.Context, sku string) (*domain.Item, error)
	List(ctx context.Context, visibleOnly bool) ([]domain.Item, error)
	Save(ctx context.Context, item *domain.Item) error
}

type catalogService struct {
	logger      *zap.Logger
	catalogRepo repository.CatalogRepository
	tracer      trace.Tracer
}

func NewCatalogService(logger *zap.Logger, catalogRepo repository.CatalogRepository) CatalogService {
	return &catalogService{
		logger:      logger,
		catalogRepo: catalogRepo,
		tracer:      otel.Tracer("catalog_service"),
	}
}

func (s *catalogService) FindBySKU(ctx context.Context, sku string) (*domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.FindBySKU")
	defer span.End()

	span.SetAttributes(attribute.String("sku", sku))

	return s.catalogRepo.GetBySKU(ctx, sku)
}

func (s *catalogService) List(ctx context.Context, visibleOnly bool) ([]domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.List")
	defer span.End()

	return s.catalogRepo.List(ctx, visibleOnly)
}

// Save assigns a fresh code to new items and persists with the discounted
// price recomputed.
func (s *catalogService) Save(ctx context.Context, item *domain.Item) error {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Save")
	defer span.End()

	if item.SKU == "" {
		item.SKU = domain.GenerateCode()
	}

	span.SetAttributes(attribute.String("sku", item.SKU))

	return s.catalogRepo.Upsert(ctx, item)
}
