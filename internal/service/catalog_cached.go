package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

type cachedCatalogService struct {
	next        CatalogService
	redisClient *redis.Client
	cacheTTL    time.Duration
}

// NewCachedCatalogService decorates catalog reads with a redis cache. Writes
// pass through and invalidate the cached entry.
func NewCachedCatalogService(next CatalogService, redisClient *redis.Client, cacheTTL time.Duration) CatalogService {
	return &cachedCatalogService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

func itemKey(sku string) string {
	return fmt.Sprintf("item:%s", sku)
}

func (s *cachedCatalogService) FindBySKU(ctx context.Context, sku string) (*domain.Item, error) {
	key := itemKey(sku)

	val, err := s.redisClient.Get(ctx, key).Result()
	if err == nil {
		var item domain.Item
		if err := json.Unmarshal([]byte(val), &item); err == nil {
			return &item, nil
		}
	}

	item, err := s.next.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(item); err == nil {
		s.redisClient.Set(ctx, key, data, s.cacheTTL)
	}

	return item, nil
}

func (s *cachedCatalogService) List(ctx context.Context, visibleOnly bool) ([]domain.Item, error) {
	return s.next.List(ctx, visibleOnly)
}

func (s *cachedCatalogService) Save(ctx context.Context, item *domain.Item) error {
	if err := s.next.Save(ctx, item); err != nil {
		return err
	}

	s.redisClient.Del(ctx, itemKey(item.SKU))
	return nil
}
