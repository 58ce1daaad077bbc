package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/domain"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/mylogger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	catalogKeyPrefix = "catalog:"
	menuKey          = catalogKeyPrefix + "menu"
	productsKey      = catalogKeyPrefix + "products"
)

// CachedCatalogService reads through Redis. Cache errors are logged and the
// call falls through to the wrapped service.
type CachedCatalogService struct {
	next        CatalogService
	redisClient *redis.Client
	cacheTTL    time.Duration
	logger      *zap.Logger
}

func NewCachedCatalogService(next CatalogService, redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedCatalogService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &CachedCatalogService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    ttl,
		logger:      logger,
	}
}

func (s *CachedCatalogService) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	return readThrough(ctx, s, menuKey, s.next.ListMenu)
}

func (s *CachedCatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return readThrough(ctx, s, productsKey, s.next.ListProducts)
}

func (s *CachedCatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return readThrough(ctx, s, fmt.Sprintf("%sproduct:%s", catalogKeyPrefix, id), func(ctx context.Context) (*domain.Product, error) {
		return s.next.GetProduct(ctx, id)
	})
}

// Invalidate drops every cached catalog entry.
func (s *CachedCatalogService) Invalidate(ctx context.Context) error {
	iter := s.redisClient.Scan(ctx, 0, catalogKeyPrefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning catalog keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error deleting catalog keys: %w", err)
	}

	return nil
}

func readThrough[T any](ctx context.Context, s *CachedCatalogService, key string, load func(context.Context) (T, error)) (T, error) {
	val, err := s.redisClient.Get(ctx, key).Bytes()
	if err == nil {
		var cached T
		if err := json.Unmarshal(val, &cached); err == nil {
			return cached, nil
		}

		mylogger.Warn(ctx, s.logger, "Dropping undecodable cache entry", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		mylogger.Warn(ctx, s.logger, "Cache read failed", zap.String("key", key), zap.Error(err))
	}

	result, err := load(ctx)
	if err != nil {
		return result, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return result, nil
	}

	if err := s.redisClient.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		mylogger.Warn(ctx, s.logger, "Cache write failed", zap.String("key", key), zap.Error(err))
	}

	return result, nil
}
