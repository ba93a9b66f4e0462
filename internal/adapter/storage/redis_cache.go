package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freshmart/ordering/internal/core/domain"
)

const (
	productKeyPrefix = "product:"
	pageGenKey       = "products:gen"
)

// RedisCache caches catalog reads. Page keys embed a generation
// counter; bumping the counter on invalidation orphans every cached
// page at once, and the orphans age out via TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

type cachedPage struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
}

func (r *RedisCache) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	data, err := r.client.Get(ctx, productKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get product: %w", err)
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("cache decode product: %w", err)
	}
	return &p, nil
}

func (r *RedisCache) SetProduct(ctx context.Context, product domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("cache encode product: %w", err)
	}
	return r.client.Set(ctx, productKeyPrefix+product.ID, data, r.ttl).Err()
}

func (r *RedisCache) GetProductPage(ctx context.Context, offset, limit int) ([]domain.Product, int, error) {
	key, err := r.pageKey(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("cache get page: %w", err)
	}

	var page cachedPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, 0, fmt.Errorf("cache decode page: %w", err)
	}
	return page.Products, page.Total, nil
}

func (r *RedisCache) SetProductPage(ctx context.Context, offset, limit int, products []domain.Product, total int) error {
	key, err := r.pageKey(ctx, offset, limit)
	if err != nil {
		return err
	}

	data, err := json.Marshal(cachedPage{Products: products, Total: total})
	if err != nil {
		return fmt.Errorf("cache encode page: %w", err)
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *RedisCache) Invalidate(ctx context.Context, productIDs ...string) error {
	pipe := r.client.Pipeline()
	for _, id := range productIDs {
		pipe.Del(ctx, productKeyPrefix+id)
	}
	pipe.Incr(ctx, pageGenKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

func (r *RedisCache) pageKey(ctx context.Context, offset, limit int) (string, error) {
	gen, err := r.client.Get(ctx, pageGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("cache page generation: %w", err)
	}
	return fmt.Sprintf("products:%d:page:%d:%d", gen, offset, limit), nil
}
