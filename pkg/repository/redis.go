package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/models"
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

// GetJSON decodes the value at key into dest. found is false when the key
// does not exist.
func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) (found bool, err error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

func orderKey(id string) string {
	return fmt.Sprintf("order:%s", id)
}

// CartBlobs stores one serialized cart per session. Every save rewrites
// the whole blob.
type CartBlobs struct {
	redis *RedisRepository
	ttl   time.Duration
}

func (r *RedisRepository) CartBlobs(ttl time.Duration) *CartBlobs {
	return &CartBlobs{redis: r, ttl: ttl}
}

func (c *CartBlobs) Load(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	var lines []models.CartLine
	if _, err := c.redis.GetJSON(ctx, cartKey(sessionID), &lines); err != nil {
		return nil, fmt.Errorf("load cart %s: %w", sessionID, err)
	}
	return lines, nil
}

// Save replaces the cart blob. An empty cart removes the key.
func (c *CartBlobs) Save(ctx context.Context, sessionID string, lines []models.CartLine) error {
	if len(lines) == 0 {
		if err := c.redis.Del(ctx, cartKey(sessionID)); err != nil {
			return fmt.Errorf("clear cart %s: %w", sessionID, err)
		}
		return nil
	}
	if err := c.redis.SetJSON(ctx, cartKey(sessionID), lines, c.ttl); err != nil {
		return fmt.Errorf("save cart %s: %w", sessionID, err)
	}
	return nil
}

// OrderCache keeps recently read orders keyed by id.
type OrderCache struct {
	redis *RedisRepository
	ttl   time.Duration
}

func (r *RedisRepository) OrderCache(ttl time.Duration) *OrderCache {
	return &OrderCache{redis: r, ttl: ttl}
}

func (c *OrderCache) Get(ctx context.Context, id string) (*models.Order, bool, error) {
	var order models.Order
	found, err := c.redis.GetJSON(ctx, orderKey(id), &order)
	if err != nil || !found {
		return nil, false, err
	}
	return &order, true, nil
}

func (c *OrderCache) Set(ctx context.Context, order *models.Order) error {
	return c.redis.SetJSON(ctx, orderKey(order.ID), order, c.ttl)
}

func (c *OrderCache) Invalidate(ctx context.Context, id string) error {
	return c.redis.Del(ctx, orderKey(id))
}
