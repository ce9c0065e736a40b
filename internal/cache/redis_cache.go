package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"grocermate/backend/internal/domain"
)

const invoiceKeyPrefix = "grocermate:invoice:"

type RedisInvoiceCache struct {
	client *redis.Client
}

func NewRedisInvoiceCache(addr string, password string, db int) *RedisInvoiceCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisInvoiceCache{client: client}
}

func (c *RedisInvoiceCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisInvoiceCache) Close() error {
	return c.client.Close()
}

func (c *RedisInvoiceCache) Get(ctx context.Context, number string) (*domain.InvoiceLookup, bool, error) {
	val, err := c.client.Get(ctx, invoiceKeyPrefix+number).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var lookup domain.InvoiceLookup
	if err := json.Unmarshal(val, &lookup); err != nil {
		return nil, false, err
	}
	return &lookup, true, nil
}

func (c *RedisInvoiceCache) Set(ctx context.Context, number string, value *domain.InvoiceLookup, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, invoiceKeyPrefix+number, payload, ttl).Err()
}
