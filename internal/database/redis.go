package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"report-generator/internal/config"
	"report-generator/internal/logger"
	"report-generator/internal/models"
)

// RedisClient stores idempotency keys as JSON values that expire with the key
type RedisClient struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisClient connects and pings the server
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}
	logger.Info("Connected to Redis idempotency store", "addr", cfg.Addr, "db", cfg.DB)
	return &RedisClient{rdb: rdb, prefix: cfg.KeyPrefix, ttl: ttl}, nil
}

func (r *RedisClient) key(k string) string { return r.prefix + k }

func (r *RedisClient) Claim(ctx context.Context, key string) (*models.IdempotencyEntry, error) {
	for attempt := 0; attempt < 2; attempt++ {
		data, err := json.Marshal(newEntry(key, time.Now().UTC(), r.ttl))
		if err != nil {
			return nil, err
		}
		ok, err := r.rdb.SetNX(ctx, r.key(key), data, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
		}
		if ok {
			return nil, nil
		}

		raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read idempotency key: %w", err)
		}
		var existing models.IdempotencyEntry
		if err := json.Unmarshal(raw, &existing); err != nil {
			return nil, fmt.Errorf("failed to decode idempotency key: %w", err)
		}
		return &existing, nil
	}
	return nil, fmt.Errorf("failed to claim idempotency key %q after retry", key)
}

func (r *RedisClient) Complete(ctx context.Context, key string, status int, body []byte) error {
	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var entry models.IdempotencyEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return fmt.Errorf("failed to decode idempotency key: %w", err)
	}
	entry.Completed = true
	entry.Status = status
	entry.Body = body

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key(key), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

func (r *RedisClient) Release(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.rdb.Close()
}
