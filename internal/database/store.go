package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"report-generator/internal/config"
	"report-generator/internal/logger"
	"report-generator/internal/models"
)

// ErrKeyNotFound is returned when completing or releasing an unknown key
var ErrKeyNotFound = errors.New("idempotency key not found")

// IdempotencyStore is the relay's ledger of submitted idempotency keys.
// Implementations are safe for concurrent use.
type IdempotencyStore interface {
	// Claim reserves key for a new request. It returns nil when the caller
	// now owns the key, or the existing entry when the key is already held.
	Claim(ctx context.Context, key string) (*models.IdempotencyEntry, error)
	// Complete stores the final response of a claimed key
	Complete(ctx context.Context, key string, status int, body []byte) error
	// Release drops a claim so the request can be retried
	Release(ctx context.Context, key string) error
	Close() error
}

// NewStore opens the store selected by cfg.Idempotency.Backend. The "none"
// backend returns a nil store, which disables deduplication.
func NewStore(ctx context.Context, cfg config.Config) (IdempotencyStore, error) {
	ttl := cfg.Idempotency.TTL
	switch cfg.Idempotency.Backend {
	case "", "memory":
		logger.Info("Using in-memory idempotency store", "ttl", ttl)
		return NewMemoryStore(ttl), nil
	case "mongo":
		store, err := NewMongoDBClient(ctx, cfg.MongoDB, ttl)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		store, err := NewRedisClient(ctx, cfg.Redis, ttl)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "none":
		logger.Info("Idempotency store disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Idempotency.Backend)
	}
}

func newEntry(key string, now time.Time, ttl time.Duration) models.IdempotencyEntry {
	return models.IdempotencyEntry{
		Key:       key,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
