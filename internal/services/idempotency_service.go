package services

import (
	"context"

	"report-generator/internal/database"
	"report-generator/internal/logger"
	"report-generator/internal/models"
)

// IdempotencyOutcome is what the relay should do with a keyed request
type IdempotencyOutcome int

const (
	// OutcomeProceed means the caller owns the key and must call Finish
	OutcomeProceed IdempotencyOutcome = iota
	// OutcomeReplay means a completed response is stored for the key
	OutcomeReplay
	// OutcomeConflict means another request with the key is still running
	OutcomeConflict
)

// IdempotencyService deduplicates keyed write requests. A nil store
// disables it and every request proceeds.
type IdempotencyService struct {
	store database.IdempotencyStore
}

// NewIdempotencyService creates a new idempotency service
func NewIdempotencyService(store database.IdempotencyStore) *IdempotencyService {
	return &IdempotencyService{store: store}
}

// Enabled reports whether a store is configured
func (s *IdempotencyService) Enabled() bool {
	return s != nil && s.store != nil
}

// Begin claims key. For OutcomeReplay the stored entry is returned.
func (s *IdempotencyService) Begin(ctx context.Context, key string) (IdempotencyOutcome, *models.IdempotencyEntry, error) {
	if !s.Enabled() || key == "" {
		return OutcomeProceed, nil, nil
	}
	existing, err := s.store.Claim(ctx, key)
	if err != nil {
		return OutcomeProceed, nil, err
	}
	switch {
	case existing == nil:
		return OutcomeProceed, nil, nil
	case existing.Completed:
		return OutcomeReplay, existing, nil
	default:
		return OutcomeConflict, existing, nil
	}
}

// Finish records a 2xx response for replay and releases the key otherwise
func (s *IdempotencyService) Finish(ctx context.Context, key string, status int, body []byte) {
	if !s.Enabled() || key == "" {
		return
	}
	if status >= 200 && status < 300 {
		if err := s.store.Complete(ctx, key, status, body); err != nil {
			logger.Error("Failed to store idempotent response", "key", key, "error", err)
		}
		return
	}
	s.Release(ctx, key)
}

// Release drops the claim on key so it can be retried
func (s *IdempotencyService) Release(ctx context.Context, key string) {
	if !s.Enabled() || key == "" {
		return
	}
	if err := s.store.Release(ctx, key); err != nil {
		logger.Error("Failed to release idempotency key", "key", key, "error", err)
	}
}
